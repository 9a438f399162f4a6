package main

import (
	"errors"
	"os"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/notepay/notepay/aeswrapper"
	"github.com/notepay/notepay/configuration"
	"github.com/notepay/notepay/fileoperations"
	"github.com/notepay/notepay/logo"
	"github.com/notepay/notepay/serializer"
	"github.com/notepay/notepay/wallet"
)

const (
	actionFromPemToGob = iota
	actionFromGobToPem
	actionNewWallet
	actionReadAddress
)

const usage = `Wallet CLI tool allows to create a new Wallet or act on the local Wallet by using keys from different formats and transforming them between formats.
The wallet public address is the identity the dashboard derives its view state for.
Use with the best security practices. GOBINARY is safer to move between machines as this file format is encrypted with AES key.`

func main() {
	logo.Display()

	var pem, config, message, signature, digest string

	configurator := func() (configuration.Configuration, error) {
		if config == "" {
			return configuration.Configuration{}, errors.New("please specify configuration file path with -c <path to file>")
		}

		cfg, err := configuration.Read(config)
		if err != nil {
			return cfg, err
		}

		return cfg, nil
	}

	app := &cli.App{
		Name:  "wallet",
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "pem",
				Aliases:     []string{"p"},
				Usage:       "Load wallet from PEM `FILE` path. Your path shall look like that 'path/to/wallet' and the files are 'wallet' and 'wallet.pem'.",
				Destination: &pem,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Load configuration from `FILE`",
				Destination: &config,
			},
			&cli.StringFlag{
				Name:        "message",
				Aliases:     []string{"m"},
				Usage:       "The `MESSAGE` to sign or verify.",
				Destination: &message,
			},
			&cli.StringFlag{
				Name:        "signature",
				Aliases:     []string{"s"},
				Usage:       "The base58 encoded `SIGNATURE` to verify the message against.",
				Destination: &signature,
			},
			&cli.StringFlag{
				Name:        "digest",
				Aliases:     []string{"d"},
				Usage:       "The base58 encoded `DIGEST` the signature was created for.",
				Destination: &digest,
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "new",
				Aliases: []string{"n"},
				Usage:   "Creates new wallet and saves it to encrypted GOBINARY file and PEM format.",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					if err := run(actionNewWallet, pem, cfg.FileOperator); err != nil {
						return err
					}
					pterm.Info.Println("----------")
					pterm.Info.Println(" SUCCESS !")
					pterm.Info.Println("----------")
					return nil
				},
			},
			{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "Reads the wallet public address from the encrypted GOBINARY file.",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					return run(actionReadAddress, pem, cfg.FileOperator)
				},
			},
			{
				Name:    "topem",
				Aliases: []string{"tp"},
				Usage:   "Reads GOBINARY and saves it to PEM file format.",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					if err := run(actionFromGobToPem, pem, cfg.FileOperator); err != nil {
						return err
					}
					pterm.Info.Println("----------")
					pterm.Info.Println(" SUCCESS !")
					pterm.Info.Println("----------")
					return nil
				},
			},
			{
				Name:    "togob",
				Aliases: []string{"tg"},
				Usage:   "Reads PEM file format and saves it to GOBINARY encrypted file format.",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					if err := run(actionFromPemToGob, pem, cfg.FileOperator); err != nil {
						return err
					}
					pterm.Info.Println("----------")
					pterm.Info.Println(" SUCCESS !")
					pterm.Info.Println("----------")
					return nil
				},
			},
			{
				Name:    "sign",
				Aliases: []string{"si"},
				Usage:   "Signs the message with the wallet from the encrypted GOBINARY file, proving ownership of the wallet address.",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					return runSign(cfg.FileOperator, message)
				},
			},
			{
				Name:    "verify",
				Aliases: []string{"v"},
				Usage:   "Verifies the base58 encoded signature and digest against the message.",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					return runVerify(cfg.FileOperator, message, signature, digest)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		pterm.Error.Println(err.Error())
	}
}

func run(action int, pem string, cfg fileoperations.Config) error {
	h := fileoperations.New(cfg, aeswrapper.New())
	switch action {
	case actionNewWallet:
		w, err := wallet.New()
		if err != nil {
			return err
		}
		if err := h.SaveWallet(w); err != nil {
			return err
		}
		return w.SaveToPem(pem)
	case actionReadAddress:
		w, err := h.ReadWallet()
		if err != nil {
			return err
		}
		pterm.Info.Println(w.Address())
		return nil
	case actionFromGobToPem:
		w, err := h.ReadWallet()
		if err != nil {
			return err
		}
		return w.SaveToPem(pem)
	case actionFromPemToGob:
		w, err := wallet.ReadFromPem(pem)
		if err != nil {
			return err
		}
		return h.SaveWallet(w)
	default:
		return errors.New("unimplemented action")
	}
}

func runSign(cfg fileoperations.Config, message string) error {
	if message == "" {
		return errors.New("please provide the message to sign with -m <message>")
	}
	h := fileoperations.New(cfg, aeswrapper.New())
	w, err := h.ReadWallet()
	if err != nil {
		return err
	}
	digest, signature := w.Sign([]byte(message))
	pterm.Info.Printfln("address: %s", w.Address())
	pterm.Info.Printfln("digest: %s", string(serializer.Base58Encode(digest[:])))
	pterm.Info.Printfln("signature: %s", string(serializer.Base58Encode(signature)))
	return nil
}

func runVerify(cfg fileoperations.Config, message, signature, digest string) error {
	if message == "" || signature == "" || digest == "" {
		return errors.New("please provide -m <message>, -s <signature> and -d <digest>")
	}
	h := fileoperations.New(cfg, aeswrapper.New())
	w, err := h.ReadWallet()
	if err != nil {
		return err
	}
	sig, err := serializer.Base58Decode([]byte(signature))
	if err != nil {
		return err
	}
	dig, err := serializer.Base58Decode([]byte(digest))
	if err != nil {
		return err
	}
	var hash [32]byte
	if len(dig) != len(hash) {
		return errors.New("digest has the wrong length")
	}
	copy(hash[:], dig)
	if !w.Verify([]byte(message), sig, hash) {
		return errors.New("signature does not match the message")
	}
	pterm.Info.Println("----------")
	pterm.Info.Println(" VALID !")
	pterm.Info.Println("----------")
	return nil
}
