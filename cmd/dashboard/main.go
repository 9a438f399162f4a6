package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/notepay/notepay/aeswrapper"
	"github.com/notepay/notepay/chainclient"
	"github.com/notepay/notepay/configuration"
	"github.com/notepay/notepay/dashboard"
	"github.com/notepay/notepay/dashboardapi"
	"github.com/notepay/notepay/fileoperations"
	"github.com/notepay/notepay/logger"
	"github.com/notepay/notepay/logging"
	"github.com/notepay/notepay/logo"
	"github.com/notepay/notepay/notifier"
	"github.com/notepay/notepay/pinclient"
	"github.com/notepay/notepay/reminders"
	"github.com/notepay/notepay/stdoutwriter"
	"github.com/notepay/notepay/storeclient"
	"github.com/notepay/notepay/storepostgres"
	"github.com/notepay/notepay/telemetry"
	"github.com/notepay/notepay/zincadapter"
)

const usage = `Dashboard runs the wallet connected payments dashboard service.
It reconciles transactions with the remote store, derives the per identity view state and serves it over REST and websocket.`

func main() {
	logo.Display()

	var file string
	configurator := func() (configuration.Configuration, error) {
		if file == "" {
			return configuration.Configuration{}, errors.New("please specify configuration file path with -c <path to file>")
		}

		cfg, err := configuration.Read(file)
		if err != nil {
			return cfg, err
		}

		return cfg, nil
	}

	app := &cli.App{
		Name:  "dashboard",
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Load configuration from `FILE`",
				Destination: &file,
			},
		},
		Action: func(_ *cli.Context) error {
			cfg, err := configurator()
			if err != nil {
				return err
			}
			run(cfg)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		pterm.Error.Println(err.Error())
	}
}

func run(cfg configuration.Configuration) {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		cancel()
	}()

	callbackOnErr := func(err error) {
		fmt.Println("error with logger: ", err)
	}

	callbackOnFatal := func(err error) {
		panic(fmt.Sprintf("error with logger: %s", err))
	}

	zinc, err := zincadapter.New(cfg.ZincLogger)
	if err != nil {
		fmt.Println(err)
		c <- os.Interrupt
		return
	}

	log := logging.New(callbackOnErr, callbackOnFatal, stdoutwriter.Logger{}, &zinc)

	tele, err := telemetry.Run(ctx, cancel, cfg.Telemetry.Port)
	if err != nil {
		log.Error(err.Error())
		c <- os.Interrupt
		return
	}

	var store dashboard.Store
	switch {
	case cfg.Store.APIRoot != "":
		store = storeclient.NewClient(cfg.Store)
	default:
		db, err := storepostgres.Connect(ctx, cfg.StoreDB)
		if err != nil {
			log.Error(err.Error())
			c <- os.Interrupt
			return
		}
		defer db.Disconnect(ctx)
		if err := db.RunMigration(ctx); err != nil {
			log.Error(err.Error())
			c <- os.Interrupt
			return
		}
		store = db
	}

	var pin dashboard.Pinner
	if cfg.Pinner.APIRoot != "" {
		p, err := pinclient.NewClient(cfg.Pinner)
		if err != nil {
			log.Error(err.Error())
			c <- os.Interrupt
			return
		}
		pin = p
	}

	chain := chainclient.NewClient(cfg.Chain)
	book := reminders.NewBook(cfg.Reminders)

	d := dashboard.New(store, pin, chain, book, log, tele)

	if cfg.FileOperator.WalletPath != "" {
		fo := fileoperations.New(cfg.FileOperator, aeswrapper.New())
		w, err := fo.ReadWallet()
		if err != nil {
			log.Error(fmt.Sprintf("error with reading wallet from file: %s", err))
		} else if err := d.Initialize(ctx, w.Address()); err != nil {
			log.Error(fmt.Sprintf("error initializing dashboard: %s", err))
		}
	}

	if cfg.Nats.Address != "" {
		pub, err := notifier.PublisherConnect(cfg.Nats)
		if err != nil {
			log.Error(err.Error())
			c <- os.Interrupt
			return
		}
		defer pub.Disconnect()
		go publishEvents(ctx, d, pub, log)
	}

	err = dashboardapi.Run(ctx, cfg.API, log, d)
	if err != nil {
		log.Error(err.Error())
	}
}

// publishEvents forwards dashboard events to the pub/sub queue so other
// services can react to created payments and due reminders.
func publishEvents(ctx context.Context, d *dashboard.Dashboard, pub *notifier.Publisher, log logger.Logger) {
	sub := d.Subscribe()
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.Channel():
			switch ev.Kind {
			case dashboard.EventTransactionCreated:
				for _, trx := range d.Transactions() {
					if trx.ID != ev.TransactionID {
						continue
					}
					if err := pub.PublishNewTransaction(&trx); err != nil {
						log.Error(fmt.Sprintf("error publishing new transaction: %s", err))
					}
					break
				}
			case dashboard.EventRemindersDue:
				if err := pub.PublishDueReminders(ev.DueReminders); err != nil {
					log.Error(fmt.Sprintf("error publishing due reminders: %s", err))
				}
			}
		}
	}
}
