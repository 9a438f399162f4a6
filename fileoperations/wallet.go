package fileoperations

import (
	"encoding/hex"
	"os"

	"github.com/notepay/notepay/wallet"
)

// ReadWallet reads and unseals the wallet from the file.
func (h Helper) ReadWallet() (wallet.Wallet, error) {
	raw, err := os.ReadFile(h.cfg.WalletPath)
	if err != nil {
		return wallet.Wallet{}, err
	}

	passwd, err := hex.DecodeString(h.cfg.WalletPasswd)
	if err != nil {
		return wallet.Wallet{}, err
	}

	opened, err := h.s.Decrypt(passwd, raw)
	if err != nil {
		return wallet.Wallet{}, err
	}

	return wallet.DecodeGOBWallet(opened)
}

// SaveWallet seals and saves the wallet to the file.
func (h Helper) SaveWallet(w wallet.Wallet) error {
	raw, err := w.EncodeGOB()
	if err != nil {
		return err
	}

	passwd, err := hex.DecodeString(h.cfg.WalletPasswd)
	if err != nil {
		return err
	}

	sealed, err := h.s.Encrypt(passwd, raw)
	if err != nil {
		return err
	}

	return os.WriteFile(h.cfg.WalletPath, sealed, 0644)
}
