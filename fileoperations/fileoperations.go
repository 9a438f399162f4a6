package fileoperations

// Config holds configuration of the file operator Helper.
type Config struct {
	WalletPath   string `yaml:"wallet_path"`   // path to the wallet file
	WalletPasswd string `yaml:"wallet_passwd"` // password to the wallet file in hex format
}

// Sealer offers behaviour to seal and open raw bytes.
type Sealer interface {
	Encrypt(key, data []byte) ([]byte, error)
	Decrypt(key, data []byte) ([]byte, error)
}

// Helper holds all file operation methods.
type Helper struct {
	s   Sealer
	cfg Config
}

// New creates a new Helper.
func New(cfg Config, s Sealer) Helper {
	return Helper{cfg: cfg, s: s}
}
