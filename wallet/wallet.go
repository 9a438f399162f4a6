package wallet

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/gob"
	"encoding/pem"
	"errors"
	"os"

	"github.com/notepay/notepay/serializer"
)

const (
	checksumLength = 4
	version        = byte(0x00)
)

// Wallet holds the key pair of the dashboard owner. Its address is the
// identity every transaction direction and statistic is computed against.
type Wallet struct {
	Private ed25519.PrivateKey `json:"private" bson:"private"`
	Public  ed25519.PublicKey  `json:"public"  bson:"public"`
}

// New creates a new Wallet with a fresh key pair.
func New() (Wallet, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{Private: private, Public: public}, nil
}

// SaveToPem saves the wallet private and public key to PEM format files.
// Files are written as "your/path/name" and "your/path/name.pub".
func (w *Wallet) SaveToPem(filepath string) error {
	prv, err := x509.MarshalPKCS8PrivateKey(w.Private)
	if err != nil {
		return err
	}
	pub, err := x509.MarshalPKIXPublicKey(w.Public)
	if err != nil {
		return err
	}
	blockPrv := &pem.Block{Type: "PRIVATE KEY", Bytes: prv}
	blockPub := &pem.Block{Type: "PUBLIC KEY", Bytes: pub}
	if err := os.WriteFile(filepath, pem.EncodeToMemory(blockPrv), 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath+".pub", pem.EncodeToMemory(blockPub), 0644)
}

// ReadFromPem creates a Wallet from PEM format files.
// Provide the path to the file without the extension.
func ReadFromPem(filepath string) (Wallet, error) {
	var w Wallet
	rawPub, err := os.ReadFile(filepath + ".pub")
	if err != nil {
		return w, err
	}
	rawPrv, err := os.ReadFile(filepath)
	if err != nil {
		return w, err
	}

	blockPub, _ := pem.Decode(rawPub)
	if blockPub == nil || blockPub.Type != "PUBLIC KEY" {
		return w, errors.New("cannot decode public key from PEM format")
	}
	pub, err := x509.ParsePKIXPublicKey(blockPub.Bytes)
	if err != nil {
		return w, err
	}
	blockPrv, _ := pem.Decode(rawPrv)
	if blockPrv == nil || blockPrv.Type != "PRIVATE KEY" {
		return w, errors.New("cannot decode private key from PEM format")
	}
	prv, err := x509.ParsePKCS8PrivateKey(blockPrv.Bytes)
	if err != nil {
		return w, err
	}
	var ok bool
	w.Public, ok = pub.(ed25519.PublicKey)
	if !ok {
		return w, errors.New("cannot cast x509 decoded parsed key to ed25519 public key")
	}
	w.Private, ok = prv.(ed25519.PrivateKey)
	if !ok {
		return w, errors.New("cannot cast x509 decoded parsed key to ed25519 private key")
	}
	return w, nil
}

// DecodeGOBWallet decodes a Wallet from its gob representation.
func DecodeGOBWallet(data []byte) (Wallet, error) {
	var w Wallet
	decoder := gob.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// EncodeGOB encodes the Wallet into its gob representation.
func (w *Wallet) EncodeGOB() ([]byte, error) {
	var content bytes.Buffer
	encoder := gob.NewEncoder(&content)
	if err := encoder.Encode(w); err != nil {
		return nil, err
	}
	return content.Bytes(), nil
}

// Address creates the address from the public key. The address contains the
// wallet version and a checksum and is encoded with base58.
func (w *Wallet) Address() string {
	vers := append([]byte{version}, w.Public...)
	cs := checksum(vers)
	return string(serializer.Base58Encode(append(vers, cs...)))
}

// Sign signs the message with an Ed25519 signature.
// Returns the sha256 digest and the signature.
func (w *Wallet) Sign(message []byte) (digest [32]byte, signature []byte) {
	digest = sha256.Sum256(message)
	signature = ed25519.Sign(w.Private, digest[:])
	return digest, signature
}

// Verify verifies the message Ed25519 signature against the sha256 hash.
func (w *Wallet) Verify(message, signature []byte, hash [32]byte) bool {
	digest := sha256.Sum256(message)
	if !bytes.Equal(hash[:], digest[:]) {
		return false
	}
	return ed25519.Verify(w.Public, digest[:], signature)
}

func checksum(payload []byte) []byte {
	firstHash := sha256.Sum256(payload)
	secondHash := sha256.Sum256(firstHash[:])
	return secondHash[:checksumLength]
}
