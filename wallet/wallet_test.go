package wallet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notepay/notepay/serializer"
)

func TestCreateWallet(t *testing.T) {
	w, err := New()
	assert.Nil(t, err)
	assert.NotNil(t, w.Private)
	assert.NotNil(t, w.Public)
}

func TestGobEncodingDecoding(t *testing.T) {
	w, err := New()
	assert.Nil(t, err)

	b, err := w.EncodeGOB()
	assert.Nil(t, err)
	assert.NotNil(t, b)

	nw, err := DecodeGOBWallet(b)
	assert.Nil(t, err)
	assert.Equal(t, nw.Private, w.Private)
	assert.Equal(t, nw.Public, w.Public)
}

func TestPemEncodingDecoding(t *testing.T) {
	w, err := New()
	assert.Nil(t, err)

	path := filepath.Join(t.TempDir(), "wallet")
	err = w.SaveToPem(path)
	assert.Nil(t, err)

	nw, err := ReadFromPem(path)
	assert.Nil(t, err)
	assert.Equal(t, w.Private, nw.Private)
	assert.Equal(t, w.Public, nw.Public)
	assert.Equal(t, w.Address(), nw.Address())
}

func TestAddressIsStable(t *testing.T) {
	w, err := New()
	assert.Nil(t, err)

	addr := w.Address()
	assert.NotEmpty(t, addr)
	assert.Equal(t, addr, w.Address())
}

func TestSignVerifySuccess(t *testing.T) {
	w, err := New()
	assert.Nil(t, err)

	message := []byte("This is test message.")

	hash, sig := w.Sign(message)
	assert.NotNil(t, hash)
	assert.NotNil(t, sig)

	ok := w.Verify(message, sig, hash)
	assert.True(t, ok)
}

func TestSignatureSurvivesBase58Transport(t *testing.T) {
	w, err := New()
	assert.Nil(t, err)

	message := []byte("Payment of 10.50 USDC for invoice 42.")
	hash, sig := w.Sign(message)

	encodedSig := serializer.Base58Encode(sig)
	encodedHash := serializer.Base58Encode(hash[:])

	decodedSig, err := serializer.Base58Decode(encodedSig)
	assert.Nil(t, err)
	decodedHash, err := serializer.Base58Decode(encodedHash)
	assert.Nil(t, err)
	assert.Len(t, decodedHash, len(hash))

	var transported [32]byte
	copy(transported[:], decodedHash)
	assert.True(t, w.Verify(message, decodedSig, transported))
}

func TestSignVerifyFail(t *testing.T) {
	w, err := New()
	assert.Nil(t, err)

	message := []byte("This is test message.")

	nw, err := New()
	assert.Nil(t, err)
	hash, sig := nw.Sign(message)

	ok := w.Verify(message, sig, hash)
	assert.False(t, ok)
}
