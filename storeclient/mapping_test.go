package storeclient

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/notepay/notepay/transaction"
)

func TestTransactionMappingRoundTrips(t *testing.T) {
	trx := transaction.Transaction{
		ID:         "trx-1",
		Sender:     "0xabc",
		Receiver:   "0xdef",
		Amount:     decimal.RequireFromString("12.34"),
		Currency:   "USDC",
		CreatedAt:  time.Date(2024, 4, 2, 10, 30, 0, 0, time.UTC),
		Status:     transaction.StatusPending,
		Notes:      "invoice #42",
		FileURL:    "https://gateway.example.com/ipfs/QmTest",
		SharedWith: []string{"0x111", "0x222"},
	}

	got := decodeTransaction(encodeTransaction(trx))
	assert.Equal(t, trx, got)
}

func TestTransactionMappingDropsDirection(t *testing.T) {
	trx := transaction.Transaction{ID: "trx-1", Direction: transaction.DirectionSent}
	got := decodeTransaction(encodeTransaction(trx))
	assert.Empty(t, got.Direction)
}
