package storeclient

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/notepay/notepay/transaction"
)

// storedTransaction is the persisted row shape of a transaction.
// Fields pair one to one with transaction.Transaction so the transform
// below round trips without loss. Direction is a view projection and has
// no column on purpose.
type storedTransaction struct {
	ID         string          `json:"transaction_id,omitempty"`
	Sender     string          `json:"sender_address"`
	Receiver   string          `json:"receiver_address"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"timestamp"`
	Status     string          `json:"status"`
	Notes      string          `json:"notes"`
	FileURL    string          `json:"file_storage_url"`
	SharedWith []string        `json:"shared_with"`
}

func encodeTransaction(t transaction.Transaction) storedTransaction {
	shared := t.SharedWith
	if shared == nil {
		shared = []string{}
	}
	return storedTransaction{
		ID:         t.ID,
		Sender:     t.Sender,
		Receiver:   t.Receiver,
		Amount:     t.Amount,
		Currency:   t.Currency,
		CreatedAt:  t.CreatedAt,
		Status:     string(t.Status),
		Notes:      t.Notes,
		FileURL:    t.FileURL,
		SharedWith: shared,
	}
}

func decodeTransaction(s storedTransaction) transaction.Transaction {
	shared := s.SharedWith
	if shared == nil {
		shared = []string{}
	}
	return transaction.Transaction{
		ID:         s.ID,
		Sender:     s.Sender,
		Receiver:   s.Receiver,
		Amount:     s.Amount,
		Currency:   s.Currency,
		CreatedAt:  s.CreatedAt,
		Status:     transaction.Status(s.Status),
		Notes:      s.Notes,
		FileURL:    s.FileURL,
		SharedWith: shared,
	}
}
