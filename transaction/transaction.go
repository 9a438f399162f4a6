package transaction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingReceiver  = errors.New("receiver address is required")
	ErrMissingAmount    = errors.New("amount is required")
	ErrMalformedAmount  = errors.New("amount is not a valid decimal number")
	ErrNonPositiveValue = errors.New("amount must be a positive value")
)

// Status describes the lifecycle stage of the transaction.
// Transaction starts as pending and leaves that state only
// after an explicit chain status check.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Direction labels the transaction as sent or received relative to the
// active wallet identity. It is a view projection and is never persisted.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Transaction holds a single peer to peer payment with its shareable
// context: notes, attachment locator and the set of addresses granted read
// access. Struct tags describe the persisted snake case shape one to one.
type Transaction struct {
	ID         string          `json:"transaction_id"   bson:"transaction_id"   db:"transaction_id"`
	Sender     string          `json:"sender_address"   bson:"sender_address"   db:"sender_address"`
	Receiver   string          `json:"receiver_address" bson:"receiver_address" db:"receiver_address"`
	Amount     decimal.Decimal `json:"amount"           bson:"amount"           db:"amount"`
	Currency   string          `json:"currency"         bson:"currency"         db:"currency"`
	CreatedAt  time.Time       `json:"timestamp"        bson:"timestamp"        db:"timestamp"`
	Status     Status          `json:"status"           bson:"status"           db:"status"`
	Notes      string          `json:"notes"            bson:"notes"            db:"notes"`
	FileURL    string          `json:"file_storage_url" bson:"file_storage_url" db:"file_storage_url"`
	SharedWith []string        `json:"shared_with"      bson:"shared_with"      db:"shared_with"`
	Direction  Direction       `json:"direction"        bson:"-"                db:"-"`
}

// DirectionFor computes the direction of a transaction issued by sender as
// seen by the given identity. Addresses compare case insensitive.
func DirectionFor(identity, sender string) Direction {
	if strings.EqualFold(identity, sender) {
		return DirectionSent
	}
	return DirectionReceived
}

// Relabel recomputes the transient direction relative to identity.
func (t *Transaction) Relabel(identity string) {
	t.Direction = DirectionFor(identity, t.Sender)
}

// Draft is the user provided input for a new payment.
// Amount arrives as raw text from the presentation layer.
type Draft struct {
	Receiver string `json:"receiver_address"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Notes    string `json:"notes"`
}

// Validate checks the draft before any network call is made and returns
// the parsed amount, so callers do not parse the raw text twice.
func (d Draft) Validate() (decimal.Decimal, error) {
	if d.Receiver == "" {
		return decimal.Decimal{}, ErrMissingReceiver
	}
	if d.Amount == "" {
		return decimal.Decimal{}, ErrMissingAmount
	}
	return d.ParseAmount()
}

// ParseAmount parses the raw amount into a decimal value.
func (d Draft) ParseAmount() (decimal.Decimal, error) {
	v, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return decimal.Decimal{}, errors.Join(ErrMalformedAmount, fmt.Errorf("cannot parse [ %s ]", d.Amount))
	}
	if !v.IsPositive() {
		return decimal.Decimal{}, errors.Join(ErrNonPositiveValue, fmt.Errorf("got [ %s ]", v.String()))
	}
	return v, nil
}
