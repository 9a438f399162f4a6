package reminders

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrReadFailed  = errors.New("cannot read reminders file")
	ErrWriteFailed = errors.New("cannot write reminders file")
)

// Config holds the reminder book file setup.
type Config struct {
	Path string `yaml:"path"` // path to the reminders file
}

// Reminder is a locally scheduled note about a transaction. It is surfaced
// once when due and then kept with the sent flag raised, never deleted.
type Reminder struct {
	ID            primitive.ObjectID `json:"_id"`
	TransactionID string             `json:"transaction_id"`
	Due           time.Time          `json:"due"`
	Message       string             `json:"message"`
	Sent          bool               `json:"sent"`
}

// New creates a reminder for the transaction due at the given time.
func New(transactionID string, due time.Time, message string) Reminder {
	return Reminder{
		ID:            primitive.NewObjectID(),
		TransactionID: transactionID,
		Due:           due,
		Message:       message,
	}
}

// Book is a durable client local list of reminders backed by a JSON file.
// Access is serialized, the file is the source of truth on every call.
type Book struct {
	mux sync.Mutex
	cfg Config
}

// NewBook creates a reminder book reading and writing the configured file.
func NewBook(cfg Config) *Book {
	return &Book{cfg: cfg}
}

// Append adds the reminder at the end of the durable list.
func (b *Book) Append(r Reminder) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	all, err := b.read()
	if err != nil {
		return err
	}
	return b.write(append(all, r))
}

// ListAll reads the full durable list.
func (b *Book) ListAll() ([]Reminder, error) {
	b.mux.Lock()
	defer b.mux.Unlock()
	return b.read()
}

// ReplaceAll overwrites the durable list with the given one.
func (b *Book) ReplaceAll(all []Reminder) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	return b.write(all)
}

func (b *Book) read() ([]Reminder, error) {
	raw, err := os.ReadFile(b.cfg.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return []Reminder{}, nil
	case err != nil:
		return nil, errors.Join(ErrReadFailed, err)
	}
	var all []Reminder
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, errors.Join(ErrReadFailed, err)
	}
	return all, nil
}

func (b *Book) write(all []Reminder) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	if err := os.WriteFile(b.cfg.Path, raw, 0644); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}
