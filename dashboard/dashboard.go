package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/notepay/notepay/logger"
	"github.com/notepay/notepay/pinclient"
	"github.com/notepay/notepay/reactive"
	"github.com/notepay/notepay/reminders"
	"github.com/notepay/notepay/telemetry"
	"github.com/notepay/notepay/transaction"
	"github.com/notepay/notepay/user"
)

var (
	ErrValidation = errors.New("validation error")
	ErrAttachment = errors.New("attachment upload error")
	// ErrPersistence wraps a failed store write: the mutation was not
	// persisted and nothing is kept in memory.
	ErrPersistence = errors.New("persistence error")
	// ErrTransport wraps a failed store read: nothing was lost and the
	// previous in memory state is kept.
	ErrTransport    = errors.New("transport error")
	ErrNoIdentity   = errors.New("no identity, initialize the dashboard first")
	ErrNoPinner     = errors.New("no pinning client configured")
	ErrReminderBook = errors.New("reminder book failure")
)

const eventBufferSize = 100

// Store provides create, read and update access to user and transaction
// records in the remote store. Partial updates carry the persisted snake
// case column names as keys.
type Store interface {
	GetUser(ctx context.Context, address string) (user.User, error)
	UpsertUser(ctx context.Context, address, displayName string) (user.User, error)
	CreateTransaction(ctx context.Context, trx transaction.Transaction) (transaction.Transaction, error)
	TransactionsFor(ctx context.Context, address string) ([]transaction.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, fields map[string]any) (transaction.Transaction, error)
}

// Pinner uploads a file to the content addressed attachment store and
// returns a dereferenceable locator for it.
type Pinner interface {
	Upload(filename string, data []byte) (pinclient.Receipt, error)
}

// ChainReader reads the coarse on chain status of a transaction hash.
type ChainReader interface {
	Status(txHash string) transaction.Status
}

// ReminderBook is the durable client local reminder list.
type ReminderBook interface {
	Append(r reminders.Reminder) error
	ListAll() ([]reminders.Reminder, error)
	ReplaceAll(all []reminders.Reminder) error
}

// Telemeter accepts the measurements the dashboard produces.
// The telemetry.Measurements structure satisfies it.
type Telemeter interface {
	IncrementCounter(name string) bool
	RecordHistogramTime(name string, t time.Duration) bool
	RecordHistogramValue(name string, f float64) bool
	SetGauge(name string, f float64) bool
}

type noopTelemeter struct{}

func (noopTelemeter) IncrementCounter(string) bool                { return false }
func (noopTelemeter) RecordHistogramTime(string, time.Duration) bool { return false }
func (noopTelemeter) RecordHistogramValue(string, float64) bool   { return false }
func (noopTelemeter) SetGauge(string, float64) bool               { return false }

// EventKind names a dashboard state change.
type EventKind string

const (
	EventRefreshed          EventKind = "refreshed"
	EventTransactionCreated EventKind = "transaction_created"
	EventTransactionUpdated EventKind = "transaction_updated"
	EventRemindersDue       EventKind = "reminders_due"
)

// Event is published to subscribers on every dashboard state change so
// presentation surfaces can react without polling.
type Event struct {
	Kind          EventKind            `json:"kind"`
	TransactionID string               `json:"transaction_id,omitempty"`
	DueReminders  []reminders.Reminder `json:"due_reminders,omitempty"`
}

// FilterKind selects a projection of the in memory transaction sequence.
type FilterKind string

const (
	FilterAll      FilterKind = "all"
	FilterSent     FilterKind = "sent"
	FilterReceived FilterKind = "received"
	FilterPending  FilterKind = "pending"
)

// Dashboard owns the in memory transaction state of the connected wallet.
// It derives per transaction direction and aggregate statistics relative to
// the active identity, and composes the remote store, the attachment store
// and the chain status client on mutations.
//
// Mutating operations are serialized on an internal lock, there is no
// version field on records: the last write wins.
type Dashboard struct {
	store Store
	pin   Pinner
	chain ChainReader
	book  ReminderBook
	log   logger.Logger
	tele  Telemeter

	events *reactive.Observable[Event]

	mux      sync.RWMutex
	identity string
	trxs     []transaction.Transaction
	stats    transaction.Statistics
	inflight int
	lastErr  error
	loadSeq  uint64
}

// New creates a new Dashboard with the given collaborators.
// The pinner may be nil when no attachment store is configured, creating a
// transaction with a file fails then. A nil telemeter disables measurements.
func New(store Store, pin Pinner, chain ChainReader, book ReminderBook, log logger.Logger, tele Telemeter) *Dashboard {
	if tele == nil {
		tele = noopTelemeter{}
	}
	return &Dashboard{
		store:  store,
		pin:    pin,
		chain:  chain,
		book:   book,
		log:    log,
		tele:   tele,
		events: reactive.New[Event](eventBufferSize),
	}
}

// Subscription receives dashboard events until cancelled.
type Subscription interface {
	Channel() <-chan Event
	Cancel()
}

// Subscribe registers a subscriber for dashboard events.
func (d *Dashboard) Subscribe() Subscription {
	return d.events.Subscribe()
}

// Initialize connects the dashboard to the given identity: the user record
// is created lazily when absent, the transaction state is loaded and the
// reminder book is checked. The three steps are isolated, a failing step
// does not abort the ones that follow. The returned error joins the step
// failures and is already captured in the last error slot.
func (d *Dashboard) Initialize(ctx context.Context, identity string) error {
	if identity == "" {
		return d.fail(errors.Join(ErrValidation, ErrNoIdentity))
	}

	d.mux.Lock()
	d.identity = identity
	d.mux.Unlock()

	d.tele.IncrementCounter(telemetry.OperationsCounter)

	var failures []error
	if err := d.ensureUser(ctx, identity); err != nil {
		failures = append(failures, d.fail(err))
	}
	if err := d.Load(ctx); err != nil {
		failures = append(failures, err)
	}
	if _, err := d.CheckReminders(time.Now()); err != nil {
		failures = append(failures, err)
	}
	if len(failures) > 0 {
		return errors.Join(failures...)
	}

	d.log.Info(fmt.Sprintf("dashboard initialized for identity [ %s ]", identity))
	return nil
}

func (d *Dashboard) ensureUser(ctx context.Context, identity string) error {
	_, err := d.store.GetUser(ctx, identity)
	switch {
	case errors.Is(err, user.ErrNotFound):
		if _, err := d.store.UpsertUser(ctx, identity, ""); err != nil {
			return errors.Join(ErrPersistence, err)
		}
		return nil
	case err != nil:
		return errors.Join(ErrTransport, err)
	}
	return nil
}

// Load reconciles the in memory state with the remote store: it fetches all
// transactions the identity takes part in, newest first, relabels their
// direction and replaces the whole sequence. A failed fetch leaves the
// previous sequence untouched. Responses arriving after a newer Load call
// was issued are discarded.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mux.Lock()
	identity := d.identity
	if identity == "" {
		d.mux.Unlock()
		return d.fail(errors.Join(ErrValidation, ErrNoIdentity))
	}
	d.inflight++
	d.loadSeq++
	seq := d.loadSeq
	d.mux.Unlock()

	d.tele.IncrementCounter(telemetry.OperationsCounter)
	start := time.Now()
	trxs, err := d.store.TransactionsFor(ctx, identity)
	d.tele.RecordHistogramTime(telemetry.RemoteCallHistogram, time.Since(start))

	d.mux.Lock()
	d.inflight--
	if err != nil {
		d.mux.Unlock()
		// Reading lost nothing, a failed reconciliation is a transport
		// failure, not a persistence one.
		return d.fail(errors.Join(ErrTransport, err))
	}
	if seq != d.loadSeq {
		d.mux.Unlock()
		d.log.Warn(fmt.Sprintf("discarding stale load response for identity [ %s ]", identity))
		return nil
	}
	for i := range trxs {
		trxs[i].Relabel(identity)
	}
	d.trxs = trxs
	d.recomputeStats()
	d.mux.Unlock()

	d.events.Publish(Event{Kind: EventRefreshed})
	return nil
}

// Create validates the draft, uploads the optional attachment, persists the
// transaction and prepends the store confirmed record to the in memory
// sequence. Nothing is written on a failed upload and nothing is kept in
// memory on a failed write, there is no optimistic insert.
func (d *Dashboard) Create(ctx context.Context, draft transaction.Draft, filename string, file []byte) (transaction.Transaction, error) {
	d.mux.RLock()
	identity := d.identity
	d.mux.RUnlock()
	if identity == "" {
		return transaction.Transaction{}, d.fail(errors.Join(ErrValidation, ErrNoIdentity))
	}
	amount, err := draft.Validate()
	if err != nil {
		return transaction.Transaction{}, d.fail(errors.Join(ErrValidation, err))
	}

	d.tele.IncrementCounter(telemetry.OperationsCounter)

	var fileURL string
	if len(file) > 0 {
		if d.pin == nil {
			return transaction.Transaction{}, d.fail(errors.Join(ErrAttachment, ErrNoPinner))
		}
		start := time.Now()
		receipt, err := d.pin.Upload(filename, file)
		d.tele.RecordHistogramTime(telemetry.RemoteCallHistogram, time.Since(start))
		if err != nil {
			return transaction.Transaction{}, d.fail(errors.Join(ErrAttachment, err))
		}
		fileURL = receipt.URL
	}

	trx := transaction.Transaction{
		Sender:     identity,
		Receiver:   draft.Receiver,
		Amount:     amount,
		Currency:   draft.Currency,
		CreatedAt:  time.Now().UTC(),
		Status:     transaction.StatusPending,
		Notes:      draft.Notes,
		FileURL:    fileURL,
		SharedWith: []string{},
	}

	start := time.Now()
	stored, err := d.store.CreateTransaction(ctx, trx)
	d.tele.RecordHistogramTime(telemetry.RemoteCallHistogram, time.Since(start))
	if err != nil {
		return transaction.Transaction{}, d.fail(errors.Join(ErrPersistence, err))
	}
	// The active identity is always the sender of a newly created payment.
	stored.Direction = transaction.DirectionSent

	d.mux.Lock()
	d.trxs = append([]transaction.Transaction{stored}, d.trxs...)
	d.recomputeStats()
	d.mux.Unlock()

	d.events.Publish(Event{Kind: EventTransactionCreated, TransactionID: stored.ID})
	d.log.Info(fmt.Sprintf("transaction [ %s ] created for receiver [ %s ]", stored.ID, stored.Receiver))
	return stored, nil
}

// Update applies the partial field updates to the record in the remote
// store. Keys are the persisted snake case column names. On success the
// matching in memory record is replaced with the server confirmed values,
// its previously computed direction is preserved. No optimistic update is
// made before confirmation.
func (d *Dashboard) Update(ctx context.Context, id string, fields map[string]any) (transaction.Transaction, error) {
	d.tele.IncrementCounter(telemetry.OperationsCounter)

	start := time.Now()
	updated, err := d.store.UpdateTransaction(ctx, id, fields)
	d.tele.RecordHistogramTime(telemetry.RemoteCallHistogram, time.Since(start))
	if err != nil {
		return transaction.Transaction{}, d.fail(errors.Join(ErrPersistence, err))
	}

	d.mux.Lock()
	for i := range d.trxs {
		if d.trxs[i].ID != id {
			continue
		}
		updated.Direction = d.trxs[i].Direction
		d.trxs[i] = updated
		break
	}
	d.recomputeStats()
	d.mux.Unlock()

	d.events.Publish(Event{Kind: EventTransactionUpdated, TransactionID: id})
	return updated, nil
}

// ShareWith grants the given addresses read access to the transaction.
// The set is de-duplicated preserving insertion order and overwrites the
// previous one, calling twice with the same set changes nothing.
func (d *Dashboard) ShareWith(ctx context.Context, id string, addresses []string) (transaction.Transaction, error) {
	seen := make(map[string]struct{}, len(addresses))
	set := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		set = append(set, addr)
	}
	return d.Update(ctx, id, map[string]any{"shared_with": set})
}

// CheckStatus queries the chain for the transaction hash and persists the
// status when it is no longer pending. This is the only path by which a
// transaction leaves the pending state. The chain client downgrades
// transport failures to pending, so a flaky endpoint never fails a payment.
func (d *Dashboard) CheckStatus(ctx context.Context, id, txHash string) (transaction.Status, error) {
	d.tele.IncrementCounter(telemetry.OperationsCounter)

	start := time.Now()
	status := d.chain.Status(txHash)
	d.tele.RecordHistogramTime(telemetry.RemoteCallHistogram, time.Since(start))
	if status == transaction.StatusPending {
		return status, nil
	}
	if _, err := d.Update(ctx, id, map[string]any{"status": string(status)}); err != nil {
		return status, err
	}
	return status, nil
}

// ScheduleReminder appends a reminder for the transaction to the book.
func (d *Dashboard) ScheduleReminder(transactionID string, due time.Time, message string) (reminders.Reminder, error) {
	r := reminders.New(transactionID, due, message)
	if err := d.book.Append(r); err != nil {
		return reminders.Reminder{}, d.fail(errors.Join(ErrReminderBook, err))
	}
	d.log.Info(fmt.Sprintf("reminder scheduled for transaction [ %s ] at %s", transactionID, due))
	return r, nil
}

// CheckReminders partitions the book into due and not due reminders, marks
// the due ones as sent and returns them for the presentation layer to
// surface. A reminder is due when its timestamp is not after now and it was
// not surfaced before. The check is caller driven, there is no timer here.
func (d *Dashboard) CheckReminders(now time.Time) ([]reminders.Reminder, error) {
	all, err := d.book.ListAll()
	if err != nil {
		return nil, d.fail(errors.Join(ErrReminderBook, err))
	}

	due := make([]reminders.Reminder, 0)
	for i := range all {
		if all[i].Sent || all[i].Due.After(now) {
			continue
		}
		due = append(due, all[i])
		all[i].Sent = true
	}
	if len(due) == 0 {
		return due, nil
	}
	if err := d.book.ReplaceAll(all); err != nil {
		return nil, d.fail(errors.Join(ErrReminderBook, err))
	}

	d.tele.RecordHistogramValue(telemetry.DueRemindersHistogram, float64(len(due)))
	d.events.Publish(Event{Kind: EventRemindersDue, DueReminders: due})
	return due, nil
}

// Filter projects the in memory sequence without touching the network or
// the state. Relative order of the sequence is preserved.
func (d *Dashboard) Filter(kind FilterKind) []transaction.Transaction {
	d.mux.RLock()
	defer d.mux.RUnlock()

	out := make([]transaction.Transaction, 0, len(d.trxs))
	for _, trx := range d.trxs {
		switch kind {
		case FilterSent:
			if trx.Direction != transaction.DirectionSent {
				continue
			}
		case FilterReceived:
			if trx.Direction != transaction.DirectionReceived {
				continue
			}
		case FilterPending:
			if trx.Status != transaction.StatusPending {
				continue
			}
		}
		out = append(out, trx)
	}
	return out
}

// Transactions returns a copy of the in memory sequence.
func (d *Dashboard) Transactions() []transaction.Transaction {
	return d.Filter(FilterAll)
}

// Stats returns the aggregate statistics derived from the current state.
func (d *Dashboard) Stats() transaction.Statistics {
	d.mux.RLock()
	defer d.mux.RUnlock()
	return d.stats
}

// Identity returns the active identity the view state is derived for.
func (d *Dashboard) Identity() string {
	d.mux.RLock()
	defer d.mux.RUnlock()
	return d.identity
}

// Loading reports whether a reconciliation against the remote store is in
// flight.
func (d *Dashboard) Loading() bool {
	d.mux.RLock()
	defer d.mux.RUnlock()
	return d.inflight > 0
}

// LastError returns the last surfaced error or nil.
func (d *Dashboard) LastError() error {
	d.mux.RLock()
	defer d.mux.RUnlock()
	return d.lastErr
}

// ClearError clears the last error slot.
func (d *Dashboard) ClearError() {
	d.mux.Lock()
	defer d.mux.Unlock()
	d.lastErr = nil
}

// recomputeStats must be called with the lock held.
func (d *Dashboard) recomputeStats() {
	d.stats = transaction.Summarize(d.trxs)
	d.tele.SetGauge(telemetry.TransactionsGauge, float64(len(d.trxs)))
}

// fail records the error in the last error slot, replacing the previous
// one, and returns it.
func (d *Dashboard) fail(err error) error {
	d.mux.Lock()
	d.lastErr = err
	d.mux.Unlock()
	d.tele.IncrementCounter(telemetry.FailuresCounter)
	d.log.Error(err.Error())
	return err
}
