package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/notepay/notepay/pinclient"
	"github.com/notepay/notepay/reminders"
	"github.com/notepay/notepay/telemetry"
	"github.com/notepay/notepay/transaction"
	"github.com/notepay/notepay/user"
)

type discardLogger struct{}

func (discardLogger) Debug(string) {}
func (discardLogger) Info(string)  {}
func (discardLogger) Warn(string)  {}
func (discardLogger) Error(string) {}
func (discardLogger) Fatal(string) {}

type fakeStore struct {
	users        map[string]user.User
	transactions []transaction.Transaction

	getUserErr error
	createErr  error
	listErr    error
	updateErr  error

	upsertCalls int
	createCalls int
	listCalls   int
	updateCalls int

	lastUpdateID     string
	lastUpdateFields map[string]any

	onList func()
}

func (s *fakeStore) GetUser(_ context.Context, address string) (user.User, error) {
	if s.getUserErr != nil {
		return user.User{}, s.getUserErr
	}
	u, ok := s.users[address]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) UpsertUser(_ context.Context, address, displayName string) (user.User, error) {
	s.upsertCalls++
	u := user.User{Address: address, DisplayName: displayName, CreatedAt: time.Now()}
	if s.users == nil {
		s.users = make(map[string]user.User)
	}
	s.users[address] = u
	return u, nil
}

func (s *fakeStore) CreateTransaction(_ context.Context, trx transaction.Transaction) (transaction.Transaction, error) {
	s.createCalls++
	if s.createErr != nil {
		return transaction.Transaction{}, s.createErr
	}
	trx.ID = "stored-id"
	return trx, nil
}

func (s *fakeStore) TransactionsFor(_ context.Context, _ string) ([]transaction.Transaction, error) {
	s.listCalls++
	if s.onList != nil {
		hook := s.onList
		s.onList = nil
		hook()
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]transaction.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out, nil
}

func (s *fakeStore) UpdateTransaction(_ context.Context, id string, fields map[string]any) (transaction.Transaction, error) {
	s.updateCalls++
	s.lastUpdateID = id
	s.lastUpdateFields = fields
	if s.updateErr != nil {
		return transaction.Transaction{}, s.updateErr
	}
	for _, trx := range s.transactions {
		if trx.ID != id {
			continue
		}
		if notes, ok := fields["notes"].(string); ok {
			trx.Notes = notes
		}
		if status, ok := fields["status"].(string); ok {
			trx.Status = transaction.Status(status)
		}
		if shared, ok := fields["shared_with"].([]string); ok {
			trx.SharedWith = shared
		}
		return trx, nil
	}
	return transaction.Transaction{}, errors.New("transaction not found")
}

type fakePinner struct {
	uploadCalls int
	err         error
}

func (p *fakePinner) Upload(_ string, _ []byte) (pinclient.Receipt, error) {
	p.uploadCalls++
	if p.err != nil {
		return pinclient.Receipt{}, p.err
	}
	return pinclient.Receipt{ContentAddress: "QmHash", URL: "https://gateway.example/ipfs/QmHash"}, nil
}

type fakeChain struct {
	status transaction.Status
}

func (c fakeChain) Status(_ string) transaction.Status {
	return c.status
}

type fakeBook struct {
	list       []reminders.Reminder
	appendErr  error
	listErr    error
	replaceErr error
}

func (b *fakeBook) Append(r reminders.Reminder) error {
	if b.appendErr != nil {
		return b.appendErr
	}
	b.list = append(b.list, r)
	return nil
}

func (b *fakeBook) ListAll() ([]reminders.Reminder, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]reminders.Reminder, len(b.list))
	copy(out, b.list)
	return out, nil
}

func (b *fakeBook) ReplaceAll(all []reminders.Reminder) error {
	if b.replaceErr != nil {
		return b.replaceErr
	}
	b.list = make([]reminders.Reminder, len(all))
	copy(b.list, all)
	return nil
}

type recordingTelemeter struct {
	counters   map[string]int
	histograms map[string]int
}

func newRecordingTelemeter() *recordingTelemeter {
	return &recordingTelemeter{counters: make(map[string]int), histograms: make(map[string]int)}
}

func (r *recordingTelemeter) IncrementCounter(name string) bool {
	r.counters[name]++
	return true
}

func (r *recordingTelemeter) RecordHistogramTime(name string, _ time.Duration) bool {
	r.histograms[name]++
	return true
}

func (r *recordingTelemeter) RecordHistogramValue(name string, _ float64) bool {
	r.histograms[name]++
	return true
}

func (r *recordingTelemeter) SetGauge(string, float64) bool { return true }

const identity = "0xAbCd1234"

func fixtureTransactions() []transaction.Transaction {
	now := time.Now().UTC()
	return []transaction.Transaction{
		{
			ID: "trx-2", Sender: "0xother", Receiver: identity,
			Amount: decimal.RequireFromString("150"), Currency: "USDC",
			CreatedAt: now, Status: transaction.StatusCompleted, SharedWith: []string{},
		},
		{
			ID: "trx-1", Sender: identity, Receiver: "0xother",
			Amount: decimal.RequireFromString("75.50"), Currency: "USDC",
			CreatedAt: now.Add(-time.Hour), Status: transaction.StatusCompleted, SharedWith: []string{},
		},
		{
			ID: "trx-0", Sender: identity, Receiver: "0xthird",
			Amount: decimal.RequireFromString("200"), Currency: "USDC",
			CreatedAt: now.Add(-2 * time.Hour), Status: transaction.StatusPending, SharedWith: []string{},
		},
	}
}

func newTestDashboard(store *fakeStore, pin Pinner, chain ChainReader, book ReminderBook) *Dashboard {
	return New(store, pin, chain, book, discardLogger{}, nil)
}

func TestInitializeCreatesAbsentUser(t *testing.T) {
	store := &fakeStore{}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})

	err := d.Initialize(context.TODO(), identity)
	assert.Nil(t, err)
	assert.Equal(t, 1, store.upsertCalls)
	assert.Equal(t, identity, d.Identity())
}

func TestInitializeSkipsUpsertForKnownUser(t *testing.T) {
	store := &fakeStore{users: map[string]user.User{identity: {Address: identity}}}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})

	err := d.Initialize(context.TODO(), identity)
	assert.Nil(t, err)
	assert.Equal(t, 0, store.upsertCalls)
}

func TestInitializeProceedsPastUserFailure(t *testing.T) {
	store := &fakeStore{getUserErr: errors.New("store down"), transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})

	err := d.Initialize(context.TODO(), identity)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 1, store.listCalls)
	assert.Len(t, d.Transactions(), 3)
}

func TestLoadRelabelsDirectionsCaseInsensitive(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), "0XABCD1234"))

	trxs := d.Transactions()
	assert.Equal(t, transaction.DirectionReceived, trxs[0].Direction)
	assert.Equal(t, transaction.DirectionSent, trxs[1].Direction)
	assert.Equal(t, transaction.DirectionSent, trxs[2].Direction)
}

func TestLoadComputesStatisticsFromCompletedOnly(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), identity))

	stats := d.Stats()
	assert.True(t, stats.TotalReceived.Equal(decimal.RequireFromString("150")))
	assert.True(t, stats.TotalSent.Equal(decimal.RequireFromString("75.50")))
	assert.Equal(t, 1, stats.PendingCount)
	assert.Equal(t, 2, stats.CompletedCount)
}

func TestLoadFailureKeepsPreviousState(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), identity))
	before := d.Transactions()

	store.listErr = errors.New("connection refused")
	err := d.Load(context.TODO())
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, before, d.Transactions())
	assert.NotNil(t, d.LastError())
	assert.False(t, d.Loading())
}

func TestLoadDiscardsStaleResponse(t *testing.T) {
	stale := fixtureTransactions()
	fresh := fixtureTransactions()[:1]
	store := &fakeStore{transactions: stale}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	d.mux.Lock()
	d.identity = identity
	d.mux.Unlock()

	// A newer load completes while the first response is still pending,
	// so the first response must be thrown away.
	store.onList = func() {
		store.transactions = fresh
		assert.Nil(t, d.Load(context.TODO()))
		store.transactions = stale
	}

	assert.Nil(t, d.Load(context.TODO()))
	assert.Len(t, d.Transactions(), 1)
	assert.False(t, d.Loading())
}

func TestCreatePrependsStoredTransactionAsSent(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), identity))

	draft := transaction.Draft{Receiver: "0xother", Amount: "10.25", Currency: "USDC", Notes: "lunch"}
	stored, err := d.Create(context.TODO(), draft, "", nil)
	assert.Nil(t, err)
	assert.Equal(t, "stored-id", stored.ID)
	assert.Equal(t, transaction.StatusPending, stored.Status)
	assert.Equal(t, transaction.DirectionSent, stored.Direction)

	trxs := d.Transactions()
	assert.Len(t, trxs, 4)
	assert.Equal(t, "stored-id", trxs[0].ID)
	assert.Equal(t, 2, d.Stats().PendingCount)
}

func TestCreateValidationFailureMakesNoCalls(t *testing.T) {
	store := &fakeStore{}
	pin := &fakePinner{}
	d := newTestDashboard(store, pin, fakeChain{}, &fakeBook{})
	d.mux.Lock()
	d.identity = identity
	d.mux.Unlock()

	cases := []transaction.Draft{
		{Receiver: "", Amount: "10", Currency: "USDC"},
		{Receiver: "0xother", Amount: "", Currency: "USDC"},
		{Receiver: "0xother", Amount: "abc", Currency: "USDC"},
		{Receiver: "0xother", Amount: "-5", Currency: "USDC"},
		{Receiver: "0xother", Amount: "0", Currency: "USDC"},
	}
	for _, draft := range cases {
		_, err := d.Create(context.TODO(), draft, "receipt.pdf", []byte("data"))
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, 0, pin.uploadCalls)
	assert.Equal(t, 0, store.createCalls)
}

func TestCreateUploadFailureNeverReachesStore(t *testing.T) {
	store := &fakeStore{}
	pin := &fakePinner{err: errors.New("gateway timeout")}
	d := newTestDashboard(store, pin, fakeChain{}, &fakeBook{})
	d.mux.Lock()
	d.identity = identity
	d.mux.Unlock()

	draft := transaction.Draft{Receiver: "0xother", Amount: "10", Currency: "USDC"}
	_, err := d.Create(context.TODO(), draft, "receipt.pdf", []byte("data"))
	assert.ErrorIs(t, err, ErrAttachment)
	assert.Equal(t, 1, pin.uploadCalls)
	assert.Equal(t, 0, store.createCalls)
	assert.ErrorIs(t, d.LastError(), ErrAttachment)
	assert.Empty(t, d.Transactions())
}

func TestCreateWithAttachmentStoresFileURL(t *testing.T) {
	store := &fakeStore{}
	pin := &fakePinner{}
	d := newTestDashboard(store, pin, fakeChain{}, &fakeBook{})
	d.mux.Lock()
	d.identity = identity
	d.mux.Unlock()

	draft := transaction.Draft{Receiver: "0xother", Amount: "10", Currency: "USDC"}
	stored, err := d.Create(context.TODO(), draft, "receipt.pdf", []byte("data"))
	assert.Nil(t, err)
	assert.Equal(t, "https://gateway.example/ipfs/QmHash", stored.FileURL)
}

func TestUpdateFailureLeavesStateUntouched(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), identity))
	before := d.Transactions()
	statsBefore := d.Stats()

	store.updateErr = errors.New("conflict")
	_, err := d.Update(context.TODO(), "trx-1", map[string]any{"notes": "changed"})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, before, d.Transactions())
	assert.Equal(t, statsBefore, d.Stats())
}

func TestUpdatePreservesDirection(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), identity))

	updated, err := d.Update(context.TODO(), "trx-2", map[string]any{"notes": "thanks"})
	assert.Nil(t, err)
	assert.Equal(t, "thanks", updated.Notes)
	assert.Equal(t, transaction.DirectionReceived, updated.Direction)
	assert.Equal(t, transaction.DirectionReceived, d.Transactions()[0].Direction)
}

func TestShareWithDeduplicatesPreservingOrder(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), identity))

	_, err := d.ShareWith(context.TODO(), "trx-1", []string{"0xb", "0xa", "0xb", "0xa"})
	assert.Nil(t, err)
	assert.Equal(t, []string{"0xb", "0xa"}, store.lastUpdateFields["shared_with"])
}

func TestShareWithIsIdempotent(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), identity))

	first, err := d.ShareWith(context.TODO(), "trx-1", []string{"0xa", "0xb"})
	assert.Nil(t, err)
	afterFirst := d.Transactions()

	second, err := d.ShareWith(context.TODO(), "trx-1", []string{"0xa", "0xb"})
	assert.Nil(t, err)
	assert.Equal(t, first.SharedWith, second.SharedWith)
	assert.Equal(t, afterFirst, d.Transactions())
}

func TestCheckStatusPendingSkipsPersistence(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{status: transaction.StatusPending}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), identity))

	status, err := d.CheckStatus(context.TODO(), "trx-0", "0xhash")
	assert.Nil(t, err)
	assert.Equal(t, transaction.StatusPending, status)
	assert.Equal(t, 0, store.updateCalls)
}

func TestCheckStatusCompletedPersistsAndUpdatesState(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{status: transaction.StatusCompleted}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), identity))

	status, err := d.CheckStatus(context.TODO(), "trx-0", "0xhash")
	assert.Nil(t, err)
	assert.Equal(t, transaction.StatusCompleted, status)
	assert.Equal(t, map[string]any{"status": "completed"}, store.lastUpdateFields)
	assert.Equal(t, 0, d.Stats().PendingCount)
	assert.Equal(t, 3, d.Stats().CompletedCount)
}

func TestCheckRemindersSurfacesDueOnlyOnce(t *testing.T) {
	now := time.Now()
	book := &fakeBook{}
	d := newTestDashboard(&fakeStore{}, nil, fakeChain{}, book)

	_, err := d.ScheduleReminder("trx-1", now.Add(-time.Minute), "pay up")
	assert.Nil(t, err)
	_, err = d.ScheduleReminder("trx-2", now.Add(time.Hour), "later")
	assert.Nil(t, err)

	due, err := d.CheckReminders(now)
	assert.Nil(t, err)
	assert.Len(t, due, 1)
	assert.Equal(t, "trx-1", due[0].TransactionID)

	again, err := d.CheckReminders(now)
	assert.Nil(t, err)
	assert.Empty(t, again)
}

func TestCheckRemindersWriteBackFailure(t *testing.T) {
	now := time.Now()
	book := &fakeBook{replaceErr: errors.New("disk full")}
	d := newTestDashboard(&fakeStore{}, nil, fakeChain{}, book)

	_, err := d.ScheduleReminder("trx-1", now.Add(-time.Minute), "pay up")
	assert.Nil(t, err)

	_, err = d.CheckReminders(now)
	assert.ErrorIs(t, err, ErrReminderBook)
}

func TestFilterProjectionsPreserveOrder(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	assert.Nil(t, d.Initialize(context.TODO(), identity))

	sent := d.Filter(FilterSent)
	assert.Len(t, sent, 2)
	assert.Equal(t, "trx-1", sent[0].ID)
	assert.Equal(t, "trx-0", sent[1].ID)

	received := d.Filter(FilterReceived)
	assert.Len(t, received, 1)
	assert.Equal(t, "trx-2", received[0].ID)

	pending := d.Filter(FilterPending)
	assert.Len(t, pending, 1)
	assert.Equal(t, "trx-0", pending[0].ID)

	assert.Len(t, d.Filter(FilterAll), 3)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})

	sub := d.Subscribe()
	defer sub.Cancel()

	assert.Nil(t, d.Initialize(context.TODO(), identity))
	ev := <-sub.Channel()
	assert.Equal(t, EventRefreshed, ev.Kind)
}

func TestRemoteCallDurationsAreMeasured(t *testing.T) {
	store := &fakeStore{transactions: fixtureTransactions()}
	pin := &fakePinner{}
	tele := newRecordingTelemeter()
	d := New(store, pin, fakeChain{status: transaction.StatusCompleted}, &fakeBook{}, discardLogger{}, tele)

	assert.Nil(t, d.Initialize(context.TODO(), identity))
	loads := tele.histograms[telemetry.RemoteCallHistogram]
	assert.Equal(t, 1, loads)

	draft := transaction.Draft{Receiver: "0xother", Amount: "10", Currency: "USDC"}
	_, err := d.Create(context.TODO(), draft, "receipt.pdf", []byte("data"))
	assert.Nil(t, err)
	// One measurement for the upload and one for the store write.
	assert.Equal(t, loads+2, tele.histograms[telemetry.RemoteCallHistogram])

	_, err = d.CheckStatus(context.TODO(), "trx-0", "0xhash")
	assert.Nil(t, err)
	// One measurement for the chain read and one for the status update.
	assert.Equal(t, loads+4, tele.histograms[telemetry.RemoteCallHistogram])
}

func TestClearError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("boom")}
	d := newTestDashboard(store, nil, fakeChain{}, &fakeBook{})
	d.mux.Lock()
	d.identity = identity
	d.mux.Unlock()

	assert.NotNil(t, d.Load(context.TODO()))
	assert.NotNil(t, d.LastError())
	d.ClearError()
	assert.Nil(t, d.LastError())
}
