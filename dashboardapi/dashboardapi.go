package dashboardapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/notepay/notepay/dashboard"
	"github.com/notepay/notepay/logger"
	"github.com/notepay/notepay/reminders"
	"github.com/notepay/notepay/token"
	"github.com/notepay/notepay/transaction"
)

const (
	ApiVersion = "1.0.0"
	Header     = "NotePay-Dashboard-API"
)

const (
	day  = time.Hour * 24
	week = day * 7
)

const (
	MetricsURL        = "/metrics"              // URL serves service metrics.
	AliveURL          = "/alive"                // URL allows to check if server is alive.
	WsURL             = "/ws"                   // URL to connect to the dashboard events stream.
	InitializeURL     = "/initialize"           // URL connects an identity and loads its state.
	RefreshURL        = "/refresh"              // URL reconciles the state with the remote store.
	GetTransactions   = "/transactions"         // URL allows to read the filtered transaction sequence.
	GetStatistics     = "/statistics"           // URL allows to read the aggregate statistics.
	CreateTransaction = "/transaction/create"   // URL allows to create a new payment with an optional attachment.
	UpdateTransaction = "/transaction/update"   // URL allows to update mutable fields of a transaction.
	ShareTransaction  = "/transaction/share"    // URL allows to share a transaction with other addresses.
	CheckStatusURL    = "/transaction/status"   // URL checks the on chain status and persists a settled one.
	ScheduleReminder  = "/reminder/schedule"    // URL allows to schedule a payment reminder.
	CheckReminders    = "/reminders/check"      // URL surfaces due reminders and marks them as sent.
	GetLastError      = "/error"                // URL allows to read the last surfaced error.
	ClearLastError    = "/error/clear"          // URL clears the last surfaced error.
	GetOneDayToken    = "/token/day"            // URL allows to get one day token.
	GetOneWeekToken   = "/token/week"           // URL allows to get one week token.
)

// Config is the configuration of the dashboard REST API.
type Config struct {
	Port  string `yaml:"port"`
	Token string `yaml:"token"`
}

type app struct {
	log       logger.Logger
	dashboard *dashboard.Dashboard
	hub       *hub

	mux       sync.RWMutex
	bootstrap string
	tokens    map[string]token.Token
}

// Run runs the REST and websocket surface over the dashboard view state.
// This blocks until the context is canceled.
func Run(ctx context.Context, cfg Config, log logger.Logger, d *dashboard.Dashboard) error {
	ctxx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &app{
		log:       log,
		dashboard: d,
		hub:       newHub(log),
		bootstrap: cfg.Token,
		tokens:    make(map[string]token.Token),
	}

	go s.hub.run(ctxx)
	go s.pumpEvents(ctxx)

	router := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   time.Second * 5,
		WriteTimeout:  time.Second * 5,
		ServerHeader:  Header,
		AppName:       ApiVersion,
		Concurrency:   1024,
	})
	router.Use(recover.New())
	router.Get(MetricsURL, monitor.New(monitor.Config{Title: "NotePay Dashboard API"}))

	router.Get(AliveURL, s.alive)
	router.Get(GetTransactions, s.transactions)
	router.Get(GetStatistics, s.statistics)
	router.Get(GetLastError, s.lastError)
	router.Get(GetOneDayToken, s.guard(s.getOneDayToken))
	router.Get(GetOneWeekToken, s.guard(s.getOneWeekToken))

	router.Post(InitializeURL, s.guard(s.initialize))
	router.Post(RefreshURL, s.guard(s.refresh))
	router.Post(CreateTransaction, s.guard(s.createTransaction))
	router.Post(UpdateTransaction, s.guard(s.updateTransaction))
	router.Post(ShareTransaction, s.guard(s.shareTransaction))
	router.Post(CheckStatusURL, s.guard(s.checkStatus))
	router.Post(ScheduleReminder, s.guard(s.scheduleReminder))
	router.Post(CheckReminders, s.guard(s.checkReminders))
	router.Post(ClearLastError, s.guard(s.clearLastError))

	router.Get(WsURL, func(c *fiber.Ctx) error {
		return s.wsWrapper(ctxx, c)
	})

	var err error
	go func() {
		err = router.Listen(fmt.Sprintf("0.0.0.0:%v", cfg.Port))
		if err != nil {
			cancel()
		}
	}()

	<-ctxx.Done()

	if err = router.Shutdown(); err != nil {
		return err
	}

	return err
}

// pumpEvents forwards dashboard events to the websocket hub.
func (a *app) pumpEvents(ctx context.Context) {
	sub := a.dashboard.Subscribe()
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.Channel():
			a.hub.broadcast <- &Message{Command: CommandEvent, Event: &ev}
		}
	}
}

func (a *app) validToken(t string) bool {
	if t == "" {
		return false
	}
	a.mux.RLock()
	defer a.mux.RUnlock()
	if a.bootstrap != "" && t == a.bootstrap {
		return true
	}
	tok, ok := a.tokens[t]
	return ok && !tok.Expired(time.Now())
}

func (a *app) registerToken(t token.Token) {
	a.mux.Lock()
	defer a.mux.Unlock()
	a.tokens[t.Token] = t
}

// guard rejects requests that do not carry a valid mutation token.
func (a *app) guard(next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !a.validToken(c.Get("Token")) {
			a.log.Error(fmt.Sprintf("rejected request without valid token from address: %s", c.IP()))
			return fiber.ErrForbidden
		}
		return next(c)
	}
}

// AliveResponse is containing server alive data such as ApiVersion and APIHeader.
type AliveResponse struct {
	Alive      bool   `json:"alive"`
	APIVersion string `json:"api_version"`
	APIHeader  string `json:"api_header"`
}

func (a *app) alive(c *fiber.Ctx) error {
	return c.JSON(
		AliveResponse{
			Alive:      true,
			APIVersion: ApiVersion,
			APIHeader:  Header,
		})
}

// InitializeRequest carries the wallet address to derive the view state for.
type InitializeRequest struct {
	Address string `json:"address"`
}

// InitializeResponse is a response to connecting an identity.
type InitializeResponse struct {
	Err string `json:"err"`
	Ok  bool   `json:"ok"`
}

func (a *app) initialize(c *fiber.Ctx) error {
	var req InitializeRequest
	if err := c.BodyParser(&req); err != nil {
		err := fmt.Errorf("error reading data: %v", err)
		a.log.Error(err.Error())
		return errors.Join(fiber.ErrBadRequest, err)
	}
	if req.Address == "" {
		a.log.Error("wrong JSON format when initializing the dashboard")
		return fiber.ErrBadRequest
	}

	if err := a.dashboard.Initialize(c.Context(), req.Address); err != nil {
		err := fmt.Errorf("error initializing dashboard: %v", err)
		a.log.Error(err.Error())
		return c.JSON(InitializeResponse{Ok: false, Err: err.Error()})
	}
	return c.JSON(InitializeResponse{Ok: true})
}

// RefreshResponse is a response to a reconciliation request.
type RefreshResponse struct {
	Err string `json:"err"`
	Ok  bool   `json:"ok"`
}

func (a *app) refresh(c *fiber.Ctx) error {
	if err := a.dashboard.Load(c.Context()); err != nil {
		err := fmt.Errorf("error loading transactions: %v", err)
		a.log.Error(err.Error())
		return c.JSON(RefreshResponse{Ok: false, Err: err.Error()})
	}
	return c.JSON(RefreshResponse{Ok: true})
}

// TransactionsResponse is a response with the filtered transaction sequence.
type TransactionsResponse struct {
	Err          string                    `json:"err"`
	Transactions []transaction.Transaction `json:"transactions"`
	Loading      bool                      `json:"loading"`
	Ok           bool                      `json:"ok"`
}

func (a *app) transactions(c *fiber.Ctx) error {
	kind := dashboard.FilterKind(c.Query("filter", string(dashboard.FilterAll)))
	switch kind {
	case dashboard.FilterAll, dashboard.FilterSent, dashboard.FilterReceived, dashboard.FilterPending:
	default:
		a.log.Error(fmt.Sprintf("unknown transactions filter [ %s ]", kind))
		return fiber.ErrBadRequest
	}
	return c.JSON(TransactionsResponse{
		Ok:           true,
		Transactions: a.dashboard.Filter(kind),
		Loading:      a.dashboard.Loading(),
	})
}

// StatisticsResponse is a response with the aggregate statistics.
type StatisticsResponse struct {
	Err        string                 `json:"err"`
	Statistics transaction.Statistics `json:"statistics"`
	Ok         bool                   `json:"ok"`
}

func (a *app) statistics(c *fiber.Ctx) error {
	return c.JSON(StatisticsResponse{Ok: true, Statistics: a.dashboard.Stats()})
}

// CreateTransactionResponse is a response to creating a transaction.
type CreateTransactionResponse struct {
	Err         string                  `json:"err"`
	Transaction transaction.Transaction `json:"transaction"`
	Ok          bool                    `json:"ok"`
}

func (a *app) createTransaction(c *fiber.Ctx) error {
	draft := transaction.Draft{
		Receiver: c.FormValue("receiver"),
		Amount:   c.FormValue("amount"),
		Currency: c.FormValue("currency"),
		Notes:    c.FormValue("notes"),
	}

	var filename string
	var data []byte
	if fh, err := c.FormFile("file"); err == nil && fh != nil {
		f, err := fh.Open()
		if err != nil {
			err := fmt.Errorf("error opening attachment: %v", err)
			a.log.Error(err.Error())
			return errors.Join(fiber.ErrBadRequest, err)
		}
		defer f.Close()
		data, err = io.ReadAll(f)
		if err != nil {
			err := fmt.Errorf("error reading attachment: %v", err)
			a.log.Error(err.Error())
			return errors.Join(fiber.ErrBadRequest, err)
		}
		filename = fh.Filename
	}

	trx, err := a.dashboard.Create(c.Context(), draft, filename, data)
	if err != nil {
		err := fmt.Errorf("error creating transaction: %v", err)
		a.log.Error(err.Error())
		return c.JSON(CreateTransactionResponse{Ok: false, Err: err.Error()})
	}
	return c.JSON(CreateTransactionResponse{Ok: true, Transaction: trx})
}

// UpdateTransactionRequest is a request to update mutable transaction fields.
type UpdateTransactionRequest struct {
	TransactionID string         `json:"transaction_id"`
	Fields        map[string]any `json:"fields"`
}

// UpdateTransactionResponse is a response to updating a transaction.
type UpdateTransactionResponse struct {
	Err         string                  `json:"err"`
	Transaction transaction.Transaction `json:"transaction"`
	Ok          bool                    `json:"ok"`
}

func (a *app) updateTransaction(c *fiber.Ctx) error {
	var req UpdateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		err := fmt.Errorf("error reading data: %v", err)
		a.log.Error(err.Error())
		return errors.Join(fiber.ErrBadRequest, err)
	}
	if req.TransactionID == "" || len(req.Fields) == 0 {
		a.log.Error("wrong JSON format when updating a transaction")
		return fiber.ErrBadRequest
	}

	trx, err := a.dashboard.Update(c.Context(), req.TransactionID, req.Fields)
	if err != nil {
		err := fmt.Errorf("error updating transaction: %v", err)
		a.log.Error(err.Error())
		return c.JSON(UpdateTransactionResponse{Ok: false, Err: err.Error()})
	}
	return c.JSON(UpdateTransactionResponse{Ok: true, Transaction: trx})
}

// ShareTransactionRequest is a request to share a transaction.
type ShareTransactionRequest struct {
	TransactionID string   `json:"transaction_id"`
	Addresses     []string `json:"addresses"`
}

func (a *app) shareTransaction(c *fiber.Ctx) error {
	var req ShareTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		err := fmt.Errorf("error reading data: %v", err)
		a.log.Error(err.Error())
		return errors.Join(fiber.ErrBadRequest, err)
	}
	if req.TransactionID == "" || req.Addresses == nil {
		a.log.Error("wrong JSON format when sharing a transaction")
		return fiber.ErrBadRequest
	}

	trx, err := a.dashboard.ShareWith(c.Context(), req.TransactionID, req.Addresses)
	if err != nil {
		err := fmt.Errorf("error sharing transaction: %v", err)
		a.log.Error(err.Error())
		return c.JSON(UpdateTransactionResponse{Ok: false, Err: err.Error()})
	}
	return c.JSON(UpdateTransactionResponse{Ok: true, Transaction: trx})
}

// CheckStatusRequest is a request to check the on chain transaction status.
type CheckStatusRequest struct {
	TransactionID string `json:"transaction_id"`
	TxHash        string `json:"tx_hash"`
}

// CheckStatusResponse carries the chain reported transaction status.
type CheckStatusResponse struct {
	Err    string             `json:"err"`
	Status transaction.Status `json:"status"`
	Ok     bool               `json:"ok"`
}

func (a *app) checkStatus(c *fiber.Ctx) error {
	var req CheckStatusRequest
	if err := c.BodyParser(&req); err != nil {
		err := fmt.Errorf("error reading data: %v", err)
		a.log.Error(err.Error())
		return errors.Join(fiber.ErrBadRequest, err)
	}
	if req.TransactionID == "" || req.TxHash == "" {
		a.log.Error("wrong JSON format when checking transaction status")
		return fiber.ErrBadRequest
	}

	status, err := a.dashboard.CheckStatus(c.Context(), req.TransactionID, req.TxHash)
	if err != nil {
		err := fmt.Errorf("error checking transaction status: %v", err)
		a.log.Error(err.Error())
		return c.JSON(CheckStatusResponse{Ok: false, Status: status, Err: err.Error()})
	}
	return c.JSON(CheckStatusResponse{Ok: true, Status: status})
}

// ScheduleReminderRequest is a request to schedule a payment reminder.
type ScheduleReminderRequest struct {
	TransactionID string    `json:"transaction_id"`
	Due           time.Time `json:"due"`
	Message       string    `json:"message"`
}

// ScheduleReminderResponse is a response to scheduling a reminder.
type ScheduleReminderResponse struct {
	Err      string             `json:"err"`
	Reminder reminders.Reminder `json:"reminder"`
	Ok       bool               `json:"ok"`
}

func (a *app) scheduleReminder(c *fiber.Ctx) error {
	var req ScheduleReminderRequest
	if err := c.BodyParser(&req); err != nil {
		err := fmt.Errorf("error reading data: %v", err)
		a.log.Error(err.Error())
		return errors.Join(fiber.ErrBadRequest, err)
	}
	if req.TransactionID == "" || req.Due.IsZero() {
		a.log.Error("wrong JSON format when scheduling a reminder")
		return fiber.ErrBadRequest
	}

	r, err := a.dashboard.ScheduleReminder(req.TransactionID, req.Due, req.Message)
	if err != nil {
		err := fmt.Errorf("error scheduling reminder: %v", err)
		a.log.Error(err.Error())
		return c.JSON(ScheduleReminderResponse{Ok: false, Err: err.Error()})
	}
	return c.JSON(ScheduleReminderResponse{Ok: true, Reminder: r})
}

// CheckRemindersResponse carries the reminders that became due.
type CheckRemindersResponse struct {
	Err       string               `json:"err"`
	Reminders []reminders.Reminder `json:"reminders"`
	Ok        bool                 `json:"ok"`
}

func (a *app) checkReminders(c *fiber.Ctx) error {
	due, err := a.dashboard.CheckReminders(time.Now())
	if err != nil {
		err := fmt.Errorf("error checking reminders: %v", err)
		a.log.Error(err.Error())
		return c.JSON(CheckRemindersResponse{Ok: false, Err: err.Error()})
	}
	return c.JSON(CheckRemindersResponse{Ok: true, Reminders: due})
}

// LastErrorResponse carries the last surfaced error message.
type LastErrorResponse struct {
	Err string `json:"err"`
	Ok  bool   `json:"ok"`
}

func (a *app) lastError(c *fiber.Ctx) error {
	var msg string
	if err := a.dashboard.LastError(); err != nil {
		msg = err.Error()
	}
	return c.JSON(LastErrorResponse{Ok: true, Err: msg})
}

func (a *app) clearLastError(c *fiber.Ctx) error {
	a.dashboard.ClearError()
	return c.JSON(LastErrorResponse{Ok: true})
}

func (a *app) getOneDayToken(c *fiber.Ctx) error {
	return a.generateToken(c, time.Now().Add(day))
}

func (a *app) getOneWeekToken(c *fiber.Ctx) error {
	return a.generateToken(c, time.Now().Add(week))
}

func (a *app) generateToken(c *fiber.Ctx, t time.Time) error {
	tok, err := token.New(t.UnixMicro())
	if err != nil {
		a.log.Error(err.Error())
		return errors.Join(fiber.ErrBadRequest, err)
	}
	a.registerToken(tok)
	return c.JSON(tok)
}
