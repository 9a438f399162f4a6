package storeclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/notepay/notepay/httpclient"
	"github.com/notepay/notepay/transaction"
	"github.com/notepay/notepay/user"
)

const (
	usersResource        = "/rest/v1/users"
	transactionsResource = "/rest/v1/transactions"
)

var (
	ErrTransactionNotFound           = errors.New("transaction not found")
	ErrServerReturnsInconsistentData = errors.New("store returns inconsistent data")
)

// Config holds the hosted store connection setup.
type Config struct {
	APIRoot string        `yaml:"api_root"` // root URL of the hosted relational store REST API
	APIKey  string        `yaml:"api_key"`  // key authorizing requests against the store
	Timeout time.Duration `yaml:"timeout"`  // per request timeout
}

// Client is a REST client for the hosted relational store.
// It owns the mapping between the in memory transaction shape and the
// persisted snake case rows and keeps that mapping lossless both ways.
type Client struct {
	apiRoot string
	apiKey  string
	timeout time.Duration
}

// NewClient creates a new store client from the config.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = time.Second * 5
	}
	return &Client{apiRoot: cfg.APIRoot, apiKey: cfg.APIKey, timeout: timeout}
}

func (c *Client) headers() httpclient.Headers {
	return httpclient.Headers{
		"apikey":        c.apiKey,
		"Authorization": fmt.Sprintf("Bearer %s", c.apiKey),
		"Prefer":        "return=representation,resolution=merge-duplicates",
	}
}

// GetUser reads the user record for the address.
// Returns user.ErrNotFound when no record exists.
func (c *Client) GetUser(_ context.Context, address string) (user.User, error) {
	var rows []user.User
	requestURL := fmt.Sprintf("%s%s?user_id=eq.%s", c.apiRoot, usersResource, url.QueryEscape(address))
	if err := httpclient.MakeGet(c.timeout, requestURL, c.headers(), &rows); err != nil {
		return user.User{}, err
	}
	if len(rows) == 0 {
		return user.User{}, errors.Join(user.ErrNotFound, fmt.Errorf("no user record for address [ %s ]", address))
	}
	return rows[0], nil
}

// UpsertUser creates or refreshes the user record for the address.
// An empty display name falls back to the default derived from the address.
func (c *Client) UpsertUser(_ context.Context, address, displayName string) (user.User, error) {
	if displayName == "" {
		displayName = user.DefaultDisplayName(address)
	}
	row := user.User{Address: address, DisplayName: displayName, CreatedAt: time.Now().UTC()}
	var rows []user.User
	requestURL := fmt.Sprintf("%s%s", c.apiRoot, usersResource)
	if err := httpclient.MakePost(c.timeout, requestURL, c.headers(), row, &rows); err != nil {
		return user.User{}, err
	}
	if len(rows) == 0 {
		return user.User{}, errors.Join(ErrServerReturnsInconsistentData, errors.New("upsert returned no user record"))
	}
	return rows[0], nil
}

// CreateTransaction persists the transaction and returns the stored record
// with the store assigned identifier.
func (c *Client) CreateTransaction(_ context.Context, trx transaction.Transaction) (transaction.Transaction, error) {
	var rows []storedTransaction
	requestURL := fmt.Sprintf("%s%s", c.apiRoot, transactionsResource)
	if err := httpclient.MakePost(c.timeout, requestURL, c.headers(), encodeTransaction(trx), &rows); err != nil {
		return transaction.Transaction{}, err
	}
	if len(rows) == 0 {
		return transaction.Transaction{}, errors.Join(ErrServerReturnsInconsistentData, errors.New("insert returned no transaction record"))
	}
	return decodeTransaction(rows[0]), nil
}

// TransactionsFor reads all transactions where the address is the sender,
// the receiver or a member of the shared with set, newest first.
func (c *Client) TransactionsFor(_ context.Context, address string) ([]transaction.Transaction, error) {
	filter := url.QueryEscape(fmt.Sprintf(
		"(sender_address.eq.%s,receiver_address.eq.%s,shared_with.cs.{%s})", address, address, address))
	requestURL := fmt.Sprintf("%s%s?or=%s&order=timestamp.desc", c.apiRoot, transactionsResource, filter)
	var rows []storedTransaction
	if err := httpclient.MakeGet(c.timeout, requestURL, c.headers(), &rows); err != nil {
		return nil, err
	}
	trxs := make([]transaction.Transaction, 0, len(rows))
	for _, row := range rows {
		trxs = append(trxs, decodeTransaction(row))
	}
	return trxs, nil
}

// UpdateTransaction applies the partial snake case field updates to the
// record with the given identifier and returns the server confirmed record.
func (c *Client) UpdateTransaction(_ context.Context, id string, fields map[string]any) (transaction.Transaction, error) {
	var rows []storedTransaction
	requestURL := fmt.Sprintf("%s%s?transaction_id=eq.%s", c.apiRoot, transactionsResource, url.QueryEscape(id))
	if err := httpclient.MakePatch(c.timeout, requestURL, c.headers(), fields, &rows); err != nil {
		return transaction.Transaction{}, err
	}
	if len(rows) == 0 {
		return transaction.Transaction{}, errors.Join(ErrTransactionNotFound, fmt.Errorf("no transaction record for id [ %s ]", id))
	}
	return decodeTransaction(rows[0]), nil
}
