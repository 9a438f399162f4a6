package chainclient

import (
	"time"

	"github.com/notepay/notepay/httpclient"
	"github.com/notepay/notepay/transaction"
)

// Config holds the chain RPC endpoint setup.
type Config struct {
	RPCURL  string        `yaml:"rpc_url"` // JSON RPC endpoint of the chain node
	Timeout time.Duration `yaml:"timeout"` // per request timeout
}

// Client reads coarse transaction status from the chain over JSON RPC.
// It is read only and never mutates chain state.
type Client struct {
	rpcURL  string
	timeout time.Duration
}

// NewClient creates a new chain status client from the config.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = time.Second * 5
	}
	return &Client{rpcURL: cfg.RPCURL, timeout: timeout}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcReceipt struct {
	Status string `json:"status"`
}

type rpcResponse struct {
	Result *rpcReceipt `json:"result"`
}

// Status reads the receipt of the transaction with the given hash.
// A missing receipt means the transaction is still pending. Transport
// failures are downgraded to pending as well, a status check must never
// report a definitive failure it cannot prove.
func (c *Client) Status(txHash string) transaction.Status {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  "eth_getTransactionReceipt",
		Params:  []any{txHash},
		ID:      1,
	}
	var res rpcResponse
	if err := httpclient.MakePost(c.timeout, c.rpcURL, nil, req, &res); err != nil {
		return transaction.StatusPending
	}
	if res.Result == nil {
		return transaction.StatusPending
	}
	if res.Result.Status == "0x1" {
		return transaction.StatusCompleted
	}
	return transaction.StatusFailed
}
