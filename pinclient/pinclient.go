package pinclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/notepay/notepay/httpclient"
)

const (
	testAuthentication = "/data/testAuthentication"
	pinFile            = "/pinning/pinFileToIPFS"
)

var (
	ErrServiceNotResponding = errors.New("pinning service not responding on given address")
	ErrNoData               = errors.New("no file data provided")
	ErrUploadFailed         = errors.New("file upload failed")
)

// Config holds the pinning service connection setup.
type Config struct {
	APIRoot    string        `yaml:"api_root"`    // pinning service API root URL
	GatewayURL string        `yaml:"gateway_url"` // public gateway used to build dereferenceable locators
	APIKey     string        `yaml:"api_key"`     // pinning service API key
	SecretKey  string        `yaml:"secret_key"`  // pinning service secret key
	Timeout    time.Duration `yaml:"timeout"`     // per request timeout
}

// Receipt describes a successfully pinned file.
type Receipt struct {
	ContentAddress string `json:"content_address"` // content address of the pinned file
	URL            string `json:"url"`             // dereferenceable locator served by the gateway
}

// Client pins files to a content addressed store and returns stable
// locators for them.
type Client struct {
	apiRoot    string
	gatewayURL string
	headers    httpclient.Headers
	timeout    time.Duration
}

// NewClient creates a new pinning client and verifies the credentials
// against the service before returning it.
func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = time.Second * 5
	}
	c := &Client{
		apiRoot:    cfg.APIRoot,
		gatewayURL: cfg.GatewayURL,
		headers: httpclient.Headers{
			"pinata_api_key":        cfg.APIKey,
			"pinata_secret_api_key": cfg.SecretKey,
		},
		timeout: timeout,
	}
	if err := httpclient.MakeGet(timeout, fmt.Sprintf("%s%s", cfg.APIRoot, testAuthentication), c.headers, nil); err != nil {
		return nil, errors.Join(ErrServiceNotResponding, err)
	}
	return c, nil
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// Upload pins the file and returns the locator receipt.
// Failing with ErrNoData is distinct from a failed upload so the caller can
// tell a missing file apart from a transport problem.
func (c *Client) Upload(filename string, data []byte) (Receipt, error) {
	if len(data) == 0 {
		return Receipt{}, ErrNoData
	}

	metadata, err := json.Marshal(map[string]any{
		"name": filename,
		"keyvalues": map[string]string{
			"uploadedBy": "NotePay",
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return Receipt{}, errors.Join(ErrUploadFailed, err)
	}
	options, err := json.Marshal(map[string]any{"cidVersion": 0})
	if err != nil {
		return Receipt{}, errors.Join(ErrUploadFailed, err)
	}

	var res pinResponse
	err = httpclient.MakeMultipartPost(
		c.timeout, fmt.Sprintf("%s%s", c.apiRoot, pinFile), c.headers,
		"file", filename, data,
		map[string]string{"pinataMetadata": string(metadata), "pinataOptions": string(options)},
		&res)
	if err != nil {
		return Receipt{}, errors.Join(ErrUploadFailed, err)
	}
	if res.IpfsHash == "" {
		return Receipt{}, errors.Join(ErrUploadFailed, errors.New("pinning service returned no content address"))
	}

	return Receipt{
		ContentAddress: res.IpfsHash,
		URL:            fmt.Sprintf("%s/ipfs/%s", c.gatewayURL, res.IpfsHash),
	}, nil
}
