package pinclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/notepay/notepay/httpclient"
)

func newTestClient(apiRoot string) *Client {
	return &Client{
		apiRoot:    apiRoot,
		gatewayURL: "https://gateway.example",
		headers:    httpclient.Headers{},
		timeout:    time.Second,
	}
}

func TestUploadWithoutDataIsNoData(t *testing.T) {
	client := newTestClient("http://localhost:1")

	_, err := client.Upload("receipt.pdf", nil)

	assert.ErrorIs(t, err, ErrNoData)
	assert.NotErrorIs(t, err, ErrUploadFailed)
}

func TestUploadTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Upload("receipt.pdf", []byte("data"))

	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestUploadBuildsGatewayLocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pinFile, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"IpfsHash":"QmHash123"}`)
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv.URL).Upload("receipt.pdf", []byte("data"))

	assert.Nil(t, err)
	assert.Equal(t, "QmHash123", receipt.ContentAddress)
	assert.Equal(t, "https://gateway.example/ipfs/QmHash123", receipt.URL)
}
