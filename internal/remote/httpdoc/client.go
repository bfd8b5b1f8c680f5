// Package httpdoc talks to a plain JSON document endpoint: GET returns the
// ledger, PUT replaces it. No authentication, no partial updates.
package httpdoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"anwarfarm/internal/core"
	"anwarfarm/internal/remote"
)

var _ remote.Store = (*Client)(nil)

// maxDocumentBytes bounds how much of a response body is read.
const maxDocumentBytes = 32 << 20

type Client struct {
	url  string
	http *http.Client
}

// New creates a client for the document at url. A nil httpClient gets a
// pooled client without an overall request timeout.
func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = newHTTPClientWithPooling()
	}
	return &Client{url: url, http: httpClient}
}

func (c *Client) Name() string { return "http" }

// newHTTPClientWithPooling bounds connection setup but not the request as a
// whole; a hung sync only keeps the indicator busy.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &http.Client{Transport: transport}
}

func (c *Client) Get(ctx context.Context) ([]core.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, remote.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: unexpected status %d", c.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return remote.DecodeDocument(body)
}

func (c *Client) Put(ctx context.Context, records []core.Transaction) error {
	doc, err := remote.EncodeDocument(records)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url, bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("put %s: %w", c.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("put %s: unexpected status %d", c.url, resp.StatusCode)
	}
	return nil
}
