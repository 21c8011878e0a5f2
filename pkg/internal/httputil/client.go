/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package httputil provides the HTTP client shared by the verifier's
// network touch points: OpenID Connect discovery, JWKS fetches, DID
// resolution and credential status endpoints.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hyperledger/aries-framework-go/component/log"
)

var logger = log.New("vc-verification/httputil")

const (
	// DefaultTimeout bounds every HTTP call made by the verifier.
	DefaultTimeout = 10 * time.Second

	defaultMaxRetries   = 2
	defaultRetryBackoff = 250 * time.Millisecond
)

// Client performs the verifier's outbound HTTP calls. Idempotent GETs are
// retried a bounded number of times; POSTs are sent exactly once.
type Client struct {
	http         *http.Client
	maxRetries   uint64
	retryBackoff time.Duration
}

// Option configures a Client.
type Option func(c *Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithMaxRetries overrides the GET retry count.
func WithMaxRetries(retries uint64) Option {
	return func(c *Client) {
		c.maxRetries = retries
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		http:         &http.Client{Timeout: DefaultTimeout},
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetJSON fetches url and decodes the JSON response body into out. Network
// errors and 5xx responses are retried with constant backoff; 4xx responses
// fail immediately.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	var body []byte

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request for %s: %w", url, err))
		}

		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", url, err)
		}

		defer closeResponseBody(resp.Body)

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response from %s: %w", url, err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("received status %d from %s", resp.StatusCode, url)
		}

		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("received status %d from %s", resp.StatusCode, url))
		}

		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryBackoff), c.maxRetries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}

	return nil
}

// Post sends body to url exactly once and returns the response body. A
// non-2xx status is an error.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", url, err)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to %s: %w", url, err)
	}

	defer closeResponseBody(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", url, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("received status %d from %s", resp.StatusCode, url)
	}

	return respBody, nil
}

func closeResponseBody(respBody io.Closer) {
	if err := respBody.Close(); err != nil {
		logger.Errorf("Failed to close response body: %v", err)
	}
}
