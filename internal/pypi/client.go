// SPDX-License-Identifier: MPL-2.0

// Package pypi queries a Python package index JSON API for release file
// metadata (digests, signature availability) and detached signatures.
package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/WIN32GG/spvm/internal/retry"
)

const (
	// DefaultBaseURL is the production index.
	DefaultBaseURL = "https://pypi.org"

	// maxJSONResponseBytes bounds JSON API responses (10 MB).
	maxJSONResponseBytes = 10 << 20

	// maxSignatureBytes bounds detached signature downloads.
	maxSignatureBytes = 64 << 10

	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
)

var (
	// ErrReleaseNotFound is returned when the index has no such project or version.
	ErrReleaseNotFound = errors.New("release not found on index")

	// ErrSignatureNotFound is returned when a file advertised as signed has no signature.
	ErrSignatureNotFound = errors.New("signature not found on index")
)

type (
	// StatusError is returned for unexpected HTTP statuses.
	StatusError struct {
		URL  string
		Code int
	}

	// Digests holds the hex digests the index publishes for a file.
	// Any of them may be empty.
	Digests struct {
		SHA256     string `json:"sha256"`
		MD5        string `json:"md5"`
		Blake2b256 string `json:"blake2b_256"`
	}

	// File is one distribution file of a release.
	File struct {
		Filename    string  `json:"filename"`
		URL         string  `json:"url"`
		PackageType string  `json:"packagetype"`
		Size        int64   `json:"size"`
		HasSig      bool    `json:"has_sig"`
		MD5Digest   string  `json:"md5_digest"`
		Digests     Digests `json:"digests"`
	}

	// Release is the set of files published for one project version.
	Release struct {
		Name    string
		Version string
		Files   []File
	}

	// projectResponse is the JSON wire format of /pypi/<name>[/<version>]/json.
	projectResponse struct {
		Info struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"info"`
		URLs []File `json:"urls"`
	}

	// Client talks to the index JSON API.
	Client struct {
		httpClient  *http.Client
		baseURL     string
		userAgent   string
		maxAttempts int
		backoff     time.Duration
		logger      *log.Logger
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Code)
}

// transient reports whether the status is worth retrying.
func (e *StatusError) transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL overrides the index base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithRetries sets the attempt budget and base backoff for transient failures.
func WithRetries(attempts int, backoff time.Duration) ClientOption {
	return func(cl *Client) {
		cl.maxAttempts = attempts
		cl.backoff = backoff
	}
}

// WithLogger sets the logger used for retry traces.
func WithLogger(l *log.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a Client with defaults: the production index,
// http.DefaultClient and three attempts per request.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  http.DefaultClient,
		baseURL:     DefaultBaseURL,
		userAgent:   "spvm/dev",
		maxAttempts: defaultAttempts,
		backoff:     defaultBackoff,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured index base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Release fetches the file list of one project version.
func (c *Client) Release(ctx context.Context, name, version string) (*Release, error) {
	reqURL := fmt.Sprintf("%s/pypi/%s/%s/json", c.baseURL, url.PathEscape(name), url.PathEscape(version))

	var pr projectResponse
	if err := c.getJSON(ctx, reqURL, &pr); err != nil {
		return nil, fmt.Errorf("querying %s %s: %w", name, version, err)
	}

	return &Release{Name: pr.Info.Name, Version: version, Files: pr.URLs}, nil
}

// LatestVersion returns the version the index reports as current for name.
func (c *Client) LatestVersion(ctx context.Context, name string) (string, error) {
	reqURL := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(name))

	var pr projectResponse
	if err := c.getJSON(ctx, reqURL, &pr); err != nil {
		return "", fmt.Errorf("querying latest %s: %w", name, err)
	}
	if pr.Info.Version == "" {
		return "", fmt.Errorf("querying latest %s: index returned no version", name)
	}
	return pr.Info.Version, nil
}

// FetchSignature downloads the ASCII-armored detached signature published
// next to f (f.URL + ".asc").
func (c *Client) FetchSignature(ctx context.Context, f File) ([]byte, error) {
	sigURL := f.URL + ".asc"

	var sig []byte
	err := c.withRetry(ctx, func() error {
		resp, err := c.doRequest(ctx, sigURL)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }() // read-only response body

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrSignatureNotFound
		case resp.StatusCode != http.StatusOK:
			return &StatusError{URL: redactURL(sigURL), Code: resp.StatusCode}
		}

		sig, err = io.ReadAll(io.LimitReader(resp.Body, maxSignatureBytes))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching signature for %s: %w", f.Filename, err)
	}
	return sig, nil
}

// Lookup returns the file whose name matches filename exactly.
func (r *Release) Lookup(filename string) (File, bool) {
	for _, f := range r.Files {
		if f.Filename == filename {
			return f, true
		}
	}
	return File{}, false
}

// Expected returns the digests to check. MD5 falls back to the legacy
// md5_digest field when the digests object omits it.
func (f File) Expected() Digests {
	d := f.Digests
	if d.MD5 == "" {
		d.MD5 = f.MD5Digest
	}
	return d
}

func (c *Client) getJSON(ctx context.Context, reqURL string, dst any) error {
	return c.withRetry(ctx, func() error {
		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }() // read-only response body

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrReleaseNotFound
		case resp.StatusCode != http.StatusOK:
			return &StatusError{URL: redactURL(reqURL), Code: resp.StatusCode}
		}

		if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(dst); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
}

// withRetry retries network errors, 429 and 5xx responses.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	return retry.WithBackoff(ctx, c.maxAttempts, c.backoff, func(attempt int) (bool, error) {
		err := fn()
		if err == nil {
			return false, nil
		}
		if ctx.Err() != nil {
			return false, err
		}

		var statusErr *StatusError
		var netErr *requestError
		again := (errors.As(err, &statusErr) && statusErr.transient()) || errors.As(err, &netErr)
		if again {
			c.logger.Debug("index request failed, retrying", "attempt", attempt+1, "err", err)
		}
		return again, err
	})
}

// requestError marks transport failures, which are retried.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// doRequest creates and executes a GET request with the common headers.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &requestError{err: fmt.Errorf("executing request: %w", err)}
	}
	return resp, nil
}

// redactURL strips query parameters and fragments for safe inclusion in errors.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
