// Package fetch downloads URL content for conversion with strict size and
// time bounds. Downloads are aborted mid-stream as soon as either bound is
// exceeded.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTooLarge is returned when the response exceeds the configured byte limit,
// whether declared up front via Content-Length or discovered mid-download.
var ErrTooLarge = errors.New("response exceeds maximum allowed size")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Result is a completed download.
type Result struct {
	Body        []byte
	ContentType string // declared Content-Type, media type only
	Charset     string // charset parameter of Content-Type, if any
}

// Client fetches URLs with a per-request timeout and a byte cap. The zero
// value is not usable; set MaxBytes and Timeout.
type Client struct {
	// HTTPClient is used for requests. nil means http.DefaultClient semantics
	// with our redirect policy.
	HTTPClient *http.Client
	// UserAgent is sent on each request when non-empty.
	UserAgent string
	// Timeout bounds the whole download, connect to last byte.
	Timeout time.Duration
	// MaxBytes caps the response body. Exceeding it aborts the download.
	MaxBytes int64
	// MaxRedirects caps redirect following. Zero means default (5).
	MaxRedirects int
}

// Get downloads url. The download is aborted with ErrTooLarge once MaxBytes
// is exceeded and with context.DeadlineExceeded once Timeout elapses; the
// caller can also cancel through ctx.
func (c *Client) Get(ctx context.Context, rawURL string) (*Result, error) {
	if err := validateScheme(rawURL); err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, unwrapURLError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	// Reject oversized responses before reading when the server declares a
	// length.
	if resp.ContentLength > 0 && resp.ContentLength > c.MaxBytes {
		return nil, ErrTooLarge
	}

	// Read at most MaxBytes+1 so the overflow is observable without buffering
	// the rest of the response.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.MaxBytes+1))
	if err != nil {
		return nil, unwrapURLError(err)
	}
	if int64(len(body)) > c.MaxBytes {
		return nil, ErrTooLarge
	}

	mediaType, charset := SplitContentType(resp.Header.Get("Content-Type"))
	return &Result{
		Body:        body,
		ContentType: mediaType,
		Charset:     charset,
	}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		clone := *c.HTTPClient
		clone.CheckRedirect = c.checkRedirect
		return &clone
	}
	return &http.Client{CheckRedirect: c.checkRedirect}
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	max := c.MaxRedirects
	if max <= 0 {
		max = 5
	}
	if len(via) >= max {
		return errors.New("too many redirects")
	}
	if req.URL == nil || !isHTTPScheme(req.URL.Scheme) {
		return errors.New("redirect to unsupported scheme")
	}
	return nil
}

func validateScheme(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}
	if !isHTTPScheme(u.Scheme) {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	return nil
}

func isHTTPScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	return scheme == "http" || scheme == "https"
}

// SplitContentType separates "text/html; charset=utf-8" into media type and
// charset. Malformed headers degrade to the bare media type. The server's
// multipart handling uses it for upload Content-Type headers too.
func SplitContentType(ct string) (string, string) {
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.TrimSpace(strings.Split(ct, ";")[0]), ""
	}
	return mediaType, params["charset"]
}

// unwrapURLError surfaces context deadline errors hidden inside *url.Error so
// callers can map them to a timeout response with errors.Is.
func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("fetch %s: %w", uerr.URL, context.DeadlineExceeded)
	}
	return err
}
