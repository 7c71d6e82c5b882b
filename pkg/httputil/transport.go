package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/tilestyle/pkg/buildinfo"
)

// ErrNetwork is returned for transport failures (timeouts, connection errors).
var ErrNetwork = errors.New("network error")

const defaultTimeout = 30 * time.Second

// Request is a single resource fetch. The conditional fields are set when
// revalidating a stale cache entry.
type Request struct {
	URL             string
	IfModifiedSince time.Time
	IfNoneMatch     string
}

// Response is a fully read response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is in the 2xx class.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// NotModified reports whether the server confirmed a cached entry.
func (r *Response) NotModified() bool { return r.Status == http.StatusNotModified }

// LastModified parses the Last-Modified header, or returns the zero time.
func (r *Response) LastModified() time.Time {
	if v := r.Header.Get("Last-Modified"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Transport performs network fetches. Implementations must be safe for
// concurrent use and give no ordering guarantee between requests.
type Transport interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport fetches resources with net/http.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// NewHTTPTransport creates a transport with the given timeout.
// A zero timeout selects 30 seconds.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPTransport{
		client:    &http.Client{Timeout: timeout},
		userAgent: buildinfo.UserAgent(),
	}
}

// Fetch performs a GET and reads the whole body. Connection failures are
// returned wrapped in [RetryableError]; any HTTP status is a successful fetch.
func (t *HTTPTransport) Fetch(ctx context.Context, r *Request) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", t.userAgent)
	if !r.IfModifiedSince.IsZero() {
		req.Header.Set("If-Modified-Since", r.IfModifiedSince.UTC().Format(http.TimeFormat))
	}
	if r.IfNoneMatch != "" {
		req.Header.Set("If-None-Match", r.IfNoneMatch)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

var _ Transport = (*HTTPTransport)(nil)
