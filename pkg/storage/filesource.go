package storage

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/tilestyle/pkg/cache"
	"github.com/matzehuels/tilestyle/pkg/errors"
	"github.com/matzehuels/tilestyle/pkg/httputil"
	"github.com/matzehuels/tilestyle/pkg/observability"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
)

// Options configures a [DefaultFileSource].
type Options struct {
	// Store is the resource cache. Nil disables caching.
	Store cache.Store

	// Transport performs network fetches. Nil selects an HTTP transport with
	// a 30 second timeout.
	Transport httputil.Transport

	// AccessToken is appended to mapbox:// URLs.
	AccessToken string

	// RetryAttempts bounds attempts for transport errors and 5xx responses.
	RetryAttempts int
	RetryDelay    time.Duration

	// NoRevalidate disables conditional requests for stale entries.
	NoRevalidate bool

	Logger *log.Logger
	Now    func() time.Time
}

// SetDefaults fills zero-valued fields.
func (o *Options) SetDefaults() {
	if o.Store == nil {
		o.Store = cache.NewNullStore()
	}
	if o.Transport == nil {
		o.Transport = httputil.NewHTTPTransport(0)
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = defaultRetryAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// pendingRequest is one in-flight fetch and everyone waiting on it.
type pendingRequest struct {
	id        uuid.UUID
	resource  Resource
	callbacks []Callback
}

// DefaultFileSource resolves resources through the cache and the network,
// with at most one fetch in flight per URL.
//
// A request is handled in this order:
//
//  1. Requests for a URL that is already being fetched join that fetch and
//     receive the same [Response].
//  2. A fresh cache entry is returned without network I/O.
//  3. A stale entry with validators is revalidated with a conditional
//     request. A 304 refreshes its expiry and returns the cached bytes.
//  4. Otherwise the resource is fetched, retried on transport errors and 5xx
//     responses, and written back to the cache unless the response says
//     Cache-Control: no-store.
//
// mapbox:// URLs are expanded with the current access token only for the
// network request; the cache key stays the URL as requested. file:// URLs
// are read from disk and never cached.
//
// DefaultFileSource is safe for concurrent use. Call Close to cancel fetches
// still in flight:
//
//	files := storage.NewDefaultFileSource(storage.Options{Store: store})
//	defer files.Close()
//	files.Request(storage.Style(url), func(r *storage.Response) { ... })
type DefaultFileSource struct {
	opts Options

	tokenMu     sync.RWMutex
	accessToken string

	mu      sync.Mutex
	pending map[string]*pendingRequest
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDefaultFileSource creates a file source. Close releases the worker
// goroutines; it does not close the store.
func NewDefaultFileSource(opts Options) *DefaultFileSource {
	opts.SetDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &DefaultFileSource{
		opts:        opts,
		accessToken: opts.AccessToken,
		pending:     make(map[string]*pendingRequest),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetAccessToken replaces the token used for mapbox:// URLs.
func (s *DefaultFileSource) SetAccessToken(token string) {
	s.tokenMu.Lock()
	s.accessToken = token
	s.tokenMu.Unlock()
}

// AccessToken returns the current token.
func (s *DefaultFileSource) AccessToken() string {
	s.tokenMu.RLock()
	defer s.tokenMu.RUnlock()
	return s.accessToken
}

// Request resolves res and invokes cb exactly once on a worker goroutine.
// Concurrent requests for the same URL share a single fetch; the join
// happens before the cache is consulted.
func (s *DefaultFileSource) Request(res Resource, cb Callback) {
	if err := errors.ValidateURL(res.URL); err != nil {
		s.fail(cb, errors.ResourceLoad(res.Kind, res.URL, 0, err))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.fail(cb, errors.ResourceLoad(res.Kind, res.URL, 0, errors.New(errors.ErrCodeInternal, "file source closed")))
		return
	}
	if p, ok := s.pending[res.URL]; ok {
		p.callbacks = append(p.callbacks, cb)
		s.mu.Unlock()
		s.opts.Logger.Debug("joined pending request", "id", p.id, "url", res.URL)
		return
	}
	p := &pendingRequest{id: uuid.New(), resource: res, callbacks: []Callback{cb}}
	s.pending[res.URL] = p
	s.wg.Add(1)
	s.mu.Unlock()

	go s.process(p)
}

// Pending reports the number of URLs with a fetch in flight.
func (s *DefaultFileSource) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels in-flight fetches and waits for their callbacks. Requests
// made after Close fail immediately.
func (s *DefaultFileSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *DefaultFileSource) fail(cb Callback, err error) {
	go cb(&Response{Err: err})
}

func (s *DefaultFileSource) process(p *pendingRequest) {
	defer s.wg.Done()

	resp := s.load(p)

	// Removing the entry and taking the callback list happen under one lock,
	// so a caller either joins this fetch or starts a new one.
	s.mu.Lock()
	delete(s.pending, p.resource.URL)
	callbacks := p.callbacks
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(resp)
	}
}

func (s *DefaultFileSource) load(p *pendingRequest) *Response {
	res := p.resource
	if strings.HasPrefix(res.URL, "file://") {
		return s.loadFile(res)
	}

	ctx := s.ctx
	kind := string(res.Kind)
	logger := s.opts.Logger.With("id", p.id, "url", res.URL)

	entry, hit, err := s.opts.Store.Get(ctx, res.URL)
	if err != nil {
		logger.Warn("cache read failed", "error", err)
		entry, hit = nil, false
	}
	if hit && entry.Fresh(s.opts.Now()) {
		observability.Cache().OnCacheHit(ctx, kind)
		logger.Debug("cache hit", "expires", entry.Expires)
		return &Response{Data: entry.Data, Modified: entry.Modified, Expires: entry.Expires}
	}
	if hit {
		observability.Cache().OnCacheStale(ctx, kind)
	} else {
		observability.Cache().OnCacheMiss(ctx, kind)
	}

	target, err := NormalizeMapboxURL(res.URL, s.AccessToken())
	if err != nil {
		return &Response{Err: errors.ResourceLoad(res.Kind, res.URL, 0, err)}
	}
	req := &httputil.Request{URL: target}
	if hit && !s.opts.NoRevalidate && entry.Revalidatable() {
		req.IfModifiedSince = entry.Modified
		req.IfNoneMatch = entry.ETag
	}

	netResp, err := s.fetch(ctx, req)
	if err != nil {
		status := 0
		if netResp != nil {
			status = netResp.Status
		}
		logger.Warn("fetch failed", "status", status, "error", err)
		return &Response{Err: errors.ResourceLoad(res.Kind, res.URL, status, err)}
	}

	cacheControl := netResp.Header.Get("Cache-Control")
	expires := httputil.ExpiresAt(cacheControl, s.opts.Now())

	switch {
	case netResp.NotModified() && hit:
		refreshed := *entry
		refreshed.Expires = expires
		s.put(ctx, logger, kind, res.URL, &refreshed)
		logger.Debug("revalidated", "expires", expires)
		return &Response{Data: refreshed.Data, Modified: refreshed.Modified, Expires: refreshed.Expires}

	case netResp.OK():
		fresh := &cache.Entry{
			Data:     netResp.Body,
			Expires:  expires,
			Modified: netResp.LastModified(),
			ETag:     netResp.Header.Get("ETag"),
		}
		if !httputil.ParseCacheControlHeader(cacheControl).NoStore {
			s.put(ctx, logger, kind, res.URL, fresh)
		}
		logger.Debug("fetched", "bytes", len(fresh.Data), "expires", expires)
		return &Response{Data: fresh.Data, Modified: fresh.Modified, Expires: fresh.Expires}
	}

	logger.Warn("unexpected status", "status", netResp.Status)
	return &Response{Err: errors.ResourceLoad(res.Kind, res.URL, netResp.Status, nil)}
}

// fetch runs the transport with retries. Transport errors and 5xx responses
// are retried; the last response is returned alongside the final error.
func (s *DefaultFileSource) fetch(ctx context.Context, req *httputil.Request) (*httputil.Response, error) {
	host, path := splitHostPath(req.URL)
	var last *httputil.Response

	err := httputil.Retry(ctx, s.opts.RetryAttempts, s.opts.RetryDelay, func() error {
		observability.HTTP().OnRequest(ctx, "GET", host, path)
		start := time.Now()
		resp, err := s.opts.Transport.Fetch(ctx, req)
		if err != nil {
			observability.HTTP().OnError(ctx, "GET", host, path, err)
			return err
		}
		observability.HTTP().OnResponse(ctx, "GET", host, path, resp.Status, time.Since(start))
		last = resp
		if resp.Status >= 500 {
			return httputil.Retryable(errors.New(errors.ErrCodeHTTPStatus, "server returned %d", resp.Status))
		}
		return nil
	})
	if err != nil {
		return last, errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", path)
	}
	return last, nil
}

func (s *DefaultFileSource) put(ctx context.Context, logger *log.Logger, kind, key string, entry *cache.Entry) {
	if err := s.opts.Store.Put(ctx, key, entry); err != nil {
		logger.Warn("cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(entry.Data))
}

func (s *DefaultFileSource) loadFile(res Resource) *Response {
	u, err := url.Parse(res.URL)
	if err != nil {
		return &Response{Err: errors.ResourceLoad(res.Kind, res.URL, 0, err)}
	}
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return &Response{Err: errors.ResourceLoad(res.Kind, res.URL, 0, err)}
	}
	return &Response{Data: data}
}

func splitHostPath(rawURL string) (string, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", rawURL
	}
	return u.Host, u.Path
}

var _ FileSource = (*DefaultFileSource)(nil)
