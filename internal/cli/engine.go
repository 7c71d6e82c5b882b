package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tilestyle/internal/config"
	"github.com/matzehuels/tilestyle/pkg/cache"
	"github.com/matzehuels/tilestyle/pkg/httputil"
	"github.com/matzehuels/tilestyle/pkg/runloop"
	"github.com/matzehuels/tilestyle/pkg/storage"
	"github.com/matzehuels/tilestyle/pkg/style"
	"github.com/matzehuels/tilestyle/pkg/transform"
)

// frameInterval paces the controller loop while transitions or fetches are
// in progress.
const frameInterval = 16 * time.Millisecond

// =============================================================================
// Store Factory
// =============================================================================

// openStore builds the resource cache selected by cfg. Remote backends get
// an in-memory front tier. With an access token set, keys are scoped to the
// token so private resources are never served to another account.
func openStore(ctx context.Context, cfg config.Config) (cache.Store, error) {
	var store cache.Store
	switch cfg.CacheBackend {
	case config.BackendNone:
		return cache.NewNullStore(), nil
	case config.BackendMemory:
		mem, err := cache.NewMemoryStore(cache.MemoryOptions{MaxBytes: cfg.MemoryCacheBytes})
		if err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		store = mem
	case config.BackendFile, config.BackendRedis, config.BackendMongo:
		back, err := openBackStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		front, err := cache.NewMemoryStore(cache.MemoryOptions{MaxBytes: cfg.MemoryCacheBytes})
		if err != nil {
			_ = back.Close()
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		store = cache.NewTieredStore(front, back)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}

	if cfg.AccessToken != "" {
		store = cache.NewScopedStore(store, "token:"+cache.Hash([]byte(cfg.AccessToken))[:12]+":")
	}
	return store, nil
}

func openBackStore(ctx context.Context, cfg config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		return cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			Retention: cfg.RedisRetention,
		})
	case config.BackendMongo:
		return cache.NewMongoStore(ctx, cache.MongoOptions{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
	default:
		return cache.NewFileStore(cfg.CacheDir)
	}
}

// =============================================================================
// Engine
// =============================================================================

// engine wires a file source, a controller loop and a style together.
type engine struct {
	logger *log.Logger
	store  cache.Store
	files  *storage.DefaultFileSource
	loop   *runloop.Loop
	style  *style.Style
}

func (c *CLI) newEngine(ctx context.Context) (*engine, error) {
	cfg := c.Config
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	files := storage.NewDefaultFileSource(storage.Options{
		Store:         store,
		Transport:     httputil.NewHTTPTransport(cfg.HTTPTimeout),
		AccessToken:   cfg.AccessToken,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		NoRevalidate:  cfg.NoRevalidate,
		Logger:        c.Logger,
	})
	loop := runloop.New()
	s := style.New(style.Options{
		FileSource: files,
		Loop:       loop,
		Logger:     c.Logger,
		PixelRatio: cfg.PixelRatio,
		DefaultTransition: style.PropertyTransition{
			Duration: cfg.TransitionDuration,
			Delay:    cfg.TransitionDelay,
		},
		FadeDuration: cfg.FadeDuration,
	})
	return &engine{logger: c.Logger, store: store, files: files, loop: loop, style: s}, nil
}

// Close stops the style, in-flight fetches, the loop and the store, in that
// order.
func (e *engine) Close() {
	e.style.Close()
	_ = e.files.Close()
	e.loop.Close()
	if err := e.store.Close(); err != nil {
		e.logger.Warn("failed to close cache", "err", err)
	}
}

// fetchDocument reads a stylesheet from a local path or through the file
// source for http(s), file and mapbox URLs.
func (e *engine) fetchDocument(ctx context.Context, ref string) ([]byte, error) {
	if !strings.Contains(ref, "://") {
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("read style: %w", err)
		}
		return data, nil
	}

	done := make(chan *storage.Response, 1)
	e.files.Request(storage.Style(ref), func(r *storage.Response) { done <- r })
	select {
	case r := <-done:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// open fetches and parses the stylesheet, then cascades the classes.
func (e *engine) open(ctx context.Context, ref string, classes []string) error {
	data, err := e.fetchDocument(ctx, ref)
	if err != nil {
		return err
	}
	if err := e.style.SetDocument(data); err != nil {
		return err
	}
	e.style.Cascade(classes)
	return nil
}

// frame runs one controller iteration: drain callbacks, recalculate and
// update sources for the view.
func (e *engine) frame(view transform.State) {
	e.loop.RunPending()
	e.style.Recalculate(view.Zoom)
	e.style.Update(view)
}

// settle runs frames until every resource the view needs has resolved or
// ctx ends. tick is called after each frame.
func (e *engine) settle(ctx context.Context, view transform.State, tick func()) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		e.frame(view)
		if tick != nil {
			tick()
		}
		if e.style.Settled() && !e.style.HasTransitions() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.loop.Wake():
		case <-ticker.C:
		}
	}
}
