package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilestyle/internal/metrics"
	"github.com/matzehuels/tilestyle/pkg/style"
	"github.com/matzehuels/tilestyle/pkg/transform"
)

// serveFlags holds flags for the serve command.
type serveFlags struct {
	viewFlags
	addr string
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve <style>",
		Short: "Keep a style loaded and report it over HTTP",
		Long: `Serve loads a stylesheet and keeps evaluating it. The computed layers, the
source states and Prometheus metrics are exposed over HTTP. The view and the
active classes can be changed while it runs.

Endpoints:
  GET  /healthz              liveness
  GET  /readyz               200 once every needed resource is loaded
  GET  /style                full snapshot
  GET  /style/layers         computed layers
  GET  /style/layers/{id}    one layer
  GET  /style/sources        source states
  PUT  /style/classes        {"classes": ["night"]}
  PUT  /view                 {"center": [lon, lat], "zoom": 4, "bearing": 0, "width": 512, "height": 512}
  GET  /metrics              Prometheus metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.addr, "addr", ":8080", "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, ref string, flags serveFlags) error {
	view, err := flags.view()
	if err != nil {
		return err
	}
	if flags.pixelRatio > 0 {
		c.Config.PixelRatio = flags.pixelRatio
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.NewCollector(reg).Install()

	e, err := c.newEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	openCtx, cancel := context.WithTimeout(ctx, flags.timeout)
	err = e.open(openCtx, ref, flags.classes)
	cancel()
	if err != nil {
		return fmt.Errorf("load style: %w", err)
	}

	srv := newServer(e, view, reg)
	httpSrv := &http.Server{
		Addr:              flags.addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctrlDone := make(chan struct{})
	go func() {
		defer close(ctrlDone)
		srv.run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	c.Logger.Info("serving", "addr", flags.addr, "style", ref)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		c.Logger.Warn("shutdown", "err", err)
	}
	<-ctrlDone
	return nil
}

// =============================================================================
// Server
// =============================================================================

// server owns the controller goroutine. Handlers never touch the style
// directly: reads go through the latest snapshot, writes are posted to the
// loop.
type server struct {
	e    *engine
	reg  *prometheus.Registry
	view transform.State // controller goroutine only

	snap atomic.Pointer[style.Snapshot]
}

func newServer(e *engine, view transform.State, reg *prometheus.Registry) *server {
	s := &server{e: e, view: view, reg: reg}
	snap := e.style.Snapshot()
	s.snap.Store(&snap)
	return s
}

// run drives frames until ctx ends, publishing a snapshot after each one.
func (s *server) run(ctx context.Context) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		s.e.frame(s.view)
		snap := s.e.style.Snapshot()
		s.snap.Store(&snap)

		select {
		case <-ctx.Done():
			return
		case <-s.e.loop.Wake():
		case <-ticker.C:
		}
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	r.Route("/style", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, http.StatusOK, s.snap.Load()) })
		r.Get("/layers", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, http.StatusOK, s.snap.Load().Layers) })
		r.Get("/layers/{id}", s.handleLayer)
		r.Get("/sources", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, http.StatusOK, s.snap.Load().Sources) })
		r.Put("/classes", s.handleClasses)
	})
	r.Put("/view", s.handleView)

	return r
}

func (s *server) handleReady(w http.ResponseWriter, _ *http.Request) {
	snap := s.snap.Load()
	if !snap.Loaded {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"loaded": false, "last_error": snap.LastError})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loaded": true})
}

func (s *server) handleLayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, l := range s.snap.Load().Layers {
		if l.ID == id {
			writeJSON(w, http.StatusOK, l)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("layer %q not found", id))
}

type classesRequest struct {
	Classes []string `json:"classes"`
}

func (s *server) handleClasses(w http.ResponseWriter, r *http.Request) {
	var req classesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.e.loop.Post(func() { s.e.style.Cascade(req.Classes) })
	writeJSON(w, http.StatusAccepted, req)
}

type viewRequest struct {
	Center  [2]float64 `json:"center"`
	Zoom    float64    `json:"zoom"`
	Bearing float64    `json:"bearing"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
}

func (s *server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view := transform.State{
		Center:  orb.Point(req.Center),
		Zoom:    req.Zoom,
		Bearing: req.Bearing,
		Width:   req.Width,
		Height:  req.Height,
	}
	if !view.Valid() || view.Zoom < 0 {
		writeError(w, http.StatusBadRequest, errors.New("view needs a positive size and a non-negative zoom"))
		return
	}
	s.e.loop.Post(func() { s.view = view })
	writeJSON(w, http.StatusAccepted, req)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
