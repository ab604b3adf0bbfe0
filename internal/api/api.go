// Package api provides the host-facing HTTP API for PayFlow.
//
// It exposes endpoints to start a flow session, poll what the session has
// presented, deliver the stop signal, and scrape session metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BTreeMap/PayFlow/internal/flow"
	"github.com/BTreeMap/PayFlow/internal/presenter"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default configuration constants
const (
	// DefaultServerAddress is the default address for the API server
	DefaultServerAddress = ":8080"
	// DefaultSessionRetention is how long a finished session stays queryable
	DefaultSessionRetention = 10 * time.Minute
	// DefaultSessionIdleTimeout bounds how long a session may run without a stop
	DefaultSessionIdleTimeout = 15 * time.Minute
	// DefaultShutdownTimeout bounds graceful shutdown
	DefaultShutdownTimeout = 10 * time.Second
	// MaxRequestBytes caps request bodies
	MaxRequestBytes = 1 << 20
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr               string
	SessionRetention   time.Duration
	SessionIdleTimeout time.Duration // zero disables the idle stop
	Gatherer           prometheus.Gatherer
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSessionRetention sets how long finished sessions stay queryable.
func WithSessionRetention(d time.Duration) Option {
	return func(o *Opts) { o.SessionRetention = d }
}

// WithSessionIdleTimeout sets how long a started session may run before the
// server stops it with an empty result.
func WithSessionIdleTimeout(d time.Duration) Option {
	return func(o *Opts) { o.SessionIdleTimeout = d }
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *Opts) { o.Gatherer = g }
}

// Server hosts flow sessions over HTTP.
type Server struct {
	opts     Opts
	deps     flow.Dependencies
	recorder *presenter.Recorder
	router   *mux.Router

	// sessions outlive the request that started them
	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*flow.Flow
}

// NewServer creates a Server. deps.Presenter is replaced by the server's
// recorder so presented output can be polled.
func NewServer(deps flow.Dependencies, opts ...Option) *Server {
	cfg := Opts{
		Addr:               DefaultServerAddress,
		SessionRetention:   DefaultSessionRetention,
		SessionIdleTimeout: DefaultSessionIdleTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	recorder := presenter.NewRecorder()
	deps.Presenter = recorder

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:     cfg,
		deps:     deps,
		recorder: recorder,
		baseCtx:  ctx,
		cancel:   cancel,
		sessions: make(map[string]*flow.Flow),
	}
	s.router = s.routes()
	slog.Debug("Server.NewServer: server created", "addr", cfg.Addr, "retention", cfg.SessionRetention, "idle", cfg.SessionIdleTimeout, "metrics", cfg.Gatherer != nil)
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/flows/{kind}/sessions", s.startSessionHandler).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", s.getSessionHandler).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/stop", s.stopSessionHandler).Methods(http.MethodPost)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then shuts down gracefully and stops every
// running session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("PayFlow API running", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close cancels the context of every hosted session.
func (s *Server) Close() {
	s.cancel()
}

func (s *Server) addSession(f *flow.Flow) {
	s.mu.Lock()
	s.sessions[f.ID()] = f
	s.mu.Unlock()
}

func (s *Server) session(id string) (*flow.Flow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.sessions[id]
	return f, ok
}

// scheduleEviction drops a finished session after the retention window.
func (s *Server) scheduleEviction(id string) {
	if s.opts.SessionRetention <= 0 {
		return
	}
	time.AfterFunc(s.opts.SessionRetention, func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		s.recorder.Forget(id)
		slog.Debug("Server: session evicted", "sessionID", id)
	})
}

// scheduleIdleStop ends a session the host never stopped. The timer is
// released as soon as the session ends on its own.
func (s *Server) scheduleIdleStop(f *flow.Flow) {
	if s.opts.SessionIdleTimeout <= 0 {
		return
	}
	timer := time.AfterFunc(s.opts.SessionIdleTimeout, func() {
		if f.Stop(nil) {
			slog.Info("Server: idle session stopped", "sessionID", f.ID(), "after", s.opts.SessionIdleTimeout)
		}
	})
	go func() {
		<-f.Done()
		timer.Stop()
	}()
}
