// Package api exposes MamaMind's HTTP surface: the inbound message webhook,
// the scheduled-sweep trigger, and a health probe.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mamamind/mamamind/internal/flow"
	"github.com/mamamind/mamamind/internal/notify"
	"github.com/mamamind/mamamind/internal/util"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// SweepRunner runs one notification sweep. Satisfied by *notify.Sweeper.
type SweepRunner interface {
	Run(ctx context.Context) notify.SweepResult
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the conversation flow and the notification sweep to HTTP.
type Server struct {
	flow    *flow.ConversationFlow
	sweeper SweepRunner
	addr    string
	httpSrv *http.Server
}

// NewServer creates the API server. Configuration falls back to the
// API_ADDR environment variable, then DefaultAddr.
func NewServer(convFlow *flow.ConversationFlow, sw SweepRunner, opts ...Option) *Server {
	var o Opts
	for _, opt := range opts {
		opt(&o)
	}
	if o.Addr == "" {
		o.Addr = util.GetEnv("API_ADDR", DefaultAddr)
	}
	return &Server{flow: convFlow, sweeper: sw, addr: o.Addr}
}

// Handler returns the routed HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/scheduled", s.scheduledHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run starts the HTTP server and blocks until the context is canceled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown failed", "error", err)
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
