// Package api serves the LumoPack order interview over HTTP.
//
// The chat endpoints drive a flow.SessionManager. The tool endpoints expose the
// strength analysis, the pricing calculator and the keyword extractors on their own.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lumopack/lumobot/internal/flow"
	"github.com/lumopack/lumobot/internal/genai"
	"github.com/lumopack/lumobot/internal/models"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds the graceful shutdown of the HTTP server.
	DefaultShutdownTimeout = 10 * time.Second

	maxRequestBodySize = 1 << 20
)

// StructuredExtractor pulls typed fields out of a customer message with a language model.
// genai.Client implements it.
type StructuredExtractor interface {
	GenerateWithExtraction(ctx context.Context, systemPrompt, userPrompt string, history []models.Message, fields []string) (genai.Extraction, error)
}

// Opts holds configuration for the API server.
type Opts struct {
	Addr          string
	Pricer        flow.Pricer
	Extractor     StructuredExtractor
	TwilioWebhook http.HandlerFunc
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithPricer enables POST /pricing/estimate.
func WithPricer(p flow.Pricer) Option {
	return func(o *Opts) { o.Pricer = p }
}

// WithExtractor enables LLM extraction on POST /extract.
func WithExtractor(e StructuredExtractor) Option {
	return func(o *Opts) { o.Extractor = e }
}

// WithTwilioWebhook mounts h at POST /webhooks/twilio.
func WithTwilioWebhook(h http.HandlerFunc) Option {
	return func(o *Opts) { o.TwilioWebhook = h }
}

// Server is the HTTP front of the interview.
type Server struct {
	sessions  *flow.SessionManager
	pricer    flow.Pricer
	extractor StructuredExtractor
	addr      string
	router    chi.Router
}

// NewServer builds a Server and its routes.
func NewServer(sessions *flow.SessionManager, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{
		sessions:  sessions,
		pricer:    cfg.Pricer,
		extractor: cfg.Extractor,
		addr:      cfg.Addr,
	}

	r := chi.NewRouter()
	r.Get("/health", s.healthHandler)
	r.Route("/chat", func(r chi.Router) {
		r.Post("/message", s.chatMessageHandler)
		r.Get("/sessions", s.listSessionsHandler)
		r.Get("/session/{id}", s.getSessionHandler)
		r.Delete("/session/{id}", s.deleteSessionHandler)
		r.Post("/session/{id}/reset", s.resetSessionHandler)
		r.Get("/session/{id}/history", s.historyHandler)
	})
	r.Post("/analyze", s.analyzeHandler)
	r.Post("/pricing/estimate", s.pricingHandler)
	r.Post("/extract", s.extractHandler)
	if cfg.TwilioWebhook != nil {
		r.Post("/webhooks/twilio", cfg.TwilioWebhook)
		slog.Debug("Server: Twilio webhook mounted", "path", "/webhooks/twilio")
	}
	s.router = r

	slog.Debug("Server created", "addr", s.addr, "pricer_set", s.pricer != nil, "extractor_set", s.extractor != nil)
	return s
}

// Handler returns the router serving every endpoint.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			slog.Error("Server.Run: server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	slog.Info("Server.Run: shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: shutdown failed", "error", err)
		return err
	}
	return nil
}
