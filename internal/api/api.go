// Package api provides the HTTP server for LegalDraft.
//
// It exposes the blank-driven interview (process-document, update-section), the
// template-driven interview (ai-text-query, generate-document), and read-only views of
// the delivery log. No interview state is kept between requests.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTreeMap/LegalDraft/internal/blank"
	"github.com/BTreeMap/LegalDraft/internal/interview"
	"github.com/BTreeMap/LegalDraft/internal/messaging"
	"github.com/BTreeMap/LegalDraft/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultServerAddress is the listen address when none is configured.
	DefaultServerAddress = ":8080"
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultReadHeaderTimeout bounds how long a client may take to send headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// MaxRequestBodyBytes caps every request body.
	MaxRequestBodyBytes = 1 << 20
)

// Opts holds server configuration.
type Opts struct {
	Addr           string
	ScanRadius     int
	QuestionRadius int
	Messaging      messaging.Service
}

// Option configures a Server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithScanRadius sets the context radius used when scanning for blanks.
func WithScanRadius(radius int) Option {
	return func(o *Opts) { o.ScanRadius = radius }
}

// WithQuestionRadius sets the context radius sent with generated questions.
func WithQuestionRadius(radius int) Option {
	return func(o *Opts) { o.QuestionRadius = radius }
}

// WithMessaging enables document delivery through svc.
func WithMessaging(svc messaging.Service) Option {
	return func(o *Opts) { o.Messaging = svc }
}

// Server wires the interview components to HTTP.
type Server struct {
	addr       string
	scanner    *blank.Scanner
	composer   *interview.Composer
	assembler  *interview.Assembler
	msgService messaging.Service
	st         store.Store
}

// NewServer creates a Server. gen may be nil, in which case only canned questions are
// served and every generation call fails as an upstream error.
func NewServer(gen interview.Generator, st store.Store, opts ...Option) *Server {
	cfg := Opts{
		Addr:           DefaultServerAddress,
		ScanRadius:     blank.DefaultScanRadius,
		QuestionRadius: blank.DefaultQuestionRadius,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if st == nil {
		st = store.NewInMemoryStore()
	}
	slog.Debug("Server.NewServer: creating server", "addr", cfg.Addr, "scan_radius", cfg.ScanRadius,
		"question_radius", cfg.QuestionRadius, "messaging", cfg.Messaging != nil, "generator", gen != nil)

	return &Server{
		addr:       cfg.Addr,
		scanner:    blank.NewScanner(blank.WithContextRadius(cfg.ScanRadius)),
		composer:   interview.NewComposer(gen, interview.WithQuestionRadius(cfg.QuestionRadius)),
		assembler:  interview.NewAssembler(gen),
		msgService: cfg.Messaging,
		st:         st,
	}
}

// Handler returns the routed handler with request-ID and body-limit middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ai-text-query", s.nextStepHandler)
	mux.HandleFunc("/generate-document", s.generateDocumentHandler)
	mux.HandleFunc("/process-document", s.processDocumentHandler)
	mux.HandleFunc("/update-section", s.updateSectionHandler)
	mux.HandleFunc("/deliveries", s.deliveriesHandler)
	mux.HandleFunc("/receipts", s.receiptsHandler)
	mux.HandleFunc("/healthz", s.healthHandler)
	if tw, ok := s.msgService.(*messaging.TwilioService); ok {
		mux.HandleFunc("/twilio/status", tw.StatusCallbackHandler)
	}
	return withRequestID(limitBody(mux, MaxRequestBodyBytes))
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down the
// server and the messaging service.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}
	g, gctx := errgroup.WithContext(ctx)

	if s.msgService != nil {
		if err := s.msgService.Start(gctx); err != nil {
			return fmt.Errorf("failed to start messaging service: %w", err)
		}
		g.Go(func() error {
			s.drainReceipts()
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("Server.Run: listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if s.msgService != nil {
			if stopErr := s.msgService.Stop(); stopErr != nil {
				slog.Error("Server.Run: messaging stop failed", "error", stopErr)
			}
		}
		return err
	})

	err := g.Wait()
	if closeErr := s.st.Close(); closeErr != nil {
		slog.Error("Server.Run: store close failed", "error", closeErr)
	}
	return err
}

// drainReceipts stores provider receipts until the service closes its channel.
func (s *Server) drainReceipts() {
	for r := range s.msgService.Receipts() {
		if err := s.st.AddReceipt(r); err != nil {
			slog.Error("Server.drainReceipts: failed to store receipt", "error", err, "to", r.To)
		}
	}
	slog.Debug("Server.drainReceipts: receipts channel closed")
}
