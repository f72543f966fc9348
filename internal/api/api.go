// Package api serves scans and stored scores over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/huangsam/devscore/schema"
)

// Scanner is the scan pipeline the server exposes. core.Scanner implements it.
type Scanner interface {
	Scan(ctx context.Context, req schema.ScanRequest) (*schema.ScanResponse, error)
	Analyze(ctx context.Context, req schema.ScanRequest) (*schema.ScanResponse, error)
	Score(ctx context.Context, username string) (*schema.ScanResponse, error)
	Invalidate(username string) error
	Reset(ctx context.Context, username string) error
}

// Server routes HTTP requests to a Scanner.
type Server struct {
	scanner Scanner
	router  *chi.Mux
	now     func() time.Time
}

// NewServer builds the router with request logging, panic recovery and request ids.
func NewServer(scanner Scanner) *Server {
	s := &Server{scanner: scanner, router: chi.NewRouter(), now: time.Now}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1/users/{username}", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Post("/analysis", s.handleAnalysis)
		r.Get("/score", s.handleScore)
		r.Delete("/cache", s.handleInvalidate)
		r.Delete("/analysis", s.handleReset)
	})
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
