// Package web serves the host-facing hook API: inbound message events and
// context lookups for agent runtimes that cannot speak MCP.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opoerator/drophub/internal/config"
	"github.com/opoerator/drophub/internal/hydrate"
)

// maxBodyBytes bounds hook request bodies.
const maxBodyBytes = 1 << 20

// NewServer creates and configures the HTTP server for the hook API.
func NewServer(agg *hydrate.Aggregator, cfg *config.Config, logger *slog.Logger, version, bind string, port int) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		agg:     agg,
		cfg:     cfg,
		logger:  logger,
		version: version,
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           h.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (h *Handlers) routes() http.Handler {
	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("POST /hooks/message", h.HandleMessage)
	mux.HandleFunc("GET /context", h.HandleContext)
	mux.HandleFunc("GET /healthz", h.HandleHealth)

	return securityHeaders(mux)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("hook server running", "addr", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
