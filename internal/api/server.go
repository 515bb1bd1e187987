// Package api exposes the cognee service over HTTP. Routes are mounted
// under /v1 behind the principal-resolving auth middleware; every handler
// receives an already-authenticated user from the request context.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cognee-ai/cognee-go/internal/cognee"
	"github.com/cognee-ai/cognee-go/internal/config"
)

// Server serves the HTTP API.
type Server struct {
	svc    *cognee.Service
	cfg    config.APIConfig
	auth   *authenticator
	logger *slog.Logger
}

// NewServer wires the API around an assembled service.
func NewServer(svc *cognee.Service, cfg config.APIConfig, logger *slog.Logger) *Server {
	return &Server{
		svc:    svc,
		cfg:    cfg,
		auth:   newAuthenticator(svc.ACL().Store(), cfg, logger),
		logger: logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Post("/add", s.handleAdd)
		r.Post("/cognify", s.handleCognify)
		r.Post("/memify", s.handleMemify)
		r.Post("/search", s.handleSearch)
		r.Get("/datasets/status", s.handleStatus)
		r.Delete("/datasets/{datasetID}", s.handleDeleteDataset)

		r.Route("/permissions", func(r chi.Router) {
			r.Post("/datasets/{principalID}", s.handleGrant)
			r.Post("/tenants", s.handleCreateTenant)
			r.Post("/roles", s.handleCreateRole)
			r.Post("/users/{userID}/roles", s.handleAssignRole)
		})
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr, "auth_enabled", s.cfg.AuthEnabled)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
