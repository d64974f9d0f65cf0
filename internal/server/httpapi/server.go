// Package httpapi exposes the sharing service over HTTP: the public
// unauthenticated manifest endpoint, the bearer-authenticated provider API,
// and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carebridge/sharelink/internal/logging"
	"github.com/carebridge/sharelink/internal/server/models"
	"github.com/carebridge/sharelink/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// Issuer creates new share links.
type Issuer interface {
	Issue(ctx context.Context, actor services.Actor, req *services.IssueRequest) (*services.IssuedLink, error)
}

// Resolver serves the public manifest read path.
type Resolver interface {
	Resolve(ctx context.Context, linkID string, accessor services.AccessorContext) (*services.Manifest, error)
}

// Admin provides the provider-facing link controls.
type Admin interface {
	List(ctx context.Context, subjectID string) ([]*services.LinkStatus, error)
	Revoke(ctx context.Context, linkID string, actor services.Actor) error
	History(ctx context.Context, linkID string) ([]*models.AccessEvent, error)
}

// Server is the HTTP front of the sharing service.
type Server struct {
	address   string
	logger    logging.Logger
	issuer    Issuer
	manifests Resolver
	admin     Admin
	jwtSecret []byte
}

// NewServer wires the HTTP surface.
func NewServer(address string, logger logging.Logger, issuer Issuer, manifests Resolver,
	admin Admin, secretKey string) *Server {
	return &Server{
		address:   address,
		logger:    logger.With("module", "http_server"),
		issuer:    issuer,
		manifests: manifests,
		admin:     admin,
		jwtSecret: []byte(secretKey),
	}
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	// The manifest endpoint carries no authentication: possession of the
	// link id is the capability.
	r.HandleFunc("/shl/{id}", s.handleManifest).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireProvider)
	api.HandleFunc("/links", s.handleIssue).Methods(http.MethodPost)
	api.HandleFunc("/links", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/links/{id}/revoke", s.handleRevoke).Methods(http.MethodPost)
	api.HandleFunc("/links/{id}/events", s.handleHistory).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

// Run serves until the context is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
