// Package server initializes and runs the sharing service: it wires the
// registry, object storage, document source, and delivery collaborators,
// starts the HTTP server, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/carebridge/sharelink/internal/logging"
	"github.com/carebridge/sharelink/internal/server/config"
	"github.com/carebridge/sharelink/internal/server/documents"
	"github.com/carebridge/sharelink/internal/server/geoip"
	"github.com/carebridge/sharelink/internal/server/httpapi"
	"github.com/carebridge/sharelink/internal/server/notify"
	"github.com/carebridge/sharelink/internal/server/services"
	"github.com/carebridge/sharelink/internal/server/shared/db"
	"github.com/carebridge/sharelink/internal/server/storage"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	rm, err := db.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store := storage.NewS3Store(storage.Options{
		Namespace:    c.StorageNamespace,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
	})

	source := documents.NewHTTPSource(c.EHRBaseEndpoint,
		func() string { return c.EHRServiceToken }, c.CollaboratorTimeout)
	notifier := notify.NewWebhookNotifier(c.SMSGatewayEndpoint, c.EmailGatewayEndpoint, c.CollaboratorTimeout)

	var locator geoip.Locator = geoip.NoopLocator{}
	if c.GeoIPEndpoint != "" {
		locator = geoip.NewHTTPLocator(c.GeoIPEndpoint, c.CollaboratorTimeout)
	}

	issuer := services.NewLinkIssuer(rm, store, source, notifier, c, logger)
	manifests := services.NewManifestService(rm, store, locator, notifier, c, logger)
	admin := services.NewLinkAdminService(rm, logger)

	srv := httpapi.NewServer(c.EndpointAddrHTTP, logger, issuer, manifests, admin, c.SecretKey)

	return &App{config: c, logger: logger, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
}
