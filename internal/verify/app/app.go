package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/trusteelab/vpass/internal/verify/http"
	"github.com/trusteelab/vpass/internal/verify/metrics"
	"github.com/trusteelab/vpass/internal/verify/service"
	"github.com/trusteelab/vpass/internal/verify/store"
	"github.com/trusteelab/vpass/internal/verify/store/drivers/sqlite"
	"github.com/trusteelab/vpass/pkg/cryptox"
	"github.com/trusteelab/vpass/pkg/jwtx"
	"github.com/trusteelab/vpass/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the verification service with all its
// dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	cipher  *cryptox.Cipher
	keyer   *jwtx.HS256Keyer
	metrics *metrics.Metrics

	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "vpass",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initKeys(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("verification service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down verification service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("verification service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initKeys() error {
	piiKey, ephemeral, err := cryptox.LoadCipherKey(app.cfg.PIIKeyFile, "VPASS_PII_KEY")
	if err != nil {
		return fmt.Errorf("failed to load PII encryption key: %w", err)
	}
	if ephemeral {
		// Sessions only live minutes, so an ephemeral key works, but a
		// restart orphans any in-flight session.
		app.logger.Warn("no PII encryption key configured, generated an ephemeral key; " +
			"in-flight sessions will not survive a restart")
	}
	cipher, err := cryptox.NewCipher(piiKey)
	if err != nil {
		return fmt.Errorf("failed to initialize PII cipher: %w", err)
	}
	app.cipher = cipher

	signKey, ephemeral, err := cryptox.LoadCipherKey(app.cfg.AssertionKeyFile, "VPASS_ASSERTION_KEY")
	if err != nil {
		return fmt.Errorf("failed to load assertion signing key: %w", err)
	}
	if ephemeral {
		app.logger.Warn("no assertion signing key configured, generated an ephemeral key; " +
			"assertions will not verify across instances or restarts")
	}
	keyer, err := jwtx.NewHS256Keyer(signKey)
	if err != nil {
		return fmt.Errorf("failed to initialize assertion signer: %w", err)
	}
	app.keyer = keyer

	return nil
}

func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store:  app.db,
		Cipher: app.cipher,
		Ledger: &service.LedgerService{Store: app.db},
		Assertions: &service.AssertionService{
			Keyer:  app.keyer,
			Issuer: app.cfg.Issuer,
			TTL:    app.cfg.AssertionTTL,
		},
		Metrics: app.metrics,
		TTL:     app.cfg.SessionTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.SweepInterval,
		app.cfg.SessionTTL,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.SessionService = app.sessionService

	if app.cfg.ServiceToken != "" {
		hash, err := cryptox.HashCredential(app.cfg.ServiceToken)
		if err != nil {
			app.logger.Error("failed to hash service credential, identity endpoint disabled", "error", err)
		} else {
			router.ServiceCredentialHash = hash
		}
	} else {
		app.logger.Warn("no service credential configured, identity endpoint disabled")
	}

	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
