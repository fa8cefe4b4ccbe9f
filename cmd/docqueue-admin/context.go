package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ageagekun/docqueue/config"
	"github.com/ageagekun/docqueue/internal/bootstrap"
	"github.com/ageagekun/docqueue/internal/domain/model"
)

// backend is what the admin commands operate on.
type backend interface {
	Overview(ctx context.Context) (*model.QueueOverview, error)
	Pending(ctx context.Context) ([]*model.QueueItem, error)
	CancelAll(ctx context.Context) (*model.CancelResult, error)
	History(ctx context.Context, limit int) (*model.BatchPrintHistory, error)
	DeleteArtifact(ctx context.Context, id int64) error
	Migrate(ctx context.Context) error
	Close() error
}

// commandContext lazily loads configuration and opens the backend on first use.
type commandContext struct {
	open   func(ctx context.Context, needFiles bool) (backend, error)
	logger *slog.Logger
}

func newCommandContext() *commandContext {
	c := &commandContext{}
	c.open = c.openServices
	return c
}

func (c *commandContext) log() *slog.Logger {
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c.logger
}

// withBackend opens the backend, runs fn with a signal-aware context, and closes it.
func (c *commandContext) withBackend(ctx context.Context, needFiles bool, fn func(context.Context, backend) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := c.open(ctx, needFiles)
	if err != nil {
		return err
	}
	runErr := fn(ctx, b)
	if cerr := b.Close(); cerr != nil {
		runErr = errors.Join(runErr, cerr)
	}
	return runErr
}

func (c *commandContext) openServices(_ context.Context, needFiles bool) (backend, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, err
	}
	c.logger = bootstrap.InitLogger(cfg.IsDev, cfg.LogLevel)

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	b := &serviceBackend{db: db, logger: c.logger}
	if !needFiles {
		return b, nil
	}

	if err := requireFilesRoot(&cfg); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	// Admin commands never start background modes; only the HTTP-side services are built.
	cfg.Services = string(config.ServiceModeHTTP)
	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{Config: &cfg, DB: db, Logger: c.logger})
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	b.services = services
	return b, nil
}

func requireFilesRoot(cfg *config.AppConfig) error {
	if cfg.Files.Root == "" {
		return errors.New("FILES_ROOT is required for this command")
	}
	return nil
}

// serviceBackend runs admin operations through the same services the API uses.
type serviceBackend struct {
	db       *sql.DB
	services *bootstrap.ServiceContainer
	logger   *slog.Logger
}

var errFilesNotLoaded = errors.New("command requires the files root")

func (b *serviceBackend) Overview(ctx context.Context) (*model.QueueOverview, error) {
	if b.services == nil {
		return nil, errFilesNotLoaded
	}
	return b.services.Queue.Overview(ctx)
}

func (b *serviceBackend) Pending(ctx context.Context) ([]*model.QueueItem, error) {
	if b.services == nil {
		return nil, errFilesNotLoaded
	}
	return b.services.Queue.Pending(ctx)
}

func (b *serviceBackend) CancelAll(ctx context.Context) (*model.CancelResult, error) {
	if b.services == nil {
		return nil, errFilesNotLoaded
	}
	return b.services.Queue.CancelAll(ctx)
}

func (b *serviceBackend) History(ctx context.Context, limit int) (*model.BatchPrintHistory, error) {
	if b.services == nil {
		return nil, errFilesNotLoaded
	}
	return b.services.BatchPrint.History(ctx, limit)
}

func (b *serviceBackend) DeleteArtifact(ctx context.Context, id int64) error {
	if b.services == nil {
		return errFilesNotLoaded
	}
	return b.services.BatchPrint.Delete(ctx, id)
}

func (b *serviceBackend) Migrate(ctx context.Context) error {
	return bootstrap.RunMigrations(ctx, b.db, b.logger)
}

func (b *serviceBackend) Close() error {
	var err error
	if b.services != nil {
		err = b.services.Close()
	}
	return errors.Join(err, b.db.Close())
}
