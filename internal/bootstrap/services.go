package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ageagekun/docqueue/config"
	"github.com/ageagekun/docqueue/internal/adapters/filemover"
	"github.com/ageagekun/docqueue/internal/adapters/mergeworker"
	redisadapter "github.com/ageagekun/docqueue/internal/adapters/redis"
	"github.com/ageagekun/docqueue/internal/core"
	"github.com/ageagekun/docqueue/internal/data"
	"github.com/ageagekun/docqueue/internal/domain/queue"
	httpx "github.com/ageagekun/docqueue/internal/http"
	"github.com/ageagekun/docqueue/internal/observability/statsd"
	"github.com/ageagekun/docqueue/internal/pathsafe"
	"github.com/ageagekun/docqueue/internal/realtime"
	"github.com/ageagekun/docqueue/internal/service"
)

const shutdownWaitTimeout = 10 * time.Second

// ServiceContainer holds all application services and the shared runtime
// pieces the enabled service modes run on.
type ServiceContainer struct {
	Queue      *service.QueueService
	BatchPrint *service.BatchPrintService
	Files      *service.FileService

	Root       *pathsafe.Root
	QueueRepo  *data.QueueRepo
	Artifacts  *data.BatchPrintRepo
	Documents  *data.DocumentRepo
	Jobs       core.MergeJobStore
	MergeQueue *mergeworker.Queue

	Listener *data.PgListener
	Notifier *queue.DefaultNotifier

	// Hub is nil unless the http mode is enabled.
	Hub *realtime.Hub
	// Relay is nil unless Redis is configured.
	Relay *redisadapter.RelayBus

	Metrics statsd.Sink
	db      *sql.DB
	statsd  *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// buildMetrics returns the statsd client, or nil when metrics are disabled or
// the sink cannot be reached. Metrics never block startup.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// NewServices wires repositories, services, and the notification pipeline.
// Nothing is started; RunServicesWithShutdown runs the enabled modes.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return nil, errors.New("service deps require config and database")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root, err := pathsafe.NewRoot(cfg.Files.Root)
	if err != nil {
		return nil, fmt.Errorf("files root: %w", err)
	}

	c := &ServiceContainer{
		Root:      root,
		db:        deps.DB,
		statsd:    buildMetrics(logger, cfg.Observability.Metrics),
		QueueRepo: data.NewQueueRepo(deps.DB, data.QueueRepoConfig{Logger: logger}),
		Artifacts: data.NewBatchPrintRepo(deps.DB, &data.RealTimeProvider{}),
		Documents: data.NewDocumentRepo(deps.DB),
	}
	if c.statsd != nil {
		c.Metrics = c.statsd
	}

	if deps.RedisClient != nil {
		c.Jobs = redisadapter.NewJobStore(deps.RedisClient, redisadapter.JobStoreOptions{TTL: cfg.Merge.JobRetention})
		c.Relay = redisadapter.NewRelayBus(deps.RedisClient, cfg.Realtime.RelayChannel, logger)
	} else {
		c.Jobs = mergeworker.NewMemoryJobStore(cfg.Merge.JobRetention)
	}
	c.MergeQueue = mergeworker.NewQueue(cfg.Merge.QueueSize)

	c.Queue = service.MustNewQueueService(service.QueueServiceOptions{
		Repo:    c.QueueRepo,
		Root:    root,
		Logger:  logger,
		Metrics: c.Metrics,
	})
	c.BatchPrint = service.MustNewBatchPrintService(service.BatchPrintServiceOptions{
		Queue:     c.QueueRepo,
		Artifacts: c.Artifacts,
		Jobs:      c.Jobs,
		Merges:    c.MergeQueue,
		Root:      root,
		Limits: service.MergeLimits{
			MaxDocuments:  cfg.Merge.MaxDocuments,
			MaxTotalBytes: cfg.Merge.MaxTotalBytes,
		},
		Logger:  logger,
		Metrics: c.Metrics,
	})
	if c.Files, err = service.NewFileService(service.FileServiceOptions{
		Documents: c.Documents,
		Root:      root,
		Logger:    logger,
	}); err != nil {
		return nil, fmt.Errorf("file service: %w", err)
	}

	c.Listener = data.NewPgListener(data.PgListenerOptions{DB: deps.DB, Logger: logger})
	if c.Notifier, err = queue.NewNotifier(queue.NotifierOptions{
		Source:     c.Listener,
		WaitWindow: cfg.Listener.WaitWindow,
		Backoff:    cfg.Listener.ReconnectDelay,
		Buffer:     cfg.Listener.SubscriberBuffer,
		Logger:     logger,
	}); err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}

	if cfg.IsHTTPServerEnabled() {
		c.Hub = realtime.NewHub(realtime.HubOptions{
			SendBuffer: cfg.Realtime.SendBuffer,
			Logger:     logger,
			Metrics:    c.Metrics,
		})
	}
	return c, nil
}

// mergeEvents picks where merge progress is announced: the relay when it
// exists, so every HTTP replica hears it, otherwise the local hub.
//
//nolint:ireturn // the publisher is chosen at runtime.
func (c *ServiceContainer) mergeEvents() core.EventPublisher {
	if c.Relay != nil {
		return realtime.NewRelayPublisher(c.Relay, time.Now)
	}
	if c.Hub != nil {
		return c.Hub
	}
	return nil
}

func (c *ServiceContainer) readinessChecks() []httpx.ReadinessCheck {
	checks := []httpx.ReadinessCheck{
		{Name: "database", Check: func(ctx context.Context) error { return c.db.PingContext(ctx) }},
	}
	if c.Listener != nil {
		checks = append(checks, httpx.ReadinessCheck{Name: "listener", Check: func(context.Context) error {
			if !c.Listener.Connected() {
				return errors.New("notification listener not connected")
			}
			return nil
		}})
	}
	return checks
}

// Close releases the metrics sink.
func (c *ServiceContainer) Close() error {
	if c.statsd != nil {
		return c.statsd.Close()
	}
	return nil
}

// ServiceOrchestrationConfig contains dependencies for running the enabled service modes.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// backgroundService describes a startable component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) ([]backgroundService, error) {
	app := cfg.Config
	svc := cfg.Services
	var out []backgroundService

	if app.IsHTTPServerEnabled() {
		server, err := NewHTTPServer(&HTTPServerConfig{Config: app, Services: svc, Logger: logger})
		if err != nil {
			return nil, err
		}
		bridge, err := realtime.NewBridge(realtime.BridgeOptions{
			Notifier: svc.Notifier,
			Events:   svc.Hub,
			Stats:    svc.Queue,
			Hub:      svc.Hub,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("realtime bridge: %w", err)
		}
		out = append(out,
			backgroundService{mode: config.ServiceModeHTTP, name: "http server", start: func(ctx context.Context) error {
				return ServeHTTP(ctx, server, svc.Hub, app.HTTP, logger)
			}},
			backgroundService{mode: config.ServiceModeHTTP, name: "realtime heartbeat", start: func(ctx context.Context) error {
				return svc.Hub.RunHeartbeat(ctx, app.Realtime.HeartbeatInterval)
			}},
			backgroundService{mode: config.ServiceModeHTTP, name: "notification bridge", start: bridge.Run},
		)
		if svc.Relay != nil {
			out = append(out, backgroundService{mode: config.ServiceModeHTTP, name: "realtime relay", start: func(ctx context.Context) error {
				return realtime.ForwardRelay(ctx, svc.Relay, svc.Hub)
			}})
		}
	}

	if app.IsMergeWorkerEnabled() {
		worker, err := mergeworker.NewWorker(mergeworker.WorkerOptions{
			Queue:      svc.MergeQueue,
			Items:      svc.Queue,
			Artifacts:  svc.Artifacts,
			Jobs:       svc.Jobs,
			Events:     svc.mergeEvents(),
			Root:       svc.Root,
			OutputDir:  app.Merge.OutputDir,
			YieldEvery: app.Merge.YieldEvery,
			Logger:     logger,
			Metrics:    svc.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("merge worker: %w", err)
		}
		out = append(out, backgroundService{mode: config.ServiceModeMergeWorker, name: "merge worker", start: worker.Run})
	}

	if app.IsFileMoverEnabled() {
		mover, err := filemover.New(filemover.Options{
			Notifier:      svc.Notifier,
			Items:         svc.Queue,
			Root:          svc.Root,
			SweepInterval: app.Files.SweepInterval,
			Logger:        logger,
			Metrics:       svc.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("file mover: %w", err)
		}
		out = append(out, backgroundService{mode: config.ServiceModeFileMover, name: "file mover", start: mover.Run})
	}

	return out, nil
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// It blocks until SIGINT/SIGTERM or until a service fails; either way every
// other service is stopped before it returns.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config requires AppConfig and services")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	services, err := buildBackgroundServices(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runServices(ctx, cfg.Services, services, logger)
}

func runServices(ctx context.Context, svc *ServiceContainer, services []backgroundService, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range services {
		g.Go(func() error {
			logger.InfoContext(gctx, "background service started", "service", s.name, "mode", s.mode)
			if err := s.start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s failed: %w", s.name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down services...")
		return nil
	})

	err := g.Wait()

	// Subscriptions are released by now; stop the read loop and free the listen connection.
	if svc.Notifier != nil {
		svc.Notifier.StopAll()
	}
	if svc.Listener != nil {
		if cerr := svc.Listener.Close(); cerr != nil {
			logger.Warn("close notification listener", "error", cerr)
		}
	}
	if err != nil {
		logger.Error("service error", "error", err)
		return err
	}
	logger.Info("all services stopped")
	return nil
}
