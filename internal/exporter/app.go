// Package exporter wires the export engine together: stores, archive,
// decryption, the export request consumer and the operator gRPC API.
package exporter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/cryptox"
	"github.com/dmitrijs2005/exporter3/internal/exporter/archive"
	"github.com/dmitrijs2005/exporter3/internal/exporter/config"
	"github.com/dmitrijs2005/exporter3/internal/exporter/queue"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/repomanager"
	"github.com/dmitrijs2005/exporter3/internal/exporter/services"
	"github.com/dmitrijs2005/exporter3/internal/exporter/storage"
	"github.com/dmitrijs2005/exporter3/internal/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	gs "github.com/dmitrijs2005/exporter3/internal/exporter/grpc"
)

const meterName = "github.com/dmitrijs2005/exporter3"

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	server   *gs.GRPCServer
	consumer *queue.Consumer
}

// backends are the stores an App runs against, either in-process or remote.
type backends struct {
	db        *sql.DB
	redis     *redis.Client
	rm        repomanager.RepositoryManager
	store     storage.ObjectStore
	source    queue.Source
	publisher queue.Publisher
	lease     queue.Lease
}

func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	var b *backends
	if c.InMemory {
		b = inMemoryBackends(c)
	} else {
		b, err = remoteBackends(ctx, c)
		if err != nil {
			return nil, err
		}
	}

	app := &App{config: c, logger: l, db: b.db, redis: b.redis}
	if err := app.build(b, loc); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) build(b *backends, loc *time.Location) error {
	adapter := archive.NewAdapter(b.rm.Catalog(b.db), b.store, app.config.RawDataBucket, app.logger)
	keys := cryptox.NewKeyStore(app.config.KeysDir)

	exportSvc, err := services.NewExportService(b.db, b.rm, adapter, b.store, keys,
		services.ExportConfig{StagingBucket: app.config.StagingBucket, Location: loc},
		otel.Meter(meterName), app.logger)
	if err != nil {
		return err
	}
	recordSvc := services.NewRecordService(b.db, b.rm)
	versionSvc := services.NewVersionService(b.db, b.rm, app.config.PollAttempts, app.config.PollDelay, app.logger)

	app.consumer = queue.NewConsumer(b.source, exportSvc, b.lease, queue.ConsumerConfig{
		Workers:      app.config.Workers,
		DispatchRate: app.config.DispatchRate,
		BatchSize:    app.config.BatchSize,
		LeaseTTL:     app.config.LeaseTTL,
	}, app.logger)

	app.server = gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, gs.Deps{
		Records:   recordSvc,
		Exporter:  exportSvc,
		Versions:  versionSvc,
		Artifacts: adapter,
		Publisher: b.publisher,
	}, app.config.OperatorToken)

	app.logger.Info(context.Background(), "app configured",
		"in_memory", app.config.InMemory, "time_zone", loc.String(), "workers", app.config.Workers)
	return nil
}

func inMemoryBackends(c *config.Config) *backends {
	src := queue.NewMemorySource(c.RedeliverAfter)
	return &backends{
		rm:        repomanager.NewInMemoryRepositoryManager(),
		store:     storage.NewMemoryStore(),
		source:    src,
		publisher: src,
	}
}

func remoteBackends(ctx context.Context, c *config.Config) (_ *backends, err error) {
	b := &backends{rm: repomanager.NewPostgresRepositoryManager()}
	defer func() {
		if err != nil {
			closeBackends(b)
		}
	}()

	b.db, err = sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err = b.rm.RunMigrations(ctx, b.db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	b.store, err = storage.NewS3Store(ctx, storage.Options{
		Region:       c.S3Region,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 init error: %w", err)
	}

	b.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
	if err = b.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	consumer := c.QueueConsumer
	if consumer == "" {
		host, _ := os.Hostname()
		consumer = fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
	}
	src := queue.NewRedisSource(b.redis, c.QueueStream, c.QueueGroup, consumer, c.RedeliverAfter)
	if err = src.EnsureGroup(ctx); err != nil {
		return nil, fmt.Errorf("queue group: %w", err)
	}
	b.source, b.publisher = src, src
	b.lease = queue.NewRedisLease(b.redis, c.QueueStream+":lease:")
	return b, nil
}

func closeBackends(b *backends) {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the gRPC API and consumes export requests until ctx is
// cancelled, a termination signal arrives or either loop fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				app.logger.Error(ctx, name+" stopped", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
			cancelFunc()
		}()
	}

	run("grpc server", app.server.Run)
	run("consumer", app.consumer.Run)
	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return errors.Join(errs...)
}

// Close releases database and Redis connections.
func (app *App) Close() {
	closeBackends(&backends{db: app.db, redis: app.redis})
}
