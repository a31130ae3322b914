package bootstrap

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appsvc "gopherform/internal/app"
	"gopherform/internal/cache"
	"gopherform/internal/config"
	mysqlClient "gopherform/internal/platform/mysql"
	rabbitmqClient "gopherform/internal/platform/rabbitmq"
	redisClient "gopherform/internal/platform/redis"
	"gopherform/internal/repository"
	"gopherform/internal/upload"
	"gopherform/internal/worker"
)

// App owns every long-lived handle of the process. Fields populated by
// Initialize must only be read after Ready reports true.
type App struct {
	Config      *config.Config
	Uploads     *upload.Store
	Submissions *appsvc.SubmissionService

	Store          appsvc.SubmissionStore
	MySQL          *gorm.DB
	Redis          *redis.Client
	ListCache      *cache.SubmissionListCache
	MQConn         *amqp.Connection
	EventPublisher *rabbitmqClient.EventPublisher
	EventWorker    *worker.SubmissionEventWorker

	StartedAt time.Time
	ready     atomic.Bool
}

// eventRepository records lifecycle events and reads them back.
type eventRepository interface {
	worker.EventRecorder
	appsvc.EventLog
}

// New prepares everything that does not need the network, so the HTTP
// listener can come up before storage is reachable.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(_ context.Context, cfg *config.Config) (*App, error) {
	uploads := upload.NewStore(cfg.Upload.Dir, cfg.Upload.URLPrefix)
	if err := uploads.EnsureDir(); err != nil {
		return nil, err
	}

	return &App{
		Config:      cfg,
		Uploads:     uploads,
		Submissions: appsvc.NewSubmissionService(uploads),
		StartedAt:   time.Now(),
	}, nil
}

// Initialize provisions storage and optional backends, then marks the app
// ready. It must be called once.
func (a *App) Initialize(ctx context.Context) error {
	cfg := a.Config

	var events eventRepository
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		a.Store = repository.NewMemorySubmissionRepository()
		events = repository.NewMemorySubmissionEventRepository()
	default:
		if err := mysqlClient.EnsureDatabase(ctx, cfg.MySQLServerDSN(), cfg.MySQL.DB); err != nil {
			return err
		}
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), cfg.MySQL.MaxOpenConns)
		if err != nil {
			return err
		}
		a.MySQL = db
		a.Store = repository.NewSubmissionRepository(db)
		events = repository.NewSubmissionEventRepository(db)
	}

	if err := a.Store.Initialize(ctx); err != nil {
		return err
	}

	backends := appsvc.Backends{Store: a.Store, EventLog: events}

	if cfg.Redis.Enabled {
		client, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		a.Redis = client
		a.ListCache = cache.NewSubmissionListCache(client, cfg.ListCacheTTL())
		backends.Cache = a.ListCache
	}

	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		a.MQConn = conn

		a.EventWorker = worker.NewSubmissionEventWorker(conn, events, cfg.RabbitMQ.EventQueue)
		if err := a.EventWorker.Start(context.Background()); err != nil {
			return fmt.Errorf("start event worker failed: %w", err)
		}
		a.EventPublisher = rabbitmqClient.NewEventPublisher(conn, cfg.RabbitMQ.EventQueue)
		backends.Events = a.EventPublisher
	}

	if err := a.Submissions.Bind(backends); err != nil {
		return err
	}
	a.ready.Store(true)

	log.Printf("component=bootstrap msg=%q driver=%s redis=%t rabbitmq=%t",
		"storage ready", cfg.Storage.Driver, cfg.Redis.Enabled, cfg.RabbitMQ.Enabled)
	return nil
}

func (a *App) Ready() bool {
	return a.ready.Load()
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.EventPublisher != nil {
		if err := a.EventPublisher.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
