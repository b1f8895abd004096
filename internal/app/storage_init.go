package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/storage"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders/internal/storage/mysql"
	"github.com/vladislavdragonenkov/orders/internal/storage/postgres"
)

// orderStore — общее у PostgreSQL и MySQL хранилищ.
type orderStore interface {
	healthcheck.Pinger
	EnsureSchema(ctx context.Context) error
	Close() error
}

type runtimeDependencies struct {
	driver  StorageDriver
	repo    domain.OrderRepository
	pinger  healthcheck.Pinger
	closeFn func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	driver := cfg.EffectiveStorageDriver()
	logger = logger.WithField("storage_driver", driver)

	switch driver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return runtimeDependencies{
			driver:  driver,
			repo:    memory.NewOrderRepository(),
			closeFn: func() error { return nil },
		}, nil

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return runtimeDependencies{}, missingDSNError(driver, "ORDERS_POSTGRES_DSN")
		}
		connector, store, err := connectStore(ctx, logger, cfg.PostgresAutoMigrate, func(ctx context.Context) (*postgres.Store, error) {
			return postgres.Open(ctx, dsn)
		})
		if err != nil {
			return runtimeDependencies{}, err
		}
		return runtimeDependencies{
			driver:  driver,
			repo:    postgres.NewOrderRepository(store),
			pinger:  connectorPinger[*postgres.Store]{connector: connector},
			closeFn: closeConnector(connector),
		}, nil

	case StorageDriverMySQL:
		dsn := strings.TrimSpace(cfg.MySQLDSN)
		if dsn == "" {
			return runtimeDependencies{}, missingDSNError(driver, "ORDERS_MYSQL_DSN")
		}
		connector, store, err := connectStore(ctx, logger, true, func(ctx context.Context) (*mysql.Store, error) {
			return mysql.Open(ctx, dsn)
		})
		if err != nil {
			return runtimeDependencies{}, err
		}
		return runtimeDependencies{
			driver:  driver,
			repo:    mysql.NewOrderRepository(store),
			pinger:  connectorPinger[*mysql.Store]{connector: connector},
			closeFn: closeConnector(connector),
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// ErrMissingDSN — выбран SQL-драйвер, но строка подключения не задана.
var ErrMissingDSN = errors.New("storage DSN is not set")

// missingDSNError подсказывает оба способа запуска: задать DSN или переключиться на память.
func missingDSNError(driver StorageDriver, envKey string) error {
	return fmt.Errorf("%w: %s storage requires %s (set it, or set ORDERS_STORAGE_DRIVER=memory to run without a database)",
		ErrMissingDSN, driver, envKey)
}

// connectStore открывает хранилище через Connector и при необходимости применяет схему.
// Схема применяется внутри open, поэтому неудачная миграция не кэшируется.
func connectStore[S orderStore](ctx context.Context, logger *log.Entry, ensureSchema bool, open storage.OpenFunc[S]) (*storage.Connector[S], S, error) {
	connector := storage.NewConnector(func(ctx context.Context) (S, error) {
		store, err := open(ctx)
		if err != nil {
			return store, err
		}
		if ensureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				var zero S
				return zero, fmt.Errorf("ensure schema: %w", err)
			}
			logger.Info("storage schema is up to date")
		}
		return store, nil
	})

	store, err := connector.Get(ctx)
	if err != nil {
		var zero S
		return nil, zero, fmt.Errorf("open storage: %w", err)
	}
	logger.Info("storage connection established")
	return connector, store, nil
}

func closeConnector[S orderStore](connector *storage.Connector[S]) func() error {
	return func() error {
		return connector.Close(func(store S) error { return store.Close() })
	}
}

// connectorPinger проверяет хранилище через коннектор, чтобы health-check
// не обращался к уже закрытому соединению.
type connectorPinger[S orderStore] struct {
	connector *storage.Connector[S]
}

func (p connectorPinger[S]) Ping(ctx context.Context) error {
	store, err := p.connector.Get(ctx)
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

func closeStore(deps runtimeDependencies, logger *log.Entry) {
	if deps.closeFn == nil {
		return
	}
	if err := deps.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
		return
	}
	logger.Info("storage closed")
}
