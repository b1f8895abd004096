package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
)

// StorageDriver выбирает реализацию хранилища заказов.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
	StorageDriverMySQL    StorageDriver = "mysql"
)

// EnvTest — значение ORDERS_ENV, при котором сервис работает на памяти.
const EnvTest = "test"

// ParseStorageDriver разбирает имя драйвера без учёта регистра.
func ParseStorageDriver(raw string) (StorageDriver, error) {
	switch driver := StorageDriver(strings.ToLower(strings.TrimSpace(raw))); driver {
	case StorageDriverMemory, StorageDriverPostgres, StorageDriverMySQL:
		return driver, nil
	default:
		return "", fmt.Errorf("unsupported storage driver %q", raw)
	}
}

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	Env                 string
	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool
	MySQLDSN            string

	KafkaBrokers string
	KafkaTopic   string

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает базовые настройки: API на :3000, PostgreSQL, Kafka выключена.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":3000",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverPostgres,
		PostgresAutoMigrate: true,
		KafkaTopic:          kafka.TopicOrderEvents,
		ShutdownTimeout:     10 * time.Second,
	}
}

// EffectiveStorageDriver учитывает ORDERS_ENV=test: в тестовом окружении всегда память.
func (c Config) EffectiveStorageDriver() StorageDriver {
	if strings.EqualFold(strings.TrimSpace(c.Env), EnvTest) {
		return StorageDriverMemory
	}
	return c.StorageDriver
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return DefaultConfig().ShutdownTimeout
	}
	return c.ShutdownTimeout
}
