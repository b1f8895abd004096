package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/app"
)

const (
	envPort                = "PORT"
	envEnvironment         = "ORDERS_ENV"
	envStorageDriver       = "ORDERS_STORAGE_DRIVER"
	envPostgresDSN         = "ORDERS_POSTGRES_DSN"
	envPostgresAutoMigrate = "ORDERS_POSTGRES_AUTO_MIGRATE"
	envMySQLDSN            = "ORDERS_MYSQL_DSN"
	envMetricsAddr         = "ORDERS_METRICS_ADDR"
	envGRPCAddr            = "ORDERS_GRPC_ADDR"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envKafkaTopic          = "ORDERS_KAFKA_TOPIC"
	envShutdownTimeout     = "ORDERS_SHUTDOWN_TIMEOUT"
	envLogLevel            = "ORDERS_LOG_LEVEL"
	envLogFormat           = "ORDERS_LOG_FORMAT"
)

type envLookup func(string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
// Некорректный уровень не останавливает запуск, а возвращается предупреждением.
func setupLogger(lookup envLookup) []string {
	var warnings []string

	if format, ok := lookup(envLogFormat); ok && strings.EqualFold(strings.TrimSpace(format), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level := log.InfoLevel
	if raw, ok := lookup(envLogLevel); ok && strings.TrimSpace(raw) != "" {
		parsed, err := log.ParseLevel(strings.TrimSpace(raw))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v, using %s", envLogLevel, err, level))
		} else {
			level = parsed
		}
	}
	log.SetLevel(level)

	return warnings
}

// readConfigFromEnv формирует конфигурацию из окружения.
// Некорректные значения заменяются значениями по умолчанию и попадают в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q: %v, using default", key, raw, err))
	}

	if raw, ok := nonEmpty(lookup, envPort); ok {
		port, err := parseInt(raw, func(v int) bool { return v > 0 && v <= 65535 }, "must be between 1 and 65535")
		if err != nil {
			warn(envPort, raw, err)
		} else {
			cfg.HTTPAddr = ":" + strconv.Itoa(port)
		}
	}
	if raw, ok := nonEmpty(lookup, envEnvironment); ok {
		cfg.Env = raw
	}
	if raw, ok := nonEmpty(lookup, envStorageDriver); ok {
		driver, err := app.ParseStorageDriver(raw)
		if err != nil {
			warn(envStorageDriver, raw, err)
		} else {
			cfg.StorageDriver = driver
		}
	}
	if raw, ok := nonEmpty(lookup, envPostgresDSN); ok {
		cfg.PostgresDSN = raw
	}
	if raw, ok := nonEmpty(lookup, envPostgresAutoMigrate); ok {
		value, err := parseBool(raw)
		if err != nil {
			warn(envPostgresAutoMigrate, raw, err)
		} else {
			cfg.PostgresAutoMigrate = value
		}
	}
	if raw, ok := nonEmpty(lookup, envMySQLDSN); ok {
		cfg.MySQLDSN = raw
	}
	if raw, ok := nonEmpty(lookup, envMetricsAddr); ok {
		cfg.MetricsAddr = raw
	}
	// Пустой ORDERS_GRPC_ADDR выключает gRPC, поэтому здесь важно само наличие переменной.
	if raw, ok := lookup(envGRPCAddr); ok {
		cfg.GRPCAddr = strings.TrimSpace(raw)
	}
	if raw, ok := nonEmpty(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = raw
	}
	if raw, ok := nonEmpty(lookup, envKafkaTopic); ok {
		cfg.KafkaTopic = raw
	}
	if raw, ok := nonEmpty(lookup, envShutdownTimeout); ok {
		value, err := parseDuration(raw, func(v time.Duration) bool { return v > 0 }, "must be > 0")
		if err != nil {
			warn(envShutdownTimeout, raw, err)
		} else {
			cfg.ShutdownTimeout = value
		}
	}

	return cfg, warnings
}

func nonEmpty(lookup envLookup, key string) (string, bool) {
	raw, ok := lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s %s", value, rule)
	}
	return value, nil
}

func main() {
	logWarnings := setupLogger(os.LookupEnv)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range append(logWarnings, warnings...) {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.EffectiveStorageDriver(),
	}).Info("запускаем orders service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		stop()
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("orders service остановлен")
}
