// Package metrics описывает Prometheus-метрики сервиса заказов.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// Значения метки result.
const (
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// OrderMetrics считает операции сервиса заказов и публикацию событий.
// Методы безопасно вызывать на nil.
type OrderMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

// NewOrderMetrics регистрирует метрики в registerer (nil — глобальный реестр).
func NewOrderMetrics(registerer prometheus.Registerer) *OrderMetrics {
	return &OrderMetrics{
		operations: register(registerer, "orders_operations_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_operations_total",
			Help: "Total number of order operations by outcome",
		}, []string{"operation", "result"})),
		duration: register(registerer, "orders_operation_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orders_operation_duration_seconds",
			Help:    "Duration of order operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"operation"})),
		events: register(registerer, "orders_events_published_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_events_published_total",
			Help: "Total number of order lifecycle events handed to the publisher",
		}, []string{"event_type", "result"})),
	}
}

// ObserveOperation фиксирует исход и длительность операции.
func (m *OrderMetrics) ObserveOperation(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, resultOf(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordEventPublish фиксирует попытку публикации события.
func (m *OrderMetrics) RecordEventPublish(eventType domain.OrderEventType, err error) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(eventType), resultOf(err)).Inc()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, domain.ErrOrderNotFound):
		return ResultNotFound
	default:
		return ResultError
	}
}
