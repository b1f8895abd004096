// Package orders содержит бизнес-операции над заказами.
//
// Сервис тонкий: почти все операции передаются репозиторию как есть.
// Собственная логика только у обновления (слияние патча с текущим заказом)
// и у публикации событий после успешной записи.
package orders

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

// Имена операций для логов и метрик.
const (
	OpCreate         = "create"
	OpFindAll        = "find_all"
	OpFindByID       = "find_by_id"
	OpFindByCustomer = "find_by_customer_name"
	OpUpdate         = "update"
	OpDelete         = "delete"
	OpCount          = "count"
)

// Options задаёт необязательные зависимости сервиса.
type Options struct {
	Logger    *log.Entry
	Publisher domain.EventPublisher
	Metrics   *metrics.OrderMetrics
	Now       func() time.Time
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithPublisher задаёт паблишер событий заказа.
func WithPublisher(publisher domain.EventPublisher) Option {
	return func(opts *Options) {
		opts.Publisher = publisher
	}
}

// WithMetrics задаёт метрики операций.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithClock подменяет источник времени для событий.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

// Service реализует операции над заказами поверх OrderRepository.
type Service struct {
	repo      domain.OrderRepository
	publisher domain.EventPublisher
	metrics   *metrics.OrderMetrics
	logger    *log.Entry
	now       func() time.Time
}

// NewService создаёт сервис. Без WithPublisher события не публикуются.
func NewService(repo domain.OrderRepository, options ...Option) *Service {
	opts := Options{}
	for _, apply := range options {
		apply(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "orders-service")
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = domain.NoopPublisher{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   opts.Metrics,
		logger:    logger,
		now:       now,
	}
}

// CreateOrder сохраняет новый заказ из полного патча.
func (s *Service) CreateOrder(ctx context.Context, patch domain.OrderPatch) (order domain.Order, err error) {
	defer s.observe(OpCreate, time.Now(), &err)

	order, err = s.repo.Create(ctx, domain.NewOrder(patch))
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.publish(ctx, domain.OrderEventCreated, order)
	return order, nil
}

// FindAll возвращает все заказы по возрастанию ID.
func (s *Service) FindAll(ctx context.Context) (orders []domain.Order, err error) {
	defer s.observe(OpFindAll, time.Now(), &err)

	orders, err = s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("find all orders: %w", err)
	}
	return orders, nil
}

// FindByID возвращает заказ или domain.ErrOrderNotFound.
func (s *Service) FindByID(ctx context.Context, id int64) (order domain.Order, err error) {
	defer s.observe(OpFindByID, time.Now(), &err)

	order, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("find order %d: %w", id, err)
	}
	return order, nil
}

// FindByCustomerName ищет заказы клиента без учёта регистра.
func (s *Service) FindByCustomerName(ctx context.Context, name string) (orders []domain.Order, err error) {
	defer s.observe(OpFindByCustomer, time.Now(), &err)

	orders, err = s.repo.FindByCustomerName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find orders by customer name: %w", err)
	}
	return orders, nil
}

// UpdateOrder накладывает патч на существующий заказ и сохраняет результат.
// Отсутствующий заказ даёт domain.ErrOrderNotFound, а не ошибку хранилища.
func (s *Service) UpdateOrder(ctx context.Context, id int64, patch domain.OrderPatch) (order domain.Order, err error) {
	defer s.observe(OpUpdate, time.Now(), &err)

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load order %d: %w", id, err)
	}
	if patch.IsEmpty() {
		return existing, nil
	}

	order, err = s.repo.Update(ctx, existing.ApplyPatch(patch))
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order %d: %w", id, err)
	}

	s.publish(ctx, domain.OrderEventUpdated, order)
	return order, nil
}

// DeleteOrder удаляет заказ и сообщает, существовал ли он.
func (s *Service) DeleteOrder(ctx context.Context, id int64) (removed bool, err error) {
	defer s.observe(OpDelete, time.Now(), &err)

	removed, err = s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete order %d: %w", id, err)
	}
	if removed {
		s.publish(ctx, domain.OrderEventDeleted, domain.Order{ID: id})
	}
	return removed, nil
}

// CountOrders возвращает общее число заказов.
func (s *Service) CountOrders(ctx context.Context) (total int64, err error) {
	defer s.observe(OpCount, time.Now(), &err)

	total, err = s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return total, nil
}

func (s *Service) observe(operation string, started time.Time, err *error) {
	s.metrics.ObserveOperation(operation, *err, time.Since(started))
}

// publish не влияет на результат операции: ошибка брокера только логируется.
func (s *Service) publish(ctx context.Context, eventType domain.OrderEventType, order domain.Order) {
	err := s.publisher.Publish(ctx, domain.OrderEvent{
		Type:       eventType,
		Order:      order,
		OccurredAt: s.now(),
	})
	s.metrics.RecordEventPublish(eventType, err)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event")
	}
}
