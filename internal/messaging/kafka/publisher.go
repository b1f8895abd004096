package kafka

import (
	"context"
	"errors"
	"strconv"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// OrderEventPublisher отправляет доменные события заказов в один топик.
// Ключ сообщения — ID заказа, поэтому события одного заказа попадают в одну партицию.
type OrderEventPublisher struct {
	producer *Producer
	topic    string
}

// NewOrderEventPublisher создаёт паблишер; пустой topic заменяется на TopicOrderEvents.
func NewOrderEventPublisher(producer *Producer, topic string) *OrderEventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OrderEventPublisher{producer: producer, topic: topic}
}

// Publish реализует domain.EventPublisher.
func (p *OrderEventPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	if p == nil || p.producer == nil {
		return errors.New("kafka order publisher is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := strconv.FormatInt(event.Order.ID, 10)
	return p.producer.PublishEvent(p.topic, key, NewOrderEvent(event))
}

var _ domain.EventPublisher = (*OrderEventPublisher)(nil)
