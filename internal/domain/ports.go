package domain

import (
	"context"
	"time"
)

// OrderEventType задаёт тип события жизненного цикла заказа.
type OrderEventType string

const (
	OrderEventCreated OrderEventType = "order.created"
	OrderEventUpdated OrderEventType = "order.updated"
	OrderEventDeleted OrderEventType = "order.deleted"
)

// OrderEvent описывает изменение заказа для внешних подписчиков.
type OrderEvent struct {
	Type       OrderEventType
	Order      Order
	OccurredAt time.Time
}

// EventPublisher публикует события заказов наружу (Kafka или no-op).
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// NoopPublisher ничего не публикует. Используется, когда брокер не настроен.
type NoopPublisher struct{}

// Publish реализует EventPublisher.
func (NoopPublisher) Publish(context.Context, OrderEvent) error { return nil }

var _ EventPublisher = NoopPublisher{}
