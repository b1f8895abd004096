package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// TopicOrderEvents — топик по умолчанию для событий жизненного цикла заказа.
const TopicOrderEvents = "orders.events"

// OrderEvent — сообщение о создании, изменении или удалении заказа.
// total_value отдаётся JSON-числом, как и totalValue в HTTP API.
type OrderEvent struct {
	EventID      string      `json:"event_id"`
	EventType    string      `json:"event_type"`
	OrderID      int64       `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	CustomerName string      `json:"customer_name"`
	TotalValue   json.Number `json:"total_value"`
	Timestamp    time.Time   `json:"timestamp"`
}

// NewOrderEvent собирает сообщение из доменного события.
func NewOrderEvent(event domain.OrderEvent) OrderEvent {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return OrderEvent{
		EventID:      uuid.NewString(),
		EventType:    string(event.Type),
		OrderID:      event.Order.ID,
		OrderNumber:  event.Order.OrderNumber,
		CustomerName: event.Order.CustomerName,
		TotalValue:   json.Number(event.Order.TotalValue.String()),
		Timestamp:    occurredAt.UTC(),
	}
}
