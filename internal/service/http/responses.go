package httpsvc

import (
	"encoding/json"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/validation"
)

// Тексты ошибок, которые видит клиент.
const (
	msgInvalidID        = "Invalid ID format"
	msgOrderNotFound    = "Order not found"
	msgCustomerRequired = "Customer name is required"
	msgInternal         = "Internal Server Error"
	msgRouteNotFound    = "Not Found"
)

// orderResponse — представление заказа в API. totalValue отдаётся JSON-числом.
type orderResponse struct {
	ID           int64       `json:"id"`
	OrderNumber  string      `json:"orderNumber"`
	CustomerName string      `json:"customerName"`
	TotalValue   json.Number `json:"totalValue"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerName,
		TotalValue:   json.Number(o.TotalValue.String()),
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

type validationErrorResponse struct {
	Errors []validation.FieldError `json:"errors"`
}

type countResponse struct {
	Total int64 `json:"total"`
}
