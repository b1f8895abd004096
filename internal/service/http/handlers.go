package httpsvc

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/pagination"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/validation"
)

const maxBodyBytes = 1 << 20

// OrderService — операции, которые нужны HTTP-слою.
type OrderService interface {
	CreateOrder(ctx context.Context, patch domain.OrderPatch) (domain.Order, error)
	FindAll(ctx context.Context) ([]domain.Order, error)
	FindByID(ctx context.Context, id int64) (domain.Order, error)
	FindByCustomerName(ctx context.Context, name string) ([]domain.Order, error)
	UpdateOrder(ctx context.Context, id int64, patch domain.OrderPatch) (domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) (bool, error)
	CountOrders(ctx context.Context) (int64, error)
}

var _ OrderService = (*orders.Service)(nil)

// OrderHandler обслуживает маршруты /orders.
type OrderHandler struct {
	service   OrderService
	validator *validation.OrderValidator
	logger    *log.Entry
}

// NewOrderHandler создаёт обработчик; nil logger заменяется компонентным.
func NewOrderHandler(service OrderService, validator *validation.OrderValidator, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.WithField("component", "orders-http")
	}
	if validator == nil {
		validator = validation.New()
	}
	return &OrderHandler{service: service, validator: validator, logger: logger}
}

func (h *OrderHandler) createOrder(c *gin.Context) {
	entry := h.entry(c, orders.OpCreate)

	body, ok := h.decodeBody(c, entry)
	if !ok {
		return
	}
	patch, errs := h.validator.ValidateCreate(body)
	if len(errs) > 0 {
		h.rejectValidation(c, entry, errs)
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), patch)
	if err != nil {
		h.internalError(c, entry, err, "failed to create order")
		return
	}

	entry.WithField("order_id", order.ID).Info("order created")
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) listOrders(c *gin.Context) {
	rawPage, hasPage := c.GetQuery("page")
	rawLimit, hasLimit := c.GetQuery("limit")
	page := pagination.ParseParam(rawPage, hasPage, pagination.DefaultPage)
	limit := pagination.ParseParam(rawLimit, hasLimit, pagination.DefaultLimit)

	entry := h.entry(c, orders.OpFindAll).WithFields(log.Fields{"page": page, "limit": limit})

	all, err := h.service.FindAll(c.Request.Context())
	if err != nil {
		h.internalError(c, entry, err, "failed to list orders")
		return
	}

	result := pagination.Paginate(toOrderResponses(all), page, limit)
	entry.WithField("total_items", result.TotalItems).Info("orders listed")
	c.JSON(http.StatusOK, result)
}

func (h *OrderHandler) getOrder(c *gin.Context) {
	entry := h.entry(c, orders.OpFindByID)

	id, ok := h.parseID(c, entry)
	if !ok {
		return
	}
	entry = entry.WithField("order_id", id)

	order, err := h.service.FindByID(c.Request.Context(), id)
	if errors.Is(err, domain.ErrOrderNotFound) {
		h.notFound(c, entry)
		return
	}
	if err != nil {
		h.internalError(c, entry, err, "failed to fetch order")
		return
	}

	entry.Info("order fetched")
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) findByCustomerName(c *gin.Context) {
	entry := h.entry(c, orders.OpFindByCustomer)

	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		entry.Warn("customer name is empty")
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgCustomerRequired})
		return
	}
	entry = entry.WithField("customer_name", name)

	found, err := h.service.FindByCustomerName(c.Request.Context(), name)
	if err != nil {
		h.internalError(c, entry, err, "failed to fetch orders by customer name")
		return
	}

	entry.WithField("count", len(found)).Info("orders fetched by customer name")
	c.JSON(http.StatusOK, toOrderResponses(found))
}

func (h *OrderHandler) updateOrder(c *gin.Context) {
	entry := h.entry(c, orders.OpUpdate)

	id, ok := h.parseID(c, entry)
	if !ok {
		return
	}
	entry = entry.WithField("order_id", id)

	body, ok := h.decodeBody(c, entry)
	if !ok {
		return
	}
	patch, errs := h.validator.ValidateUpdate(body)
	if len(errs) > 0 {
		h.rejectValidation(c, entry, errs)
		return
	}

	order, err := h.service.UpdateOrder(c.Request.Context(), id, patch)
	if errors.Is(err, domain.ErrOrderNotFound) {
		h.notFound(c, entry)
		return
	}
	if err != nil {
		h.internalError(c, entry, err, "failed to update order")
		return
	}

	entry.Info("order updated")
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) deleteOrder(c *gin.Context) {
	entry := h.entry(c, orders.OpDelete)

	id, ok := h.parseID(c, entry)
	if !ok {
		return
	}
	entry = entry.WithField("order_id", id)

	removed, err := h.service.DeleteOrder(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, entry, err, "failed to delete order")
		return
	}
	if !removed {
		h.notFound(c, entry)
		return
	}

	entry.Info("order deleted")
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) countOrders(c *gin.Context) {
	entry := h.entry(c, orders.OpCount)

	total, err := h.service.CountOrders(c.Request.Context())
	if err != nil {
		h.internalError(c, entry, err, "failed to count orders")
		return
	}

	entry.WithField("total", total).Info("orders counted")
	c.JSON(http.StatusOK, countResponse{Total: total})
}

func (h *OrderHandler) entry(c *gin.Context, operation string) *log.Entry {
	return h.logger.WithFields(log.Fields{
		"operation":  operation,
		"request_id": requestIDFrom(c),
	})
}

// parseID принимает только целое десятичное число; иначе отвечает 400.
func (h *OrderHandler) parseID(c *gin.Context, entry *log.Entry) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		entry.WithField("raw_id", raw).Warn("invalid order id")
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidID})
		return 0, false
	}
	return id, true
}

func (h *OrderHandler) decodeBody(c *gin.Context, entry *log.Entry) (validation.Body, bool) {
	body, err := validation.DecodeBody(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		entry.WithError(err).Warn("malformed request body")
		c.JSON(http.StatusBadRequest, validationErrorResponse{Errors: []validation.FieldError{
			{Field: "body", Message: validation.ErrInvalidBody.Error()},
		}})
		return nil, false
	}
	return body, true
}

func (h *OrderHandler) rejectValidation(c *gin.Context, entry *log.Entry, errs []validation.FieldError) {
	entry.WithField("errors", len(errs)).Warn("validation failed")
	c.JSON(http.StatusBadRequest, validationErrorResponse{Errors: errs})
}

func (h *OrderHandler) notFound(c *gin.Context, entry *log.Entry) {
	entry.Warn("order not found")
	c.JSON(http.StatusNotFound, errorResponse{Error: msgOrderNotFound})
}

// internalError логирует подробности, а клиенту отдаёт общий текст.
func (h *OrderHandler) internalError(c *gin.Context, entry *log.Entry, err error, msg string) {
	entry.WithError(err).Error(msg)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: msgInternal})
}
