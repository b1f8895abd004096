// Package httpsvc публикует операции над заказами по HTTP на gin.
package httpsvc

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/validation"
)

// Config — зависимости роутера. Metrics и Logger необязательны.
type Config struct {
	Service   OrderService
	Validator *validation.OrderValidator
	Logger    *log.Entry
	Metrics   *metrics.HTTPMetrics
}

// NewRouter собирает gin.Engine с middleware и маршрутами /orders.
func NewRouter(cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "orders-http")
	}

	engine := gin.New()
	engine.Use(
		requestID(),
		accessLog(logger),
		observe(cfg.Metrics),
		recovery(logger),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: msgRouteNotFound})
	})

	handler := NewOrderHandler(cfg.Service, cfg.Validator, logger)
	RegisterOrderRoutes(engine.Group("/orders"), handler)

	return engine
}

// RegisterOrderRoutes регистрирует маршруты заказов в группе rg.
// Маршруты с литеральным префиксом идут раньше /:id.
func RegisterOrderRoutes(rg *gin.RouterGroup, h *OrderHandler) {
	rg.POST("", h.createOrder)
	rg.GET("", h.listOrders)
	rg.GET("/count/all/orders", h.countOrders)
	rg.GET("/customerName/:name", h.findByCustomerName)
	rg.GET("/:id", h.getOrder)
	rg.PUT("/:id", h.updateOrder)
	rg.DELETE("/:id", h.deleteOrder)
}
