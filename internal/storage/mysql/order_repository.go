package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// orderRecord — строка таблицы orders.
type orderRecord struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	OrderNumber  string          `gorm:"size:50;not null"`
	CustomerName string          `gorm:"size:100;not null;index:idx_orders_customer_name"`
	TotalValue   decimal.Decimal `gorm:"type:decimal(8,2);not null"`
}

func (orderRecord) TableName() string { return "orders" }

func toRecord(o domain.Order) orderRecord {
	return orderRecord{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerName,
		TotalValue:   o.TotalValue,
	}
}

func (r orderRecord) toDomain() domain.Order {
	return domain.Order{
		ID:           r.ID,
		OrderNumber:  r.OrderNumber,
		CustomerName: r.CustomerName,
		TotalValue:   r.TotalValue,
	}
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository создаёт MySQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.db}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	rec := toRecord(order)
	rec.ID = 0
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *orderRepository) FindAll(ctx context.Context) ([]domain.Order, error) {
	var recs []orderRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	return toDomainList(recs), nil
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (domain.Order, error) {
	var rec orderRecord
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *orderRepository) FindByCustomerName(ctx context.Context, name string) ([]domain.Order, error) {
	var recs []orderRecord
	err := r.db.WithContext(ctx).
		Where("LOWER(customer_name) = LOWER(?)", name).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query orders by customer: %w", err)
	}
	return toDomainList(recs), nil
}

func (r *orderRepository) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	// MySQL не считает строку затронутой, если значения не изменились,
	// поэтому существование проверяется отдельно внутри транзакции.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing orderRecord
		if err := tx.Select("id").First(&existing, order.ID).Error; err != nil {
			return err
		}
		return tx.Model(&orderRecord{ID: order.ID}).Updates(map[string]any{
			"order_number":  order.OrderNumber,
			"customer_name": order.CustomerName,
			"total_value":   order.TotalValue,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&orderRecord{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete order: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&orderRecord{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return total, nil
}

func toDomainList(recs []orderRecord) []domain.Order {
	orders := make([]domain.Order, 0, len(recs))
	for _, rec := range recs {
		orders = append(orders, rec.toDomain())
	}
	return orders
}

var _ domain.OrderRepository = (*orderRepository)(nil)
