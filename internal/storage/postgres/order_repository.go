package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

const orderColumns = `id, order_number, customer_name, total_value`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (order_number, customer_name, total_value)
		VALUES ($1, $2, $3)
		RETURNING id
	`, order.OrderNumber, order.CustomerName, order.TotalValue).Scan(&order.ID)
	if err != nil {
		return domain.Order{}, wrapPgError("insert order", err)
	}
	return order, nil
}

func (r *orderRepository) FindAll(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return nil, wrapPgError("query orders", err)
	}
	return scanOrders(rows)
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, wrapPgError("select order", err)
	}
	return order, nil
}

func (r *orderRepository) FindByCustomerName(ctx context.Context, name string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE LOWER(customer_name) = LOWER($1)
		ORDER BY id
	`, name)
	if err != nil {
		return nil, wrapPgError("query orders by customer", err)
	}
	return scanOrders(rows)
}

func (r *orderRepository) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET order_number = $2, customer_name = $3, total_value = $4
		WHERE id = $1
		RETURNING `+orderColumns,
		order.ID, order.OrderNumber, order.CustomerName, order.TotalValue,
	)

	updated, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, wrapPgError("update order", err)
	}
	return updated, nil
}

func (r *orderRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return false, wrapPgError("delete order", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete order rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return 0, wrapPgError("count orders", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	err := row.Scan(&order.ID, &order.OrderNumber, &order.CustomerName, &order.TotalValue)
	return order, err
}

func scanOrders(rows *sql.Rows) ([]domain.Order, error) {
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// wrapPgError добавляет к ошибке SQLSTATE, если её вернул сервер.
func wrapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (sqlstate %s): %w", op, pgErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ domain.OrderRepository = (*orderRepository)(nil)
