package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ и возвращает его с назначенным ID.
	Create(ctx context.Context, order Order) (Order, error)
	// FindAll возвращает все заказы, упорядоченные по ID.
	FindAll(ctx context.Context) ([]Order, error)
	// FindByID возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	FindByID(ctx context.Context, id int64) (Order, error)
	// FindByCustomerName ищет заказы по имени клиента без учёта регистра.
	// Пустой результат — не ошибка.
	FindByCustomerName(ctx context.Context, name string) ([]Order, error)
	// Update перезаписывает все поля заказа. ErrOrderNotFound, если строки уже нет.
	Update(ctx context.Context, order Order) (Order, error)
	// Delete удаляет заказ и сообщает, была ли удалена строка.
	Delete(ctx context.Context, id int64) (bool, error)
	// Count возвращает общее количество заказов.
	Count(ctx context.Context) (int64, error)
}
