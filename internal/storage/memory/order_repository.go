package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[int64]domain.Order
	lastID int64
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
// Данные живут до конца процесса.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[int64]domain.Order),
	}
}

// Create назначает заказу следующий ID и сохраняет его.
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	order.ID = r.lastID
	r.items[order.ID] = order
	return order, nil
}

// FindAll возвращает все заказы по возрастанию ID.
func (r *orderRepositoryInMemory) FindAll(_ context.Context) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(domain.Order) bool { return true }), nil
}

// FindByID возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) FindByID(_ context.Context, id int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// FindByCustomerName сравнивает имя целиком без учёта регистра.
func (r *orderRepositoryInMemory) FindByCustomerName(_ context.Context, name string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(o domain.Order) bool {
		return strings.EqualFold(o.CustomerName, name)
	}), nil
}

// Update перезаписывает заказ целиком.
func (r *orderRepositoryInMemory) Update(_ context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[order.ID]; !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	r.items[order.ID] = order
	return order, nil
}

// Delete удаляет заказ; false, если такого ID нет.
func (r *orderRepositoryInMemory) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

// Count возвращает количество заказов.
func (r *orderRepositoryInMemory) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.items)), nil
}

// collect вызывается под блокировкой.
func (r *orderRepositoryInMemory) collect(match func(domain.Order) bool) []domain.Order {
	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if match(order) {
			result = append(result, order)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
