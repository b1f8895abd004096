package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStoreUnavailable сигнализирует, что подключение к хранилищу ещё не открыто или уже закрыто.
	ErrStoreUnavailable = errors.New("order store is not available")
)

// IsNotFound проверяет, является ли ошибка отсутствием заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}
