package domain

import (
	"github.com/shopspring/decimal"
)

// Order — единственная бизнес-сущность сервиса.
type Order struct {
	// ID назначается хранилищем один раз, при создании.
	ID           int64
	OrderNumber  string
	CustomerName string
	// TotalValue хранится как decimal, чтобы не терять копейки на float64.
	TotalValue decimal.Decimal
}

// OrderPatch описывает набор полей для создания или частичного обновления заказа.
// nil означает "поле не передано".
type OrderPatch struct {
	OrderNumber  *string
	CustomerName *string
	TotalValue   *decimal.Decimal
}

// IsEmpty сообщает, что в патче нет ни одного поля.
func (p OrderPatch) IsEmpty() bool {
	return p.OrderNumber == nil && p.CustomerName == nil && p.TotalValue == nil
}

// NewOrder собирает ещё не сохранённый заказ (ID == 0) из патча.
// Отсутствующие поля остаются нулевыми: полноту патча проверяет слой валидации.
func NewOrder(p OrderPatch) Order {
	return Order{}.ApplyPatch(p)
}

// ApplyPatch возвращает копию заказа с наложенными полями патча.
// Поля, которых нет в патче, сохраняются; ID не меняется никогда.
func (o Order) ApplyPatch(p OrderPatch) Order {
	if p.OrderNumber != nil {
		o.OrderNumber = *p.OrderNumber
	}
	if p.CustomerName != nil {
		o.CustomerName = *p.CustomerName
	}
	if p.TotalValue != nil {
		o.TotalValue = *p.TotalValue
	}
	return o
}

// Equal сравнивает заказы по значению, учитывая decimal-семантику суммы.
func (o Order) Equal(other Order) bool {
	return o.ID == other.ID &&
		o.OrderNumber == other.OrderNumber &&
		o.CustomerName == other.CustomerName &&
		o.TotalValue.Equal(other.TotalValue)
}
