// Package storage владеет подключением к хранилищу заказов.
package storage

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrConnectorClosed возвращается Get после Close.
var ErrConnectorClosed = errors.New("storage connector is closed")

const openKey = "open"

// OpenFunc открывает ресурс хранилища.
type OpenFunc[T any] func(ctx context.Context) (T, error)

// Connector лениво открывает ресурс один раз на процесс.
//
// Конкурентные вызовы Get ждут одну и ту же попытку открытия.
// Успешный результат кэшируется, ошибка — нет: следующий Get начнёт заново.
type Connector[T any] struct {
	open  OpenFunc[T]
	group singleflight.Group

	mu     sync.RWMutex
	value  T
	ready  bool
	closed bool
}

// NewConnector создаёт коннектор поверх open.
func NewConnector[T any](open OpenFunc[T]) *Connector[T] {
	return &Connector[T]{open: open}
}

// Get возвращает открытый ресурс, открывая его при первом обращении.
func (c *Connector[T]) Get(ctx context.Context) (T, error) {
	if value, ok, err := c.cached(); ok || err != nil {
		return value, err
	}

	ch := c.group.DoChan(openKey, func() (any, error) {
		if value, ok, err := c.cached(); ok || err != nil {
			return value, err
		}

		value, err := c.open(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return nil, ErrConnectorClosed
		}
		c.value = value
		c.ready = true
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Ready сообщает, открыт ли ресурс.
func (c *Connector[T]) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Close освобождает ресурс через closeFn, если он был открыт.
// Повторный вызов ничего не делает.
func (c *Connector[T]) Close(closeFn func(T) error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	value, ready := c.value, c.ready
	var zero T
	c.value = zero
	c.ready = false
	c.mu.Unlock()

	if !ready || closeFn == nil {
		return nil
	}
	return closeFn(value)
}

func (c *Connector[T]) cached() (T, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	if c.closed {
		return zero, false, ErrConnectorClosed
	}
	if c.ready {
		return c.value, true, nil
	}
	return zero, false, nil
}
