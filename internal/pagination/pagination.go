// Package pagination режет уже загруженный список на страницы.
package pagination

import "strconv"

const (
	// DefaultPage используется, когда параметр page не передан.
	DefaultPage = 1
	// DefaultLimit используется, когда параметр limit не передан.
	DefaultLimit = 10
)

// Page — конверт ответа со срезом данных и метаданными.
type Page[T any] struct {
	Data        []T `json:"data"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
}

// Paginate возвращает страницу page размером limit.
// page и limit меньше 1 приводятся к 1. Окно за пределами данных даёт пустой Data
// при тех же метаданных, это не ошибка.
func Paginate[T any](items []T, page, limit int) Page[T] {
	page = max(page, 1)
	limit = max(limit, 1)

	total := len(items)
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	data := make([]T, 0)
	// page <= totalPages гарантирует (page-1)*limit < total без переполнения.
	if page <= totalPages {
		start := (page - 1) * limit
		end := start + min(limit, total-start)
		data = append(data, items[start:end]...)
	}

	return Page[T]{
		Data:        data,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
	}
}

// ParseParam разбирает query-параметр страницы.
// Отсутствующий параметр даёт fallback, нечисловой — 1.
func ParseParam(raw string, present bool, fallback int) int {
	if !present {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return value
}
