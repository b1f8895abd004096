// Package validation проверяет тела HTTP-запросов до того, как они попадут в бизнес-логику.
//
// Каждое поле описывается упорядоченным списком правил (предикат + сообщение).
// Правила не прерываются на первой ошибке: проверяются все поля и все правила,
// а нарушения возвращаются одним списком.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidBody возвращается, если тело запроса не является JSON-объектом.
var ErrInvalidBody = errors.New("request body must be a JSON object")

// FieldError описывает одно нарушенное правило.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Value — значение поля, как оно пришло в теле запроса.
type Value struct {
	// Present ложно, если ключа нет в объекте.
	Present bool
	// Raw содержит декодированное значение: string, json.Number, bool, nil, map или slice.
	Raw any
}

// String возвращает значение как строку, если это строка.
func (v Value) String() (string, bool) {
	s, ok := v.Raw.(string)
	return s, ok
}

// Rule — именованный предикат над значением одного поля.
type Rule struct {
	Message string
	Check   func(Value) bool
}

// Field связывает имя поля с его правилами.
type Field struct {
	Name  string
	Rules []Rule
}

// Body — декодированный JSON-объект запроса.
type Body map[string]any

// Value возвращает значение поля name.
func (b Body) Value(name string) Value {
	raw, ok := b[name]
	return Value{Present: ok, Raw: raw}
}

// DecodeBody читает JSON-объект, сохраняя числа как json.Number,
// чтобы правила видели исходную запись числа.
func DecodeBody(r io.Reader) (Body, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Body{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body Body
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if body == nil {
		return nil, ErrInvalidBody
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidBody)
	}
	return body, nil
}

// Validate прогоняет все правила всех полей и собирает нарушения.
// При partial=true поля, которых нет в теле, пропускаются целиком.
func Validate(body Body, fields []Field, partial bool) []FieldError {
	var errs []FieldError
	for _, field := range fields {
		value := body.Value(field.Name)
		if partial && !value.Present {
			continue
		}
		for _, rule := range field.Rules {
			if !rule.Check(value) {
				errs = append(errs, FieldError{Field: field.Name, Message: rule.Message})
			}
		}
	}
	return errs
}
