package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

const (
	FieldOrderNumber  = "orderNumber"
	FieldCustomerName = "customerName"
	FieldTotalValue   = "totalValue"

	tagOrderNumber  = "order_number"
	tagCustomerName = "customer_name"
	tagMoneyScale   = "money_scale"
)

var (
	orderNumberPattern  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	customerNamePattern = regexp.MustCompile(`^[A-Za-z\s'-]+$`)
	moneyScalePattern   = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

// OrderValidator проверяет тела запросов на создание и обновление заказа.
type OrderValidator struct {
	validate *validatorv10.Validate
	fields   []Field
}

// New возвращает валидатор с зарегистрированными тегами для полей заказа.
func New() *OrderValidator {
	v := validatorv10.New()
	mustRegister(v, tagOrderNumber, orderNumberPattern)
	mustRegister(v, tagCustomerName, customerNamePattern)
	mustRegister(v, tagMoneyScale, moneyScalePattern)

	ov := &OrderValidator{validate: v}
	ov.fields = []Field{
		{
			Name: FieldOrderNumber,
			Rules: []Rule{
				{Message: "orderNumber is required", Check: required},
				{Message: "orderNumber must be a string", Check: isString},
				{Message: "orderNumber must be between 3 and 50 characters", Check: ov.trimmedVar("min=3,max=50")},
				{Message: "orderNumber can only contain letters, numbers and hyphens", Check: ov.trimmedVar(tagOrderNumber)},
			},
		},
		{
			Name: FieldCustomerName,
			Rules: []Rule{
				{Message: "customerName is required", Check: required},
				{Message: "customerName must be a string", Check: isString},
				{Message: "customerName must be between 2 and 100 characters", Check: ov.trimmedVar("min=2,max=100")},
				{Message: "customerName can only contain letters, spaces, hyphens and apostrophes", Check: ov.trimmedVar(tagCustomerName)},
			},
		},
		{
			Name: FieldTotalValue,
			Rules: []Rule{
				{Message: "totalValue is required", Check: required},
				{Message: "totalValue must be between 0.01 and 999999.99", Check: ov.moneyInRange},
				{Message: "totalValue can only have up to 2 decimal places", Check: ov.moneyScale},
			},
		},
	}
	return ov
}

func mustRegister(v *validatorv10.Validate, tag string, pattern *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validatorv10.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// ValidateCreate требует все поля заказа.
func (v *OrderValidator) ValidateCreate(body Body) (domain.OrderPatch, []FieldError) {
	return v.check(body, false)
}

// ValidateUpdate проверяет только переданные поля; остальные останутся прежними.
func (v *OrderValidator) ValidateUpdate(body Body) (domain.OrderPatch, []FieldError) {
	return v.check(body, true)
}

func (v *OrderValidator) check(body Body, partial bool) (domain.OrderPatch, []FieldError) {
	if errs := Validate(body, v.fields, partial); len(errs) > 0 {
		return domain.OrderPatch{}, errs
	}

	var patch domain.OrderPatch
	if s, ok := body.Value(FieldOrderNumber).String(); ok {
		s = strings.TrimSpace(s)
		patch.OrderNumber = &s
	}
	if s, ok := body.Value(FieldCustomerName).String(); ok {
		s = strings.TrimSpace(s)
		patch.CustomerName = &s
	}
	if lit, ok := numericLiteral(body.Value(FieldTotalValue)); ok {
		// Литерал уже прошёл moneyInRange, ошибки разбора здесь быть не может.
		d := decimal.RequireFromString(lit)
		patch.TotalValue = &d
	}
	return patch, nil
}

func required(v Value) bool {
	if !v.Present || v.Raw == nil {
		return false
	}
	if s, ok := v.String(); ok {
		return s != ""
	}
	return true
}

func isString(v Value) bool {
	_, ok := v.String()
	return ok
}

// trimmedVar проверяет обрезанную строку тегом validator.
func (v *OrderValidator) trimmedVar(tag string) func(Value) bool {
	return func(val Value) bool {
		s, ok := val.String()
		if !ok {
			return false
		}
		return v.validate.Var(strings.TrimSpace(s), tag) == nil
	}
}

func (v *OrderValidator) moneyInRange(val Value) bool {
	lit, ok := numericLiteral(val)
	if !ok {
		return false
	}
	d, err := decimal.NewFromString(lit)
	if err != nil {
		return false
	}
	return v.validate.Var(d.InexactFloat64(), "gte=0.01,lte=999999.99") == nil
}

// moneyScale проверяет нормализованную запись числа, так что 1e2 и 10.50 проходят, а 10.123 нет.
func (v *OrderValidator) moneyScale(val Value) bool {
	lit, ok := numericLiteral(val)
	if !ok {
		return false
	}
	d, err := decimal.NewFromString(lit)
	if err != nil {
		return false
	}
	return v.validate.Var(d.String(), tagMoneyScale) == nil
}

// numericLiteral достаёт исходную запись числа: JSON-число или строку с числом.
func numericLiteral(v Value) (string, bool) {
	switch raw := v.Raw.(type) {
	case json.Number:
		return raw.String(), true
	case string:
		return raw, raw != ""
	case float64:
		return strconv.FormatFloat(raw, 'f', -1, 64), true
	default:
		return "", false
	}
}
