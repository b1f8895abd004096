package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) Body {
	t.Helper()

	parsed, err := DecodeBody(strings.NewReader(body))
	require.NoError(t, err)
	return parsed
}

func fieldsOf(errs []FieldError) map[string][]string {
	out := make(map[string][]string)
	for _, e := range errs {
		out[e.Field] = append(out[e.Field], e.Message)
	}
	return out
}

func TestValidateCreate_Valid(t *testing.T) {
	v := New()

	patch, errs := v.ValidateCreate(decode(t, `{"orderNumber":"TEST-001","customerName":"  Test Customer ","totalValue":100.5}`))

	require.Empty(t, errs)
	require.NotNil(t, patch.OrderNumber)
	require.NotNil(t, patch.CustomerName)
	require.NotNil(t, patch.TotalValue)
	assert.Equal(t, "TEST-001", *patch.OrderNumber)
	assert.Equal(t, "Test Customer", *patch.CustomerName)
	assert.True(t, patch.TotalValue.Equal(decimal.RequireFromString("100.5")))
}

func TestValidateCreate_NumericString(t *testing.T) {
	v := New()

	patch, errs := v.ValidateCreate(decode(t, `{"orderNumber":"ABC","customerName":"O'Neil-Smith","totalValue":"0.01"}`))

	require.Empty(t, errs)
	assert.True(t, patch.TotalValue.Equal(decimal.RequireFromString("0.01")))
}

func TestValidateCreate_MissingOrderNumber(t *testing.T) {
	v := New()

	_, errs := v.ValidateCreate(decode(t, `{"customerName":"Test Customer","totalValue":100}`))

	byField := fieldsOf(errs)
	require.Contains(t, byField, FieldOrderNumber)
	assert.Contains(t, byField[FieldOrderNumber], "orderNumber is required")
	assert.NotContains(t, byField, FieldCustomerName)
	assert.NotContains(t, byField, FieldTotalValue)
}

func TestValidateCreate_TotalValueNotNumeric(t *testing.T) {
	v := New()

	_, errs := v.ValidateCreate(decode(t, `{"orderNumber":"TEST-001","customerName":"Test Customer","totalValue":"invalid"}`))

	byField := fieldsOf(errs)
	require.Contains(t, byField, FieldTotalValue)
	assert.Contains(t, byField[FieldTotalValue], "totalValue must be between 0.01 and 999999.99")
	assert.Contains(t, byField[FieldTotalValue], "totalValue can only have up to 2 decimal places")
}

func TestValidateCreate_CollectsAllFailures(t *testing.T) {
	v := New()

	_, errs := v.ValidateCreate(decode(t, `{"orderNumber":"","customerName":"","totalValue":"invalid"}`))

	byField := fieldsOf(errs)
	assert.Len(t, byField, 3)
	assert.Equal(t, []string{
		"orderNumber is required",
		"orderNumber must be between 3 and 50 characters",
		"orderNumber can only contain letters, numbers and hyphens",
	}, byField[FieldOrderNumber])
}

func TestValidateCreate_FieldRules(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		field   string
		message string
	}{
		{
			name:    "order number too short",
			body:    `{"orderNumber":"AB","customerName":"John","totalValue":1}`,
			field:   FieldOrderNumber,
			message: "orderNumber must be between 3 and 50 characters",
		},
		{
			name:    "order number too long",
			body:    `{"orderNumber":"` + strings.Repeat("A", 51) + `","customerName":"John","totalValue":1}`,
			field:   FieldOrderNumber,
			message: "orderNumber must be between 3 and 50 characters",
		},
		{
			name:    "order number with spaces",
			body:    `{"orderNumber":"TEST 001","customerName":"John","totalValue":1}`,
			field:   FieldOrderNumber,
			message: "orderNumber can only contain letters, numbers and hyphens",
		},
		{
			name:    "order number is a number",
			body:    `{"orderNumber":12345,"customerName":"John","totalValue":1}`,
			field:   FieldOrderNumber,
			message: "orderNumber must be a string",
		},
		{
			name:    "customer name with digits",
			body:    `{"orderNumber":"TEST-001","customerName":"John2","totalValue":1}`,
			field:   FieldCustomerName,
			message: "customerName can only contain letters, spaces, hyphens and apostrophes",
		},
		{
			name:    "customer name too short after trim",
			body:    `{"orderNumber":"TEST-001","customerName":" J ","totalValue":1}`,
			field:   FieldCustomerName,
			message: "customerName must be between 2 and 100 characters",
		},
		{
			name:    "total value zero",
			body:    `{"orderNumber":"TEST-001","customerName":"John","totalValue":0}`,
			field:   FieldTotalValue,
			message: "totalValue must be between 0.01 and 999999.99",
		},
		{
			name:    "total value too big",
			body:    `{"orderNumber":"TEST-001","customerName":"John","totalValue":1000000}`,
			field:   FieldTotalValue,
			message: "totalValue must be between 0.01 and 999999.99",
		},
		{
			name:    "total value negative",
			body:    `{"orderNumber":"TEST-001","customerName":"John","totalValue":-5}`,
			field:   FieldTotalValue,
			message: "totalValue can only have up to 2 decimal places",
		},
		{
			name:    "total value three decimals",
			body:    `{"orderNumber":"TEST-001","customerName":"John","totalValue":10.123}`,
			field:   FieldTotalValue,
			message: "totalValue can only have up to 2 decimal places",
		},
		{
			name:    "total value null",
			body:    `{"orderNumber":"TEST-001","customerName":"John","totalValue":null}`,
			field:   FieldTotalValue,
			message: "totalValue is required",
		},
		{
			name:    "total value boolean",
			body:    `{"orderNumber":"TEST-001","customerName":"John","totalValue":true}`,
			field:   FieldTotalValue,
			message: "totalValue must be between 0.01 and 999999.99",
		},
	}

	v := New()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := v.ValidateCreate(decode(t, tc.body))

			byField := fieldsOf(errs)
			require.Contains(t, byField, tc.field, "errors: %+v", errs)
			assert.Contains(t, byField[tc.field], tc.message)
		})
	}
}

func TestValidateCreate_Boundaries(t *testing.T) {
	v := New()

	for _, body := range []string{
		`{"orderNumber":"ABC","customerName":"Jo","totalValue":0.01}`,
		`{"orderNumber":"` + strings.Repeat("A", 50) + `","customerName":"` + strings.Repeat("a", 100) + `","totalValue":999999.99}`,
	} {
		_, errs := v.ValidateCreate(decode(t, body))
		assert.Empty(t, errs, body)
	}
}

func TestValidateCreate_ExponentNotation(t *testing.T) {
	v := New()

	cases := map[string]string{
		`1e2`:      "100",
		`1.5E1`:    "15",
		`"2.5e-1"`: "0.25",
		`10.500`:   "10.5",
	}
	for literal, want := range cases {
		patch, errs := v.ValidateCreate(decode(t, `{"orderNumber":"ABC","customerName":"Jo","totalValue":`+literal+`}`))

		require.Empty(t, errs, literal)
		require.NotNil(t, patch.TotalValue, literal)
		assert.True(t, patch.TotalValue.Equal(decimal.RequireFromString(want)), "%s -> %s", literal, patch.TotalValue)
	}

	_, errs := v.ValidateCreate(decode(t, `{"orderNumber":"ABC","customerName":"Jo","totalValue":1.2345e1}`))
	assert.Contains(t, fieldsOf(errs)[FieldTotalValue], "totalValue can only have up to 2 decimal places")
}

func TestValidateUpdate_PartialBody(t *testing.T) {
	v := New()

	patch, errs := v.ValidateUpdate(decode(t, `{"totalValue":75}`))

	require.Empty(t, errs)
	assert.Nil(t, patch.OrderNumber)
	assert.Nil(t, patch.CustomerName)
	require.NotNil(t, patch.TotalValue)
	assert.True(t, patch.TotalValue.Equal(decimal.NewFromInt(75)))
}

func TestValidateUpdate_PresentFieldsStillValidated(t *testing.T) {
	v := New()

	_, errs := v.ValidateUpdate(decode(t, `{"orderNumber":"","totalValue":"invalid"}`))

	byField := fieldsOf(errs)
	assert.Contains(t, byField, FieldOrderNumber)
	assert.Contains(t, byField, FieldTotalValue)
	assert.NotContains(t, byField, FieldCustomerName)
}

func TestDecodeBody(t *testing.T) {
	body, err := DecodeBody(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, body)

	for _, raw := range []string{`[1,2]`, `"text"`, `null`, `{"a":1}{"b":2}`, `{broken`} {
		_, err := DecodeBody(strings.NewReader(raw))
		assert.ErrorIs(t, err, ErrInvalidBody, raw)
	}
}

func TestValidate_GenericRules(t *testing.T) {
	fields := []Field{
		{
			Name: "a",
			Rules: []Rule{
				{Message: "a first", Check: func(Value) bool { return false }},
				{Message: "a second", Check: func(Value) bool { return false }},
			},
		},
		{
			Name:  "b",
			Rules: []Rule{{Message: "b required", Check: required}},
		},
	}

	errs := Validate(Body{"a": "x"}, fields, false)
	assert.Equal(t, []FieldError{
		{Field: "a", Message: "a first"},
		{Field: "a", Message: "a second"},
		{Field: "b", Message: "b required"},
	}, errs)

	assert.Len(t, Validate(Body{"a": "x"}, fields, true), 2)
}
