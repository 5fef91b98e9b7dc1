package components

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenscreen/internal/component"
	"greenscreen/internal/dict"
)

func calcConfig(raw string) component.Configuration {
	return component.Configuration{Type: CalculatorType, Config: json.RawMessage(raw)}
}

func TestCalculatorOperations(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"add", `{"operation":"add","left":"2.5","right":"0.25","output_key":"r"}`, "2.75"},
		{"subtract currency", `{"operation":"subtract","left":"$1,000.00","right":"$650.00","output_key":"r","decimal_places":2}`, "350.00"},
		{"multiply", `{"operation":"multiply","left":"12","right":"12","output_key":"r"}`, "144"},
		{"divide", `{"operation":"divide","left":"1","right":"8","output_key":"r"}`, "0.125"},
		{"percent_of", `{"operation":"percent_of","left":"15","right":"200","output_key":"r"}`, "30"},
		{"round bankers down", `{"operation":"round","left":"2.345","output_key":"r","decimal_places":2}`, "2.34"},
		{"round bankers up", `{"operation":"round","left":"2.355","output_key":"r","decimal_places":2}`, "2.36"},
		{"negative parens", `{"operation":"add","left":"(1,234.56)","right":"1234.56","output_key":"r"}`, "0"},
		{"currency render", `{"operation":"add","left":"$198,543.21","right":"$650.00","output_key":"r","currency":true}`, "$199,193.21"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := dict.New()
			res := NewCalculator().Execute(context.Background(), calcConfig(tc.raw), data)
			require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)
			assert.Equal(t, tc.want, res.OutputData["r"])
			assert.Equal(t, tc.want, data.Get("r"))
		})
	}
}

func TestCalculatorResolvesPlaceholders(t *testing.T) {
	data := dict.New(map[string]string{
		"current_balance": "$198,543.21",
		"shortage_amount": "$650.00",
	})
	raw := `{"operation":"add","left":"{{current_balance}}","right":"{{shortage_amount}}","output_key":"total_due","currency":true}`
	res := NewCalculator().Execute(context.Background(), calcConfig(raw), data)
	require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)
	assert.Equal(t, "$199,193.21", data.Get("total_due"))
}

func TestCalculatorFailures(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		code string
	}{
		{"missing output", `{"operation":"add","left":"1","right":"2"}`, component.CodeMissingInput},
		{"missing left", `{"operation":"add","right":"2","output_key":"r"}`, component.CodeMissingInput},
		{"missing right", `{"operation":"add","left":"1","output_key":"r"}`, component.CodeMissingInput},
		{"bad left", `{"operation":"add","left":"abc","right":"2","output_key":"r"}`, component.CodeInvalidInput},
		{"bad right", `{"operation":"add","left":"1","right":"{{nope}}","output_key":"r"}`, component.CodeInvalidInput},
		{"divide by zero", `{"operation":"divide","left":"1","right":"0","output_key":"r"}`, component.CodeOperationError},
		{"unknown op", `{"operation":"cube","left":"1","right":"2","output_key":"r"}`, component.CodeOperationError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := NewCalculator().Execute(context.Background(), calcConfig(tc.raw), dict.New())
			require.Equal(t, component.StatusFailure, res.Status)
			assert.Equal(t, tc.code, res.Err.Code, res.Err.Message)
		})
	}
}

func TestRegisterAll(t *testing.T) {
	r := component.NewRegistry()
	RegisterAll(r)
	assert.Equal(t, []string{ApprovalType, CalculatorType, DatabaseType, DecisionType, EmailType, HTTPCallType}, r.Types())
	for _, typ := range r.Types() {
		c, err := r.New(typ)
		require.NoError(t, err)
		assert.Equal(t, typ, c.Type())
	}
	_, err := r.New("teleport")
	assert.Error(t, err)
}
