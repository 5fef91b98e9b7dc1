// Package components holds the business components the orchestrator
// sequences around the green-screen connector: decimal arithmetic,
// database reads and writes, HTTP calls, approval polling, email and
// rule-based decisions. Each one implements component.Component and owns
// its own configuration schema.
package components

import (
	"context"

	"github.com/shopspring/decimal"

	"greenscreen/internal/component"
	"greenscreen/internal/dict"
	"greenscreen/internal/numeric"
)

// CalculatorType is the calculator's component-type string.
const CalculatorType = "calculate"

// Calculator evaluates one decimal operation over dictionary inputs.
type Calculator struct{}

// NewCalculator returns a calculator instance.
func NewCalculator() *Calculator { return &Calculator{} }

// Type returns the component-type string.
func (c *Calculator) Type() string { return CalculatorType }

type calculatorConfig struct {
	Operation string `json:"operation"`
	// Left and Right usually carry {{placeholders}}; Right is unused for
	// the unary round operation.
	Left          string `json:"left"`
	Right         string `json:"right,omitempty"`
	OutputKey     string `json:"output_key"`
	DecimalPlaces *int   `json:"decimal_places,omitempty"`
	// Currency formats the result as "$1,234.56".
	Currency bool `json:"currency,omitempty"`
}

// Execute resolves the operands, applies the operation and writes the
// result string to the output key. Rounding is banker's rounding.
func (c *Calculator) Execute(_ context.Context, cfg component.Configuration, data dict.Dictionary) *component.Result {
	var conf calculatorConfig
	if err := cfg.Decode(&conf); err != nil {
		return component.Fail(component.CodeConfigError, err.Error())
	}
	if conf.OutputKey == "" {
		return component.Fail(component.CodeMissingInput, "output_key is required")
	}
	if conf.Left == "" {
		return component.Fail(component.CodeMissingInput, "left operand is required")
	}

	left, ok := numeric.Parse(data.Resolve(conf.Left))
	if !ok {
		return component.Failf(component.CodeInvalidInput, "left operand %q is not numeric", data.Resolve(conf.Left))
	}

	unary := conf.Operation == "round"
	var right decimal.Decimal
	if !unary {
		if conf.Right == "" {
			return component.Fail(component.CodeMissingInput, "right operand is required")
		}
		right, ok = numeric.Parse(data.Resolve(conf.Right))
		if !ok {
			return component.Failf(component.CodeInvalidInput, "right operand %q is not numeric", data.Resolve(conf.Right))
		}
	}

	var out decimal.Decimal
	switch conf.Operation {
	case "add":
		out = left.Add(right)
	case "subtract":
		out = left.Sub(right)
	case "multiply":
		out = left.Mul(right)
	case "divide":
		if right.IsZero() {
			return component.Fail(component.CodeOperationError, "division by zero")
		}
		out = left.Div(right)
	case "percent_of":
		// left percent of right
		out = left.Mul(right).Div(decimal.NewFromInt(100))
	case "round":
		out = left
	default:
		return component.Failf(component.CodeOperationError, "unknown operation %q", conf.Operation)
	}

	if conf.DecimalPlaces != nil {
		out = numeric.Round(out, *conf.DecimalPlaces)
	}

	var rendered string
	switch {
	case conf.Currency:
		rendered = numeric.FormatCurrency(out)
	case conf.DecimalPlaces != nil:
		rendered = out.StringFixed(int32(*conf.DecimalPlaces))
	default:
		rendered = out.String()
	}

	data.Set(conf.OutputKey, rendered)
	return component.Success(map[string]string{conf.OutputKey: rendered})
}

var _ component.Component = (*Calculator)(nil)
