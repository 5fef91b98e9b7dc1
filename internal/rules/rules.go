// Package rules evaluates boolean conditions over the data dictionary.
// Atoms compare one field against a value or a numeric range; compounds
// recurse through allOf / anyOf / not. A missing field reads as the empty
// string, never as an error, and numeric operators simply fail to match on
// non-numeric input.
package rules

import (
	"strings"

	"greenscreen/internal/dict"
	"greenscreen/internal/numeric"
)

// Condition is one node of the condition tree. Exactly one of the atom
// form (Field + Operator) or the compound slices should be populated;
// compounds win when both are present.
type Condition struct {
	Field         string `json:"field,omitempty" yaml:"field,omitempty"`
	Operator      string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value         string `json:"value,omitempty" yaml:"value,omitempty"`
	Min           string `json:"min,omitempty" yaml:"min,omitempty"`
	Max           string `json:"max,omitempty" yaml:"max,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty"`

	AllOf []Condition `json:"allOf,omitempty" yaml:"allOf,omitempty"`
	AnyOf []Condition `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`
	Not   *Condition  `json:"not,omitempty" yaml:"not,omitempty"`
}

// Recognized atom operators.
const (
	OpEquals           = "equals"
	OpNotEquals        = "not_equals"
	OpGreaterThan      = "greater_than"
	OpLessThan         = "less_than"
	OpGreaterThanEqual = "greater_than_or_equal"
	OpLessThanEqual    = "less_than_or_equal"
	OpContains         = "contains"
	OpStartsWith       = "starts_with"
	OpEndsWith         = "ends_with"
	OpIsEmpty          = "is_empty"
	OpIsNotEmpty       = "is_not_empty"
)

// Evaluate walks the condition tree against the dictionary.
// allOf([]) is vacuously true; anyOf([]) is false.
func Evaluate(c Condition, d dict.Dictionary) bool {
	switch {
	case c.Not != nil:
		return !Evaluate(*c.Not, d)
	case c.AllOf != nil:
		for _, sub := range c.AllOf {
			if !Evaluate(sub, d) {
				return false
			}
		}
		return true // vacuous truth for allOf([])
	case c.AnyOf != nil:
		for _, sub := range c.AnyOf {
			if Evaluate(sub, d) {
				return true
			}
		}
		return false
	}
	return evaluateAtom(c, d)
}

// EvaluateAll is the vacuous-true conjunction over a condition list.
func EvaluateAll(conds []Condition, d dict.Dictionary) bool {
	for _, c := range conds {
		if !Evaluate(c, d) {
			return false
		}
	}
	return true
}

func evaluateAtom(c Condition, d dict.Dictionary) bool {
	actual := d.Get(c.Field)

	// A min/max pair means an inclusive numeric range regardless of the
	// operator name.
	if c.Min != "" || c.Max != "" {
		return inRange(actual, c.Min, c.Max)
	}

	op := c.Operator
	if op == "" {
		op = OpEquals
	}

	switch op {
	case OpIsEmpty:
		return strings.TrimSpace(actual) == ""
	case OpIsNotEmpty:
		return strings.TrimSpace(actual) != ""
	case OpEquals:
		return equals(actual, c.Value, c.CaseSensitive)
	case OpNotEquals:
		return !equals(actual, c.Value, c.CaseSensitive)
	case OpGreaterThan:
		return compareNumeric(actual, c.Value, func(a, b float64) bool { return a > b })
	case OpLessThan:
		return compareNumeric(actual, c.Value, func(a, b float64) bool { return a < b })
	case OpGreaterThanEqual:
		return compareNumeric(actual, c.Value, func(a, b float64) bool { return a >= b })
	case OpLessThanEqual:
		return compareNumeric(actual, c.Value, func(a, b float64) bool { return a <= b })
	case OpContains:
		return strings.Contains(fold(actual, c.CaseSensitive), fold(c.Value, c.CaseSensitive))
	case OpStartsWith:
		return strings.HasPrefix(fold(actual, c.CaseSensitive), fold(c.Value, c.CaseSensitive))
	case OpEndsWith:
		return strings.HasSuffix(fold(actual, c.CaseSensitive), fold(c.Value, c.CaseSensitive))
	}
	return false
}

// equals compares numerically when both sides parse as numbers, otherwise
// as strings (case-insensitive unless asked otherwise).
func equals(actual, expected string, caseSensitive bool) bool {
	if a, aok := numeric.ParseFloat(actual); aok {
		if b, bok := numeric.ParseFloat(expected); bok {
			return a == b
		}
	}
	return fold(actual, caseSensitive) == fold(expected, caseSensitive)
}

func compareNumeric(actual, expected string, cmp func(a, b float64) bool) bool {
	a, aok := numeric.ParseFloat(actual)
	b, bok := numeric.ParseFloat(expected)
	if !aok || !bok {
		return false
	}
	return cmp(a, b)
}

func inRange(actual, min, max string) bool {
	a, ok := numeric.ParseFloat(actual)
	if !ok {
		return false
	}
	if min != "" {
		lo, ok := numeric.ParseFloat(min)
		if !ok || a < lo {
			return false
		}
	}
	if max != "" {
		hi, ok := numeric.ParseFloat(max)
		if !ok || a > hi {
			return false
		}
	}
	return true
}

func fold(s string, caseSensitive bool) string {
	s = strings.TrimSpace(s)
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}
