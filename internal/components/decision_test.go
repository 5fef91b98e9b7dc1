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

func decisionCfg(raw string) component.Configuration {
	return component.Configuration{Type: DecisionType, Config: json.RawMessage(raw)}
}

const shortageRules = `{
	"rules": [
		{"when": {"field": "escrow_status", "operator": "equals", "value": "Shortage"},
		 "set": {"action": "spread", "letter": "shortage_notice_{{loan_number}}"}},
		{"when": {"field": "escrow_status", "operator": "equals", "value": "Surplus"},
		 "set": {"action": "refund"}}
	],
	"default_set": {"action": "none"}
}`

func TestDecisionFirstMatchWins(t *testing.T) {
	data := dict.New(map[string]string{
		"escrow_status": "Shortage",
		"loan_number":   "1000001",
	})
	res := NewDecision().Execute(context.Background(), decisionCfg(shortageRules), data)
	require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)
	assert.Equal(t, "spread", data.Get("action"))
	assert.Equal(t, "shortage_notice_1000001", data.Get("letter"))
}

func TestDecisionFallsThroughToDefault(t *testing.T) {
	data := dict.New(map[string]string{"escrow_status": "Current"})
	res := NewDecision().Execute(context.Background(), decisionCfg(shortageRules), data)
	require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)
	assert.Equal(t, "none", data.Get("action"))
}

func TestDecisionCompoundCondition(t *testing.T) {
	raw := `{
		"rules": [
			{"when": {"allOf": [
				{"field": "escrow_status", "operator": "equals", "value": "Shortage"},
				{"field": "shortage_amount", "operator": "greater_than", "value": "500"}
			]},
			 "set": {"severity": "high"}}
		],
		"default_set": {"severity": "low"}
	}`
	data := dict.New(map[string]string{
		"escrow_status":   "Shortage",
		"shortage_amount": "$650.00",
	})
	res := NewDecision().Execute(context.Background(), decisionCfg(raw), data)
	require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)
	assert.Equal(t, "high", data.Get("severity"))
}

func TestDecisionConfigError(t *testing.T) {
	res := NewDecision().Execute(context.Background(), decisionCfg(`{}`), dict.New())
	require.Equal(t, component.StatusFailure, res.Status)
	assert.Equal(t, component.CodeConfigError, res.Err.Code)
}
