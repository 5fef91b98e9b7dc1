package components

import (
	"context"

	"greenscreen/internal/component"
	"greenscreen/internal/dict"
	"greenscreen/internal/logging"
	"greenscreen/internal/rules"
)

// DecisionType is the decision component's type string.
const DecisionType = "decision"

// Decision evaluates an ordered rule list against the dictionary; the
// first matching rule's outputs win.
type Decision struct{}

// NewDecision returns a decision component instance.
func NewDecision() *Decision { return &Decision{} }

// Type returns the component-type string.
func (d *Decision) Type() string { return DecisionType }

type decisionRule struct {
	When rules.Condition   `json:"when"`
	Set  map[string]string `json:"set"`
}

type decisionConfig struct {
	Rules []decisionRule `json:"rules"`
	// DefaultSet applies when no rule matches.
	DefaultSet map[string]string `json:"default_set,omitempty"`
}

// Execute finds the first rule whose condition holds and writes its
// outputs (placeholder-resolved) to the dictionary.
func (d *Decision) Execute(_ context.Context, cfg component.Configuration, data dict.Dictionary) *component.Result {
	log := logging.Get(logging.CategoryComponent)

	var conf decisionConfig
	if err := cfg.Decode(&conf); err != nil {
		return component.Fail(component.CodeConfigError, err.Error())
	}
	if len(conf.Rules) == 0 && len(conf.DefaultSet) == 0 {
		return component.Fail(component.CodeConfigError, "at least one rule or a default_set is required")
	}

	apply := func(set map[string]string) *component.Result {
		out := data.ResolveMap(set)
		data.Merge(out)
		return component.Success(out)
	}

	for i, rule := range conf.Rules {
		if rules.Evaluate(rule.When, data) {
			log.Debugw("decision matched", "rule", i)
			return apply(rule.Set)
		}
	}
	log.Debugw("decision fell through to default")
	return apply(conf.DefaultSet)
}

var _ component.Component = (*Decision)(nil)
