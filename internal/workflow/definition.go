// Package workflow sequences component invocations: it parses workflow
// definitions, drives each step through retry and failure policy, iterates
// foreach steps over serialized row lists, and reports per-attempt
// progress. One orchestrator invocation runs one workflow execution; the
// data dictionary is owned by that run and never shared.
package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Failure policies.
const (
	FailFast       = "fail_fast"
	LogAndContinue = "log_and_continue"
)

// Retry controls per-step attempts, mirroring the connector's policy.
type Retry struct {
	MaxAttempts    int     `json:"max_attempts"`
	BackoffSeconds float64 `json:"backoff_seconds,omitempty"`
	Exponential    bool    `json:"exponential,omitempty"`
}

// Attempts returns the attempt count, at least one.
func (r *Retry) Attempts() int {
	if r == nil || r.MaxAttempts < 1 {
		return 1
	}
	return r.MaxAttempts
}

// Backoff returns the wait after the given failed attempt (1-based).
func (r *Retry) Backoff(attempt int) time.Duration {
	if r == nil {
		return 0
	}
	base := r.BackoffSeconds
	if base <= 0 {
		base = 1
	}
	d := time.Duration(base * float64(time.Second))
	if r.Exponential {
		for i := 1; i < attempt; i++ {
			d *= 2
		}
	}
	return d
}

// Step is one workflow step: a component invocation, or a foreach block
// when Type is "foreach".
type Step struct {
	StepName      string `json:"step_name"`
	Type          string `json:"type,omitempty"`
	ComponentType string `json:"component_type,omitempty"`
	// ComponentConfig is either an inline JSON object or a JSON string
	// naming a config file (json or yaml); the path may carry placeholders.
	ComponentConfig json.RawMessage `json:"component_config,omitempty"`
	OnFailure       string          `json:"on_failure,omitempty"`
	Retry           *Retry          `json:"retry,omitempty"`
	// TimeoutSeconds bounds one attempt; the budget restarts on retry.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// foreach
	IterateKey string `json:"iterate_key,omitempty"`
	SubSteps   []Step `json:"sub_steps,omitempty"`
}

// IsForeach reports whether the step iterates.
func (s Step) IsForeach() bool { return s.Type == "foreach" }

// Policy returns the failure policy, defaulting to fail_fast.
func (s Step) Policy() string {
	if s.OnFailure == "" {
		return FailFast
	}
	return s.OnFailure
}

// Timeout returns the per-attempt budget, or zero for none.
func (s Step) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Definition is a parsed workflow file.
type Definition struct {
	WorkflowID        string   `json:"workflow_id"`
	WorkflowVersion   string   `json:"workflow_version,omitempty"`
	InitialParameters []string `json:"initial_parameters,omitempty"`
	Steps             []Step   `json:"steps"`
}

// Validate checks structural sanity.
func (d *Definition) Validate() error {
	if d.WorkflowID == "" {
		return fmt.Errorf("workflow_id is required")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("workflow %s has no steps", d.WorkflowID)
	}
	return validateSteps(d.Steps)
}

func validateSteps(steps []Step) error {
	for i, s := range steps {
		if s.StepName == "" {
			return fmt.Errorf("step %d has no step_name", i)
		}
		switch {
		case s.IsForeach():
			if s.IterateKey == "" {
				return fmt.Errorf("step %s: foreach requires iterate_key", s.StepName)
			}
			if len(s.SubSteps) == 0 {
				return fmt.Errorf("step %s: foreach requires sub_steps", s.StepName)
			}
			if err := validateSteps(s.SubSteps); err != nil {
				return err
			}
		case s.Type != "":
			return fmt.Errorf("step %s: unknown step type %q", s.StepName, s.Type)
		default:
			if s.ComponentType == "" {
				return fmt.Errorf("step %s: component_type is required", s.StepName)
			}
			if len(s.ComponentConfig) == 0 {
				return fmt.Errorf("step %s: component_config is required", s.StepName)
			}
		}
		switch s.Policy() {
		case FailFast, LogAndContinue:
		default:
			return fmt.Errorf("step %s: unknown on_failure %q", s.StepName, s.OnFailure)
		}
	}
	return nil
}

// Load parses a workflow definition from a JSON or YAML file.
func Load(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow definition: %w", err)
	}
	if isYAMLPath(path) {
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("workflow definition %s: %w", path, err)
		}
	}
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse workflow definition %s: %w", path, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// yamlToJSON re-encodes a YAML document as JSON so json.RawMessage fields
// work uniformly.
func yamlToJSON(raw []byte) ([]byte, error) {
	var v interface{}
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// loadComponentConfig materializes a step's config blob: inline object, or
// the contents of the referenced file.
func loadComponentConfig(raw json.RawMessage, resolve func(string) string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, `"`) {
		return raw, nil
	}
	var path string
	if err := json.Unmarshal(raw, &path); err != nil {
		return nil, fmt.Errorf("component_config: %w", err)
	}
	path = resolve(path)
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("component config %s: %w", path, err)
	}
	if isYAMLPath(path) {
		if blob, err = yamlToJSON(blob); err != nil {
			return nil, fmt.Errorf("component config %s: %w", path, err)
		}
	}
	return blob, nil
}
