package mockhost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"greenscreen/internal/tn5250"
)

// Credential is one user the mock host accepts.
type Credential struct {
	UserID   string `json:"user_id" yaml:"user_id"`
	Password string `json:"password" yaml:"password"`
}

// TransitionRule routes (screen, AID, conditions) to the next screen.
// Conditions map a field name to "empty", "not_empty" or a literal the
// current input must equal. Rules are evaluated in order; first match wins.
type TransitionRule struct {
	SourceScreen string            `json:"source_screen" yaml:"source_screen"`
	AIDKey       string            `json:"aid_key" yaml:"aid_key"`
	Conditions   map[string]string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	TargetScreen string            `json:"target_screen" yaml:"target_screen"`
	Validation   string            `json:"validation,omitempty" yaml:"validation,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	SetData      map[string]string `json:"set_data,omitempty" yaml:"set_data,omitempty"`
}

// Validation hook names a rule may reference.
const (
	ValidationCredentials = "credentials"
	ValidationLoanExists  = "loan_exists"
)

// NavigationConfig is the mock host's screen graph.
type NavigationConfig struct {
	InitialScreen string           `json:"initial_screen" yaml:"initial_screen"`
	Credentials   []Credential     `json:"credentials" yaml:"credentials"`
	Transitions   []TransitionRule `json:"transitions" yaml:"transitions"`
}

// LoadNavigation reads a navigation config from a JSON or YAML file.
func LoadNavigation(path string) (*NavigationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("navigation config: %w", err)
	}
	unmarshal := json.Unmarshal
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		unmarshal = yaml.Unmarshal
	}
	var cfg NavigationConfig
	if err := unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse navigation config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural sanity: an initial screen, resolvable AID
// names and known validation hooks.
func (c *NavigationConfig) Validate() error {
	if c.InitialScreen == "" {
		return fmt.Errorf("navigation config: initial_screen is required")
	}
	for i, r := range c.Transitions {
		if r.SourceScreen == "" {
			return fmt.Errorf("navigation config: transition %d missing source_screen", i)
		}
		// A pure-error rule never navigates, so it needs no target.
		if r.TargetScreen == "" && r.ErrorMessage == "" {
			return fmt.Errorf("navigation config: transition %d needs a target_screen or an error_message", i)
		}
		if _, err := tn5250.AIDForName(r.AIDKey); err != nil {
			return fmt.Errorf("navigation config: transition %d: %w", i, err)
		}
		switch r.Validation {
		case "", ValidationCredentials, ValidationLoanExists:
		default:
			return fmt.Errorf("navigation config: transition %d: unknown validation %q", i, r.Validation)
		}
	}
	return nil
}
