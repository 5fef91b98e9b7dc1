package greenscreen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"greenscreen/internal/tn5250"
)

// Step types.
const (
	StepNavigate = "navigate"
	StepAssert   = "assert"
	StepScrape   = "scrape"
)

// Failure policies.
const (
	FailFast       = "fail_fast"
	LogAndContinue = "log_and_continue"
)

// FlexString unmarshals from either a JSON string or a JSON number, so a
// port can be written as 5250 or carried as a "{{port}}" placeholder.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// TLSConfig is the optional transport security block.
type TLSConfig struct {
	Enabled            bool   `json:"enabled"`
	CAFile             string `json:"ca_file,omitempty"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify,omitempty"`
}

// Connection locates the host. Host and Port may carry placeholders.
type Connection struct {
	Host                  string     `json:"host"`
	Port                  FlexString `json:"port"`
	TLS                   *TLSConfig `json:"tls,omitempty"`
	ConnectTimeoutSeconds int        `json:"connect_timeout_seconds,omitempty"`
}

// ConnectTimeout returns the dial budget.
func (c Connection) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutSeconds > 0 {
		return time.Duration(c.ConnectTimeoutSeconds) * time.Second
	}
	return 15 * time.Second
}

// RetryPolicy controls per-step retries. Backoff is fixed unless
// Exponential is set, in which case it doubles per attempt.
type RetryPolicy struct {
	MaxAttempts    int     `json:"max_attempts"`
	BackoffSeconds float64 `json:"backoff_seconds,omitempty"`
	Exponential    bool    `json:"exponential,omitempty"`
}

// Attempts returns the attempt count, at least one.
func (r *RetryPolicy) Attempts() int {
	if r == nil || r.MaxAttempts < 1 {
		return 1
	}
	return r.MaxAttempts
}

// Backoff returns the wait before retry attempt (1-based attempt just
// failed).
func (r *RetryPolicy) Backoff(attempt int) time.Duration {
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

// Step is one polymorphic connector step; Type selects which fields apply.
type Step struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`

	// navigate
	Fields       map[string]string `json:"fields,omitempty"`
	AIDKey       string            `json:"aid_key,omitempty"`
	ExpectScreen string            `json:"expect_screen,omitempty"`

	// assert
	ErrorRow       int               `json:"error_row,omitempty"`
	ErrorText      string            `json:"error_text,omitempty"`
	AssertFields   map[string]string `json:"assert_fields,omitempty"`
	AssertOperator string            `json:"assert_operator,omitempty"`
	CaseSensitive  bool              `json:"case_sensitive,omitempty"`

	// scrape
	ScrapeFields []string `json:"scrape_fields,omitempty"`

	// TimeoutSeconds bounds one attempt of the step, I/O included. The
	// budget restarts on every retry attempt.
	TimeoutSeconds int          `json:"timeout_seconds,omitempty"`
	Retry          *RetryPolicy `json:"retry,omitempty"`
	OnFailure      string       `json:"on_failure,omitempty"`
}

// Label names the step for logs and progress.
func (s Step) Label(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s[%d]", s.Type, index)
}

// Timeout returns the per-attempt budget.
func (s Step) Timeout() time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	return 30 * time.Second
}

// Policy returns the step's failure policy, defaulting to fail_fast.
func (s Step) Policy() string {
	if s.OnFailure == "" {
		return FailFast
	}
	return s.OnFailure
}

// Config is the connector's component configuration.
type Config struct {
	Connection        Connection `json:"connection"`
	ScreenCatalogPath string     `json:"screen_catalog_path"`
	Steps             []Step     `json:"steps"`
}

// Validate checks the structural invariants before any socket is opened.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Connection.Host) == "" {
		return fmt.Errorf("connection.host is required")
	}
	if c.Connection.Port == "" {
		return fmt.Errorf("connection.port is required")
	}
	if c.ScreenCatalogPath == "" {
		return fmt.Errorf("screen_catalog_path is required")
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, s := range c.Steps {
		label := s.Label(i)
		switch s.Type {
		case StepNavigate:
			if s.AIDKey == "" {
				return fmt.Errorf("step %s: navigate requires aid_key", label)
			}
			if !strings.Contains(s.AIDKey, "{{") {
				if _, err := tn5250.AIDForName(s.AIDKey); err != nil {
					return fmt.Errorf("step %s: %w", label, err)
				}
			}
		case StepAssert:
			if s.ExpectScreen == "" && s.ErrorText == "" && len(s.AssertFields) == 0 {
				return fmt.Errorf("step %s: assert has nothing to check", label)
			}
			switch s.AssertOperator {
			case "", "equals", "contains", "starts_with", "ends_with":
			default:
				return fmt.Errorf("step %s: unknown assert_operator %q", label, s.AssertOperator)
			}
		case StepScrape:
			if len(s.ScrapeFields) == 0 {
				return fmt.Errorf("step %s: scrape requires scrape_fields", label)
			}
		default:
			return fmt.Errorf("step %s: unknown step type %q", label, s.Type)
		}
		switch s.Policy() {
		case FailFast, LogAndContinue:
		default:
			return fmt.Errorf("step %s: unknown on_failure %q", label, s.OnFailure)
		}
	}
	return nil
}

// resolvePort turns the (already placeholder-resolved) port string into a
// TCP port number.
func resolvePort(p string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(p))
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port %q", p)
	}
	return n, nil
}
