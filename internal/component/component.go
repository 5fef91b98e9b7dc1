// Package component defines the contract every pluggable operation unit
// satisfies: execute a configuration blob against the shared data
// dictionary under a cancellation context and return a typed result. The
// orchestrator never sees anything richer than this envelope.
package component

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"greenscreen/internal/dict"
)

// Status classifies a component invocation's outcome.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailure Status = "Failure"
	StatusSkipped Status = "Skipped"
)

// Machine-readable failure codes shared across components. Per-component
// sets are closed; these constants are the union.
const (
	CodeConfigError         = "CONFIG_ERROR"
	CodeConnectError        = "CONNECT_ERROR"
	CodeNegotiateError      = "NEGOTIATE_ERROR"
	CodeTimeout             = "TIMEOUT"
	CodeScreenMismatch      = "SCREEN_MISMATCH"
	CodeFieldNotFound       = "FIELD_NOT_FOUND"
	CodeStepFailed          = "STEP_FAILED"
	CodeUnexpectedError     = "UNEXPECTED_ERROR"
	CodeStepException       = "STEP_EXCEPTION"
	CodeUnsupportedProvider = "UNSUPPORTED_PROVIDER"
	CodeConnectionError     = "CONNECTION_ERROR"
	CodeQueryError          = "QUERY_ERROR"
	CodeNoRowsReturned      = "NO_ROWS_RETURNED"
	CodeRequestFailed       = "REQUEST_FAILED"
	CodeHTTPError           = "HTTP_ERROR"
	CodeResponseParseError  = "RESPONSE_PARSE_ERROR"
	CodeRejected            = "REJECTED"
	CodeMissingInput        = "MISSING_INPUT"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeOperationError      = "OPERATION_ERROR"
	CodeSendError           = "SEND_ERROR"
)

// ErrorInfo is the machine-readable error a Failure result carries.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *ErrorInfo) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LogEntry is one structured log line captured during execution.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// Result is the uniform output envelope.
type Result struct {
	Status     Status            `json:"status"`
	OutputData map[string]string `json:"output_data,omitempty"`
	Err        *ErrorInfo        `json:"error,omitempty"`
	Logs       []LogEntry        `json:"logs,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// Success builds a success result with the given outputs.
func Success(output map[string]string) *Result {
	return &Result{Status: StatusSuccess, OutputData: output}
}

// Fail builds a failure result.
func Fail(code, message string) *Result {
	return &Result{
		Status: StatusFailure,
		Err:    &ErrorInfo{Code: code, Message: message},
	}
}

// Failf builds a failure result with a formatted message.
func Failf(code, format string, args ...interface{}) *Result {
	return Fail(code, fmt.Sprintf(format, args...))
}

// AddLog appends a captured log line.
func (r *Result) AddLog(level, component, message string) {
	r.Logs = append(r.Logs, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Component: component,
		Message:   message,
	})
}

// Configuration is the immutable per-invocation envelope handed to a
// component: its type, version and an opaque config blob the component
// decodes itself.
type Configuration struct {
	Type    string          `json:"type"`
	Version string          `json:"version,omitempty"`
	Config  json.RawMessage `json:"config"`
}

// Decode unmarshals the config blob into v.
func (c Configuration) Decode(v interface{}) error {
	if len(c.Config) == 0 {
		return fmt.Errorf("empty component configuration")
	}
	if err := json.Unmarshal(c.Config, v); err != nil {
		return fmt.Errorf("decode %s configuration: %w", c.Type, err)
	}
	return nil
}

// Component is the pluggable operation unit. Execute must catch its own
// internal failures and fold them into the result; only context
// cancellation is surfaced as an error.
type Component interface {
	Type() string
	Execute(ctx context.Context, cfg Configuration, data dict.Dictionary) *Result
}

// Registry maps component-type strings to constructors. The orchestrator
// resolves step types through one of these; nothing above it calls a
// component directly.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() Component
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]func() Component{}}
}

// Register adds a constructor; the last registration for a type wins.
func (r *Registry) Register(componentType string, factory func() Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[componentType] = factory
}

// New constructs a component for the given type.
func (r *Registry) New(componentType string) (Component, error) {
	r.mu.RLock()
	factory, ok := r.factories[componentType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown component type %q", componentType)
	}
	return factory(), nil
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
