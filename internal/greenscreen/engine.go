// Package greenscreen is the client-side connector: it drives a 5250 host
// through navigate, assert and scrape steps defined in its component
// configuration, and returns the scraped fields. Values of sensitive
// dictionary keys never reach log output or error details.
package greenscreen

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"greenscreen/internal/catalog"
	"greenscreen/internal/component"
	"greenscreen/internal/dict"
	"greenscreen/internal/logging"
	"greenscreen/internal/tn5250"
)

// Type is the connector's component-type string.
const Type = "green_screen"

// Connector implements component.Component over a 5250 session.
type Connector struct{}

// New returns a connector instance.
func New() *Connector { return &Connector{} }

// Type returns the component-type string.
func (c *Connector) Type() string { return Type }

// Execute runs the configured step list against the host. One session is
// opened for the whole invocation; each step's timeout_seconds budget
// applies per attempt, restarting on retry.
func (c *Connector) Execute(ctx context.Context, cfg component.Configuration, data dict.Dictionary) *component.Result {
	start := time.Now()
	result := c.execute(ctx, cfg, data)
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

func (c *Connector) execute(ctx context.Context, cfg component.Configuration, data dict.Dictionary) *component.Result {
	log := logging.Get(logging.CategoryComponent)

	var conf Config
	if err := cfg.Decode(&conf); err != nil {
		return component.Fail(component.CodeConfigError, err.Error())
	}
	if err := conf.Validate(); err != nil {
		return component.Fail(component.CodeConfigError, err.Error())
	}

	host := data.Resolve(conf.Connection.Host)
	port, err := resolvePort(data.Resolve(string(conf.Connection.Port)))
	if err != nil {
		return component.Fail(component.CodeConfigError, err.Error())
	}
	catalogPath := data.Resolve(conf.ScreenCatalogPath)
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return component.Fail(component.CodeConfigError, data.Redact(err.Error()))
	}

	conn := conf.Connection
	conn.Host = host
	dialCtx, cancel := context.WithTimeout(ctx, conn.ConnectTimeout())
	sess, err := Dial(dialCtx, conn, port, cat)
	cancel()
	if err != nil {
		var ne *negotiateError
		code := component.CodeConnectError
		if errors.As(err, &ne) {
			code = component.CodeNegotiateError
		}
		return component.Fail(code, data.Redact(err.Error()))
	}
	defer sess.Close()

	result := component.Success(map[string]string{})

	// The host speaks first.
	firstCtx, cancel := context.WithTimeout(ctx, conn.ConnectTimeout())
	err = sess.ReadScreen(firstCtx)
	cancel()
	if err != nil {
		return c.fail(result, data, classify(err), "initial screen: %v", err)
	}
	log.Debugw("connected", "host", host, "port", port, "screen", sess.CurrentScreenID())

	for i, step := range conf.Steps {
		label := step.Label(i)
		stepErr := c.runStepWithRetry(ctx, sess, step, label, data, result)
		if stepErr == nil {
			result.AddLog("info", Type, fmt.Sprintf("step %s succeeded", label))
			continue
		}
		if ctx.Err() != nil {
			return c.fail(result, data, component.CodeTimeout, "step %s: cancelled: %v", label, stepErr)
		}
		if step.Policy() == LogAndContinue {
			msg := data.Redact(fmt.Sprintf("step %s failed, continuing: %v", label, stepErr))
			log.Warnw("step failed under log_and_continue", "step", label, "error", data.Redact(stepErr.Error()))
			result.AddLog("warn", Type, msg)
			continue
		}
		var se *stepError
		code := component.CodeStepFailed
		if errors.As(stepErr, &se) {
			code = se.code
		}
		return c.fail(result, data, code, "step %s: %v", label, stepErr)
	}
	return result
}

// fail folds a formatted, redacted error into the result.
func (c *Connector) fail(r *component.Result, data dict.Dictionary, code, format string, args ...interface{}) *component.Result {
	msg := data.Redact(fmt.Sprintf(format, args...))
	logging.Get(logging.CategoryComponent).Errorw("connector failed", "code", code, "error", msg)
	r.Status = component.StatusFailure
	r.Err = &component.ErrorInfo{Code: code, Message: msg}
	r.AddLog("error", Type, msg)
	return r
}

// stepError carries the machine code of a failed step alongside the cause.
type stepError struct {
	code string
	err  error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func stepFail(code, format string, args ...interface{}) *stepError {
	return &stepError{code: code, err: fmt.Errorf(format, args...)}
}

// runStepWithRetry drives one step through its attempt budget.
func (c *Connector) runStepWithRetry(ctx context.Context, sess *Session, step Step, label string, data dict.Dictionary, result *component.Result) error {
	log := logging.Get(logging.CategoryComponent)
	attempts := step.Retry.Attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := step.Retry.Backoff(attempt - 1)
			log.Infow("retrying step", "step", label, "attempt", attempt, "max_attempts", attempts, "backoff", backoff)
			result.AddLog("info", Type, fmt.Sprintf("retrying step %s (attempt %d/%d)", label, attempt, attempts))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, step.Timeout())
		err := c.runStep(attemptCtx, sess, step, data, result)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warnw("step attempt failed", "step", label, "attempt", attempt, "error", data.Redact(err.Error()))
	}
	return lastErr
}

// runStep executes a single attempt of one step.
func (c *Connector) runStep(ctx context.Context, sess *Session, step Step, data dict.Dictionary, result *component.Result) error {
	// Placeholders resolve against the dictionary as it stands when the
	// attempt starts; earlier scrapes are visible.
	switch step.Type {
	case StepNavigate:
		return c.navigate(ctx, sess, step, data)
	case StepAssert:
		return c.assertStep(sess, step, data)
	case StepScrape:
		return c.scrape(sess, step, data, result)
	default:
		return stepFail(component.CodeConfigError, "unknown step type %q", step.Type)
	}
}

func (c *Connector) navigate(ctx context.Context, sess *Session, step Step, data dict.Dictionary) error {
	aidName := data.Resolve(step.AIDKey)
	aid, err := tn5250.AIDForName(aidName)
	if err != nil {
		return stepFail(component.CodeConfigError, "%v", err)
	}

	fields, err := sess.TypeFields(data.ResolveMap(step.Fields))
	if err != nil {
		return stepFail(component.CodeFieldNotFound, "%s", data.Redact(err.Error()))
	}
	if err := sess.Submit(aid, fields); err != nil {
		return stepFail(classify(err), "%s", data.Redact(err.Error()))
	}
	if err := sess.ReadScreen(ctx); err != nil {
		return stepFail(classify(err), "%s", data.Redact(err.Error()))
	}

	if step.ExpectScreen != "" {
		want := data.Resolve(step.ExpectScreen)
		if got := sess.CurrentScreenID(); !strings.EqualFold(got, want) {
			// A host rejection re-renders the same screen with a message on
			// the message line; that is a step failure, not a lost screen.
			if msg := hostMessage(sess); msg != "" {
				return stepFail(component.CodeStepFailed, "host reported: %s", data.Redact(msg))
			}
			return stepFail(component.CodeScreenMismatch, "expected screen %s, found %s", want, got)
		}
	}
	return nil
}

func (c *Connector) assertStep(sess *Session, step Step, data dict.Dictionary) error {
	if step.ExpectScreen != "" {
		want := data.Resolve(step.ExpectScreen)
		if got := sess.CurrentScreenID(); !strings.EqualFold(got, want) {
			return stepFail(component.CodeScreenMismatch, "expected screen %s, found %s", want, got)
		}
	}

	if step.ErrorText != "" {
		row := step.ErrorRow
		if row == 0 {
			row = 24
		}
		line := strings.TrimSpace(sess.Screen().ReadRow(row))
		if strings.Contains(strings.ToLower(line), strings.ToLower(data.Resolve(step.ErrorText))) {
			return stepFail(component.CodeStepFailed, "host reported: %s", data.Redact(line))
		}
	}

	for name, want := range step.AssertFields {
		got, err := sess.ScrapeField(name)
		if err != nil {
			return stepFail(component.CodeFieldNotFound, "%s", err.Error())
		}
		want = data.Resolve(want)
		if !compareValues(got, want, step.AssertOperator, step.CaseSensitive) {
			return stepFail(component.CodeStepFailed,
				"field %s = %q does not %s %q",
				name, data.Redact(got), operatorWord(step.AssertOperator), data.Redact(want))
		}
	}
	return nil
}

func (c *Connector) scrape(sess *Session, step Step, data dict.Dictionary, result *component.Result) error {
	for _, name := range step.ScrapeFields {
		value, err := sess.ScrapeField(name)
		if err != nil {
			return stepFail(component.CodeFieldNotFound, "%s", err.Error())
		}
		result.OutputData[name] = value
		data.Set(name, value)
	}
	return nil
}

// hostMessage returns the message line of the current buffer.
func hostMessage(sess *Session) string {
	return strings.TrimSpace(sess.Screen().ReadRow(24))
}

func compareValues(got, want, operator string, caseSensitive bool) bool {
	if !caseSensitive {
		got = strings.ToLower(got)
		want = strings.ToLower(want)
	}
	switch operator {
	case "", "equals":
		return got == want
	case "contains":
		return strings.Contains(got, want)
	case "starts_with":
		return strings.HasPrefix(got, want)
	case "ends_with":
		return strings.HasSuffix(got, want)
	}
	return false
}

func operatorWord(operator string) string {
	if operator == "" {
		return "equals"
	}
	return operator
}

// classify maps transport errors to machine codes.
func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return component.CodeTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return component.CodeTimeout
	}
	return component.CodeUnexpectedError
}
