package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"greenscreen/internal/component"
	"greenscreen/internal/components"
	"greenscreen/internal/dict"
	"greenscreen/internal/greenscreen"
	"greenscreen/internal/logging"
)

// Step execution states reported through the progress callback.
type State string

const (
	StateRunning   State = "Running"
	StateRetrying  State = "Retrying"
	StateSucceeded State = "Succeeded"
	StateFailed    State = "Failed"
	StateSkipped   State = "Skipped"
)

// Progress is one step-state notification. Messages are scrubbed of
// sensitive values before delivery.
type Progress struct {
	StepName    string
	State       State
	Attempt     int
	MaxAttempts int
	Message     string
}

// ProgressFunc receives progress notifications. It runs on the
// orchestrator goroutine and must not block.
type ProgressFunc func(Progress)

// StepResult is one step's outcome in the final report.
type StepResult struct {
	StepName   string               `json:"step_name"`
	Status     component.Status     `json:"status"`
	DurationMs int64                `json:"duration_ms"`
	Error      *component.ErrorInfo `json:"error,omitempty"`
}

// Output is the report of one workflow execution.
type Output struct {
	WorkflowID          string            `json:"workflow_id"`
	ExecutionID         string            `json:"execution_id"`
	FinalStatus         component.Status  `json:"final_status"`
	Steps               []StepResult      `json:"steps"`
	FinalDataDictionary map[string]string `json:"final_data_dictionary"`
}

// DefaultRegistry wires every built-in component type, including the
// terminal connector.
func DefaultRegistry() *component.Registry {
	r := component.NewRegistry()
	components.RegisterAll(r)
	r.Register(greenscreen.Type, func() component.Component { return greenscreen.New() })
	return r
}

// Orchestrator runs workflow definitions against a component registry.
// One Orchestrator may serve many runs; each Run owns its own dictionary.
type Orchestrator struct {
	registry *component.Registry
	progress ProgressFunc
}

// New builds an orchestrator over the given registry.
func New(registry *component.Registry) *Orchestrator {
	return &Orchestrator{registry: registry}
}

// OnProgress installs the progress callback.
func (o *Orchestrator) OnProgress(fn ProgressFunc) { o.progress = fn }

// Run executes the workflow with the given initial parameters. Definition
// and parameter problems surface as an error; step failures are folded
// into the Output.
func (o *Orchestrator) Run(ctx context.Context, def *Definition, params map[string]string) (*Output, error) {
	if err := def.Validate(); err != nil {
		return nil, &component.ErrorInfo{Code: component.CodeConfigError, Message: err.Error()}
	}
	var missing []string
	for _, name := range def.InitialParameters {
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &component.ErrorInfo{
			Code:    component.CodeConfigError,
			Message: fmt.Sprintf("workflow %s: missing initial parameters %v", def.WorkflowID, missing),
		}
	}

	out := &Output{
		WorkflowID:  def.WorkflowID,
		ExecutionID: uuid.NewString(),
		FinalStatus: component.StatusSuccess,
	}
	data := dict.New(params)
	log := logging.Get(logging.CategoryWorkflow).With(
		"workflow", def.WorkflowID, "execution", out.ExecutionID)
	log.Infow("workflow started", "steps", len(def.Steps))

	halted := o.runSteps(ctx, def.Steps, "", data, out)
	if halted {
		out.FinalStatus = component.StatusFailure
	}
	out.FinalDataDictionary = data.Clone()
	log.Infow("workflow finished", "status", out.FinalStatus)
	return out, nil
}

// runSteps drives a step list. It returns true when a fail_fast failure
// halted the run; remaining steps are recorded as Skipped.
func (o *Orchestrator) runSteps(ctx context.Context, steps []Step, prefix string, data dict.Dictionary, out *Output) bool {
	for i, step := range steps {
		name := prefix + step.StepName
		res := o.runStep(ctx, step, name, data, out)
		out.Steps = append(out.Steps, StepResult{
			StepName:   name,
			Status:     res.Status,
			DurationMs: res.DurationMs,
			Error:      res.Err,
		})
		if res.Status != component.StatusFailure {
			continue
		}
		if step.Policy() == LogAndContinue {
			logging.Get(logging.CategoryWorkflow).Warnw("step failed, continuing",
				"step", name, "code", res.Err.Code)
			continue
		}
		o.skipRemaining(steps[i+1:], prefix, out)
		return true
	}
	return false
}

func (o *Orchestrator) skipRemaining(steps []Step, prefix string, out *Output) {
	for _, step := range steps {
		name := prefix + step.StepName
		o.notify(Progress{StepName: name, State: StateSkipped})
		out.Steps = append(out.Steps, StepResult{StepName: name, Status: component.StatusSkipped})
	}
}

func (o *Orchestrator) runStep(ctx context.Context, step Step, name string, data dict.Dictionary, out *Output) *component.Result {
	start := time.Now()
	var res *component.Result
	attempt, maxAttempts := 1, 1
	if step.IsForeach() {
		res = o.runForeach(ctx, step, name, data, out)
	} else {
		res, attempt = o.runComponentStep(ctx, step, name, data)
		maxAttempts = step.Retry.Attempts()
	}
	res.DurationMs = time.Since(start).Milliseconds()

	switch res.Status {
	case component.StatusSuccess:
		o.notify(Progress{StepName: name, State: StateSucceeded, Attempt: attempt, MaxAttempts: maxAttempts})
	case component.StatusFailure:
		o.notify(Progress{
			StepName:    name,
			State:       StateFailed,
			Attempt:     attempt,
			MaxAttempts: maxAttempts,
			Message:     data.Redact(res.Err.Error()),
		})
	}
	return res
}

// runComponentStep resolves the component, loads its config and drives the
// attempt loop. A panic inside a component is folded into STEP_EXCEPTION
// rather than tearing the run down. The returned attempt number is the one
// that terminated the step, so progress consumers can see which try won.
func (o *Orchestrator) runComponentStep(ctx context.Context, step Step, name string, data dict.Dictionary) (*component.Result, int) {
	comp, err := o.registry.New(step.ComponentType)
	if err != nil {
		return component.Failf(component.CodeConfigError, "step %s: %v", name, err), 1
	}
	blob, err := loadComponentConfig(step.ComponentConfig, data.Resolve)
	if err != nil {
		return component.Failf(component.CodeConfigError, "step %s: %v", name, err), 1
	}
	cfg := component.Configuration{Type: step.ComponentType, Config: blob}

	attempts := step.Retry.Attempts()
	log := logging.Get(logging.CategoryWorkflow)
	var res *component.Result
	for attempt := 1; attempt <= attempts; attempt++ {
		state := StateRunning
		if attempt > 1 {
			state = StateRetrying
			log.Infow("retrying step", "step", name, "attempt", attempt, "max", attempts)
		}
		o.notify(Progress{StepName: name, State: state, Attempt: attempt, MaxAttempts: attempts})

		res = o.executeAttempt(ctx, comp, step, cfg, data)
		if res.Status != component.StatusFailure {
			return res, attempt
		}
		if attempt == attempts {
			return res, attempt
		}
		select {
		case <-time.After(step.Retry.Backoff(attempt)):
		case <-ctx.Done():
			return component.Fail(component.CodeTimeout, data.Redact(ctx.Err().Error())), attempt
		}
	}
	return res, attempts
}

func (o *Orchestrator) executeAttempt(ctx context.Context, comp component.Component, step Step, cfg component.Configuration, data dict.Dictionary) (res *component.Result) {
	attemptCtx := ctx
	if step.Timeout() > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, step.Timeout())
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			res = component.Failf(component.CodeStepException,
				"component %s panicked: %v", cfg.Type, r)
		}
	}()
	res = comp.Execute(attemptCtx, cfg, data)
	if res == nil {
		res = component.Fail(component.CodeUnexpectedError,
			fmt.Sprintf("component %s returned no result", cfg.Type))
	}
	return res
}

// runForeach iterates the sub-steps once per element of the serialized row
// list stored under iterate_key. Each element's fields are merged into the
// dictionary before its pass; after the loop the last element's fields
// remain and <iterate_key>_count records the element count.
func (o *Orchestrator) runForeach(ctx context.Context, step Step, name string, data dict.Dictionary, out *Output) *component.Result {
	raw := data.Get(step.IterateKey)
	if raw == "" {
		return component.Failf(component.CodeConfigError,
			"step %s: iterate key %q is empty", name, step.IterateKey)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return component.Failf(component.CodeConfigError,
			"step %s: iterate key %q is not a row list: %v", name, step.IterateKey, err)
	}

	o.notify(Progress{StepName: name, State: StateRunning, Attempt: 1, MaxAttempts: 1})
	for i, row := range rows {
		data.Merge(stringifyRow(row))
		prefix := fmt.Sprintf("%s[%d].", name, i)
		if halted := o.runSteps(ctx, step.SubSteps, prefix, data, out); halted {
			// The failing sub-step already recorded its own result.
			return component.Failf(component.CodeStepFailed,
				"step %s: iteration %d failed", name, i)
		}
	}
	data.Set(step.IterateKey+"_count", fmt.Sprintf("%d", len(rows)))
	return component.Success(map[string]string{
		step.IterateKey + "_count": fmt.Sprintf("%d", len(rows)),
	})
}

func stringifyRow(row map[string]interface{}) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
			out[k] = ""
		default:
			b, err := json.Marshal(t)
			if err != nil {
				out[k] = fmt.Sprint(t)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

func (o *Orchestrator) notify(p Progress) {
	if o.progress != nil {
		o.progress(p)
	}
}
