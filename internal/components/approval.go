package components

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"greenscreen/internal/component"
	"greenscreen/internal/dict"
	"greenscreen/internal/logging"
)

// ApprovalType is the approval gate's component-type string.
const ApprovalType = "approval"

// Approval polls an endpoint until its status resolves or the deadline
// passes. The endpoint answers {"status": "pending|approved|rejected"}.
type Approval struct{}

// NewApproval returns an approval gate instance.
func NewApproval() *Approval { return &Approval{} }

// Type returns the component-type string.
func (a *Approval) Type() string { return ApprovalType }

type approvalConfig struct {
	URL                 string            `json:"url"`
	Headers             map[string]string `json:"headers,omitempty"`
	IntervalSeconds     float64           `json:"interval_seconds,omitempty"`
	TimeoutSeconds      int               `json:"timeout_seconds,omitempty"`
	AllowPrivateNetwork bool              `json:"allow_private_network,omitempty"`
}

func (c approvalConfig) interval() time.Duration {
	if c.IntervalSeconds > 0 {
		return time.Duration(c.IntervalSeconds * float64(time.Second))
	}
	return 5 * time.Second
}

func (c approvalConfig) deadline() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return 10 * time.Minute
}

// Execute polls until approved, rejected, or timed out. The poll count is
// reported on every outcome, failures included.
func (a *Approval) Execute(ctx context.Context, cfg component.Configuration, data dict.Dictionary) *component.Result {
	log := logging.Get(logging.CategoryComponent)

	var conf approvalConfig
	if err := cfg.Decode(&conf); err != nil {
		return component.Fail(component.CodeConfigError, err.Error())
	}
	if conf.URL == "" {
		return component.Fail(component.CodeConfigError, "url is required")
	}
	target := data.Resolve(conf.URL)

	gateCtx, cancel := context.WithTimeout(ctx, conf.deadline())
	defer cancel()

	polls := 0
	withCount := func(r *component.Result, status string) *component.Result {
		count := fmt.Sprintf("%d", polls)
		if r.OutputData == nil {
			r.OutputData = map[string]string{}
		}
		r.OutputData["approval_poll_count"] = count
		data.Set("approval_poll_count", count)
		if status != "" {
			r.OutputData["approval_status"] = status
			data.Set("approval_status", status)
		}
		return r
	}

	for {
		polls++
		status, err := a.poll(gateCtx, conf, target, data)
		if err != nil {
			if gateCtx.Err() != nil {
				return withCount(component.Fail(component.CodeTimeout, "approval deadline passed while pending"), "")
			}
			// A failing endpoint counts as still pending. Only the deadline
			// gives up on the gate.
			log.Warnw("approval poll failed", "poll", polls, "error", data.Redact(err.Error()))
		} else {
			log.Debugw("approval poll", "poll", polls, "status", status)
			switch status {
			case "approved":
				return withCount(component.Success(nil), status)
			case "rejected":
				return withCount(component.Failf(component.CodeRejected, "request rejected after %d polls", polls), status)
			}
		}

		select {
		case <-gateCtx.Done():
			return withCount(component.Fail(component.CodeTimeout, "approval deadline passed while pending"), "")
		case <-time.After(conf.interval()):
		}
	}
}

func (a *Approval) poll(ctx context.Context, conf approvalConfig, target string, data dict.Dictionary) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	for k, v := range conf.Headers {
		req.Header.Set(k, data.Resolve(v))
	}
	resp, err := sharedClient(conf.AllowPrivateNetwork).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("approval endpoint returned %s", resp.Status)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", fmt.Errorf("approval response: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(body.Status)), nil
}

var _ component.Component = (*Approval)(nil)
