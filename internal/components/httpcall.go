package components

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"greenscreen/internal/component"
	"greenscreen/internal/dict"
	"greenscreen/internal/logging"
	"greenscreen/internal/netguard"
)

// HTTPCallType is the HTTP component's type string.
const HTTPCallType = "http_call"

// Shared process-wide clients; no per-client timeout, every request
// carries its own context budget.
var (
	clientOnce     sync.Once
	guardedClient  *http.Client
	internalClient *http.Client
)

func sharedClient(allowPrivate bool) *http.Client {
	clientOnce.Do(func() {
		guardedClient = &http.Client{Transport: &http.Transport{
			DialContext:         netguard.Dialer(false).DialContext,
			MaxIdleConnsPerHost: 8,
		}}
		internalClient = &http.Client{Transport: &http.Transport{
			DialContext:         netguard.Dialer(true).DialContext,
			MaxIdleConnsPerHost: 8,
		}}
	})
	if allowPrivate {
		return internalClient
	}
	return guardedClient
}

// HTTPCall issues one HTTP request and folds the JSON response into the
// dictionary.
type HTTPCall struct{}

// NewHTTPCall returns an HTTP component instance.
func NewHTTPCall() *HTTPCall { return &HTTPCall{} }

// Type returns the component-type string.
func (h *HTTPCall) Type() string { return HTTPCallType }

type httpCallConfig struct {
	Method  string            `json:"method,omitempty"` // default GET, POST when body set
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
	// ParseJSON controls response handling; when false the raw body lands
	// under OutputKey.
	ParseJSON *bool  `json:"parse_json,omitempty"`
	OutputKey string `json:"output_key,omitempty"`
	// AllowPrivateNetwork opts out of the egress guard, for hosts on
	// internal ranges.
	AllowPrivateNetwork bool `json:"allow_private_network,omitempty"`
	TimeoutSeconds      int  `json:"timeout_seconds,omitempty"`
}

func (c httpCallConfig) timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return 30 * time.Second
}

// Execute sends the request and maps the response. Status >= 400 is
// HTTP_ERROR with the code in output data.
func (h *HTTPCall) Execute(ctx context.Context, cfg component.Configuration, data dict.Dictionary) *component.Result {
	log := logging.Get(logging.CategoryComponent)

	var conf httpCallConfig
	if err := cfg.Decode(&conf); err != nil {
		return component.Fail(component.CodeConfigError, err.Error())
	}
	if conf.URL == "" {
		return component.Fail(component.CodeConfigError, "url is required")
	}

	target := data.Resolve(conf.URL)
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return component.Failf(component.CodeConfigError, "invalid url %q", data.Redact(target))
	}

	method := strings.ToUpper(conf.Method)
	if method == "" {
		method = http.MethodGet
		if conf.Body != "" {
			method = http.MethodPost
		}
	}

	var body io.Reader
	if conf.Body != "" {
		body = strings.NewReader(data.Resolve(conf.Body))
	}

	reqCtx, cancel := context.WithTimeout(ctx, conf.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		return component.Fail(component.CodeConfigError, data.Redact(err.Error()))
	}
	for k, v := range conf.Headers {
		req.Header.Set(k, data.Resolve(v))
	}
	if conf.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := sharedClient(conf.AllowPrivateNetwork).Do(req)
	if err != nil {
		return component.Fail(component.CodeRequestFailed, data.Redact(err.Error()))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return component.Fail(component.CodeRequestFailed, data.Redact(err.Error()))
	}
	log.Debugw("http call", "method", method, "status", resp.StatusCode)

	out := map[string]string{"status_code": fmt.Sprintf("%d", resp.StatusCode)}
	if resp.StatusCode >= 400 {
		r := component.Failf(component.CodeHTTPError, "%s %s returned %s", method, data.Redact(target), resp.Status)
		r.OutputData = out
		return r
	}

	if conf.ParseJSON != nil && !*conf.ParseJSON {
		key := conf.OutputKey
		if key == "" {
			key = "response_body"
		}
		out[key] = string(payload)
		data.Set(key, string(payload))
		return component.Success(out)
	}

	fields, err := flattenJSON(payload)
	if err != nil {
		return component.Fail(component.CodeResponseParseError, data.Redact(err.Error()))
	}
	for k, v := range fields {
		out[k] = v
		data.Set(k, v)
	}
	return component.Success(out)
}

// flattenJSON turns a top-level JSON object into string fields; nested
// structures stay serialized.
func flattenJSON(payload []byte) (map[string]string, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return map[string]string{}, nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case bool:
			out[k] = fmt.Sprintf("%t", t)
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			nested, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			out[k] = string(nested)
		}
	}
	return out, nil
}

var _ component.Component = (*HTTPCall)(nil)
