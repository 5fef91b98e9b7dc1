package components

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenscreen/internal/component"
	"greenscreen/internal/dict"
)

func httpConfig(raw string) component.Configuration {
	return component.Configuration{Type: HTTPCallType, Config: json.RawMessage(raw)}
}

func closeIdle(t *testing.T) {
	t.Cleanup(func() {
		sharedClient(true).CloseIdleConnections()
		sharedClient(false).CloseIdleConnections()
	})
}

func TestHTTPCallFlattensJSONResponse(t *testing.T) {
	closeIdle(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"decision":"approve","score":92.5,"flagged":false,"meta":{"region":"OH"}}`)
	}))
	defer srv.Close()

	raw := fmt.Sprintf(`{"url":%q,
		"headers":{"Authorization":"Bearer {{token}}"},
		"allow_private_network":true}`, srv.URL)
	data := dict.New(map[string]string{"token": "tok-123"})

	res := NewHTTPCall().Execute(context.Background(), httpConfig(raw), data)
	require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)
	assert.Equal(t, "200", res.OutputData["status_code"])
	assert.Equal(t, "approve", data.Get("decision"))
	assert.Equal(t, "92.5", data.Get("score"))
	assert.Equal(t, "false", data.Get("flagged"))
	assert.JSONEq(t, `{"region":"OH"}`, data.Get("meta"))
}

func TestHTTPCallPostsTemplatedBody(t *testing.T) {
	closeIdle(t)
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	raw := fmt.Sprintf(`{"url":%q,
		"body":"{\"loan\":\"{{loan_number}}\"}",
		"allow_private_network":true}`, srv.URL)
	data := dict.New(map[string]string{"loan_number": "1000001"})

	res := NewHTTPCall().Execute(context.Background(), httpConfig(raw), data)
	require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)
	assert.JSONEq(t, `{"loan":"1000001"}`, got)
}

func TestHTTPCallRawBodyMode(t *testing.T) {
	closeIdle(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "plain text, not json")
	}))
	defer srv.Close()

	raw := fmt.Sprintf(`{"url":%q,"parse_json":false,"output_key":"payload","allow_private_network":true}`, srv.URL)
	data := dict.New()
	res := NewHTTPCall().Execute(context.Background(), httpConfig(raw), data)
	require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)
	assert.Equal(t, "plain text, not json", data.Get("payload"))
}

func TestHTTPCallFailures(t *testing.T) {
	closeIdle(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/boom":
			http.Error(w, "server on fire", http.StatusInternalServerError)
		case "/garbled":
			fmt.Fprint(w, "}{ not json")
		}
	}))
	defer srv.Close()

	t.Run("http error", func(t *testing.T) {
		raw := fmt.Sprintf(`{"url":"%s/boom","allow_private_network":true}`, srv.URL)
		res := NewHTTPCall().Execute(context.Background(), httpConfig(raw), dict.New())
		require.Equal(t, component.StatusFailure, res.Status)
		assert.Equal(t, component.CodeHTTPError, res.Err.Code)
		assert.Equal(t, "500", res.OutputData["status_code"])
	})

	t.Run("parse error", func(t *testing.T) {
		raw := fmt.Sprintf(`{"url":"%s/garbled","allow_private_network":true}`, srv.URL)
		res := NewHTTPCall().Execute(context.Background(), httpConfig(raw), dict.New())
		require.Equal(t, component.StatusFailure, res.Status)
		assert.Equal(t, component.CodeResponseParseError, res.Err.Code)
	})

	t.Run("bad url", func(t *testing.T) {
		res := NewHTTPCall().Execute(context.Background(), httpConfig(`{"url":"not a url"}`), dict.New())
		require.Equal(t, component.StatusFailure, res.Status)
		assert.Equal(t, component.CodeConfigError, res.Err.Code)
	})

	t.Run("egress guard blocks loopback", func(t *testing.T) {
		raw := fmt.Sprintf(`{"url":%q}`, srv.URL) // allow_private_network omitted
		res := NewHTTPCall().Execute(context.Background(), httpConfig(raw), dict.New())
		require.Equal(t, component.StatusFailure, res.Status)
		assert.Equal(t, component.CodeRequestFailed, res.Err.Code)
		assert.Contains(t, res.Err.Message, "blocked")
	})
}
