package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestServer returns a server that captures the last request body and
// replies with the given handler.
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func completionJSON(content string) string {
	return fmt.Sprintf(`{"choices": [{"message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}]}`, content)
}

func TestCompleteSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		fmt.Fprint(w, completionJSON("The sky is blue because of Rayleigh scattering."))
	})

	client := NewClient(Config{BaseURL: srv.URL})
	got, err := client.Complete(context.Background(), "sk-test", "why is the sky blue?")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "The sky is blue because of Rayleigh scattering." {
		t.Errorf("Complete() = %q, want scattering answer", got)
	}

	if gotPath != "/chat/completions" {
		t.Errorf("request path = %q, want /chat/completions", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if gotBody["model"] != DefaultModel {
		t.Errorf("request model = %v, want %q", gotBody["model"], DefaultModel)
	}

	msgs, ok := gotBody["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("request messages = %v, want single user message", gotBody["messages"])
	}
	msg := msgs[0].(map[string]any)
	if msg["role"] != "user" || msg["content"] != "why is the sky blue?" {
		t.Errorf("message = %v, want user role with prompt content", msg)
	}
}

func TestCompleteMergesSettings(t *testing.T) {
	var gotBody map[string]any

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, completionJSON("ok"))
	})

	client := NewClient(Config{
		BaseURL: srv.URL,
		Model:   "gpt-4",
		Settings: map[string]any{
			"temperature": 0.7,
			"max_tokens":  256,
		},
	})
	if _, err := client.Complete(context.Background(), "sk-test", "hi"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if gotBody["model"] != "gpt-4" {
		t.Errorf("model = %v, want gpt-4", gotBody["model"])
	}
	if gotBody["temperature"] != 0.7 {
		t.Errorf("temperature = %v, want 0.7", gotBody["temperature"])
	}
	if gotBody["max_tokens"] != float64(256) {
		t.Errorf("max_tokens = %v, want 256", gotBody["max_tokens"])
	}
}

func TestCompleteDropsUncappedMaxTokens(t *testing.T) {
	var gotBody map[string]any

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, completionJSON("ok"))
	})

	client := NewClient(Config{
		BaseURL:  srv.URL,
		Settings: map[string]any{"max_tokens": -1},
	})
	if _, err := client.Complete(context.Background(), "sk-test", "hi"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if _, present := gotBody["max_tokens"]; present {
		t.Errorf("max_tokens = %v present in request, want omitted for -1", gotBody["max_tokens"])
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`)
	})

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "sk-bad", "hi")
	if err == nil {
		t.Fatal("Complete() succeeded with 401, want error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Complete() error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if apiErr.Message != "Incorrect API key provided" {
		t.Errorf("Message = %q, want API message", apiErr.Message)
	}
	if apiErr.Code != "invalid_api_key" {
		t.Errorf("Code = %q, want invalid_api_key", apiErr.Code)
	}
	if IsRecoverable(err) {
		t.Error("IsRecoverable(APIError) = true, want false")
	}
}

func TestCompleteAPIErrorPlainBody(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	})

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "sk-test", "hi")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Complete() error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream exploded" {
		t.Errorf("APIError = %+v, want 502 with raw body message", apiErr)
	}
}

func TestCompleteMalformedResponse(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": [`)
	})

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "sk-test", "hi")
	if err == nil {
		t.Fatal("Complete() succeeded with truncated body, want error")
	}
	if !IsRecoverable(err) {
		t.Errorf("IsRecoverable(%v) = false, want true for malformed response", err)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	})

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "sk-test", "hi")

	var rec *RecoverableError
	if !errors.As(err, &rec) {
		t.Fatalf("Complete() error = %T, want *RecoverableError", err)
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionJSON(""))
	})

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "sk-test", "hi")

	var rec *RecoverableError
	if !errors.As(err, &rec) {
		t.Fatalf("Complete() error = %T, want *RecoverableError", err)
	}
	if !IsRecoverable(err) {
		t.Error("IsRecoverable(empty content) = false, want true")
	}
}

func TestCompleteCancelled(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionJSON("never seen"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.Complete(ctx, "sk-test", "hi")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Complete() error = %v, want context.Canceled", err)
	}
	if !IsRecoverable(err) {
		t.Error("IsRecoverable(context.Canceled) = false, want true")
	}
}

func TestCompleteTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timeout test in short mode")
	}

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, completionJSON("too late"))
	})

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Complete(context.Background(), "sk-test", "hi")
	if err == nil {
		t.Fatal("Complete() succeeded past timeout, want error")
	}
	if !IsRecoverable(err) {
		t.Errorf("IsRecoverable(%v) = false, want true for timeout", err)
	}
}

func TestIsUncapped(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"int -1", -1, true},
		{"int64 -1", int64(-1), true},
		{"float64 -1", float64(-1), true},
		{"int 256", 256, false},
		{"float64 256", float64(256), false},
		{"string", "-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUncapped(tt.v); got != tt.want {
				t.Errorf("isUncapped(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{})
	if client.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, DefaultBaseURL)
	}
	if client.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", client.Model(), DefaultModel)
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
	}
}

func TestNewClientTrimsBaseURL(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:8000/v1/"})
	if client.baseURL != "http://localhost:8000/v1" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", client.baseURL)
	}
}
