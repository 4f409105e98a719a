// Package harness provides test doubles for end-to-end collector runs.
package harness

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Call records one completion request as the server saw it.
type Call struct {
	Prompt string
	Key    string
	Model  string
}

// Response scripts what the server returns for a prompt. The zero value is a
// normal completion; set Content to control the text, Status for an API
// error, or Body to return raw bytes verbatim.
type Response struct {
	Status  int
	Body    string
	Content string
}

// CompletionServer is an OpenAI-compatible chat completions endpoint with
// scriptable per-prompt behavior, for exercising the whole collection stack
// without the real API.
type CompletionServer struct {
	srv *httptest.Server

	mu      sync.Mutex
	calls   []Call
	respond func(prompt string) Response
}

// NewCompletionServer starts the server. respond decides the reply for each
// prompt; nil echoes a canned completion for everything.
func NewCompletionServer(respond func(prompt string) Response) *CompletionServer {
	s := &CompletionServer{respond: respond}
	if s.respond == nil {
		s.respond = func(string) Response { return Response{} }
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the server's base URL, suitable as an API base URL.
func (s *CompletionServer) URL() string {
	return s.srv.URL
}

// Calls returns every request seen so far, in arrival order.
func (s *CompletionServer) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]Call, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// Close shuts the server down.
func (s *CompletionServer) Close() {
	s.srv.Close()
}

func (s *CompletionServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/chat/completions" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	s.calls = append(s.calls, Call{Prompt: prompt, Key: key, Model: req.Model})
	resp := s.respond(prompt)
	s.mu.Unlock()

	if resp.Status != 0 && resp.Status != http.StatusOK {
		w.WriteHeader(resp.Status)
		if resp.Body != "" {
			fmt.Fprint(w, resp.Body)
		} else {
			fmt.Fprintf(w, `{"error":{"message":"scripted error","type":"test_error","code":"scripted"}}`)
		}
		return
	}
	if resp.Body != "" {
		fmt.Fprint(w, resp.Body)
		return
	}

	content := resp.Content
	if content == "" {
		content = "response to " + prompt
	}
	out := map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	json.NewEncoder(w).Encode(out)
}
