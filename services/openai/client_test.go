package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	resp, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("chat completion: %v", err)
	}
	if got := resp.ExtractContent(); got != "hello there" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestChatCompletionNon2xxIsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for 429")
	}
	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GatewayError, got %T", err)
	}
	if ge.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", ge.StatusCode)
	}
	if !IsGatewayError(err) {
		t.Fatal("IsGatewayError should match a wrapped GatewayError")
	}
}

func TestIsGatewayErrorRejectsOtherErrors(t *testing.T) {
	if IsGatewayError(nil) {
		t.Fatal("nil is not a gateway error")
	}
	if IsGatewayError(errors.New("plain failure")) {
		t.Fatal("plain errors are not gateway errors")
	}
	wrapped := fmt.Errorf("summary: %w", &GatewayError{Op: "chat_completion", StatusCode: 502, Err: errors.New("bad gateway")})
	if !IsGatewayError(wrapped) {
		t.Fatal("wrapped gateway errors should match")
	}
}

func TestExtractContentEmptyChoices(t *testing.T) {
	var nilResp *ChatCompletionResponse
	if got := nilResp.ExtractContent(); got != "" {
		t.Fatalf("nil response should yield empty text, got %q", got)
	}
	empty := &ChatCompletionResponse{}
	if got := empty.ExtractContent(); got != "" {
		t.Fatalf("empty choices should yield empty text, got %q", got)
	}
}

func TestStreamChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			``,
			`: keepalive comment`,
			`data: {"choices":[{"delta":{"content":"lo "}}]}`,
			`data: not-json-at-all`,
			`data: {"choices":[]}`,
			`data: {"choices":[{"delta":{"content":"world"}}]}`,
			`data: [DONE]`,
			`data: {"choices":[{"delta":{"content":"ignored"}}]}`,
		}
		for _, frame := range frames {
			fmt.Fprintln(w, frame)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})

	var chunks []string
	full, err := client.StreamChatCompletion(context.Background(),
		[]Message{{Role: "user", Content: "hi"}},
		func(chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if full != "Hello world" {
		t.Fatalf("unexpected accumulated text %q", full)
	}
	if strings.Join(chunks, "") != full {
		t.Fatalf("chunks %v do not reassemble %q", chunks, full)
	}
}

func TestStreamChatCompletionCallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"partial"}}]}`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":" more"}}]}`)
		fmt.Fprintln(w, `data: [DONE]`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})

	full, err := client.StreamChatCompletion(context.Background(),
		[]Message{{Role: "user", Content: "hi"}},
		func(chunk string) error {
			return errors.New("client went away")
		})
	if err == nil {
		t.Fatal("expected callback error to surface")
	}
	// Text accumulated before the failure is preserved
	if full != "partial" {
		t.Fatalf("expected partial text to be kept, got %q", full)
	}
}
