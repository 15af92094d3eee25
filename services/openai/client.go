package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the OpenAI API base URL; any OpenAI-compatible
	// endpoint can be substituted via Config.BaseURL.
	DefaultBaseURL = "https://api.openai.com"
	// DefaultTimeout is generous because completions can be slow
	DefaultTimeout = 120 * time.Second
	// DefaultModel is the default chat model
	DefaultModel = "gpt-4o"
)

// GatewayError wraps any failure talking to the completion service so
// callers can branch on the failure class instead of raw transport errors.
type GatewayError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("openai %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("openai %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsGatewayError reports whether err originated at the completion service
// boundary.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

// Client handles chat completion calls against an OpenAI-compatible API
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the client
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new chat completion client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		apiKey:  config.APIKey,
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Message represents a message in the chat completion request
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ResponseFormat requests a particular output shape from the model
type ResponseFormat struct {
	Type string `json:"type"` // "text" or "json_object"
}

// ChatCompletionRequest is the OpenAI-compatible request payload
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Choice represents a choice in the completion response
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the non-streaming response payload
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// ExtractContent extracts the content from a completion response. An
// empty or malformed response yields empty text, never a panic.
func (r *ChatCompletionResponse) ExtractContent() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Option mutates the outgoing request
type Option func(*ChatCompletionRequest)

// WithTemperature sets the sampling temperature
func WithTemperature(temp float64) Option {
	return func(req *ChatCompletionRequest) {
		req.Temperature = temp
	}
}

// WithMaxTokens caps the completion length
func WithMaxTokens(tokens int) Option {
	return func(req *ChatCompletionRequest) {
		req.MaxTokens = tokens
	}
}

// WithJSONResponse requests a JSON object as the completion output
func WithJSONResponse() Option {
	return func(req *ChatCompletionRequest) {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
}

// ChatCompletion sends a synchronous chat completion request
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, options ...Option) (*ChatCompletionResponse, error) {
	req := ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   1024,
		Stream:      false,
	}

	for _, opt := range options {
		opt(&req)
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, &GatewayError{Op: "chat_completion", Err: err}
	}

	url := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &GatewayError{Op: "chat_completion", Err: err}
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Op: "chat_completion", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Op: "chat_completion", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{
			Op:         "chat_completion",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("completion API error: %s", string(respBody)),
		}
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &GatewayError{Op: "chat_completion", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return &result, nil
}

// streamChunk is one SSE delta frame of a streaming completion
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamChatCompletion runs a streaming completion, invoking callback for
// every non-empty content delta. The accumulated text is returned even on
// error so callers can commit partial output. Cancel the context to abort
// the upstream call.
func (c *Client) StreamChatCompletion(ctx context.Context, messages []Message, callback func(chunk string) error, options ...Option) (string, error) {
	req := ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   1024,
	}

	for _, opt := range options {
		opt(&req)
	}
	req.Stream = true

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", &GatewayError{Op: "stream_completion", Err: err}
	}

	url := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return "", &GatewayError{Op: "stream_completion", Err: err}
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &GatewayError{Op: "stream_completion", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &GatewayError{
			Op:         "stream_completion",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("streaming failed: %s", string(body)),
		}
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		// Skip empty lines and SSE comments
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Malformed chunk: skip and keep draining the stream
			continue
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}

		full.WriteString(content)
		if err := callback(content); err != nil {
			return full.String(), &GatewayError{Op: "stream_completion", Err: fmt.Errorf("callback error: %w", err)}
		}
	}

	if err := scanner.Err(); err != nil {
		return full.String(), &GatewayError{Op: "stream_completion", Err: fmt.Errorf("stream reading error: %w", err)}
	}

	return full.String(), nil
}
