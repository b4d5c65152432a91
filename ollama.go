package chatsy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama is a Client backed by an Ollama server's /api/chat endpoint,
// streaming newline-delimited JSON fragments.
type Ollama struct {
	baseURL    string
	httpClient *http.Client
}

// OllamaOption configures an Ollama client.
type OllamaOption func(*Ollama)

// WithBaseURL sets the server base URL (default http://localhost:11434).
func WithBaseURL(url string) OllamaOption {
	return func(o *Ollama) {
		o.baseURL = url
	}
}

// WithHTTPClient sets the http.Client used for requests. Streaming chats can
// run for minutes; the default client carries a generous timeout.
func WithHTTPClient(c *http.Client) OllamaOption {
	return func(o *Ollama) {
		o.httpClient = c
	}
}

// NewOllama creates an Ollama client.
func NewOllama(opts ...OllamaOption) *Ollama {
	o := &Ollama{
		baseURL:    defaultOllamaURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ChatStream implements Client. It appends req.Messages to history, sends the
// full log to /api/chat, yields each NDJSON fragment in arrival order, and on
// a clean terminal fragment appends the assembled assistant message to
// history. Transport and protocol failures are returned as TransportError.
func (o *Ollama) ChatStream(ctx context.Context, history *History, req ChatRequest, yield func(ChatResponse) error) error {
	if err := history.Push(req.Messages...); err != nil {
		return err
	}
	full, err := history.Messages()
	if err != nil {
		return err
	}

	wire := req
	wire.Messages = full
	wire.Stream = true
	body, err := json.Marshal(wire)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &TransportError{Err: fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(msg))}
	}

	assistant := Message{Role: RoleAssistant}
	dec := json.NewDecoder(resp.Body)
	for {
		var fragment ChatResponse
		if err := dec.Decode(&fragment); err != nil {
			if errors.Is(err, io.EOF) {
				// Stream ended without a terminal fragment; tolerated, but the
				// assistant message is not committed to history.
				return nil
			}
			return &TransportError{Err: fmt.Errorf("decode fragment: %w", err)}
		}
		if err := yield(fragment); err != nil {
			return err
		}
		assistant.Content += fragment.Message.Content
		assistant.ToolCalls = append(assistant.ToolCalls, fragment.Message.ToolCalls...)
		if fragment.Done {
			break
		}
	}
	return history.Push(assistant)
}

var _ Client = (*Ollama)(nil)
