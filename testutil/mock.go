// Package testutil provides test helpers for chatsy (e.g. MockTool, ScriptClient).
package testutil

import (
	"context"
	"sync"

	"github.com/skosovsky/chatsy"
)

// MockTool is a configurable Tool implementation for tests.
type MockTool struct {
	NameVal   string
	DescVal   string
	ParamsVal map[string]any
	ExecuteFn func(ctx context.Context, args []byte, yield func(data []byte) error) error
}

// Name returns the tool name.
func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the tool description.
func (m *MockTool) Description() string {
	return m.DescVal
}

// Parameters returns the parameters schema (or empty map).
func (m *MockTool) Parameters() map[string]any {
	if m.ParamsVal != nil {
		return m.ParamsVal
	}
	return map[string]any{}
}

// Execute runs ExecuteFn if set, otherwise returns nil.
func (m *MockTool) Execute(ctx context.Context, args []byte, yield func(data []byte) error) error {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, args, yield)
	}
	return nil
}

// Ensure MockTool implements Tool.
var _ chatsy.Tool = (*MockTool)(nil)

// Turn is one scripted model round-trip for ScriptClient: the fragments to
// stream, and an optional error returned after they are delivered.
type Turn struct {
	Fragments []chatsy.ChatResponse
	Err       error
}

// ScriptClient is a chatsy.Client that plays back scripted turns. It mirrors
// a real transport's history side effects: request messages are appended
// before streaming, and the assembled assistant message after a clean
// terminal fragment. Every received request is recorded for inspection.
type ScriptClient struct {
	mu       sync.Mutex
	Turns    []Turn
	Requests []chatsy.ChatRequest
	calls    int
}

// ChatStream implements chatsy.Client.
func (s *ScriptClient) ChatStream(ctx context.Context, history *chatsy.History, req chatsy.ChatRequest, yield func(chatsy.ChatResponse) error) error {
	s.mu.Lock()
	s.Requests = append(s.Requests, req)
	turn := Turn{}
	if s.calls < len(s.Turns) {
		turn = s.Turns[s.calls]
	}
	s.calls++
	s.mu.Unlock()

	if err := history.Push(req.Messages...); err != nil {
		return err
	}
	assistant := chatsy.Message{Role: chatsy.RoleAssistant}
	done := false
	for _, fragment := range turn.Fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(fragment); err != nil {
			return err
		}
		assistant.Content += fragment.Message.Content
		assistant.ToolCalls = append(assistant.ToolCalls, fragment.Message.ToolCalls...)
		if fragment.Done {
			done = true
			break
		}
	}
	if turn.Err != nil {
		return turn.Err
	}
	if !done {
		return nil
	}
	return history.Push(assistant)
}

// Calls returns how many times ChatStream was invoked.
func (s *ScriptClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ chatsy.Client = (*ScriptClient)(nil)
