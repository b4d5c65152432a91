package chatsy

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolGroup is the Coordinator's view of the tools available to the model:
// enumerate wire descriptors and execute one tool by name. Registry is the
// standard implementation; NoTools is the no-op one for tool-free chats.
type ToolGroup interface {
	// Descriptors returns the tool descriptors to advertise on a chat request.
	Descriptors() []ToolDescriptor
	// Dispatch executes the named tool with the given JSON arguments and
	// returns its textual result (to be fed back to the model as a tool-role
	// message).
	Dispatch(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// NoTools is the ToolGroup for a conversation without tools: no descriptors,
// and any dispatch fails with ErrToolNotFound.
type NoTools struct{}

func (NoTools) Descriptors() []ToolDescriptor { return nil }

func (NoTools) Dispatch(_ context.Context, name string, _ json.RawMessage) (string, error) {
	return "", fmt.Errorf("%w: %q", ErrToolNotFound, name)
}

var _ ToolGroup = NoTools{}
