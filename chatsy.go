package chatsy

import (
	"encoding/json"
)

// Role identifies the author of a chat message. Beyond the four fixed roles,
// any other string is a valid custom role tag and is passed through to the
// model untouched (some models use extra roles like "control").
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry of a conversation.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// SystemMessage returns a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage returns a tool-role message carrying a tool execution result.
func ToolMessage(content string) Message {
	return Message{Role: RoleTool, Content: content}
}

// CustomMessage returns a message with an arbitrary role tag.
func CustomMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction names the tool and carries its raw JSON arguments.
type ToolCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDescriptor is the wire form of one callable tool, as advertised to the
// model. Type is always "function" for the providers chatsy targets.
type ToolDescriptor struct {
	Type     string             `json:"type"`
	Function FunctionDescriptor `json:"function"`
}

// FunctionDescriptor describes a callable function: name, human-readable
// description, and a JSON Schema for its parameters.
type FunctionDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Options is an opaque bag of generation options (temperature, num_ctx, ...)
// passed through to the chat service unmodified.
type Options map[string]any

// ChatRequest is one round-trip request to the chat service. Messages holds
// only the NEW messages for this call; the transport merges them with the
// shared history before hitting the wire.
type ChatRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Options  Options          `json:"options,omitempty"`
	Tools    []ToolDescriptor `json:"tools,omitempty"`
	Format   *Format          `json:"format,omitempty"`
	Stream   bool             `json:"stream"`
}

// ChatResponse is both a single stream fragment (incremental Message.Content
// delta, Done=false) and, with Done=true, a complete response. FinalData
// fields are only populated on the terminal fragment.
type ChatResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at,omitempty"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`
	FinalData
}

// FinalData is the generation metadata attached to the terminal fragment of a
// stream. Durations are nanoseconds, as reported by the service.
type FinalData struct {
	TotalDuration      int64 `json:"total_duration,omitempty"`
	LoadDuration       int64 `json:"load_duration,omitempty"`
	PromptEvalCount    int   `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64 `json:"prompt_eval_duration,omitempty"`
	EvalCount          int   `json:"eval_count,omitempty"`
	EvalDuration       int64 `json:"eval_duration,omitempty"`
}
