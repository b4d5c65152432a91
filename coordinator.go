package chatsy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DefaultMaxToolTurns bounds the model/tool ping-pong inside a single Chat
// call. Exceeding it returns ErrToolTurnLimit rather than looping forever.
const DefaultMaxToolTurns = 10

// Coordinator drives a multi-turn dialogue with a chat service: it owns the
// conversation identity (model, options, format policy), shares the history
// with the transport and any external inspector, streams and accumulates the
// model's reply, and dispatches requested tool calls back into the model
// until a final answer is produced.
//
// A Coordinator resolves one turn at a time; it is not safe for concurrent
// Chat calls. The shared History is safe for concurrent inspection.
type Coordinator struct {
	client       Client
	model        string
	options      Options
	history      *History
	tools        ToolGroup
	debug        bool
	format       *Format
	maxToolTurns int
	output       io.Writer
	logger       *slog.Logger
}

// New creates a Coordinator without tools.
func New(client Client, model string, history *History) *Coordinator {
	return NewWithTools(client, model, history, NoTools{})
}

// NewWithTools creates a Coordinator whose chat requests advertise the given
// tool group and whose turns resolve the model's tool calls through it.
// A nil history starts an empty conversation; a nil tools group means no tools.
func NewWithTools(client Client, model string, history *History, tools ToolGroup) *Coordinator {
	if history == nil {
		history = NewHistory()
	}
	if tools == nil {
		tools = NoTools{}
	}
	return &Coordinator{
		client:       client,
		model:        model,
		history:      history,
		tools:        tools,
		maxToolTurns: DefaultMaxToolTurns,
		output:       os.Stdout,
		logger:       slog.Default(),
	}
}

// WithFormat sets the structured-output constraint. It is attached to a
// request only when no tools are registered, or once the conversation has
// produced at least one tool result; see Chat.
func (c *Coordinator) WithFormat(f Format) *Coordinator {
	c.format = &f
	return c
}

// WithOptions sets the generation options passed through to the service.
func (c *Coordinator) WithOptions(options Options) *Coordinator {
	c.options = options
	return c
}

// WithDebug toggles diagnostic logging of outgoing messages and tool traffic.
func (c *Coordinator) WithDebug(debug bool) *Coordinator {
	c.debug = debug
	return c
}

// WithMaxToolTurns sets the tool-turn ceiling (default DefaultMaxToolTurns).
func (c *Coordinator) WithMaxToolTurns(n int) *Coordinator {
	c.maxToolTurns = n
	return c
}

// WithOutput sets the live output sink streamed deltas are written to
// (default os.Stdout). Pass nil to discard.
func (c *Coordinator) WithOutput(w io.Writer) *Coordinator {
	if w == nil {
		w = io.Discard
	}
	c.output = w
	return c
}

// WithLogger sets the slog.Logger used for debug diagnostics.
func (c *Coordinator) WithLogger(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c.logger = logger
	return c
}

// History returns the shared history handle for external inspection. Readers
// may observe a conversation mid-turn.
func (c *Coordinator) History() *History {
	return c.history
}

// Chat appends messages to the conversation and resolves one full turn,
// streaming deltas to the output sink as they arrive. If the model requests
// tool calls, each is dispatched in order, its result pushed to history as a
// tool-role message, and the model is re-queried with an empty message list
// until it answers without tool calls or the tool-turn ceiling is hit.
//
// The returned response carries the complete accumulated assistant message
// (empty content if the stream produced zero fragments). On any error —
// transport, tool, cancellation — partial accumulated content is discarded
// and only the error is returned; deltas already written to the output sink
// remain visible.
func (c *Coordinator) Chat(ctx context.Context, messages []Message) (ChatResponse, error) {
	turns := c.maxToolTurns
	if turns < 1 {
		turns = 1
	}
	for range turns {
		resp, err := c.resolve(ctx, messages)
		if err != nil {
			return ChatResponse{}, err
		}
		calls := resp.Message.ToolCalls
		if len(calls) == 0 {
			return resp, nil
		}
		for _, call := range calls {
			if c.debug {
				c.logger.Debug("tool call", "tool", call.Function.Name, "args", string(call.Function.Arguments))
			}
			result, err := c.tools.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				return ChatResponse{}, &ToolError{Tool: call.Function.Name, Err: err}
			}
			if c.debug {
				c.logger.Debug("tool result", "tool", call.Function.Name, "result", result)
			}
			if err := c.history.Push(ToolMessage(result)); err != nil {
				return ChatResponse{}, err
			}
		}
		// The tool results are already in history; re-query with no new messages.
		messages = nil
	}
	return ChatResponse{}, fmt.Errorf("%w after %d tool turns", ErrToolTurnLimit, c.maxToolTurns)
}

// resolve performs a single model round-trip: build the request, decide the
// format policy, stream the response, and assemble the accumulated message.
func (c *Coordinator) resolve(ctx context.Context, messages []Message) (ChatResponse, error) {
	if c.debug {
		for _, m := range messages {
			c.logger.Debug("chat request", "model", c.model, "role", m.Role, "content", m.Content)
		}
	}

	req := ChatRequest{
		Model:    c.model,
		Messages: messages,
		Options:  c.options,
		Tools:    c.tools.Descriptors(),
	}
	if c.format != nil {
		if len(req.Tools) == 0 {
			req.Format = c.format
		} else {
			// With tools advertised, a format constraint on the first request
			// tends to suppress the model's tool calls entirely. Attach it only
			// once the last history entry is a tool result, i.e. the model is
			// synthesizing an answer. The lock is released before the network
			// call below.
			last, ok, err := c.history.Last()
			if err != nil {
				return ChatResponse{}, err
			}
			if ok && last.Role == RoleTool {
				req.Format = c.format
			}
		}
	}

	var (
		content   strings.Builder
		toolCalls []ToolCall
		terminal  ChatResponse
	)
	err := c.client.ChatStream(ctx, c.history, req, func(fragment ChatResponse) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if delta := fragment.Message.Content; delta != "" {
			if err := c.emit(delta); err != nil {
				return err
			}
			content.WriteString(delta)
		}
		toolCalls = append(toolCalls, fragment.Message.ToolCalls...)
		if fragment.Done {
			terminal = fragment
		}
		return nil
	})
	if err != nil {
		// Accumulated partial content is discarded with the error; what was
		// already emitted to the output sink stays visible.
		return ChatResponse{}, err
	}

	return ChatResponse{
		Model:     c.model,
		CreatedAt: terminal.CreatedAt,
		Message: Message{
			Role:      RoleAssistant,
			Content:   content.String(),
			ToolCalls: toolCalls,
		},
		Done:      true,
		FinalData: terminal.FinalData,
	}, nil
}

// flusher is satisfied by buffered sinks such as *bufio.Writer.
type flusher interface{ Flush() error }

// emit writes one delta to the output sink and flushes it immediately, so
// interactive consumers see tokens as they arrive.
func (c *Coordinator) emit(delta string) error {
	if _, err := io.WriteString(c.output, delta); err != nil {
		return err
	}
	if f, ok := c.output.(flusher); ok {
		return f.Flush()
	}
	return nil
}
