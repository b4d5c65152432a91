package chatsy

import "context"

// Client is the remote chat service as seen by the Coordinator.
//
// ChatStream submits one request and drives the streamed response through
// yield, one fragment at a time, in arrival order, ending with a fragment
// whose Done is true. The implementation owns the history side effects: it
// appends req.Messages to history before streaming and the assembled
// assistant message (content plus any tool calls) after a clean terminal
// fragment. On a transport error or an aborted stream nothing is appended
// beyond the request messages.
//
// If yield returns an error, the implementation must stop consuming and
// return that error unchanged.
type Client interface {
	ChatStream(ctx context.Context, history *History, req ChatRequest, yield func(ChatResponse) error) error
}
