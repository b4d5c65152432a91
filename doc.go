// Package chatsy is a conversational orchestration layer in front of a
// streaming chat-completion service. It drives a multi-turn dialogue with a
// language model, optionally equips the model with callable tools, and
// resolves each exchange — possibly spanning several round-trips triggered by
// tool calls — into a single assistant reply while streaming partial output
// to a live sink.
//
// # Overview
//
// The Coordinator owns the conversation: it holds the model identity and
// generation options, shares the mutex-guarded History with the transport and
// any inspector, negotiates the structured-output format policy, and loops
// model → tool calls → tool results → model until the model answers without
// tool calls (bounded by a tool-turn ceiling).
//
// Tools are plain Go functions turned into schema-described instruments:
// NewTool reflects a JSON Schema from the argument struct, validates incoming
// JSON against it, and feeds results back to the model. Registry groups tools
// with timeouts, concurrency limits, middleware, and panic recovery, and
// plugs into a Coordinator as its ToolGroup.
//
// # Format policy
//
// A Format ("respond as JSON", or a full schema) is a request-scoped hint.
// When tools are registered it is withheld until the conversation contains at
// least one tool result: models tend to satisfy a structured-output
// constraint instead of emitting tool calls, so the first tool-enabled
// requests go out unconstrained.
//
// # Example
//
//	reg := chatsy.NewRegistry()
//	reg.Register(weatherTool)
//	co := chatsy.NewWithTools(chatsy.NewOllama(), "llama3.2", chatsy.NewHistory(), reg)
//	resp, err := co.Chat(ctx, []chatsy.Message{chatsy.UserMessage("weather in Oslo?")})
//	if err != nil { ... }
//	fmt.Println(resp.Message.Content)
package chatsy
