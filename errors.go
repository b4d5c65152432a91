package chatsy

import (
	"errors"
	"fmt"
)

// Sentinel errors for chatsy. Use errors.Is to check.
var (
	ErrHistoryPoisoned = errors.New("chat history poisoned by a previous panic")
	ErrToolNotFound    = errors.New("tool not found")
	ErrToolTurnLimit   = errors.New("tool turn limit exceeded")
	ErrTimeout         = errors.New("tool execution timeout")
	ErrShutdown        = errors.New("registry is shutting down")
	ErrStreamAborted   = errors.New("stream aborted by consumer")
	ErrValidation      = errors.New("validation failed")
)

// TransportError wraps a network or protocol failure from the chat service.
// The Coordinator never retries; the caller decides.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chat transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ToolError reports a failed tool dispatch during turn resolution. Tool names
// the tool the model asked for; Err is the underlying execution error.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// ClientError is an error that should be sent back to the LLM for
// self-correction (e.g. invalid JSON, schema validation failure, bad enum
// value). Do not expose stack traces or internal details to the LLM.
// Err optionally wraps a sentinel (e.g. ErrValidation) for errors.Is/errors.As.
type ClientError struct {
	Reason string
	// Retryable is set by the application (not by chatsy). When true, the
	// orchestrator may retry the same call without changing arguments.
	Retryable bool
	Err       error // wrapped sentinel for errors.Is/errors.As
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("invalid tool input: %s", e.Reason)
}

// Unwrap supports errors.Is/errors.As on wrapped chains (e.g. errors.Is(err, ErrValidation)).
func (e *ClientError) Unwrap() error { return e.Err }

// SystemError represents an internal failure (DB down, panic, etc.).
// The LLM should not see the underlying error message or stack.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return "internal system error during tool execution"
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsClientError returns true if err is or wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// IsTransportError returns true if err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// wrapJSONParseError returns a ClientError for JSON unmarshal failures.
// Used by Extractor.ParseAndValidate and NewDynamicTool so parse errors are consistent.
func wrapJSONParseError(err error) error {
	return &ClientError{Reason: "json parse error: " + err.Error()}
}

// wrapYieldError marks an error returned by a consumer's yield callback so
// tools and the registry can tell "consumer went away" from tool failure.
func wrapYieldError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStreamAborted) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStreamAborted, err)
}
