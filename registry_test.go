package chatsy

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoTool(t *testing.T) Tool {
	t.Helper()
	tool, err := NewTool("echo", "Echo the input", func(_ context.Context, a echoArgs) (echoArgs, error) {
		return a, nil
	})
	require.NoError(t, err)
	return tool
}

func TestRegistry_ExecuteAndDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newEchoTool(t))

	out, err := reg.Dispatch(context.Background(), "echo", json.RawMessage(`{"x":7}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":7}`, out)
}

func TestRegistry_DispatchConcatenatesChunks(t *testing.T) {
	stream, err := NewStreamTool("tell", "", func(_ context.Context, _ echoArgs, yield func([]byte) error) error {
		if err := yield([]byte("part one, ")); err != nil {
			return err
		}
		return yield([]byte("part two"))
	})
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Register(stream)

	out, err := reg.Dispatch(context.Background(), "tell", json.RawMessage(`{"x":0}`))
	require.NoError(t, err)
	assert.Equal(t, "part one, part two", out)
}

func TestRegistry_ToolNotFound(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Dispatch(context.Background(), "nope", json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistry_Descriptors(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newEchoTool(t))
	zTool, err := NewTool("zip", "Compress", func(_ context.Context, _ echoArgs) (string, error) { return "", nil })
	require.NoError(t, err)
	reg.Register(zTool)

	descs := reg.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "echo", descs[0].Function.Name)
	assert.Equal(t, "zip", descs[1].Function.Name)
	assert.Equal(t, "function", descs[0].Type)
	assert.Equal(t, "Echo the input", descs[0].Function.Description)
	assert.Equal(t, "object", descs[0].Function.Parameters["type"])
}

func TestRegistry_ReplaceByName(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newEchoTool(t))
	replacement, err := NewTool("echo", "v2", func(_ context.Context, _ echoArgs) (string, error) {
		return "v2", nil
	})
	require.NoError(t, err)
	reg.Register(replacement)

	out, err := reg.Dispatch(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, `"v2"`, out)
}

func TestRegistry_PanicRecovery(t *testing.T) {
	tool, err := NewTool("panic", "", func(_ context.Context, _ echoArgs) (string, error) {
		panic("kaboom")
	})
	require.NoError(t, err)

	reg := NewRegistry(WithRecoverPanics(true))
	reg.Register(tool)

	_, err = reg.Dispatch(context.Background(), "panic", json.RawMessage(`{"x":1}`))
	require.Error(t, err)
	assert.True(t, IsSystemError(err))
}

func TestRegistry_PerToolTimeout(t *testing.T) {
	slow, err := NewTool("slow", "",
		func(ctx context.Context, _ echoArgs) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "done", nil
			}
		},
		WithTimeout(20*time.Millisecond),
	)
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Register(slow)

	_, err = reg.Dispatch(context.Background(), "slow", json.RawMessage(`{"x":1}`))
	require.Error(t, err)
	assert.True(t, IsSystemError(err))
}

func TestRegistry_Hooks(t *testing.T) {
	var before, after atomic.Int32
	var summary ExecutionSummary
	reg := NewRegistry(
		WithOnBeforeExecute(func(context.Context, ToolCall) { before.Add(1) }),
		WithOnAfterExecute(func(_ context.Context, _ ToolCall, s ExecutionSummary, _ time.Duration) {
			after.Add(1)
			summary = s
		}),
	)
	reg.Register(newEchoTool(t))

	out, err := reg.Dispatch(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)

	assert.Equal(t, int32(1), before.Load())
	assert.Equal(t, int32(1), after.Load())
	assert.Equal(t, "echo", summary.ToolName)
	assert.NoError(t, summary.Error)
	assert.Equal(t, 1, summary.ChunksDelivered)
	assert.Equal(t, int64(len(out)), summary.TotalBytes)
}

func TestRegistry_Shutdown(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newEchoTool(t))

	require.NoError(t, reg.Shutdown(context.Background()))
	// Idempotent.
	require.NoError(t, reg.Shutdown(context.Background()))

	_, err := reg.Dispatch(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	require.ErrorIs(t, err, ErrShutdown)
}

func TestRegistry_GetTool(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newEchoTool(t))

	tool, ok := reg.GetTool("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", tool.Name())

	_, ok = reg.GetTool("missing")
	assert.False(t, ok)
}
