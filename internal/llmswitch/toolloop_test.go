package llmswitch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunToolLoop_RunsAllCallsConcurrently(t *testing.T) {
	calls := []ToolCall{
		{ID: "1", Name: "get_weather", Arguments: `{"city":"nyc"}`},
		{ID: "2", Name: "get_time", Arguments: `{}`},
	}
	results := RunToolLoop(context.Background(), calls, func(ctx context.Context, c ToolCall) (string, error) {
		if c.Name == "get_weather" {
			return `{"temp":72}`, nil
		}
		return "", errors.New("boom")
	}, time.Second)

	require.Len(t, results, 2)
	require.Equal(t, `{"temp":72}`, results[0].Output)
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
}

func TestAppendToolResultsAsMessages_EncodesErrors(t *testing.T) {
	results := []ToolResult{
		{Call: ToolCall{ID: "1"}, Output: "ok"},
		{Call: ToolCall{ID: "2"}, Err: errors.New("failed")},
	}
	msgs := AppendToolResultsAsMessages(results)
	require.Len(t, msgs, 2)
	require.Equal(t, "ok", msgs[0]["content"])
	require.Contains(t, msgs[1]["content"], "failed")
}

func TestExtractToolCalls_ParsesFunctionCalls(t *testing.T) {
	raw := []byte(`[{"id":"call_1","function":{"name":"get_weather","arguments":"{\"city\":\"nyc\"}"}}]`)
	calls, err := ExtractToolCalls(raw)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, "get_weather", calls[0].Name)
}

func TestServerToolExecEnabled_DefaultFalse(t *testing.T) {
	t.Setenv(ServerToolExecEnv, "")
	require.False(t, ServerToolExecEnabled())
	t.Setenv(ServerToolExecEnv, "1")
	require.True(t, ServerToolExecEnabled())
}
