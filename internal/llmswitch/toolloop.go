package llmswitch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ServerToolExecEnv names the opt-in switch for server-side tool
// execution; ServerToolExecEnabled reports whether it is set to "1".
// Neither the Executor nor the HTTP handlers consult it: tool_calls are
// always surfaced back to the caller, and RunToolLoop runs only when
// called directly.
const ServerToolExecEnv = "ROUTECODEX_TOOL_SERVER_EXEC"

// ServerToolExecEnabled reports whether in-process tool execution is
// enabled for this process.
func ServerToolExecEnabled() bool {
	return os.Getenv(ServerToolExecEnv) == "1"
}

// ToolCall is one function call surfaced by an upstream response.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolExecutor runs one tool call to completion and returns its result as
// a string (already JSON-encoded if the tool's result is structured).
type ToolExecutor func(ctx context.Context, call ToolCall) (string, error)

// ToolResult pairs a call with its outcome for appending back into the
// conversation as a "tool" role message.
type ToolResult struct {
	Call   ToolCall
	Output string
	Err    error
}

// RunToolLoop executes every call in calls concurrently (bounded by the
// registered tool set, not an arbitrary worker pool — there are rarely
// more than a handful of tool calls in one turn) and returns one
// ToolResult per call, in the same order, modeled on the teacher's
// WithAntiTruncation retry scaffolding but fanning out instead of
// retrying.
func RunToolLoop(ctx context.Context, calls []ToolCall, exec ToolExecutor, perCallTimeout time.Duration) []ToolResult {
	results := make([]ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			callCtx := gctx
			var cancel context.CancelFunc
			if perCallTimeout > 0 {
				callCtx, cancel = context.WithTimeout(gctx, perCallTimeout)
				defer cancel()
			}
			start := time.Now()
			output, err := exec(callCtx, call)
			results[i] = ToolResult{Call: call, Output: output, Err: err}
			if err != nil {
				log.WithError(err).WithFields(log.Fields{
					"tool": call.Name, "call_id": call.ID, "elapsed": time.Since(start),
				}).Warn("llmswitch: tool execution failed")
			}
			return nil // individual tool failures don't abort the other calls
		})
	}
	_ = g.Wait()
	return results
}

// AppendToolResultsAsMessages converts ToolResults into the "tool" role
// messages the next turn's request needs appended after the assistant
// message that carried the original tool_calls.
func AppendToolResultsAsMessages(results []ToolResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		content := r.Output
		if r.Err != nil {
			errBody, _ := json.Marshal(map[string]string{"error": r.Err.Error()})
			content = string(errBody)
		}
		out = append(out, map[string]interface{}{
			"role":         "tool",
			"tool_call_id": r.Call.ID,
			"content":      content,
		})
	}
	return out
}

// ExtractToolCalls pulls ToolCall entries out of an OpenAI Chat
// Completions-shaped assistant message's tool_calls array.
func ExtractToolCalls(toolCallsJSON []byte) ([]ToolCall, error) {
	var raw []struct {
		ID       string `json:"id"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(toolCallsJSON, &raw); err != nil {
		return nil, fmt.Errorf("llmswitch: decode tool_calls: %w", err)
	}
	calls := make([]ToolCall, 0, len(raw))
	for _, r := range raw {
		calls = append(calls, ToolCall{ID: r.ID, Name: r.Function.Name, Arguments: r.Function.Arguments})
	}
	return calls, nil
}
