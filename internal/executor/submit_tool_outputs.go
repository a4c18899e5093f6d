package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/routecodex/routecodex/internal/apierrors"
	"github.com/routecodex/routecodex/internal/llmswitch"
)

// ConversationState is the opaque blob a translator hands back describing
// an in-flight Responses conversation, keyed by response_id so a later
// submit_tool_outputs call can resume it.
type ConversationState struct {
	ResponseID  string
	Model       string
	RouteName   string
	OriginalBody []byte
	PendingCalls []llmswitch.ToolCall
}

// ConversationStore keeps ConversationState in memory keyed by
// response_id. It is deliberately not persisted across restarts: a
// Responses conversation awaiting tool outputs is expected to complete
// within one process lifetime.
type ConversationStore struct {
	mu    sync.Mutex
	byID  map[string]ConversationState
}

// NewConversationStore builds an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{byID: make(map[string]ConversationState)}
}

// Put records state for a response id, overwriting any prior entry.
func (s *ConversationStore) Put(state ConversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[state.ResponseID] = state
}

// Take removes and returns the state for a response id.
func (s *ConversationStore) Take(responseID string) (ConversationState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.byID[responseID]
	if ok {
		delete(s.byID, responseID)
	}
	return state, ok
}

// SubmitToolOutputsRequest is the parsed body of
// POST /v1/responses/:id/submit_tool_outputs.
type SubmitToolOutputsRequest struct {
	ResponseID   string
	ToolOutputs  []llmswitch.ToolResult
	RequestID    string
}

// SubmitToolOutputs resumes a prior Responses conversation: it merges the
// submitted tool outputs into the stored conversation, then executes a
// second upstream turn through the same pipeline Execute uses. Per spec
// §4.6, a client-origin error (missing response_id, unknown response_id)
// returns 422 without retry — this path never rotates aliases.
func (e *Executor) SubmitToolOutputs(ctx context.Context, store *ConversationStore, req SubmitToolOutputsRequest) ExecutionResult {
	if req.ResponseID == "" {
		return e.clientError(req.RequestID, "missing response_id")
	}
	state, ok := store.Take(req.ResponseID)
	if !ok {
		return e.clientError(req.RequestID, "unknown response_id")
	}

	toolMessages := llmswitch.AppendToolResultsAsMessages(req.ToolOutputs)
	merged, err := mergeToolMessages(state.OriginalBody, toolMessages)
	if err != nil {
		return e.clientError(req.RequestID, "failed to merge tool outputs: "+err.Error())
	}

	return e.Execute(ctx, InboundRequest{
		RequestID: req.RequestID,
		Dialect:   llmswitch.FormatOpenAIResponses,
		Model:     state.Model,
		Body:      merged,
		Stream:    true,
		RouteHint: state.RouteName,
	})
}

func (e *Executor) clientError(requestID, message string) ExecutionResult {
	apiErr := apierrors.New(http.StatusUnprocessableEntity, "invalid_submit_tool_outputs", "invalid_request_error", message).
		WithOrigin(apierrors.OriginClient)
	body, _ := apiErr.ToJSON(apierrors.FormatOpenAI)
	e.snap(requestID, "http-response", map[string]interface{}{"status": http.StatusUnprocessableEntity, "error": apiErr.Code})
	return ExecutionResult{StatusCode: http.StatusUnprocessableEntity, Body: body}
}

func mergeToolMessages(originalBody []byte, toolMessages []map[string]interface{}) ([]byte, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal(originalBody, &parsed); err != nil {
		return nil, err
	}
	input, _ := parsed["input"].([]interface{})
	for _, m := range toolMessages {
		input = append(input, m)
	}
	parsed["input"] = input
	return json.Marshal(parsed)
}
