package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/routecodex/routecodex/internal/executor"
	"github.com/routecodex/routecodex/internal/llmswitch"
)

// routeHintHeader is the metadata override spec.md §4.3 names: when set,
// it wins over classification outright.
const routeHintHeader = "X-RouteCodex-Route"

func (a *API) buildInbound(c *gin.Context, dialect llmswitch.Format) (executor.InboundRequest, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "failed to read request body", "type": "invalid_request_error"}})
		return executor.InboundRequest{}, false
	}
	return executor.InboundRequest{
		RequestID: uuid.NewString(),
		Dialect:   dialect,
		Body:      body,
		Stream:    streamRequested(body),
		RouteHint: c.GetHeader(routeHintHeader),
	}, true
}

// ChatCompletions handles POST /v1/chat/completions.
func (a *API) ChatCompletions(c *gin.Context) {
	req, ok := a.buildInbound(c, llmswitch.FormatOpenAIChat)
	if !ok {
		return
	}
	a.execute(c, req)
}

// Messages handles POST /v1/messages (Anthropic dialect).
func (a *API) Messages(c *gin.Context) {
	req, ok := a.buildInbound(c, llmswitch.FormatAnthropic)
	if !ok {
		return
	}
	a.execute(c, req)
}

// Responses handles POST /v1/responses (OpenAI Responses dialect). It does
// not write to the ConversationStore: submit_tool_outputs resumes only
// conversations that have already been Put into that store.
func (a *API) Responses(c *gin.Context) {
	req, ok := a.buildInbound(c, llmswitch.FormatOpenAIResponses)
	if !ok {
		return
	}
	a.execute(c, req)
}

// SubmitToolOutputs handles POST /v1/responses/:id/submit_tool_outputs.
func (a *API) SubmitToolOutputs(c *gin.Context) {
	if a.Conversations == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{"message": "no pending conversation", "type": "invalid_request_error"}})
		return
	}
	var body struct {
		ToolOutputs []struct {
			ToolCallID string `json:"tool_call_id"`
			Output     string `json:"output"`
		} `json:"tool_outputs"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{"message": err.Error(), "type": "invalid_request_error"}})
		return
	}
	outputs := make([]llmswitch.ToolResult, 0, len(body.ToolOutputs))
	for _, o := range body.ToolOutputs {
		outputs = append(outputs, llmswitch.ToolResult{Call: llmswitch.ToolCall{ID: o.ToolCallID}, Output: o.Output})
	}

	result := a.Executor.SubmitToolOutputs(c.Request.Context(), a.Conversations, executor.SubmitToolOutputsRequest{
		RequestID:   uuid.NewString(),
		ResponseID:  c.Param("id"),
		ToolOutputs: outputs,
	})
	a.render(c, result)
}

// GeminiGenerateContent handles POST /v1beta/models/:model:(generateContent|streamGenerateContent).
func (a *API) GeminiGenerateContent(c *gin.Context) {
	req, ok := a.buildInbound(c, llmswitch.FormatGemini)
	if !ok {
		return
	}
	req.Model = c.Param("model")
	a.execute(c, req)
}

// DebugPipeline handles GET /debug/pipelines/:requestId, returning the
// recorded stage snapshots for one request (spec's pipeline replay
// surface). Returns 404 when snapshotting is disabled or the id is
// unknown/evicted from the ring.
func (a *API) DebugPipeline(c *gin.Context) {
	if a.Snapshots == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshotting disabled"})
		return
	}
	records := a.Snapshots.ForRequest(c.Param("requestId"))
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot for request id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requestId": c.Param("requestId"), "stages": records})
}

func (a *API) execute(c *gin.Context, req executor.InboundRequest) {
	result := a.Executor.Execute(c.Request.Context(), req)
	a.render(c, result)
}

func (a *API) render(c *gin.Context, result executor.ExecutionResult) {
	if result.IsStream {
		a.renderStream(c, result)
		return
	}
	c.Data(result.StatusCode, "application/json", result.Body)
}

func (a *API) renderStream(c *gin.Context, result executor.ExecutionResult) {
	w, flusher := prepareSSE(c)
	buf := make([]byte, 4096)
	for {
		n, err := result.Stream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

func streamRequested(body []byte) bool {
	return gjson.GetBytes(body, "stream").Bool()
}
