// Package httpapi exposes the request pipeline over HTTP: one gin route
// per inbound dialect, each doing only enough parsing to build an
// executor.InboundRequest before handing off to the Executor, and enough
// rendering after to either stream or write the ExecutionResult back.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routecodex/routecodex/internal/executor"
	"github.com/routecodex/routecodex/internal/snapshot"
)

// API bundles the Executor and the conversation store the submit_tool_outputs
// route needs to resume a prior Responses turn.
type API struct {
	Executor      *executor.Executor
	Conversations *executor.ConversationStore
	Snapshots     *snapshot.RingRecorder
	managementKey func(string) bool
}

// New builds an API. conversations/snapshots may be nil; a nil
// ConversationStore makes the submit_tool_outputs route always 422
// ("no pending conversation"), and a nil RingRecorder disables /debug/pipelines.
func New(exec *executor.Executor, conversations *executor.ConversationStore, snapshots *snapshot.RingRecorder) *API {
	return &API{Executor: exec, Conversations: conversations, Snapshots: snapshots}
}

// WithManagementKey gates the /debug group behind the given validator (see
// config.ManagementKeyValidator). A nil validator leaves /debug open, which
// is the default for local/trusted deployments per spec.md §1.
func (a *API) WithManagementKey(validator func(string) bool) *API {
	a.managementKey = validator
	return a
}

// RegisterRoutes mounts every endpoint spec.md's external interface names
// under root, matching the teacher's one-group-per-dialect layout in
// routes_openai.go/routes_gemini.go.
func (a *API) RegisterRoutes(root *gin.RouterGroup) {
	v1 := root.Group("/v1")
	v1.POST("/chat/completions", a.ChatCompletions)
	v1.POST("/messages", a.Messages)
	v1.POST("/responses", a.Responses)
	v1.POST("/responses/:id/submit_tool_outputs", a.SubmitToolOutputs)

	gem := root.Group("/v1beta")
	gem.POST("/models/:model", a.GeminiGenerateContent)

	ops := root.Group("/debug")
	if a.managementKey != nil {
		ops.Use(a.requireManagementKey)
	}
	ops.GET("/pipelines/:requestId", a.DebugPipeline)
	ops.GET("/logs/ws", a.TailLogs)
}

func (a *API) requireManagementKey(c *gin.Context) {
	if a.managementKey(c.GetHeader("X-Management-Key")) {
		c.Next()
		return
	}
	c.AbortWithStatus(http.StatusUnauthorized)
}
