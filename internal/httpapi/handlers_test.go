package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecodex/routecodex/internal/executor"
	"github.com/routecodex/routecodex/internal/llmswitch"
	"github.com/routecodex/routecodex/internal/oauth"
	"github.com/routecodex/routecodex/internal/providerruntime"
	"github.com/routecodex/routecodex/internal/routingconfig"
	"github.com/routecodex/routecodex/internal/vrouter"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := providerruntime.NewDefaultRegistry()
	registry.RegisterProvider("mockprov", "mock", providerruntime.ClientConfig{})

	pools := vrouter.NewPoolSet()
	pools.SetPool(vrouter.DefaultRoute, []providerruntime.ProviderKey{{ProviderID: "mockprov", ModelID: "gpt-x", KeyAlias: "a"}})
	vr := vrouter.NewRouter(vrouter.DefaultRules(0), pools, vrouter.NewBanlist(3, time.Second))

	lookup := executor.NewConfigLookup(routingconfig.RoutingConfig{
		Providers: []routingconfig.ProviderConfig{{ProviderID: "mockprov", Kind: "mock", Dialect: llmswitch.FormatOpenAIChat}},
	})

	exec := executor.New(executor.Deps{
		Router:    executor.NewVRouterAdapter(vr),
		Registry:  registry,
		Translate: llmswitch.NewTranslate(llmswitch.Default()),
		OAuth:     oauth.NewManager(""),
		Lookup:    lookup,
	})

	api := New(exec, executor.NewConversationStore(), nil)
	r := gin.New()
	root := r.Group("/")
	api.RegisterRoutes(root)
	return r
}

func TestChatCompletions_ReturnsMockResponse(t *testing.T) {
	r := testRouter(t)
	body := `{"model":"gpt-x","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mock-response")
}

func TestSubmitToolOutputs_UnknownIDReturns422(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/responses/missing/submit_tool_outputs", strings.NewReader(`{"tool_outputs":[]}`))
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDebugPipeline_DisabledReturns404(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/debug/pipelines/req-1", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
