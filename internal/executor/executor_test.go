package executor

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecodex/routecodex/internal/llmswitch"
	"github.com/routecodex/routecodex/internal/oauth"
	"github.com/routecodex/routecodex/internal/providerruntime"
	"github.com/routecodex/routecodex/internal/routingconfig"
	"github.com/routecodex/routecodex/internal/vrouter"
)

func testKey(alias string) providerruntime.ProviderKey {
	return providerruntime.ProviderKey{ProviderID: "mockprov", ModelID: "gpt-x", KeyAlias: alias}
}

// newTestExecutor wires a real Registry (mock client kind), a real
// vrouter.Router over a single-member pool, a passthrough Translate (same
// dialect both ends, so no translator registration is needed), and a real
// but unused oauth.Manager (AuthType is left empty in every test profile,
// so EnsureValidOAuthToken is never invoked).
func newTestExecutor(t *testing.T, members []providerruntime.ProviderKey, profile ProviderProfile) (*Executor, *vrouter.Banlist) {
	t.Helper()
	registry := providerruntime.NewDefaultRegistry()
	registry.RegisterProvider("mockprov", "mock", providerruntime.ClientConfig{})

	pools := vrouter.NewPoolSet()
	pools.SetPool(vrouter.DefaultRoute, members)
	bans := vrouter.NewBanlist(3, 50*time.Millisecond)
	router := vrouter.NewRouter(vrouter.DefaultRules(0), pools, bans)

	lookup := NewConfigLookup(routingconfig.RoutingConfig{
		Providers: []routingconfig.ProviderConfig{
			{ProviderID: "mockprov", Kind: "mock", Dialect: profile.Dialect, AuthType: profile.AuthType, MaxRotations: profile.MaxRotations},
		},
	})

	exec := New(Deps{
		Router:    NewVRouterAdapter(router),
		Registry:  registry,
		Translate: llmswitch.NewTranslate(llmswitch.Default()),
		OAuth:     oauth.NewManager(""),
		Lookup:    lookup,
		MaxWait:   2 * time.Second,
	})
	return exec, bans
}

func TestExecute_SuccessPassthrough(t *testing.T) {
	exec, _ := newTestExecutor(t, []providerruntime.ProviderKey{testKey("a")}, ProviderProfile{Dialect: llmswitch.FormatOpenAIChat})

	result := exec.Execute(context.Background(), InboundRequest{
		RequestID: "req-1",
		Dialect:   llmswitch.FormatOpenAIChat,
		Model:     "gpt-x",
		Body:      []byte(`{"model":"gpt-x","messages":[{"role":"user","content":"hi"}]}`),
	})

	require.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, string(result.Body), "mock-response")
}

func TestExecute_NoTargetWhenNoPoolsConfigured(t *testing.T) {
	exec, _ := newTestExecutor(t, nil, ProviderProfile{Dialect: llmswitch.FormatOpenAIChat})

	result := exec.Execute(context.Background(), InboundRequest{
		RequestID: "req-2",
		Dialect:   llmswitch.FormatOpenAIChat,
		Model:     "gpt-x",
		Body:      []byte(`{}`),
	})

	assert.Equal(t, http.StatusServiceUnavailable, result.StatusCode)
}

func TestExecute_RoutesByRouteHint(t *testing.T) {
	registry := providerruntime.NewDefaultRegistry()
	registry.RegisterProvider("mockprov", "mock", providerruntime.ClientConfig{})

	pools := vrouter.NewPoolSet()
	pools.SetPool(vrouter.DefaultRoute, []providerruntime.ProviderKey{testKey("default-member")})
	pools.SetPool("tools", []providerruntime.ProviderKey{testKey("tools-member")})
	bans := vrouter.NewBanlist(3, time.Second)
	router := vrouter.NewRouter(vrouter.DefaultRules(0), pools, bans)

	lookup := NewConfigLookup(routingconfig.RoutingConfig{
		Providers: []routingconfig.ProviderConfig{{ProviderID: "mockprov", Kind: "mock", Dialect: llmswitch.FormatOpenAIChat}},
	})
	exec := New(Deps{
		Router:    NewVRouterAdapter(router),
		Registry:  registry,
		Translate: llmswitch.NewTranslate(llmswitch.Default()),
		OAuth:     oauth.NewManager(""),
		Lookup:    lookup,
	})

	result := exec.Execute(context.Background(), InboundRequest{
		RequestID: "req-3",
		Dialect:   llmswitch.FormatOpenAIChat,
		Model:     "gpt-x",
		Body:      []byte(`{}`),
		RouteHint: "tools",
	})

	require.Equal(t, http.StatusOK, result.StatusCode)
}

func TestMaxRotationsForProviderType_AntigravityOverride(t *testing.T) {
	assert.Equal(t, 6, MaxRotationsForProviderType("antigravity"))
	assert.Equal(t, defaultMaxRotations, MaxRotationsForProviderType("mockprov"))
}

func TestSubmitToolOutputs_MissingResponseIDIs422(t *testing.T) {
	exec, _ := newTestExecutor(t, []providerruntime.ProviderKey{testKey("a")}, ProviderProfile{Dialect: llmswitch.FormatOpenAIChat})
	store := NewConversationStore()

	result := exec.SubmitToolOutputs(context.Background(), store, SubmitToolOutputsRequest{RequestID: "req-4"})

	assert.Equal(t, http.StatusUnprocessableEntity, result.StatusCode)
}

func TestSubmitToolOutputs_UnknownResponseIDIs422(t *testing.T) {
	exec, _ := newTestExecutor(t, []providerruntime.ProviderKey{testKey("a")}, ProviderProfile{Dialect: llmswitch.FormatOpenAIChat})
	store := NewConversationStore()

	result := exec.SubmitToolOutputs(context.Background(), store, SubmitToolOutputsRequest{RequestID: "req-5", ResponseID: "missing"})

	assert.Equal(t, http.StatusUnprocessableEntity, result.StatusCode)
}

func TestSubmitToolOutputs_MergesAndResumes(t *testing.T) {
	exec, _ := newTestExecutor(t, []providerruntime.ProviderKey{testKey("a")}, ProviderProfile{Dialect: llmswitch.FormatOpenAIResponses})
	store := NewConversationStore()
	store.Put(ConversationState{
		ResponseID:   "resp-1",
		Model:        "gpt-x",
		RouteName:    vrouter.DefaultRoute,
		OriginalBody: []byte(`{"model":"gpt-x","input":[{"role":"user","content":"hi"}]}`),
	})

	result := exec.SubmitToolOutputs(context.Background(), store, SubmitToolOutputsRequest{
		RequestID:  "req-6",
		ResponseID: "resp-1",
		ToolOutputs: []llmswitch.ToolResult{
			{Call: llmswitch.ToolCall{ID: "call-1", Name: "lookup"}, Output: `{"ok":true}`},
		},
	})

	require.Equal(t, http.StatusOK, result.StatusCode)

	_, stillThere := store.Take("resp-1")
	assert.False(t, stillThere, "Take should have consumed the state already")
}
