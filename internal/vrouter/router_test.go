package vrouter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/routecodex/routecodex/internal/providerruntime"
)

func key(alias string) providerruntime.ProviderKey {
	return providerruntime.ProviderKey{ProviderID: "openai", ModelID: "gpt-x", KeyAlias: alias}
}

func TestRoutePool_RoundRobinNonStarvation(t *testing.T) {
	pool := NewRoutePool("default", []providerruntime.ProviderKey{key("a"), key("b"), key("c")})
	counts := map[string]int{}
	for i := 0; i < 9; i++ {
		pick, err := pool.Next(nil)
		require.NoError(t, err)
		counts[pick.Key.KeyAlias]++
	}
	require.Equal(t, 3, counts["a"])
	require.Equal(t, 3, counts["b"])
	require.Equal(t, 3, counts["c"])
}

func TestRoutePool_SkipsBannedMember(t *testing.T) {
	pool := NewRoutePool("default", []providerruntime.ProviderKey{key("a"), key("b")})
	bans := NewBanlist(1, time.Minute)
	bans.RecordFailure(key("a"), 429)
	require.True(t, bans.IsBanned(key("a")))

	for i := 0; i < 4; i++ {
		pick, err := pool.Next(bans)
		require.NoError(t, err)
		require.Equal(t, "b", pick.Key.KeyAlias)
	}
}

func TestRoutePool_EmptyPoolReturnsErr(t *testing.T) {
	pool := NewRoutePool("default", nil)
	_, err := pool.Next(nil)
	require.ErrorIs(t, err, ErrEmptyPool)
}

func TestRoutePool_AllBannedReturnsErr(t *testing.T) {
	pool := NewRoutePool("default", []providerruntime.ProviderKey{key("a")})
	bans := NewBanlist(1, time.Minute)
	bans.RecordFailure(key("a"), 500)
	_, err := pool.Next(bans)
	require.ErrorIs(t, err, ErrEmptyPool)
}

func TestPoolSet_ReplacingPoolResetsCursor(t *testing.T) {
	set := NewPoolSet()
	set.SetPool("default", []providerruntime.ProviderKey{key("a"), key("b")})
	pool := set.Pool("default")
	_, _ = pool.Next(nil)
	_, _ = pool.Next(nil)
	require.Equal(t, uint64(2), pool.CursorSnapshot())

	set.SetPool("default", []providerruntime.ProviderKey{key("a"), key("b")})
	require.Equal(t, uint64(0), set.Pool("default").CursorSnapshot())
}

func TestRouter_MetadataHintWinsOverClassifier(t *testing.T) {
	set := NewPoolSet()
	set.SetPool("tools", []providerruntime.ProviderKey{key("tools-a")})
	set.SetPool("thinking", []providerruntime.ProviderKey{key("think-a")})
	r := NewRouter(DefaultRules(0), set, nil)

	body := []byte(`{"model":"gpt-4","tools":[{"type":"function"}]}`)
	pick, err := r.Route(body, "thinking")
	require.NoError(t, err)
	require.Equal(t, "think-a", pick.Key.KeyAlias)
}

func TestRouter_ClassifiesByToolsPresence(t *testing.T) {
	set := NewPoolSet()
	set.SetPool("tools", []providerruntime.ProviderKey{key("tools-a")})
	r := NewRouter(DefaultRules(0), set, nil)

	body := []byte(`{"model":"gpt-4","tools":[{"type":"function","function":{"name":"x"}}]}`)
	pick, err := r.Route(body, "")
	require.NoError(t, err)
	require.Equal(t, "tools-a", pick.Key.KeyAlias)
}

func TestRouter_ClassifiesByThinkingModelPrefix(t *testing.T) {
	set := NewPoolSet()
	set.SetPool("thinking", []providerruntime.ProviderKey{key("think-a")})
	r := NewRouter(DefaultRules(0), set, nil)

	decision := r.Classify([]byte(`{"model":"o3-mini"}`), "")
	require.Equal(t, "thinking", decision.RouteName)
}

func TestRouter_ClassifiesByLongContext(t *testing.T) {
	set := NewPoolSet()
	set.SetPool("longcontext", []providerruntime.ProviderKey{key("long-a")})
	r := NewRouter(DefaultRules(10), set, nil)

	bigContent := make([]byte, 20)
	for i := range bigContent {
		bigContent[i] = 'x'
	}
	body := []byte(`{"model":"gpt-4","messages":[{"role":"user","content":"` + string(bigContent) + `"}]}`)
	decision := r.Classify(body, "")
	require.Equal(t, "longcontext", decision.RouteName)
}

func TestRouter_FallsBackToDefaultRoute(t *testing.T) {
	set := NewPoolSet()
	set.SetPool("default", []providerruntime.ProviderKey{key("def-a")})
	r := NewRouter(DefaultRules(0), set, nil)

	pick, err := r.Route([]byte(`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`), "")
	require.NoError(t, err)
	require.Equal(t, "def-a", pick.Key.KeyAlias)
}

func TestRouter_UnconfiguredRouteFallsBackToDefaultPool(t *testing.T) {
	set := NewPoolSet()
	set.SetPool("default", []providerruntime.ProviderKey{key("def-a")})
	r := NewRouter(nil, set, nil)

	pick, err := r.Route([]byte(`{}`), "thinking")
	require.NoError(t, err)
	require.Equal(t, "def-a", pick.Key.KeyAlias)
}

func TestRouter_NoPoolsAtAllReturnsErr(t *testing.T) {
	set := NewPoolSet()
	r := NewRouter(nil, set, nil)
	_, err := r.Route([]byte(`{}`), "")
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestRouter_OnResultBansAfterThreshold(t *testing.T) {
	set := NewPoolSet()
	set.SetPool("default", []providerruntime.ProviderKey{key("a"), key("b")})
	bans := NewBanlist(2, time.Minute)
	r := NewRouter(nil, set, bans)

	r.OnResult(key("a"), 500, false)
	require.False(t, bans.IsBanned(key("a")))
	r.OnResult(key("a"), 500, false)
	require.True(t, bans.IsBanned(key("a")))

	for i := 0; i < 4; i++ {
		pick, err := r.RouteNext("default")
		require.NoError(t, err)
		require.Equal(t, "b", pick.Key.KeyAlias)
	}
}
