package providerruntime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_ClientForConstructsOnce(t *testing.T) {
	r := NewRegistry()
	builds := 0
	var mu sync.Mutex
	r.RegisterFactory("mock", func(key ProviderKey, cfg ClientConfig) (Client, error) {
		mu.Lock()
		builds++
		mu.Unlock()
		return &mockClient{key: key, respond: DefaultMockResponder}, nil
	})
	r.RegisterProvider("p1", "mock", ClientConfig{})

	key := ProviderKey{ProviderID: "p1", ModelID: "m1", KeyAlias: "default"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.ClientFor(context.Background(), key)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, builds)
}

func TestRegistry_UnknownProviderErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.ClientFor(context.Background(), ProviderKey{ProviderID: "nope"})
	require.Error(t, err)
}

func TestRegistry_InvalidateForcesRebuild(t *testing.T) {
	r := NewRegistry()
	builds := 0
	r.RegisterFactory("mock", func(key ProviderKey, cfg ClientConfig) (Client, error) {
		builds++
		return &mockClient{key: key, respond: DefaultMockResponder}, nil
	})
	r.RegisterProvider("p1", "mock", ClientConfig{})
	key := ProviderKey{ProviderID: "p1", ModelID: "m1", KeyAlias: "default"}

	_, err := r.ClientFor(context.Background(), key)
	require.NoError(t, err)
	r.Invalidate(key)
	_, err = r.ClientFor(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, 2, builds)
}

func TestNewDefaultRegistry_AllKindsRegistered(t *testing.T) {
	r := NewDefaultRegistry()
	for _, kind := range []string{"openai-standard", "responses", "anthropic-messages", "gemini-chat", "gemini-cli", "antigravity", "iflow", "qwen", "glm", "mock"} {
		r.RegisterProvider(kind, kind, ClientConfig{})
		_, err := r.ClientFor(context.Background(), ProviderKey{ProviderID: kind, ModelID: "m", KeyAlias: "default"})
		require.NoError(t, err, "kind %s", kind)
	}
}
