package providerruntime

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// providerEntry is what the registry knows about one configured provider
// instance, independent of any specific model/credential it will later be
// asked to serve.
type providerEntry struct {
	kind string
	cfg  ClientConfig
}

// Registry lazily constructs and caches one Client per ProviderKey. A
// provider instance ("openai-primary") is registered once with its kind
// ("openai-standard") and connection config; a Client is only built the
// first time a specific (model, key alias) combination is actually
// requested, mirroring the teacher's Provider.clientFor cache-on-first-use
// pattern generalized from one credential dimension to three.
type Registry struct {
	factoriesMu sync.RWMutex
	factories   map[string]Factory

	providersMu sync.RWMutex
	providers   map[string]providerEntry

	clientsMu  sync.Mutex
	clients    map[ProviderKey]Client
	keyLocks   map[ProviderKey]*sync.Mutex
}

// NewRegistry constructs an empty Registry; call RegisterFactory and
// RegisterProvider before the first ClientFor call.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		providers: make(map[string]providerEntry),
		clients:   make(map[ProviderKey]Client),
		keyLocks:  make(map[ProviderKey]*sync.Mutex),
	}
}

// RegisterFactory binds a provider kind (e.g. "openai-standard",
// "anthropic-messages", "gemini-cli") to the Factory that constructs its
// Client implementation.
func (r *Registry) RegisterFactory(kind string, f Factory) {
	r.factoriesMu.Lock()
	defer r.factoriesMu.Unlock()
	r.factories[kind] = f
}

// RegisterProvider declares one configured provider instance: its kind
// (which factory builds it) and connection tunables.
func (r *Registry) RegisterProvider(providerID, kind string, cfg ClientConfig) {
	r.providersMu.Lock()
	defer r.providersMu.Unlock()
	r.providers[providerID] = providerEntry{kind: kind, cfg: cfg}
}

func (r *Registry) lockFor(key ProviderKey) *sync.Mutex {
	r.clientsMu.Lock()
	defer r.clientsMu.Unlock()
	if l, ok := r.keyLocks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.keyLocks[key] = l
	return l
}

// ClientFor returns the Client for key, constructing it on first use. Two
// concurrent callers for the same key never construct two clients: the
// first blocks on a per-key mutex, not the whole registry, so unrelated
// keys build in parallel.
func (r *Registry) ClientFor(ctx context.Context, key ProviderKey) (Client, error) {
	r.clientsMu.Lock()
	if c, ok := r.clients[key]; ok {
		r.clientsMu.Unlock()
		return c, nil
	}
	r.clientsMu.Unlock()

	lock := r.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	r.clientsMu.Lock()
	if c, ok := r.clients[key]; ok {
		r.clientsMu.Unlock()
		return c, nil
	}
	r.clientsMu.Unlock()

	r.providersMu.RLock()
	entry, ok := r.providers[key.ProviderID]
	r.providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("providerruntime: unknown provider %q", key.ProviderID)
	}

	r.factoriesMu.RLock()
	factory, ok := r.factories[entry.kind]
	r.factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("providerruntime: no factory registered for kind %q", entry.kind)
	}

	client, err := factory(key, entry.cfg)
	if err != nil {
		return nil, fmt.Errorf("providerruntime: build client for %+v: %w", key, err)
	}
	if err := client.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("providerruntime: initialize client for %+v: %w", key, err)
	}

	r.clientsMu.Lock()
	r.clients[key] = client
	r.clientsMu.Unlock()
	return client, nil
}

// Invalidate evicts and cleans up the cached Client for key, forcing a
// rebuild on next use (e.g. after a credential rotation or repair).
func (r *Registry) Invalidate(key ProviderKey) {
	r.clientsMu.Lock()
	client, ok := r.clients[key]
	if ok {
		delete(r.clients, key)
	}
	delete(r.keyLocks, key)
	r.clientsMu.Unlock()
	if ok {
		client.Cleanup()
	}
}

// CleanupAll tears down every cached client, e.g. on server shutdown.
func (r *Registry) CleanupAll() {
	r.clientsMu.Lock()
	clients := make([]Client, 0, len(r.clients))
	for k, c := range r.clients {
		clients = append(clients, c)
		delete(r.clients, k)
	}
	r.clientsMu.Unlock()
	for _, c := range clients {
		c.Cleanup()
	}
	log.Debug("providerruntime: all cached clients cleaned up")
}
