package executor

import (
	"github.com/routecodex/routecodex/internal/providerruntime"
	"github.com/routecodex/routecodex/internal/routingconfig"
)

// ConfigLookup implements ProviderLookup against a parsed RoutingConfig,
// indexed once at construction time by provider id.
type ConfigLookup struct {
	byProvider map[string]ProviderProfile
}

// NewConfigLookup builds a ConfigLookup from cfg. All keys sharing a
// ProviderID resolve to the same profile; the pipeline's granularity for
// dialect/auth is per provider, not per model or key alias.
func NewConfigLookup(cfg routingconfig.RoutingConfig) *ConfigLookup {
	byProvider := make(map[string]ProviderProfile, len(cfg.Providers))
	for _, p := range cfg.Providers {
		byProvider[p.ProviderID] = ProviderProfile{
			Dialect:      p.Dialect,
			AuthType:     p.AuthType,
			Auth:         p.Auth,
			MaxRotations: p.MaxRotations,
		}
	}
	return &ConfigLookup{byProvider: byProvider}
}

// Profile resolves key.ProviderID to its ProviderProfile.
func (c *ConfigLookup) Profile(key providerruntime.ProviderKey) (ProviderProfile, bool) {
	profile, ok := c.byProvider[key.ProviderID]
	return profile, ok
}
