package routingconfig

import (
	"time"

	"github.com/routecodex/routecodex/internal/providerruntime"
	"github.com/routecodex/routecodex/internal/vrouter"
)

// RegisterProviders declares every configured provider instance against
// registry, so the first ClientFor call for any of its keys can lazily
// build a Client. Call this once at startup after NewDefaultRegistry.
func RegisterProviders(registry *providerruntime.Registry, cfg RoutingConfig) {
	for _, p := range cfg.Providers {
		registry.RegisterProvider(p.ProviderID, p.Kind, p.Transport)
	}
}

// BuildPools seeds a vrouter.PoolSet with every configured route's
// membership. cfg.DefaultRoute is not consulted here; the Router falls
// back to the pool named vrouter.DefaultRoute ("default").
func BuildPools(cfg RoutingConfig) *vrouter.PoolSet {
	pools := vrouter.NewPoolSet()
	for _, r := range cfg.Routes {
		pools.SetPool(r.Name, r.Members)
	}
	return pools
}

// BuildRouter assembles a ready-to-use vrouter.Router from cfg, wiring the
// default classification rules at cfg's configured long-context threshold
// and an auto-ban Banlist at cfg's configured thresholds.
func BuildRouter(cfg RoutingConfig) *vrouter.Router {
	pools := BuildPools(cfg)
	threshold := cfg.AutoBanThreshold
	if threshold <= 0 {
		threshold = 5
	}
	durationSec := cfg.AutoBanDurationSec
	if durationSec <= 0 {
		durationSec = 120
	}
	bans := vrouter.NewBanlist(threshold, time.Duration(durationSec)*time.Second)
	return vrouter.NewRouter(vrouter.DefaultRules(cfg.LongContextChars), pools, bans)
}
