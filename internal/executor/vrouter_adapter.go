package executor

import (
	"github.com/routecodex/routecodex/internal/providerruntime"
	"github.com/routecodex/routecodex/internal/vrouter"
)

// vrouterAdapter satisfies the Router interface against the real
// *vrouter.Router. vrouter.Pick carries an extra Index field the Executor
// doesn't need, so this adapter only narrows the return shape; it adds no
// behavior of its own.
type vrouterAdapter struct {
	r *vrouter.Router
}

// NewVRouterAdapter wraps a *vrouter.Router so it satisfies Router.
func NewVRouterAdapter(r *vrouter.Router) Router {
	return vrouterAdapter{r: r}
}

func (a vrouterAdapter) Route(body []byte, hint string) (RoutePick, error) {
	pick, err := a.r.Route(body, hint)
	if err != nil {
		return RoutePick{}, err
	}
	return RoutePick{Key: pick.Key, Route: pick.Route}, nil
}

func (a vrouterAdapter) RouteNext(routeName string) (RoutePick, error) {
	pick, err := a.r.RouteNext(routeName)
	if err != nil {
		return RoutePick{}, err
	}
	return RoutePick{Key: pick.Key, Route: pick.Route}, nil
}

func (a vrouterAdapter) OnResult(key providerruntime.ProviderKey, statusCode int, success bool) {
	a.r.OnResult(key, statusCode, success)
}
