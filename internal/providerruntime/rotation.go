package providerruntime

import (
	"context"
	"net/http"
)

// RotationOptions controls in-request key-alias rotation, generalized from
// the teacher's upstream.RotationOptions (credential rotation) to
// routecodex's alias dimension: a ProviderKey's KeyAlias is what rotates,
// ProviderID/ModelID stay fixed.
type RotationOptions struct {
	// MaxRotations caps alternate-alias switches within one request. If
	// <=0, a default of min(2*len(aliases), 8) is used, floor 2 (4 when
	// the alias count passed in is <= 0).
	MaxRotations int
	// RotateOn5xx toggles rotation on 5xx upstream responses, in
	// addition to the always-rotated 401/403/429.
	RotateOn5xx bool
}

// AliasSource supplies the set of alternate key aliases available for a
// ProviderKey, and records a bad outcome so future alias selection (e.g.
// in vrouter) can deprioritize it.
type AliasSource interface {
	AlternateAlias(key ProviderKey) (alias string, ok bool)
	MarkFailure(key ProviderKey, statusCode int)
}

func defaultMaxRotations(n int) int {
	if n <= 0 {
		return 4
	}
	doubled := n * 2
	if doubled > 8 {
		return 8
	}
	if doubled < 2 {
		return 2
	}
	return doubled
}

// TryWithRotation invokes send(key) and, on a retryable status, swaps in an
// alternate key alias (closing the previous response body) up to
// opts.MaxRotations times. It returns the final response (unclosed) and the
// key alias that produced it — mirroring the teacher's TryWithRotation
// contract of "caller closes the returned body".
func TryWithRotation(
	ctx context.Context,
	aliases AliasSource,
	initial ProviderKey,
	availableAliasCount int,
	opts RotationOptions,
	send func(ctx context.Context, key ProviderKey) (*Response, error),
) (*Response, ProviderKey, error) {
	current := initial
	maxRot := opts.MaxRotations
	if maxRot <= 0 {
		maxRot = defaultMaxRotations(availableAliasCount)
	}

	rotations := 0
	for {
		resp, err := send(ctx, current)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}

		if err == nil && resp != nil && status < http.StatusBadRequest {
			return resp, current, nil
		}

		if aliases == nil {
			return resp, current, err
		}

		rotatable := status == http.StatusTooManyRequests ||
			status == http.StatusUnauthorized ||
			status == http.StatusForbidden ||
			(opts.RotateOn5xx && status >= 500 && status <= 599)
		if !rotatable {
			return resp, current, err
		}

		aliases.MarkFailure(current, status)
		alt, ok := aliases.AlternateAlias(current)
		if !ok {
			return resp, current, err
		}

		rotations++
		if rotations > maxRot {
			return resp, current, err
		}
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		current.KeyAlias = alt
	}
}
