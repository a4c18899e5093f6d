package providerruntime

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeAliasSource struct {
	next map[string]string
}

func (f *fakeAliasSource) AlternateAlias(key ProviderKey) (string, bool) {
	alt, ok := f.next[key.KeyAlias]
	return alt, ok
}

func (f *fakeAliasSource) MarkFailure(key ProviderKey, statusCode int) {}

func resp(status int) *Response {
	return &Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(nil))}
}

func TestTryWithRotation_SucceedsOnFirstAttempt(t *testing.T) {
	key := ProviderKey{ProviderID: "p", ModelID: "m", KeyAlias: "a"}
	r, final, err := TryWithRotation(context.Background(), &fakeAliasSource{}, key, 1, RotationOptions{}, func(ctx context.Context, k ProviderKey) (*Response, error) {
		return resp(http.StatusOK), nil
	})
	require.NoError(t, err)
	require.Equal(t, "a", final.KeyAlias)
	require.Equal(t, http.StatusOK, r.StatusCode)
}

func TestTryWithRotation_RotatesOn429ThenSucceeds(t *testing.T) {
	key := ProviderKey{ProviderID: "p", ModelID: "m", KeyAlias: "a"}
	src := &fakeAliasSource{next: map[string]string{"a": "b"}}
	calls := 0
	r, final, err := TryWithRotation(context.Background(), src, key, 2, RotationOptions{}, func(ctx context.Context, k ProviderKey) (*Response, error) {
		calls++
		if k.KeyAlias == "a" {
			return resp(http.StatusTooManyRequests), nil
		}
		return resp(http.StatusOK), nil
	})
	require.NoError(t, err)
	require.Equal(t, "b", final.KeyAlias)
	require.Equal(t, http.StatusOK, r.StatusCode)
	require.Equal(t, 2, calls)
}

func TestTryWithRotation_StopsAtMaxRotations(t *testing.T) {
	key := ProviderKey{ProviderID: "p", ModelID: "m", KeyAlias: "a"}
	src := &fakeAliasSource{next: map[string]string{"a": "b", "b": "a"}}
	calls := 0
	_, _, err := TryWithRotation(context.Background(), src, key, 2, RotationOptions{MaxRotations: 1}, func(ctx context.Context, k ProviderKey) (*Response, error) {
		calls++
		return resp(http.StatusTooManyRequests), nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls) // initial + 1 rotation
}

func TestTryWithRotation_DoesNotRotateOn400(t *testing.T) {
	key := ProviderKey{ProviderID: "p", ModelID: "m", KeyAlias: "a"}
	src := &fakeAliasSource{next: map[string]string{"a": "b"}}
	calls := 0
	_, final, _ := TryWithRotation(context.Background(), src, key, 2, RotationOptions{}, func(ctx context.Context, k ProviderKey) (*Response, error) {
		calls++
		return resp(http.StatusBadRequest), nil
	})
	require.Equal(t, 1, calls)
	require.Equal(t, "a", final.KeyAlias)
}
