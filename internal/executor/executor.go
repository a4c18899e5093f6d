package executor

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/routecodex/routecodex/internal/apierrors"
	"github.com/routecodex/routecodex/internal/llmswitch"
	"github.com/routecodex/routecodex/internal/metrics"
	"github.com/routecodex/routecodex/internal/oauth"
	"github.com/routecodex/routecodex/internal/providerruntime"
	"github.com/routecodex/routecodex/internal/snapshot"
	"github.com/tidwall/gjson"
)

// State names one point in the per-attempt state machine (spec's
// Classifying -> ResolvingHandle -> EnsuringAuth -> Translating -> Sending
// -> Receiving -> Converting -> Emitting).
type State string

const (
	StateClassifying     State = "classifying"
	StateResolvingHandle  State = "resolving_handle"
	StateEnsuringAuth    State = "ensuring_auth"
	StateTranslating     State = "translating"
	StateSending         State = "sending"
	StateReceiving       State = "receiving"
	StateConverting      State = "converting"
	StateEmitting        State = "emitting"
)

const defaultMaxRotations = 3

// Executor runs InboundRequests to completion against the collaborators in
// Deps. It holds no per-request state itself; every execute() call is
// independent.
type Executor struct {
	deps Deps
}

// New builds an Executor. MaxWait defaults to 300s (spec's
// ROUTECODEX_PIPELINE_MAX_WAIT_MS ceiling) if unset.
func New(deps Deps) *Executor {
	if deps.MaxWait <= 0 {
		deps.MaxWait = 300 * time.Second
	}
	if deps.Snapshots == nil {
		deps.Snapshots = snapshot.NoopRecorder{}
	}
	return &Executor{deps: deps}
}

// Execute runs one inbound request end-to-end, including alias-rotation
// retries, and returns exactly the result the HTTP adapter should render.
func (e *Executor) Execute(ctx context.Context, req InboundRequest) ExecutionResult {
	ctx, cancel := context.WithTimeout(ctx, e.deps.MaxWait)
	defer cancel()

	start := time.Now()
	e.snap(req.RequestID, "http-request", map[string]interface{}{"model": req.Model, "stream": req.Stream})

	pick, err := e.deps.Router.Route(req.Body, req.RouteHint)
	if err != nil {
		return e.fail(req, http.StatusServiceUnavailable, apierrors.New(http.StatusServiceUnavailable, "no_target", "server_error", "route pool exhausted").WithOrigin(apierrors.OriginInternal))
	}
	e.snap(req.RequestID, "routing-selected", map[string]interface{}{"route": pick.Route, "key": pick.Key})

	result := e.executeOnRoute(ctx, req, pick)
	metrics.ExecuteDuration.WithLabelValues(pick.Route, strconv.Itoa(result.StatusCode)).Observe(time.Since(start).Seconds())
	return result
}

func (e *Executor) executeOnRoute(ctx context.Context, req InboundRequest, pick RoutePick) ExecutionResult {

	maxRotations := MaxRotationsForProviderType(pick.Key.ProviderID)
	if profile, ok := e.deps.Lookup.Profile(pick.Key); ok && profile.MaxRotations > 0 {
		maxRotations = profile.MaxRotations
	}

	var lastAPIErr *apierrors.APIError
	rotations := 0
	current := pick
	for {
		result, apiErr := e.attempt(ctx, req, current)
		if apiErr == nil {
			e.deps.Router.OnResult(current.Key, result.StatusCode, true)
			e.snap(req.RequestID, "http-response", map[string]interface{}{"status": result.StatusCode})
			return result
		}

		lastAPIErr = apiErr
		e.deps.Router.OnResult(current.Key, apiErr.HTTPStatus, false)
		e.snap(req.RequestID, "provider-error", map[string]interface{}{
			"status": apiErr.HTTPStatus, "kind": apiErr.Kind, "rotation": rotations,
		})

		if apiErr.Kind == apierrors.KindForbiddenVerification {
			// Background repair only; this request fails now, no retry.
			if profile, ok := e.deps.Lookup.Profile(current.Key); ok && profile.AuthType != "" {
				go e.deps.OAuth.HandleUpstreamInvalidOAuthToken(context.Background(), profile.AuthType, profile.Auth, apiErr.HTTPStatus, apiErr.UpstreamCode, apiErr.Message, false)
			}
			break
		}
		if !apiErr.IsRetryable() {
			break
		}
		if rotations >= maxRotations {
			break
		}

		if apiErr.Kind == apierrors.KindUnauthorized {
			if profile, ok := e.deps.Lookup.Profile(current.Key); ok && profile.AuthType != "" {
				_ = e.deps.OAuth.HandleUpstreamInvalidOAuthToken(ctx, profile.AuthType, profile.Auth, apiErr.HTTPStatus, apiErr.UpstreamCode, apiErr.Message, false)
			}
		}

		metrics.ExecutorRetries.WithLabelValues(current.Key.ProviderID, strconv.Itoa(apiErr.HTTPStatus)).Inc()
		backoff(rotations)
		rotations++
		next, rerr := e.deps.Router.RouteNext(current.Route)
		if rerr != nil {
			break
		}
		current = next
	}

	status := http.StatusInternalServerError
	if lastAPIErr != nil {
		status = lastAPIErr.HTTPStatus
	} else {
		lastAPIErr = apierrors.New(status, "unknown_error", "server_error", "request failed")
	}
	return e.fail(req, status, lastAPIErr)
}

// attempt runs one pipeline pass (resolve -> auth -> translate -> send ->
// convert) against one ProviderKey, with no retry logic of its own.
func (e *Executor) attempt(ctx context.Context, req InboundRequest, pick RoutePick) (ExecutionResult, *apierrors.APIError) {
	e.snap(req.RequestID, string(StateResolvingHandle), map[string]interface{}{"key": pick.Key})
	profile, ok := e.deps.Lookup.Profile(pick.Key)
	if !ok {
		return ExecutionResult{}, apierrors.New(http.StatusServiceUnavailable, "no_target", "server_error", "no runtime configured for picked key").WithOrigin(apierrors.OriginInternal)
	}

	client, cerr := e.deps.Registry.ClientFor(ctx, pick.Key)
	if cerr != nil {
		return ExecutionResult{}, apierrors.New(http.StatusServiceUnavailable, "no_target", "server_error", cerr.Error()).WithOrigin(apierrors.OriginInternal)
	}

	e.snap(req.RequestID, string(StateEnsuringAuth), nil)
	if profile.AuthType != "" {
		if err := e.deps.OAuth.EnsureValidOAuthToken(ctx, profile.AuthType, profile.Auth, oauth.Options{OpenBrowser: false}); err != nil {
			return ExecutionResult{}, classifyOAuthErr(err)
		}
	}

	e.snap(req.RequestID, string(StateTranslating), nil)
	upstreamBody, terr := e.deps.Translate.Request(req.Model, req.Body, req.Stream, req.Dialect, profile.Dialect)
	if terr != nil {
		return ExecutionResult{}, apierrors.New(http.StatusInternalServerError, "internal_conversion", "server_error", terr.Error()).
			WithKind(apierrors.KindInternalConversion).WithOrigin(apierrors.OriginInternal)
	}

	e.snap(req.RequestID, string(StateSending), map[string]interface{}{"provider": pick.Key.ProviderID})
	resp, serr := client.SendRequest(ctx, providerruntime.Request{
		Ctx: ctx, Method: http.MethodPost, Body: upstreamBody, Stream: req.Stream,
	})
	if serr != nil {
		return ExecutionResult{}, apierrors.MapNetworkError(serr)
	}
	defer func() {
		if resp.Body != nil && !req.Stream {
			resp.Body.Close()
		}
	}()

	e.snap(req.RequestID, string(StateReceiving), map[string]interface{}{"status": resp.StatusCode})
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := apierrors.MapHTTPError(resp.StatusCode, body)
		if resp.StatusCode == http.StatusUnauthorized {
			apiErr = apiErr.WithKind(apierrors.KindUnauthorized).WithRetryable(true)
		}
		return ExecutionResult{}, apiErr
	}

	e.snap(req.RequestID, string(StateConverting), nil)
	result := ExecutionResult{
		StatusCode:          resp.StatusCode,
		RouteName:           pick.Route,
		ProviderKey:         pick.Key,
		OriginalRequestBody: req.Body,
	}
	if req.Stream {
		stream, cerr := e.deps.Translate.Stream(ctx, req.Model, resp.Body, profile.Dialect, req.Dialect)
		if cerr != nil {
			return ExecutionResult{}, apierrors.New(http.StatusInternalServerError, "internal_conversion", "server_error", cerr.Error()).
				WithKind(apierrors.KindInternalConversion).WithOrigin(apierrors.OriginInternal)
		}
		result.IsStream = true
		result.Stream = stream
		return result, nil
	}

	upstreamJSON, rerr := io.ReadAll(resp.Body)
	if rerr != nil {
		return ExecutionResult{}, apierrors.MapNetworkError(rerr)
	}
	if profile.Dialect == llmswitch.FormatOpenAIResponses {
		// The Responses client always streams upstream; keep the final
		// response object carried by the response.completed event.
		for _, line := range bytes.Split(upstreamJSON, []byte("\n")) {
			payload := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data: ")))
			if gjson.GetBytes(payload, "type").String() == "response.completed" {
				upstreamJSON = []byte(gjson.GetBytes(payload, "response").Raw)
			}
		}
	}
	outBody, cerr := e.deps.Translate.Response(ctx, req.Model, upstreamJSON, profile.Dialect, req.Dialect)
	if cerr != nil {
		return ExecutionResult{}, apierrors.New(http.StatusInternalServerError, "internal_conversion", "server_error", cerr.Error()).
			WithKind(apierrors.KindInternalConversion).WithOrigin(apierrors.OriginInternal)
	}
	result.Body = outBody
	e.snap(req.RequestID, string(StateEmitting), nil)
	return result, nil
}

func classifyOAuthErr(err error) *apierrors.APIError {
	switch {
	case isErr(err, oauth.ErrAccountVerificationRequired):
		return apierrors.New(http.StatusForbidden, "account_verification_required", "permission_error", err.Error()).
			WithKind(apierrors.KindForbiddenVerification)
	case isErr(err, oauth.ErrInteractiveRequired), isErr(err, oauth.ErrRefreshFailed):
		return apierrors.New(http.StatusUnauthorized, "invalid_api_key", "authentication_error", err.Error()).
			WithKind(apierrors.KindUnauthorized).WithRetryable(true)
	default:
		return apierrors.New(http.StatusUnauthorized, "invalid_api_key", "authentication_error", err.Error()).
			WithKind(apierrors.KindUnauthorized).WithRetryable(true)
	}
}

func isErr(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func (e *Executor) fail(req InboundRequest, status int, apiErr *apierrors.APIError) ExecutionResult {
	body, _ := apiErr.ToJSON(dialectErrorFormat(req.Dialect))
	e.snap(req.RequestID, "http-response", map[string]interface{}{"status": status, "error": apiErr.Code})
	return ExecutionResult{StatusCode: status, Body: body, OriginalRequestBody: req.Body}
}

func (e *Executor) snap(requestID, stage string, data map[string]interface{}) {
	e.deps.Snapshots.Record(requestID, stage, data)
}

// backoff sleeps an exponential-with-jitter delay before the (n+1)th retry,
// matching the teacher's rotation loop's lack of any delay (the teacher
// rotates immediately) generalized to add the jitter spec.md §7 requires
// for a provider-facing retry loop rather than an in-process credential
// swap.
func backoff(attempt int) {
	base := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
	if base > 2*time.Second {
		base = 2 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) + 1))
	time.Sleep(base/2 + jitter)
}

func dialectErrorFormat(d llmswitch.Format) apierrors.DialectFormat {
	switch d {
	case llmswitch.FormatAnthropic:
		return apierrors.FormatAnthropic
	case llmswitch.FormatGemini:
		return apierrors.FormatGemini
	default:
		return apierrors.FormatOpenAI
	}
}
