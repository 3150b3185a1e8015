package license

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"entitlement-controlplane/pkg/config"
	"entitlement-controlplane/pkg/errutil"
	"entitlement-controlplane/pkg/telemetry"
)

type recordedRequest struct {
	Method string
	Path   string
	APIKey string
	Body   string
}

type authorityServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (s *authorityServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.EscapedPath(),
		APIKey: r.Header.Get("X-API-KEY"),
		Body:   string(body),
	})
	s.mu.Unlock()

	w.WriteHeader(s.status)
	_, _ = io.WriteString(w, s.body)
}

type mockEmitter struct {
	events []telemetry.Event
	err    error
}

func (m *mockEmitter) Track(_ context.Context, e telemetry.Event) error {
	m.events = append(m.events, e)
	return m.err
}

func newAuthority(t *testing.T, status int, body string, emitter telemetry.Emitter) (*HTTPAuthority, *authorityServer) {
	t.Helper()

	srv := &authorityServer{status: status, body: body}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := &config.Config{}
	cfg.License.Authority.BaseURL = ts.URL + "/license-keys/"
	cfg.License.Authority.ApiKey = "secret"

	return NewHTTPAuthority(AuthorityParams{Config: cfg, Telemetry: emitter}), srv
}

func TestGetKeyDecodesRecord(t *testing.T) {
	a, srv := newAuthority(t, http.StatusOK, `{"id":"lk_1","key":"a b","isTrial":true,"embeddingEnabled":true}`, nil)

	key, err := a.GetKey(context.Background(), "a b")
	require.NoError(t, err)
	require.Equal(t, "lk_1", key.ID)
	require.True(t, key.IsTrial)
	require.True(t, *key.EmbeddingEnabled)

	require.Len(t, srv.requests, 1)
	require.Equal(t, http.MethodGet, srv.requests[0].Method)
	require.Equal(t, "/license-keys/a%20b", srv.requests[0].Path)
	require.Equal(t, "secret", srv.requests[0].APIKey)
}

func TestGetKeyNotFoundIsNil(t *testing.T) {
	a, _ := newAuthority(t, http.StatusNotFound, `{"message":"not found"}`, nil)

	key, err := a.GetKey(context.Background(), "abc")
	require.NoError(t, err)
	require.Nil(t, key)
}

func TestGetKeyEmptyKeySkipsNetwork(t *testing.T) {
	a, srv := newAuthority(t, http.StatusOK, `{}`, nil)

	key, err := a.GetKey(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, key)
	require.Empty(t, srv.requests)
}

func TestGetKeyUnexpectedStatus(t *testing.T) {
	a, _ := newAuthority(t, http.StatusInternalServerError, `upstream exploded`, nil)

	_, err := a.GetKey(context.Background(), "abc")

	var uerr *UnexpectedAuthorityError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, http.StatusInternalServerError, uerr.StatusCode)
	require.Equal(t, "upstream exploded", uerr.Body)
	require.Equal(t, errutil.StatusBadGateway, errutil.StatusOf(err))
}

func TestGetKeyMalformedBody(t *testing.T) {
	a, _ := newAuthority(t, http.StatusOK, `<html>`, nil)

	_, err := a.GetKey(context.Background(), "abc")

	var uerr *UnexpectedAuthorityError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, http.StatusOK, uerr.StatusCode)
	require.Equal(t, "<html>", uerr.Body)
	require.Error(t, uerr.Unwrap())
	require.Equal(t, errutil.StatusBadGateway, errutil.StatusOf(err))
}

func TestUnreachableAuthority(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	cfg := &config.Config{}
	cfg.License.Authority.BaseURL = ts.URL + "/license-keys"
	a := NewHTTPAuthority(AuthorityParams{Config: cfg})
	ctx := context.Background()

	for name, call := range map[string]func() error{
		"get key": func() error {
			_, err := a.GetKey(ctx, "abc")
			return err
		},
		"request trial": func() error {
			return a.RequestTrial(ctx, TrialRequest{Email: "e@x.com"})
		},
		"mark as activated": func() error {
			return a.MarkAsActivated(ctx, "abc", "p1")
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := call()

			var uerr *UnexpectedAuthorityError
			require.True(t, errors.As(err, &uerr))
			require.Equal(t, name, uerr.Operation)
			require.Zero(t, uerr.StatusCode)
			require.NotNil(t, uerr.Err)
			require.Equal(t, errutil.StatusBadGateway, errutil.StatusOf(err))
		})
	}
}

func TestRequestTrialConflict(t *testing.T) {
	a, srv := newAuthority(t, http.StatusConflict, `{}`, nil)

	err := a.RequestTrial(context.Background(), TrialRequest{Email: "owner@example.com"})
	require.ErrorIs(t, err, ErrDuplicateActivation)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusConflict, be.Code)
	require.Equal(t, ReasonActivationKeyExists, be.Reason)
	require.Equal(t, "owner@example.com", be.Params["email"])

	require.Len(t, srv.requests, 1)
	require.Equal(t, http.MethodPost, srv.requests[0].Method)
	require.Equal(t, "/license-keys", srv.requests[0].Path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(srv.requests[0].Body), &sent))
	require.Equal(t, "owner@example.com", sent["email"])
}

func TestRequestTrialRejectsInvalidEmail(t *testing.T) {
	a, srv := newAuthority(t, http.StatusOK, `{}`, nil)

	err := a.RequestTrial(context.Background(), TrialRequest{Email: "not-an-email"})
	require.Equal(t, errutil.StatusValidationFailed, errutil.StatusOf(err))
	require.Empty(t, srv.requests)
}

func TestRequestTrialUnexpectedStatus(t *testing.T) {
	a, _ := newAuthority(t, http.StatusBadRequest, `bad`, nil)

	err := a.RequestTrial(context.Background(), TrialRequest{Email: "owner@example.com"})
	var uerr *UnexpectedAuthorityError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, "request trial", uerr.Operation)
}

func TestMarkAsActivatedBenignStatuses(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusConflict} {
		emitter := &mockEmitter{}
		a, srv := newAuthority(t, status, `{}`, emitter)

		require.NoError(t, a.MarkAsActivated(context.Background(), "abc", "p1"))
		require.Equal(t, "/license-keys/activate", srv.requests[0].Path)
		require.Empty(t, emitter.events)
	}
}

func TestMarkAsActivatedTracksActivation(t *testing.T) {
	emitter := &mockEmitter{}
	a, srv := newAuthority(t, http.StatusOK, `{}`, emitter)

	require.NoError(t, a.MarkAsActivated(context.Background(), "abc", "p1"))
	require.Len(t, emitter.events, 1)
	require.Equal(t, telemetry.KeyActivated, emitter.events[0].Name)
	require.Equal(t, "abc", emitter.events[0].Payload["key"])

	var sent map[string]string
	require.NoError(t, json.Unmarshal([]byte(srv.requests[0].Body), &sent))
	require.Equal(t, map[string]string{"key": "abc", "platformId": "p1"}, sent)
}

func TestMarkAsActivatedIgnoresTelemetryFailure(t *testing.T) {
	emitter := &mockEmitter{err: errors.New("telemetry down")}
	a, _ := newAuthority(t, http.StatusOK, `{}`, emitter)

	require.NoError(t, a.MarkAsActivated(context.Background(), "abc", "p1"))
	require.Len(t, emitter.events, 1)
}

func TestMarkAsActivatedUnexpectedStatus(t *testing.T) {
	a, _ := newAuthority(t, http.StatusServiceUnavailable, `down`, nil)

	err := a.MarkAsActivated(context.Background(), "abc", "p1")
	var uerr *UnexpectedAuthorityError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, http.StatusServiceUnavailable, uerr.StatusCode)
}
