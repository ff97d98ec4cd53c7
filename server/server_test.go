package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flairlondon/freeagent-bridge/freeagent"
	"github.com/flairlondon/freeagent-bridge/internal/config"
	"github.com/flairlondon/freeagent-bridge/internal/errors"
	"github.com/flairlondon/freeagent-bridge/secrets/storefake"
	"github.com/flairlondon/freeagent-bridge/server"
	"github.com/flairlondon/freeagent-bridge/tokenstore/repofake"
)

const (
	testAPIKey       = "test-api-key"
	testUserID       = "u1"
	testAccessToken  = "access-1"
	testClientID     = "client-1"
	testClientSecret = "client-secret-1"
)

// testConfig points every upstream at the fixture's httptest server.
type testConfig struct {
	config.EnvVars
	baseURL        string
	appRedirectURL string
}

func (c testConfig) GetAPIBaseURL() string { return c.baseURL }

func (c testConfig) GetAuthorizeEndpoint() string { return c.baseURL + "/approve_app" }

func (c testConfig) GetTokenEndpoint() string { return c.baseURL + "/token_endpoint" }

func (c testConfig) GetRedirectURI() string { return "http://bridge.test/auth/callback" }

func (c testConfig) GetAppRedirectURL() string { return c.appRedirectURL }

func (c testConfig) GetEnv() string { return "TEST" }

// fakeTokenSource stands in for the token lifecycle manager.
type fakeTokenSource struct {
	token string
	err   error
}

func (f *fakeTokenSource) EnsureValidAccessToken(_ context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

// fakeNotifier records best-effort notifications.
type fakeNotifier struct {
	lock    sync.Mutex
	userIDs []string
}

func (f *fakeNotifier) Authenticated(_ context.Context, userID string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.userIDs = append(f.userIDs, userID)
}

func (f *fakeNotifier) notified() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.userIDs...)
}

type testFixture struct {
	srv      *server.Server
	repo     *repofake.FakeTokenRepo
	notifier *fakeNotifier
	upstream *httptest.Server
}

// setupTestFixture wires a Server against an httptest upstream. The
// upstream handler simulates both the FreeAgent API and its token
// endpoint.
func setupTestFixture(t *testing.T, upstreamHandler http.Handler, source server.TokenSource) *testFixture {
	t.Helper()

	if upstreamHandler == nil {
		upstreamHandler = http.NotFoundHandler()
	}
	upstream := httptest.NewServer(upstreamHandler)
	t.Cleanup(upstream.Close)

	cfg := testConfig{baseURL: upstream.URL, appRedirectURL: "https://receipts.flair.london"}
	secretStore := storefake.NewFakeSecretStore(map[string]string{
		"flair-receipts-api-key":  testAPIKey,
		"freeagent-client-id":     testClientID,
		"freeagent-client-secret": testClientSecret,
	})
	repo := repofake.NewFakeTokenRepo()
	notifier := &fakeNotifier{}
	if source == nil {
		source = &fakeTokenSource{token: testAccessToken}
	}

	srv := server.New(cfg, secretStore, repo, source, freeagent.NewClient(cfg), notifier)
	return &testFixture{srv: srv, repo: repo, notifier: notifier, upstream: upstream}
}

type envelopeInfo struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type envelope struct {
	Info    envelopeInfo    `json:"info"`
	Payload json.RawMessage `json:"payload"`
}

// postAction sends an action request and decodes the envelope.
func (f *testFixture) postAction(t *testing.T, body map[string]any) (int, envelope) {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, server.RouteFreeAgent, bytes.NewReader(encoded))
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, r)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w.Code, env
}

// postActionWithQuery sends an action request with an extra query
// string (legacy single-endpoint variant).
func (f *testFixture) postActionWithQuery(t *testing.T, query string, body map[string]any) (int, envelope) {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, server.RouteFreeAgent+"?"+query, bytes.NewReader(encoded))
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, r)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w.Code, env
}

// postRaw sends a raw (possibly malformed) body.
func (f *testFixture) postRaw(t *testing.T, body string) (int, envelope) {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, server.RouteFreeAgent, bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, r)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w.Code, env
}

func actionBody(action string, extra map[string]any) map[string]any {
	body := map[string]any{
		"action":  action,
		"userId":  testUserID,
		"api_key": testAPIKey,
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

// refreshFailedSource is a TokenSource whose refresh always fails.
func refreshFailedSource() server.TokenSource {
	return &fakeTokenSource{err: errors.Wrapf(errors.ErrRefreshFailed, "status 401")}
}
