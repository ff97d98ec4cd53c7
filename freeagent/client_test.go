package freeagent_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flairlondon/freeagent-bridge/freeagent"
	"github.com/flairlondon/freeagent-bridge/internal/errors"
)

// testUpstreamConfig points the client at an httptest server. Zero
// timeouts mean no deadline.
type testUpstreamConfig struct {
	baseURL         string
	resourceTimeout time.Duration
	tokenTimeout    time.Duration
}

func (c testUpstreamConfig) GetAPIBaseURL() string { return c.baseURL }

func (c testUpstreamConfig) GetAuthorizeEndpoint() string { return c.baseURL + "/approve_app" }

func (c testUpstreamConfig) GetTokenEndpoint() string { return c.baseURL + "/token_endpoint" }

func (c testUpstreamConfig) GetRedirectURI() string { return "http://localhost/auth/callback" }

func (c testUpstreamConfig) GetAppRedirectURL() string { return "http://localhost/app" }

func (c testUpstreamConfig) GetResourceTimeout() time.Duration { return c.resourceTimeout }

func (c testUpstreamConfig) GetTokenTimeout() time.Duration { return c.tokenTimeout }

func newTestClient(upstream *httptest.Server) *freeagent.Client {
	return freeagent.NewClient(testUpstreamConfig{baseURL: upstream.URL})
}

func TestRefresh_SendsFormAndParsesResponse(t *testing.T) {
	var gotForm map[string]string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token_endpoint", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type":    r.PostFormValue("grant_type"),
			"refresh_token": r.PostFormValue("refresh_token"),
			"client_id":     r.PostFormValue("client_id"),
			"client_secret": r.PostFormValue("client_secret"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"T2","refresh_token":"R2","expires_in":3600,"token_type":"bearer"}`))
	}))
	defer upstream.Close()

	response, err := newTestClient(upstream).Refresh(context.Background(), "cid", "csecret", "R1")
	require.NoError(t, err)
	require.Equal(t, "T2", response.AccessToken)
	require.Equal(t, "R2", response.RefreshToken)
	require.Equal(t, 3600, response.ExpiresIn)
	require.Equal(t, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": "R1",
		"client_id":     "cid",
		"client_secret": "csecret",
	}, gotForm)
}

func TestRefresh_NonSuccessCarriesUpstreamBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer upstream.Close()

	_, err := newTestClient(upstream).Refresh(context.Background(), "cid", "csecret", "R1")
	require.ErrorIs(t, err, errors.ErrRefreshFailed)
	require.Contains(t, err.Error(), "invalid_grant")
}

func TestTransactions_BuildsSinglePageQuery(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bank_transactions", r.URL.Path)
		require.Equal(t, "https://api.freeagent.com/v2/bank_accounts/42", r.URL.Query().Get("bank_account"))
		require.Equal(t, "100", r.URL.Query().Get("per_page"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"bank_transactions":[]}`))
	}))
	defer upstream.Close()

	body, err := newTestClient(upstream).Transactions(context.Background(), "tok", "https://api.freeagent.com/v2/bank_accounts/42")
	require.NoError(t, err)
	require.JSONEq(t, `{"bank_transactions":[]}`, string(body))
}

func TestGet_NonSuccessIsUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer upstream.Close()

	_, err := newTestClient(upstream).Company(context.Background(), "tok")
	require.ErrorIs(t, err, errors.ErrUpstream)
	require.Contains(t, err.Error(), "upstream down")
}

func TestClient_SlowUpstreamIsAnUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer upstream.Close()

	client := freeagent.NewClient(testUpstreamConfig{
		baseURL:         upstream.URL,
		resourceTimeout: 20 * time.Millisecond,
		tokenTimeout:    20 * time.Millisecond,
	})

	_, err := client.Company(context.Background(), "tok")
	require.ErrorIs(t, err, errors.ErrUpstream)

	_, err = client.Refresh(context.Background(), "cid", "csecret", "R1")
	require.ErrorIs(t, err, errors.ErrRefreshFailed)
}

func TestCreateExplanation_PostsWrappedPayload(t *testing.T) {
	var posted map[string]json.RawMessage
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/bank_transaction_explanations", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &posted))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"bank_transaction_explanation":{}}`))
	}))
	defer upstream.Close()

	_, err := newTestClient(upstream).CreateExplanation(context.Background(), "tok", freeagent.Explanation{
		BankTransaction: "https://api.freeagent.com/v2/bank_transactions/1",
		Category:        "https://api.freeagent.com/v2/categories/285",
		GrossValue:      "-20.0",
	})
	require.NoError(t, err)
	require.Contains(t, posted, "bank_transaction_explanation")
}

func TestDelete_ReportsStatusAndBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such explanation"))
	}))
	defer upstream.Close()

	status, body, err := newTestClient(upstream).Delete(context.Background(), "tok", upstream.URL+"/bank_transaction_explanations/9")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "no such explanation", body)
}

func TestFetchAndEncode(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("pngbytes"))
	}))
	defer upstream.Close()

	attachment, err := newTestClient(upstream).FetchAndEncode(context.Background(), upstream.URL+"/receipts/receipt.png?sig=abc")
	require.NoError(t, err)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("pngbytes")), attachment.Data)
	require.Equal(t, "image/png", attachment.ContentType)
	require.Equal(t, "receipt.png", attachment.FileName)
}

func TestEncodeHTML(t *testing.T) {
	attachment := freeagent.EncodeHTML("<p>receipt</p>")
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("<p>receipt</p>")), attachment.Data)
	require.Equal(t, "text/html", attachment.ContentType)
	require.Equal(t, "attachment.html", attachment.FileName)
}

func TestAttachmentURL(t *testing.T) {
	nested, err := freeagent.AttachmentURL(json.RawMessage(`{"attachment":{"content_src":"https://files.example/1"}}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"content_src":"https://files.example/1"}`, string(nested))
}
