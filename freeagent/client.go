// Package freeagent is a thin client for the slice of the FreeAgent
// API this bridge uses: the token endpoint, a handful of read-only
// resources, and bank transaction explanations.
package freeagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/flairlondon/freeagent-bridge/internal/config"
	"github.com/flairlondon/freeagent-bridge/internal/errors"
)

type Client struct {
	apiBase       string
	tokenEndpoint string
	httpClient    *http.Client
	tokenClient   *http.Client
}

func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		apiBase:       strings.TrimSuffix(cfg.GetAPIBaseURL(), "/"),
		tokenEndpoint: cfg.GetTokenEndpoint(),
		httpClient:    &http.Client{Timeout: cfg.GetResourceTimeout()},
		tokenClient:   &http.Client{Timeout: cfg.GetTokenTimeout()},
	}
}

// Refresh exchanges a refresh token for a new token pair via a
// form-encoded POST to the token endpoint. A non-2xx response is
// returned as ErrRefreshFailed carrying the upstream body.
func (c *Client) Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	return c.postTokenForm(ctx, form)
}

func (c *Client) postTokenForm(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("freeagent token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.tokenClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrRefreshFailed, "freeagent token endpoint: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(errors.ErrRefreshFailed, "freeagent token endpoint status %d: %s", resp.StatusCode, string(body))
	}

	tokenResponse := &TokenResponse{}
	if err := json.Unmarshal(body, tokenResponse); err != nil {
		return nil, errors.Wrapf(errors.ErrRefreshFailed, "freeagent token endpoint decode")
	}
	return tokenResponse, nil
}

// get fetches a resource with the bearer token and returns the raw JSON
// body. Any transport failure or non-2xx status is an upstream error.
func (c *Client) get(ctx context.Context, resourceURL, accessToken string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("freeagent get %s: %w", resourceURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUpstream, "GET %s: %v", resourceURL, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(errors.ErrUpstream, "GET %s status %d: %s", resourceURL, resp.StatusCode, string(body))
	}
	return json.RawMessage(body), nil
}

func (c *Client) Company(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.get(ctx, c.apiBase+"/company", accessToken)
}

func (c *Client) CurrentUser(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.get(ctx, c.apiBase+"/users/me", accessToken)
}

func (c *Client) Categories(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.get(ctx, c.apiBase+"/categories", accessToken)
}

func (c *Client) BankAccounts(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.get(ctx, c.apiBase+"/bank_accounts", accessToken)
}

func (c *Client) ActiveProjects(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.get(ctx, c.apiBase+"/projects?view=active", accessToken)
}

// Transactions fetches one page of up to 100 transactions for the bank
// account. No pagination loop: callers get the first page only.
func (c *Client) Transactions(ctx context.Context, accessToken, bankAccount string) (json.RawMessage, error) {
	resourceURL := fmt.Sprintf("%s/bank_transactions?bank_account=%s&per_page=100", c.apiBase, url.QueryEscape(bankAccount))
	return c.get(ctx, resourceURL, accessToken)
}

// CreateExplanation posts a new bank transaction explanation and
// returns the raw upstream body. A non-2xx status is an upstream error
// carrying the body for diagnosis.
func (c *Client) CreateExplanation(ctx context.Context, accessToken string, explanation Explanation) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]Explanation{"bank_transaction_explanation": explanation})
	if err != nil {
		return nil, fmt.Errorf("freeagent explanation marshal: %w", err)
	}

	postURL := c.apiBase + "/bank_transaction_explanations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("freeagent post %s: %w", postURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUpstream, "POST %s: %v", postURL, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(errors.ErrUpstream, "POST %s status %d: %s", postURL, resp.StatusCode, string(body))
	}
	return json.RawMessage(body), nil
}

// Delete issues a DELETE against a caller-supplied resource URL and
// reports the upstream status and body. The error return covers
// transport failures only; callers decide what a given status means.
func (c *Client) Delete(ctx context.Context, accessToken, resourceURL string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, resourceURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("freeagent delete %s: %w", resourceURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", errors.Wrapf(errors.ErrUpstream, "DELETE %s: %v", resourceURL, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), nil
}

// AttachmentInfo fetches attachment metadata by URL and reports the
// upstream status and raw body.
func (c *Client) AttachmentInfo(ctx context.Context, accessToken, resourceURL string) (int, json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("freeagent get %s: %w", resourceURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(errors.ErrUpstream, "GET %s: %v", resourceURL, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, json.RawMessage(body), nil
}
