// Package glide notifies the low-code receipts app when a user has
// completed the FreeAgent authorization flow. Notification is strictly
// best-effort: failures are logged and never surfaced to the caller.
package glide

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flairlondon/freeagent-bridge/internal/config"
	"github.com/flairlondon/freeagent-bridge/secrets"
)

type Notifier struct {
	baseURL    string
	secrets    secrets.Store
	names      config.SecretNames
	httpClient *http.Client
}

func NewNotifier(cfg config.GlideConfig, secretStore secrets.Store, names config.SecretNames) *Notifier {
	return &Notifier{
		baseURL:    strings.TrimSuffix(cfg.GetGlideBaseURL(), "/"),
		secrets:    secretStore,
		names:      names,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Authenticated patches the user's row in the app table with an
// authenticated marker and timestamp.
func (n *Notifier) Authenticated(ctx context.Context, userID string) {
	if err := n.patchRow(ctx, userID); err != nil {
		log.Warn().
			Str("event", "glide_notify_failed").
			Str("user_id", userID).
			Err(err).
			Msg("glide notification failed")
		return
	}
	log.Info().
		Str("event", "glide_notified").
		Str("user_id", userID).
		Msg("glide row updated")
}

func (n *Notifier) patchRow(ctx context.Context, userID string) error {
	apiToken, err := n.secrets.Get(ctx, n.names.GetGlideTokenSecretName())
	if err != nil {
		return err
	}
	appID, err := n.secrets.Get(ctx, n.names.GetGlideAppIDSecretName())
	if err != nil {
		return err
	}
	tableName, err := n.secrets.Get(ctx, n.names.GetGlideTableSecretName())
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{
		"api-write/timestamp": time.Now().UTC().Format(time.RFC3339),
		"api-write/message":   "Authenticated",
	})
	if err != nil {
		return err
	}

	rowURL := fmt.Sprintf("%s/apps/%s/tables/%s/rows/%s", n.baseURL, appID, tableName, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, rowURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("glide PATCH status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
