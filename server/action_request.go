package server

import (
	"encoding/json"
	"net/http"

	"github.com/flairlondon/freeagent-bridge/internal/errors"
)

// Action names dispatched by the FreeAgent handler.
const (
	ActionGetInfo            = "getInfo"
	ActionGetTransactions    = "getTransactions"
	ActionAttachReceipt      = "attachReceipt"
	ActionDeleteExplanation  = "deleteExplanation"
	ActionDownloadAttachment = "downloadAttachment" // legacy, kept for compatibility
)

// ActionRequest is the explicit schema for the action dispatch body.
// Only Action, UserID and APIKey are universally required; the rest are
// validated per action before any upstream call.
type ActionRequest struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
	APIKey string `json:"api_key"`

	// getTransactions
	BankAccount       string `json:"bank_account"`
	BankAccountLegacy string `json:"bankAccount"` // legacy field name

	// attachReceipt
	BankTransactionURL string `json:"bankTransactionUrl"`
	ExplanationURL     string `json:"explanationUrl"` // also deleteExplanation
	Category           string `json:"category"`
	Attachment         string `json:"attachment"`
	HTMLBody           string `json:"htmlBody"`
	GrossValue         string `json:"gross_value"`
	DatedOn            string `json:"dated_on"`
	Description        string `json:"description"`

	// downloadAttachment
	URL string `json:"url"`
}

// decodeActionRequest parses the JSON body and applies the legacy
// fallbacks: query-parameter action (single-endpoint variant) and the
// bankAccount field alias.
func decodeActionRequest(r *http.Request) (ActionRequest, error) {
	var request ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return ActionRequest{}, errors.Wrapf(errors.ErrBadRequest, "invalid JSON body")
	}
	if request.Action == "" {
		request.Action = r.URL.Query().Get("action")
	}
	if request.BankAccount == "" {
		request.BankAccount = request.BankAccountLegacy
	}
	return request, nil
}
