package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/flairlondon/freeagent-bridge/internal/errors"
)

// FreeAgentHandler validates the inbound action request, resolves a
// valid access token for the user, and dispatches to the selected
// action. Every outcome is a JSON envelope; nothing escapes as an
// unhandled error.
func (s *Server) FreeAgentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		request, err := decodeActionRequest(r)
		if err != nil {
			writeEnvelope(w, statusForError(err), failureEnvelope("Invalid request body", err.Error()))
			return
		}

		if request.Action == "" || request.UserID == "" || request.APIKey == "" {
			writeEnvelope(w, statusForError(errors.ErrMissingFields),
				failureEnvelope("Missing required fields (action, userId, api_key).", nil))
			return
		}

		if err := s.checkAPIKey(ctx, request.APIKey); err != nil {
			writeEnvelope(w, statusForError(err), failureEnvelope("Invalid api_key", nil))
			return
		}

		accessToken, err := s.manager.EnsureValidAccessToken(ctx, request.UserID)
		if err != nil {
			if errors.Is(err, errors.ErrUserNotFound) {
				writeEnvelope(w, http.StatusNotFound,
					failureEnvelope(fmt.Sprintf("User %s not found", request.UserID), nil))
				return
			}
			writeEnvelope(w, http.StatusInternalServerError,
				failureEnvelope("Failed to obtain a valid access token", err.Error()))
			return
		}

		var status int
		var envelope Envelope
		switch request.Action {
		case ActionGetInfo:
			status, envelope = s.handleGetInfo(ctx, accessToken)
		case ActionGetTransactions:
			status, envelope = s.handleGetTransactions(ctx, accessToken, request)
		case ActionAttachReceipt:
			status, envelope = s.handleAttachReceipt(ctx, accessToken, request)
		case ActionDeleteExplanation:
			status, envelope = s.handleDeleteExplanation(ctx, accessToken, request)
		case ActionDownloadAttachment:
			status, envelope = s.handleDownloadAttachment(ctx, accessToken, request)
		default:
			status = statusForError(errors.ErrUnknownAction)
			envelope = failureEnvelope(fmt.Sprintf("Unsupported action '%s'", request.Action), nil)
		}

		if !envelope.Info.Success {
			log.Error().
				Str("event", "action_failed").
				Str("action", request.Action).
				Str("user_id", request.UserID).
				Str("message", envelope.Info.Message).
				Msg("action handler returned failure")
		}
		writeEnvelope(w, status, envelope)
	}
}

// checkAPIKey compares the supplied key against the secret-stored
// expected value. Both sides are whitespace-trimmed; the comparison is
// case-sensitive and constant-time. Runs before any token or upstream
// work.
func (s *Server) checkAPIKey(ctx context.Context, apiKey string) error {
	expected, err := s.secrets.Get(ctx, s.config.GetAPIKeySecretName())
	if err != nil {
		return err
	}
	supplied := strings.TrimSpace(apiKey)
	expected = strings.TrimSpace(expected)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) != 1 {
		return errors.ErrForbidden
	}
	return nil
}
