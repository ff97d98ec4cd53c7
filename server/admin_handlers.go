package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flairlondon/freeagent-bridge/token"
)

// adminUserRow is the operator-facing view of a token record. Token
// values themselves are never exposed.
type adminUserRow struct {
	UserID    string `json:"user_id"`
	ExpiresIn int    `json:"expires_in"`
	Timestamp string `json:"timestamp"`
	Valid     bool   `json:"valid"`
}

// AdminUsersHandler lists the stored users and their token expiry
// state. Guarded by the same API key as the action endpoint, supplied
// as the api_key query parameter.
func (s *Server) AdminUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := s.checkAPIKey(ctx, r.URL.Query().Get("api_key")); err != nil {
			writeEnvelope(w, statusForError(err), failureEnvelope("Invalid api_key", nil))
			return
		}

		records, err := s.tokens.List(ctx)
		if err != nil {
			writeEnvelope(w, http.StatusInternalServerError, failureEnvelope("Error fetching users.", err.Error()))
			return
		}

		now := time.Now()
		rows := make([]adminUserRow, 0, len(records))
		for _, record := range records {
			rows = append(rows, adminUserRow{
				UserID:    record.UserID,
				ExpiresIn: record.ExpiresIn,
				Timestamp: record.Timestamp.UTC().Format(time.RFC3339),
				Valid:     token.IsValid(record, now),
			})
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]any{"users": rows})
	}
}
