package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flairlondon/freeagent-bridge/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Envelope is the uniform wire shape returned by every action. Success
// must accurately reflect whether the upstream operation completed;
// Payload carries either result data or diagnostic detail on failure.
type Envelope struct {
	Info    Info `json:"info"`
	Payload any  `json:"payload"`
}

type Info struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func successEnvelope(message string, payload any) Envelope {
	if payload == nil {
		payload = map[string]any{}
	}
	return Envelope{
		Info: Info{
			Success:   true,
			Message:   message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Payload: payload,
	}
}

func failureEnvelope(message string, detail any) Envelope {
	if detail == nil {
		detail = map[string]any{}
	}
	return Envelope{
		Info: Info{
			Success:   false,
			Message:   message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Payload: detail,
	}
}

func writeEnvelope(w http.ResponseWriter, status int, envelope Envelope) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

// statusForError maps the error taxonomy to the HTTP status the
// envelope travels with.
func statusForError(err error) int {
	switch {
	case errors.Is(err, errors.ErrBadRequest),
		errors.Is(err, errors.ErrMissingFields),
		errors.Is(err, errors.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
