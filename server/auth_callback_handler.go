package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/flairlondon/freeagent-bridge/tokenstore"
)

const contentTypeHTML = "text/html; charset=utf-8"

// AuthCallbackHandler handles the OAuth redirect from FreeAgent. The
// state parameter is the user identifier chosen when the flow was
// initiated. On success the token pair is stored under that identifier
// and the browser is sent back to the receipts app.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")

		if code == "" || state == "" {
			http.Error(w, "Missing 'code' or 'state' parameter.", http.StatusBadRequest)
			return
		}

		oauthConfig, err := s.oauthConfig(ctx)
		if err != nil {
			s.logExchangeFailed(state, err)
			s.writeErrorPage(w, "Unexpected error during OAuth process.")
			return
		}

		// Exchange the one-time code for the initial token pair
		exchanged, err := oauthConfig.Exchange(ctx, code)
		if err != nil {
			s.logExchangeFailed(state, err)
			s.writeErrorPage(w, "Failed to exchange code for token.")
			return
		}

		record := &tokenstore.TokenRecord{
			UserID:       state,
			AccessToken:  exchanged.AccessToken,
			RefreshToken: exchanged.RefreshToken,
			ExpiresIn:    expiresInSeconds(exchanged),
			Timestamp:    time.Now(),
		}
		if err := s.tokens.Upsert(ctx, record); err != nil {
			s.logExchangeFailed(state, err)
			s.writeErrorPage(w, "Unexpected error during OAuth process.")
			return
		}

		log.Info().
			Str("event", "token_exchange_successful").
			Str("user_id", state).
			Msg("authorization code exchanged")

		// Best-effort: failure is logged inside the notifier, never fatal
		s.notifier.Authenticated(ctx, state)

		s.writeRedirectPage(w, s.config.GetAppRedirectURL())
	}
}

// ConnectHandler starts the authorization flow: it redirects the
// browser to FreeAgent's authorize endpoint with the user identifier as
// the state parameter.
func (s *Server) ConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			http.Error(w, "Missing 'userId' parameter.", http.StatusBadRequest)
			return
		}

		oauthConfig, err := s.oauthConfig(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to build oauth config")
			s.writeErrorPage(w, "Unexpected error during OAuth process.")
			return
		}

		http.Redirect(w, r, oauthConfig.AuthCodeURL(userID), http.StatusFound)
	}
}

// oauthConfig builds the oauth2 client configuration for FreeAgent with
// credentials resolved from the secret store.
func (s *Server) oauthConfig(ctx context.Context) (*oauth2.Config, error) {
	clientID, err := s.secrets.Get(ctx, s.config.GetClientIDSecretName())
	if err != nil {
		return nil, err
	}
	clientSecret, err := s.secrets.Get(ctx, s.config.GetClientSecretSecretName())
	if err != nil {
		return nil, err
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  s.config.GetRedirectURI(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.config.GetAuthorizeEndpoint(),
			TokenURL:  s.config.GetTokenEndpoint(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, nil
}

// expiresInSeconds recovers the declared token lifetime from an
// exchange response. The oauth2 package folds the wire expires_in into
// Token.Expiry and leaves the public ExpiresIn field unset on Exchange,
// so read the raw response field, falling back to the computed expiry.
func expiresInSeconds(exchanged *oauth2.Token) int {
	if seconds, ok := exchanged.Extra("expires_in").(float64); ok {
		return int(seconds)
	}
	if !exchanged.Expiry.IsZero() {
		return int(time.Until(exchanged.Expiry).Seconds())
	}
	return 0
}

func (s *Server) logExchangeFailed(userID string, err error) {
	log.Error().
		Str("event", "token_exchange_failed").
		Str("user_id", userID).
		Err(err).
		Msg("authorization code exchange failed")
}

func (s *Server) writeRedirectPage(w http.ResponseWriter, destination string) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<html><body>
  <script>window.location.href = %q;</script>
  <p>Redirecting… <a href=%q>Click here</a></p>
</body></html>
`, destination, destination)
}

func (s *Server) writeErrorPage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "<html><body><p>%s</p></body></html>\n", message)
}
