package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/flairlondon/freeagent-bridge/freeagent"
	"github.com/flairlondon/freeagent-bridge/internal/config"
	"github.com/flairlondon/freeagent-bridge/secrets"
	"github.com/flairlondon/freeagent-bridge/tokenstore"
)

// TokenSource resolves a valid upstream access token for a user.
// Satisfied by *token.Manager.
type TokenSource interface {
	EnsureValidAccessToken(ctx context.Context, userID string) (string, error)
}

// Notifier tells the low-code app about a completed authorization.
// Satisfied by *glide.Notifier.
type Notifier interface {
	Authenticated(ctx context.Context, userID string)
}

type Server struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	secrets  secrets.Store
	tokens   tokenstore.Repo
	manager  TokenSource
	upstream *freeagent.Client
	notifier Notifier
}

func New(cfg config.Config, secretStore secrets.Store, tokenRepo tokenstore.Repo, manager TokenSource, upstream *freeagent.Client, notifier Notifier) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		secrets:  secretStore,
		tokens:   tokenRepo,
		manager:  manager,
		upstream: upstream,
		notifier: notifier,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		log.Debug().Str("route", route).Msg("registered route")
	}
}
