package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flairlondon/freeagent-bridge/freeagent"
	"github.com/flairlondon/freeagent-bridge/glide"
	"github.com/flairlondon/freeagent-bridge/internal/config"
	"github.com/flairlondon/freeagent-bridge/secrets"
	"github.com/flairlondon/freeagent-bridge/server"
	"github.com/flairlondon/freeagent-bridge/token"
	"github.com/flairlondon/freeagent-bridge/tokenstore"
	"github.com/flairlondon/freeagent-bridge/tokenstore/postgres"
	"github.com/flairlondon/freeagent-bridge/tokenstore/repofake"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	tokenRepo, closeStore, err := newTokenRepo(c)
	if err != nil {
		return err
	}
	defer closeStore()

	secretStore := secrets.NewEnvStore()
	upstream := freeagent.NewClient(c)
	manager := token.NewManager(tokenRepo, secretStore, upstream, c)
	notifier := glide.NewNotifier(c, secretStore, c)

	httpServer := &http.Server{
		Addr:    c.GetPort(),
		Handler: server.New(c, secretStore, tokenRepo, manager, upstream, notifier),
	}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// newTokenRepo opens the PostgreSQL token store and runs migrations, or
// falls back to the in-memory store when no DSN is configured (dev
// mode: records do not survive a restart).
func newTokenRepo(c config.Config) (tokenstore.Repo, func(), error) {
	dsn := c.GetDatabaseDSN()
	if dsn == "" {
		log.Warn().Msg("DATABASE_DSN not set, using in-memory token store")
		return repofake.NewFakeTokenRepo(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return postgres.NewRepo(db), func() { db.Close() }, nil
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func listenAndServe(httpServer *http.Server) error {
	log.Info().Str("addr", httpServer.Addr).Msg("Server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
