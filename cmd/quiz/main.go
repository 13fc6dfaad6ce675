package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sqlquiz/internal/cli"
	"sqlquiz/internal/config"
	"sqlquiz/internal/content"
	"sqlquiz/internal/quiz"
	"sqlquiz/internal/sqlengine"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx := context.Background()

	doc, err := content.Load(cfg.ContentPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ContentPath).Msg("could not load content document")
	}

	store, err := quiz.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("could not open store")
	}
	defer store.Close()

	if err := store.SeedIfStale(ctx, doc); err != nil {
		log.Fatal().Err(err).Msg("could not seed content")
	}

	engine := sqlengine.NewEngine(cfg.SQLDriver)
	verifier := quiz.NewVerifier(engine)
	tracker := quiz.NewTracker(store, store, verifier, cfg.UserID)

	if err := tracker.Hydrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not load progress")
	}

	if err := cli.Run(ctx, tracker, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("session failed")
	}
}
