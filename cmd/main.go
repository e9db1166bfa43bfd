package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(defaultConfigPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(defaultConfigPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}
	config.ApplyEnv()

	var closer io.Closer
	if config.Log.File != "" {
		fileLogger, c, err := shared.NewFileLogger(config.Log.File)
		if err != nil {
			logger.Warn("failed to open log file, logging to stderr", "error", err)
		} else {
			logger, closer = fileLogger, c
		}
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	ctx := context.Background()

	var catalog services.Catalog
	if config.HasSpotifyCredentials() {
		svc, err := services.NewSpotifyService(ctx, services.SpotifyOpts{Config: config.Credentials.Spotify, Logger: logger})
		if err != nil {
			logger.Warn("spotify unavailable", "error", err)
		} else {
			catalog = svc
		}
	}

	var completer services.Completer
	if config.HasOpenAICredentials() {
		svc, err := services.NewOpenAIService(config.Credentials.OpenAI, nil, logger)
		if err != nil {
			logger.Warn("openai unavailable", "error", err)
		} else {
			completer = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: defaultConfigPath,
		Catalog:    catalog,
		Completer:  completer,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "plx",
		Usage:    "Edit stored playlists with natural-language commands",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	err := app.Run(ctx, os.Args)
	runner.Close()
	if closer != nil {
		closer.Close()
	}

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
