package main

import (
	"fmt"
	"os"

	"github.com/fmcg-dev/fmcg/internal/config"
	"github.com/fmcg-dev/fmcg/internal/logger"
	"github.com/fmcg-dev/fmcg/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().
		Str("version", version).
		Str("database", cfg.Database.URL).
		Str("demo_email", cfg.Demo.Email).
		Msg("Starting fmcg dev server...")

	// Blocks until SIGINT or SIGTERM
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
