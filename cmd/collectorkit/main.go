package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"collectorkit/internal/adapters/cli"
	"collectorkit/internal/config"
	"collectorkit/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Erreur lors du chargement de la configuration: %v", err)
	}

	logDir := cfg.LogPath
	if _, err := os.Stat(logDir); err != nil {
		logDir = ""
	}
	logger, closer := logging.New(os.Stderr, logDir, cfg.Debug)

	app, err := cli.New(cfg, logger)
	if err != nil {
		closer.Close()
		log.Fatalf("❌ Erreur lors de l'initialisation: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = app.Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		logger.Debug("command failed", "error", err)
		tr := app.Translator()
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %s\n", cli.ErrorMessage(tr, tr.Language(), err))
		closer.Close()
		os.Exit(1)
	}
	closer.Close()
}
