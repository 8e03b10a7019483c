package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/pflag"

	"confdesk/config"
	"confdesk/internal/delivery/jsonline"
	"confdesk/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pflag.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "database host")
	pflag.StringVar(&cfg.DBPort, "db-port", cfg.DBPort, "database port")
	pflag.StringVar(&cfg.DBSSLMode, "db-sslmode", cfg.DBSSLMode, "database sslmode")
	pflag.StringVar(&cfg.SchemaFile, "schema", cfg.SchemaFile, "path to the first-run schema script")
	pflag.StringVar(&cfg.OrganizerSecret, "organizer-secret", cfg.OrganizerSecret, "shared secret gating the organizer command")
	pflag.Parse()

	logger := config.NewLogger()

	registry := services.NewRegistry(cfg.OrganizerSecret, logger)
	dispatcher := jsonline.NewDispatcher(registry, logger)
	loop := jsonline.NewLoop(dispatcher, services.SessionOpener(cfg, logger), logger)

	if err := loop.Run(context.Background(), os.Stdin, os.Stdout); err != nil {
		logger.Error("stream loop failed", "error", err)
		os.Exit(1)
	}
}
