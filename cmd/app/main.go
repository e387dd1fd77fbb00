// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"codeberg.org/oliverandrich/crypto-tracker/internal/config"
	"codeberg.org/oliverandrich/crypto-tracker/internal/database"
	"codeberg.org/oliverandrich/crypto-tracker/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:   "crypto-tracker",
		Usage:  "Crypto watchlist API server",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:   "migrate-down",
				Usage:  "Roll back the most recent database migration",
				Action: migrateDown,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrateDown(_ context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateDown(db.DB); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	slog.Info("migration_rolled_back", "dsn", cfg.Database.DSN)
	return nil
}
