// Package cmd provides shared wiring helpers for the service binaries.
package cmd

import (
	"context"
	"log/slog"

	"github.com/mailbridge/mailbridge/pkg/persistence"
	"github.com/mailbridge/mailbridge/pkg/persistence/postgresql"
)

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	if err != nil {
		panic(err)
	}

	return p
}
