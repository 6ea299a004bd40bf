// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gridflow/gridflow/pkg/persistence"
	"github.com/gridflow/gridflow/pkg/persistence/memory"
	"github.com/gridflow/gridflow/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme.
// postgres:// and postgresql:// use PostgreSQL; anything else falls back to
// the in-memory store, which only suits development and tests.
func NewPersistence(ctx context.Context, databaseURL string, logger *slog.Logger) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		logger.Warn("No persistent database configured, using in-memory store")

		return memory.NewPersistence(), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "memory"
	}

	if scheme == "postgres" || scheme == "postgresql" {
		return "postgresql"
	}

	return "memory"
}
