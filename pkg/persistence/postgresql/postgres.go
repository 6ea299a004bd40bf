// Package postgresql provides the PostgreSQL persistence implementation.
// Cell data, column schemas and action configs are stored as JSONB; row
// merges run as a single read-modify-write under a row lock.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/gridflow/gridflow/pkg/persistence"
	"github.com/gridflow/gridflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	sheets *SheetRepository
	rows   *RowRepository
	rules  *RuleRepository
	logs   *ExecutionLogRepository
}

// NewPersistence connects, runs migrations and returns a ready persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:     database,
		logger: logger,
		sheets: &SheetRepository{db: database, logger: logger},
		rows:   &RowRepository{db: database, logger: logger},
		rules:  &RuleRepository{db: database, logger: logger},
		logs:   &ExecutionLogRepository{db: database, logger: logger},
	}, nil
}

func (p *Persistence) Sheets() persistence.SheetRepository              { return p.sheets }
func (p *Persistence) Rows() persistence.RowRepository                  { return p.rows }
func (p *Persistence) Rules() persistence.RuleRepository                { return p.rules }
func (p *Persistence) ExecutionLog() persistence.ExecutionLogRepository { return p.logs }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
