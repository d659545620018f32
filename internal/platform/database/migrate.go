package database

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"schoolbridge/migrations"
)

// Migrate applies all pending embedded migrations.
func (p *Pool) Migrate(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("database not configured")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, p.db, migrations.FS)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
