package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/mysql/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded migrations for the dialect. Goose keeps its
// settings in package state, so call this once at startup.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	if db == nil {
		return nil
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(d.Name); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations/"+d.Name); err != nil {
		return fmt.Errorf("migrate %s: %w", d.Name, err)
	}
	return nil
}
