package auth

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	// DriverSQLite selects the embedded sqlite store
	DriverSQLite = "sqlite"
	// DriverPostgres selects postgres through pgx
	DriverPostgres = "postgres"
)

// OpenDB opens a bun database for driver using dsn
func OpenDB(driver, dsn string) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "sqlite3", "":
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open sqlite database")
		}
		if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
			// every connection would otherwise get its own empty database
			sqldb.SetMaxOpenConns(1)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres, "pg", "pgx":
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid postgres dsn")
		}
		sqldb := stdlib.OpenDB(*cfg)
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, errors.New("unsupported database driver", errors.CategoryBadInput).
			WithMetadata(map[string]any{"driver": driver})
	}
}

// Migrate applies the embedded schema migrations for the database dialect
func Migrate(ctx context.Context, db *bun.DB) error {
	provider, err := newMigrationProvider(db)
	if err != nil {
		return err
	}

	if _, err := provider.Up(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to apply migrations")
	}
	return nil
}

// MigrationState is one embedded migration and whether it was applied
type MigrationState struct {
	Version int64
	Applied bool
}

// MigrationStatus reports each embedded migration ordered by version
func MigrationStatus(ctx context.Context, db *bun.DB) ([]MigrationState, error) {
	provider, err := newMigrationProvider(db)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read migration status")
	}

	out := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationState{
			Version: s.Source.Version,
			Applied: s.State == goose.StateApplied,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Version < out[j].Version
	})
	return out, nil
}

func newMigrationProvider(db *bun.DB) (*goose.Provider, error) {
	var (
		gooseDialect goose.Dialect
		dir          string
	)

	switch db.Dialect().Name() {
	case dialect.SQLite:
		gooseDialect, dir = goose.DialectSQLite3, "data/sql/migrations/sqlite"
	case dialect.PG:
		gooseDialect, dir = goose.DialectPostgres, "data/sql/migrations/postgres"
	default:
		return nil, errors.New("no migrations for database dialect", errors.CategoryInternal).
			WithMetadata(map[string]any{"dialect": db.Dialect().Name().String()})
	}

	fsys, err := fs.Sub(GetMigrationsFS(), dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load migrations")
	}

	provider, err := goose.NewProvider(gooseDialect, db.DB, fsys)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create migration provider")
	}
	return provider, nil
}
