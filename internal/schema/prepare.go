package schema

import (
	"context"
	"fmt"
	"log"
)

// DB is the minimal sink surface the preparer needs. It is satisfied by
// storage/postgres.Repo and by test fakes.
type DB interface {
	// Exec runs a statement in its own transaction.
	Exec(ctx context.Context, sql string, args ...any) error
	// SelectExists runs a query expected to return a single boolean.
	SelectExists(ctx context.Context, sql string, args ...any) (bool, error)
}

// Options selects how the target relation is brought into shape before a load.
type Options struct {
	Table string

	// Rebuild drops and recreates the relation. Destructive; only set on
	// explicit request.
	Rebuild bool

	// Truncate clears existing rows after the relation is verified, for a
	// clean load instead of an incremental append.
	Truncate bool
}

const (
	tableExistsSQL = `SELECT EXISTS (
  SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = $1
);`
	hypertableExistsSQL = `SELECT EXISTS (
  SELECT FROM timescaledb_information.hypertables WHERE hypertable_name = $1
);`
	createHypertableSQL = `SELECT create_hypertable($1::regclass, 'timestamp', if_not_exists => TRUE);`
)

// Ensure idempotently makes the target relation ready for ingestion: create
// if absent, register as a hypertable if not yet registered, and optionally
// rebuild or truncate first. Every step runs in its own transaction; any
// failure is fatal for the run, since loading into an unprepared target is
// never safe.
func Ensure(ctx context.Context, db DB, opts Options) error {
	if opts.Table == "" {
		return fmt.Errorf("schema: table name required")
	}

	if opts.Rebuild {
		log.Printf("schema: rebuilding %s (drop + create)", opts.Table)
		if err := db.Exec(ctx, DropTableSQL(opts.Table)); err != nil {
			return fmt.Errorf("drop table %s: %w", opts.Table, err)
		}
	}

	exists, err := db.SelectExists(ctx, tableExistsSQL, bareName(opts.Table))
	if err != nil {
		return fmt.Errorf("check table %s: %w", opts.Table, err)
	}
	if !exists {
		log.Printf("schema: creating %s", opts.Table)
		if err := db.Exec(ctx, CreateTableSQL(opts.Table)); err != nil {
			return fmt.Errorf("create table %s: %w", opts.Table, err)
		}
	}

	hyper, err := db.SelectExists(ctx, hypertableExistsSQL, bareName(opts.Table))
	if err != nil {
		return fmt.Errorf("check hypertable %s: %w", opts.Table, err)
	}
	if !hyper {
		log.Printf("schema: converting %s to a hypertable", opts.Table)
		if err := db.Exec(ctx, createHypertableSQL, opts.Table); err != nil {
			return fmt.Errorf("create hypertable %s: %w", opts.Table, err)
		}
	}

	if opts.Truncate {
		log.Printf("schema: truncating %s", opts.Table)
		if err := db.Exec(ctx, TruncateSQL(opts.Table)); err != nil {
			return fmt.Errorf("truncate %s: %w", opts.Table, err)
		}
	}
	return nil
}
