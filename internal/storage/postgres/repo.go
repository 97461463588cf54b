// Package postgres implements the sink contracts using pgx v5. The bulk load
// performs a COPY into a temporary table followed by a conflict-suppressed
// insert into the target, all inside one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/normalize"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/retry"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/schema"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	// DSN is the connection string for pgxpool.
	DSN string
	// ConnectAttempts bounds connection acquisition; zero means
	// retry.DefaultAttempts.
	ConnectAttempts int
	// ConnectDelay is the fixed pause between attempts; zero means
	// retry.DefaultDelay.
	ConnectDelay time.Duration
}

// Repo is a Postgres/TimescaleDB-backed implementation of the storage
// contracts and of schema.DB.
type Repo struct {
	pool *pgxpool.Pool
}

// Connect constructs a Repo and verifies connectivity within the configured
// retry budget. It returns a release function that must be called on every
// exit path; the pool is the only process-wide sink handle and it is owned by
// the caller, never by package state.
func Connect(ctx context.Context, cfg Config) (*Repo, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = retry.DefaultAttempts
	}
	delay := cfg.ConnectDelay
	if delay <= 0 {
		delay = retry.DefaultDelay
	}

	policy := retry.Policy{
		Attempts: attempts,
		Delay:    delay,
		OnRetry: func(attempt int, err error) {
			log.Printf("db connect attempt %d/%d failed: %v; retrying in %s", attempt, attempts, err, delay)
		},
	}
	if err := policy.Execute(ctx, func(ctx context.Context) error {
		return pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	return &Repo{pool: pool}, pool.Close, nil
}

// Exec implements schema.DB. Each statement runs in its own implicit
// transaction.
func (r *Repo) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return pgError(err)
	}
	return nil
}

// SelectExists implements schema.DB for single-boolean catalog lookups.
func (r *Repo) SelectExists(ctx context.Context, sql string, args ...any) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, pgError(err)
	}
	return exists, nil
}

// BulkLoad implements storage.BulkLoader.
//
// COPY itself has no conflict handling, so the rows are streamed into a
// transaction-scoped temp table and merged with ON CONFLICT DO NOTHING
// (first-writer-wins under re-ingestion). A failure anywhere rolls the
// transaction back; no partial rows from this attempt become visible.
func (r *Repo) BulkLoad(ctx context.Context, table string, rows []normalize.Row) (storage.LoadResult, error) {
	if len(rows) == 0 {
		return storage.LoadResult{}, nil
	}
	start := time.Now()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return storage.LoadResult{}, fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return storage.LoadResult{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	tmp := tempName(table)
	if _, err := tx.Exec(ctx, tempTableSQL(tmp, table)); err != nil {
		return storage.LoadResult{}, fmt.Errorf("create temp: %w", pgError(err))
	}

	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{tmp},
		schema.Columns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return []any{rows[i].Timestamp, rows[i].Frequency}, nil
		}),
	)
	if err != nil {
		return storage.LoadResult{}, fmt.Errorf("copy into temp: %w", pgError(err))
	}

	tag, err := tx.Exec(ctx, insertConflictSQL(table, tmp))
	if err != nil {
		return storage.LoadResult{}, fmt.Errorf("merge phase: %w", pgError(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return storage.LoadResult{}, fmt.Errorf("commit: %w", pgError(err))
	}

	return storage.LoadResult{
		Copied:   copied,
		Inserted: tag.RowsAffected(),
		Elapsed:  time.Since(start),
	}, nil
}

// RawRange implements storage.Reader.
func (r *Repo) RawRange(ctx context.Context, table string, start, end time.Time) ([]storage.Point, error) {
	sql := fmt.Sprintf(
		`SELECT %s, %s FROM %s WHERE %s >= $1 AND %s <= $2 ORDER BY %s`,
		pgIdent("timestamp"), pgIdent("frequency"), pgFQN(table),
		pgIdent("timestamp"), pgIdent("timestamp"), pgIdent("timestamp"),
	)
	rows, err := r.pool.Query(ctx, sql, start, end)
	if err != nil {
		return nil, pgError(err)
	}
	pts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[storage.Point])
	if err != nil {
		return nil, pgError(err)
	}
	return pts, nil
}

// BucketedAverage implements storage.Reader. The interval string must come
// from a whitelist; it is still passed as a bind parameter, never
// interpolated.
func (r *Repo) BucketedAverage(ctx context.Context, table string, start, end time.Time, interval string) ([]storage.Point, error) {
	sql := fmt.Sprintf(
		`SELECT time_bucket($1::interval, %s) AS bucket, AVG(%s)
FROM %s
WHERE %s >= $2 AND %s <= $3
GROUP BY bucket
ORDER BY bucket`,
		pgIdent("timestamp"), pgIdent("frequency"), pgFQN(table),
		pgIdent("timestamp"), pgIdent("timestamp"),
	)
	rows, err := r.pool.Query(ctx, sql, interval, start, end)
	if err != nil {
		return nil, pgError(err)
	}
	pts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[storage.Point])
	if err != nil {
		return nil, pgError(err)
	}
	return pts, nil
}

// tempName derives the staging relation name from the target table.
func tempName(table string) string {
	return "tmp_" + strings.ReplaceAll(table, ".", "_")
}

// tempTableSQL creates a transaction-scoped staging table with the target's
// shape and no rows.
func tempTableSQL(tmp, table string) string {
	return fmt.Sprintf(
		"CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WHERE false",
		pgIdent(tmp), strings.Join(mapIdent(schema.Columns), ","), pgFQN(table),
	)
}

// insertConflictSQL merges the staging rows into the target, discarding
// primary-key collisions.
func insertConflictSQL(table, tmp string) string {
	cols := strings.Join(mapIdent(schema.Columns), ",")
	return fmt.Sprintf(
		`INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO NOTHING`,
		pgFQN(table), cols, cols, pgIdent(tmp), pgIdent("timestamp"),
	)
}

// pgError surfaces the server-side detail of a pgconn error when present.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s (%s): %w", pgErr.Detail, pgErr.SQLState(), err)
	}
	return err
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.hr_events" to
// "public"."hr_events". If no dot is present, returns a single quoted ident.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
