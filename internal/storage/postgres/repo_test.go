package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tmp_swissgrid_frequency_data", tempName("swissgrid_frequency_data"))
	assert.Equal(t, "tmp_public_t", tempName("public.t"))
}

func TestTempTableSQL(t *testing.T) {
	t.Parallel()

	got := tempTableSQL("tmp_t", "public.t")
	assert.Equal(t,
		`CREATE TEMP TABLE "tmp_t" ON COMMIT DROP AS SELECT "timestamp","frequency" FROM "public"."t" WHERE false`,
		got,
	)
}

func TestInsertConflictSQL(t *testing.T) {
	t.Parallel()

	got := insertConflictSQL("swissgrid_frequency_data", "tmp_swissgrid_frequency_data")
	assert.Equal(t,
		`INSERT INTO "swissgrid_frequency_data" ("timestamp","frequency") SELECT "timestamp","frequency" FROM "tmp_swissgrid_frequency_data" ON CONFLICT ("timestamp") DO NOTHING`,
		got,
	)
}

func TestPgFQN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"t"`, pgFQN("t"))
	assert.Equal(t, `"public"."t"`, pgFQN("public.t"))
	assert.Equal(t, `"weird""name"`, pgFQN(`weird"name`))
}

func TestPgError_UnwrapsDetail(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{
		Code:   "23505",
		Detail: `Key ("timestamp")=(2019-07-01 00:00:00+00) already exists.`,
	}
	wrapped := fmt.Errorf("exec: %w", pgErr)

	got := pgError(wrapped)
	require.Error(t, got)
	assert.ErrorContains(t, got, "already exists")
	assert.ErrorContains(t, got, "23505")
	assert.ErrorIs(t, got, pgErr)
}

func TestPgError_PassthroughWithoutDetail(t *testing.T) {
	t.Parallel()

	plain := errors.New("dial tcp: connection refused")
	assert.Same(t, plain, pgError(plain))

	noDetail := &pgconn.PgError{Code: "42P01"}
	var err error = noDetail
	assert.Equal(t, err, pgError(err))
}
