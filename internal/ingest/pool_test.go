package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleLines builds n well-formed data lines plus the given bad lines mixed
// at fixed positions so every run sees the same input.
func sampleLines(n int, bad ...string) []string {
	lines := make([]string, 0, n+len(bad))
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("Mo. 01.07.19 %02d:%02d:%02d;50,%03d", i/3600%24, i/60%60, i%60, i%1000))
	}
	for i, b := range bad {
		pos := (i * 97) % len(lines)
		lines = append(lines[:pos], append([]string{b}, lines[pos:]...)...)
	}
	return lines
}

func TestTransform_AccountsEveryLine(t *testing.T) {
	t.Parallel()

	lines := sampleLines(2500,
		"garbage",
		"Mo. 01.07.19 00:00:00;not-a-number",
		"Mo. 99.99.99 00:00:00;50,001",
	)

	var stats PoolStats
	rows, err := Transform(context.Background(), lines, 2, PoolOptions{Workers: 4, ChunkSize: 100}, &stats)
	require.NoError(t, err)

	assert.EqualValues(t, len(lines), stats.Total.Load())
	assert.EqualValues(t, 2500, stats.Accepted.Load())
	assert.EqualValues(t, 3, stats.Rejected.Load())
	assert.Len(t, rows, 2500)
	assert.Equal(t, stats.Total.Load(), stats.Accepted.Load()+stats.Rejected.Load(),
		"every line must be accounted exactly once")

	byReason := stats.RejectsByReason()
	assert.EqualValues(t, 1, byReason["field_count"])
	assert.EqualValues(t, 1, byReason["bad_value"])
	assert.EqualValues(t, 1, byReason["bad_timestamp"])
}

func TestTransform_WorkerCountInvariance(t *testing.T) {
	t.Parallel()

	lines := sampleLines(3333, "broken", "also;bad;extra;fields")

	var statsSerial PoolStats
	serial, err := Transform(context.Background(), lines, 2, PoolOptions{Workers: 1, ChunkSize: 250}, &statsSerial)
	require.NoError(t, err)

	var statsParallel PoolStats
	parallel, err := Transform(context.Background(), lines, 2, PoolOptions{Workers: 8, ChunkSize: 250}, &statsParallel)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel, "results must not depend on worker count")
	assert.Equal(t, statsSerial.Accepted.Load(), statsParallel.Accepted.Load())
	assert.Equal(t, statsSerial.Rejected.Load(), statsParallel.Rejected.Load())
	assert.Equal(t, statsSerial.RejectsByReason(), statsParallel.RejectsByReason())
}

func TestTransform_ChunkCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		lines     int
		chunkSize int
		want      int64
	}{
		{1, 1000, 1},
		{1000, 1000, 1},
		{1001, 1000, 2},
		{2500, 1000, 3},
	}
	for _, tc := range cases {
		var stats PoolStats
		_, err := Transform(context.Background(), sampleLines(tc.lines), 2, PoolOptions{Workers: 2, ChunkSize: tc.chunkSize}, &stats)
		require.NoError(t, err)
		assert.Equal(t, tc.want, stats.Chunks.Load(), "lines=%d chunk=%d", tc.lines, tc.chunkSize)
	}
}

func TestTransform_EmptyInput(t *testing.T) {
	t.Parallel()

	var stats PoolStats
	rows, err := Transform(context.Background(), nil, 2, PoolOptions{}, &stats)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, stats.Total.Load())
	assert.Zero(t, stats.Chunks.Load())
}

func TestTransform_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stats PoolStats
	_, err := Transform(ctx, sampleLines(5000), 2, PoolOptions{Workers: 2, ChunkSize: 10}, &stats)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolOptions_Defaults(t *testing.T) {
	t.Parallel()

	o := PoolOptions{}
	o.applyDefaults()
	assert.Equal(t, 1, o.Workers)
	assert.Equal(t, 1000, o.ChunkSize)
	assert.Equal(t, 2, o.MaxInFlight)
	assert.Equal(t, ";", o.Delimiter)

	o = PoolOptions{Workers: 6}
	o.applyDefaults()
	assert.Equal(t, 12, o.MaxInFlight)
}
