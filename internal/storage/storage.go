// Package storage contains the sink-side contracts of the ingestion pipeline.
// Concrete implementations live in subpackages (postgres); the coordinator and
// the query service depend only on these interfaces.
package storage

import (
	"context"
	"time"

	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/normalize"
)

// LoadResult summarizes one bulk-load operation.
type LoadResult struct {
	// Copied is the number of rows streamed into the staging relation.
	Copied int64
	// Inserted is the number of rows visible in the target after conflict
	// suppression; re-ingested duplicates make it smaller than Copied.
	Inserted int64
	// Elapsed is the wall time of the whole operation (copy + merge).
	Elapsed time.Duration
}

// BulkLoader streams a complete accepted-row collection into the target
// relation using the sink's bulk protocol. The operation is atomic: on error
// nothing from this load attempt is visible.
type BulkLoader interface {
	BulkLoad(ctx context.Context, table string, rows []normalize.Row) (LoadResult, error)
}

// Point is one (timestamp, frequency) pair as served by the read side.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Frequency float64   `json:"frequency"`
}

// Reader is the query surface over an ingested relation.
type Reader interface {
	// RawRange returns all rows in [start, end], ascending by timestamp.
	RawRange(ctx context.Context, table string, start, end time.Time) ([]Point, error)
	// BucketedAverage returns per-bucket averages in [start, end] at the
	// given Postgres interval width, ascending by bucket.
	BucketedAverage(ctx context.Context, table string, start, end time.Time, interval string) ([]Point, error)
}
