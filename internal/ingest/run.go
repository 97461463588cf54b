package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/config"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/metrics"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/normalize"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/schema"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/source"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/storage"
)

// Sink is the storage surface the coordinator needs: DDL for the setup phase
// and the bulk protocol for the load phase. storage/postgres.Repo satisfies it.
type Sink interface {
	schema.DB
	storage.BulkLoader
}

// Outcome summarizes one complete run. Counts are populated even when the
// run fails partway, so a failed load still reports what was transformed.
type Outcome struct {
	RunID  string
	Table  string
	Source string

	TotalLines      int64
	Accepted        int64
	Rejected        int64
	RejectsByReason map[string]int64

	Copied   int64
	Inserted int64

	Setup     time.Duration
	Transform time.Duration
	Load      time.Duration
	Elapsed   time.Duration
}

// Function variable used to introduce a test seam.
// In production it points to the real implementation; tests can override it.
var readSourceFn = source.Read

// Run executes one full ingestion: prepare the target relation, read and
// transform the source file on the worker pool, then bulk-load the accepted
// rows. Phases run strictly in order; a phase starts only after the previous
// one finished, and any phase error is fatal for the run.
func Run(ctx context.Context, cfg config.Run, sink Sink) (Outcome, error) {
	started := time.Now()
	out := Outcome{
		RunID:           uuid.NewString(),
		Table:           cfg.Table,
		Source:          cfg.SourcePath,
		RejectsByReason: map[string]int64{},
	}

	log.Printf("run=%s table=%s source=%s mode=%s workers=%d chunk=%d",
		out.RunID, cfg.Table, cfg.SourcePath, cfg.Mode, cfg.Workers, cfg.ChunkSize)

	// Phase 1: setup.
	setupStart := time.Now()
	err := schema.Ensure(ctx, sink, schema.Options{
		Table:    cfg.Table,
		Rebuild:  cfg.Mode == config.ModeRebuild,
		Truncate: cfg.Mode == config.ModeTruncate,
	})
	out.Setup = time.Since(setupStart)
	metrics.RecordPhase(cfg.Table, "setup", err, out.Setup)
	if err != nil {
		out.Elapsed = time.Since(started)
		return out, fmt.Errorf("setup: %w", err)
	}

	// Phase 2: read + transform.
	transformStart := time.Now()
	rows, stats, err := transformSource(ctx, cfg)
	out.Transform = time.Since(transformStart)
	metrics.RecordPhase(cfg.Table, "transform", err, out.Transform)
	if err != nil {
		out.Elapsed = time.Since(started)
		return out, err
	}

	out.TotalLines = stats.Total.Load()
	out.Accepted = stats.Accepted.Load()
	out.Rejected = stats.Rejected.Load()
	out.RejectsByReason = stats.RejectsByReason()
	metrics.RecordRows(cfg.Table, "accepted", out.Accepted)
	metrics.RecordRows(cfg.Table, "rejected", out.Rejected)
	metrics.RecordChunks(cfg.Table, stats.Chunks.Load())

	// Phase 3: load. Counts above stay reported even when the load fails.
	loadStart := time.Now()
	res, err := sink.BulkLoad(ctx, cfg.Table, rows)
	out.Load = time.Since(loadStart)
	metrics.RecordPhase(cfg.Table, "load", err, out.Load)
	out.Elapsed = time.Since(started)
	if err != nil {
		logSummary(&out)
		return out, fmt.Errorf("load: %w", err)
	}
	out.Copied = res.Copied
	out.Inserted = res.Inserted
	metrics.RecordRows(cfg.Table, "inserted", out.Inserted)

	logSummary(&out)
	return out, nil
}

// transformSource reads the file and runs the worker pool over its data lines.
func transformSource(ctx context.Context, cfg config.Run) ([]normalize.Row, *PoolStats, error) {
	f, err := readSourceFn(ctx, cfg.SourcePath, cfg.Encoding)
	if err != nil {
		return nil, nil, fmt.Errorf("read source: %w", err)
	}
	log.Printf("source: %s lines=%s header_fp=%x",
		f.Path, humanize.Comma(int64(f.TotalLines())), f.Fingerprint)

	var stats PoolStats
	// Data lines start at file line 2; line 1 is the header.
	rows, err := Transform(ctx, f.Lines, 2, PoolOptions{
		Workers:     cfg.Workers,
		ChunkSize:   cfg.ChunkSize,
		MaxInFlight: cfg.MaxInFlight,
		Delimiter:   cfg.Delimiter,
	}, &stats)
	if err != nil {
		return nil, nil, err
	}
	return rows, &stats, nil
}

// logSummary prints the end-of-run statistics.
//
// Invariant: total == accepted + rejected. Inserted can be smaller than
// accepted when the target already held rows with the same timestamps.
func logSummary(o *Outcome) {
	rate := int64(0)
	if secs := o.Elapsed.Seconds(); secs > 0 {
		rate = int64(float64(o.Accepted) / secs)
	}
	log.Printf(
		"summary run=%s total=%s accepted=%s rejected=%s copied=%s inserted=%s rps=%d setup=%s transform=%s load=%s elapsed=%s",
		o.RunID,
		humanize.Comma(o.TotalLines),
		humanize.Comma(o.Accepted),
		humanize.Comma(o.Rejected),
		humanize.Comma(o.Copied),
		humanize.Comma(o.Inserted),
		rate,
		o.Setup.Truncate(time.Millisecond),
		o.Transform.Truncate(time.Millisecond),
		o.Load.Truncate(time.Millisecond),
		o.Elapsed.Truncate(time.Millisecond),
	)

	if o.TotalLines != o.Accepted+o.Rejected {
		log.Printf("WARNING: line accounting mismatch: total=%d accounted=%d (delta=%d)",
			o.TotalLines, o.Accepted+o.Rejected, o.TotalLines-o.Accepted-o.Rejected)
	}
}
