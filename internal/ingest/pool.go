// Package ingest runs the pipeline: prepare the target relation, transform the
// raw lines on a worker pool, and hand the accepted rows to the bulk loader in
// one strictly ordered pass of phases.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/normalize"
)

const (
	// sampleRejects bounds how many example lines are logged per reject reason.
	sampleRejects = 3

	// progressEvery is the line interval between transform progress logs.
	progressEvery = 100_000
)

// PoolOptions resolves the concurrency and chunking configuration for a
// transform run.
type PoolOptions struct {
	// Workers is the number of transform goroutines; values < 1 mean 1.
	Workers int
	// ChunkSize is the number of lines handed to a worker at once; values < 1
	// mean 1000.
	ChunkSize int
	// MaxInFlight bounds the dispatch channel; values < 1 mean 2*Workers.
	MaxInFlight int
	// Delimiter separates the timestamp and value fields; empty means ";".
	Delimiter string
}

func (o *PoolOptions) applyDefaults() {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.ChunkSize < 1 {
		o.ChunkSize = 1000
	}
	if o.MaxInFlight < 1 {
		o.MaxInFlight = 2 * o.Workers
	}
	if o.Delimiter == "" {
		o.Delimiter = ";"
	}
}

// PoolStats holds cross-goroutine statistics for one transform run.
//
// Counter fields are updated atomically by the workers; read them only after
// Transform has returned.
type PoolStats struct {
	Total    atomic.Int64 // data lines entering the pool
	Accepted atomic.Int64 // lines that produced a row
	Rejected atomic.Int64 // lines dropped with a reject reason
	Chunks   atomic.Int64 // chunks processed

	mu       sync.Mutex
	byReason map[string]int64
}

func (s *PoolStats) reject(reason normalize.Reason) {
	s.Rejected.Add(1)
	s.mu.Lock()
	if s.byReason == nil {
		s.byReason = make(map[string]int64)
	}
	s.byReason[reason.String()]++
	s.mu.Unlock()
}

// RejectsByReason returns a copy of the per-reason reject counts.
func (s *PoolStats) RejectsByReason() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byReason))
	for k, v := range s.byReason {
		out[k] = v
	}
	return out
}

// chunk is one unit of work: a contiguous slice of raw data lines.
type chunk struct {
	index int      // position in dispatch order
	start int      // 1-based file line number of lines[0]
	lines []string // borrowed from the source slice, read-only
}

// chunkResult carries the accepted rows of one chunk back to the collector.
type chunkResult struct {
	rows []normalize.Row
}

// rejectSampler aggregates reject examples, keeping only the first few
// messages per reason so a million bad lines cannot flood the log.
type rejectSampler struct {
	mu    sync.Mutex
	limit int
	first map[string][]string
	count map[string]int64
}

func newRejectSampler(limit int) *rejectSampler {
	return &rejectSampler{
		limit: limit,
		first: make(map[string][]string),
		count: make(map[string]int64),
	}
}

func (a *rejectSampler) add(reason normalize.Reason, line int, raw string) {
	key := reason.String()
	a.mu.Lock()
	a.count[key]++
	if len(a.first[key]) < a.limit {
		a.first[key] = append(a.first[key], fmt.Sprintf("line=%d: %q", line, raw))
	}
	a.mu.Unlock()
}

func (a *rejectSampler) logSummary() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for reason, n := range a.count {
		log.Printf("rejects reason=%s count=%d (showing first %d)", reason, n, len(a.first[reason]))
		for i, s := range a.first[reason] {
			log.Printf("  #%03d: %s", i+1, s)
		}
	}
}

// Transform runs the worker pool over the raw data lines and returns every
// accepted row. Each input line yields exactly one outcome: a row, or a
// counted reject. The returned slice is ordered by input position regardless
// of worker count, so results are deterministic for a given input.
//
// Rejects are fail-soft: they are counted and sampled into the log but never
// abort the run. Only context cancellation makes Transform return an error.
func Transform(ctx context.Context, lines []string, startLine int, opts PoolOptions, stats *PoolStats) ([]normalize.Row, error) {
	opts.applyDefaults()

	total := len(lines)
	stats.Total.Add(int64(total))
	if total == 0 {
		return nil, nil
	}

	numChunks := (total + opts.ChunkSize - 1) / opts.ChunkSize
	results := make([]chunkResult, numChunks)
	sampler := newRejectSampler(sampleRejects)

	var processed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)

	work := make(chan chunk, opts.MaxInFlight)
	g.Go(func() error {
		defer close(work)
		for i := 0; i < numChunks; i++ {
			lo := i * opts.ChunkSize
			hi := lo + opts.ChunkSize
			if hi > total {
				hi = total
			}
			c := chunk{index: i, start: startLine + lo, lines: lines[lo:hi]}
			select {
			case work <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < opts.Workers; w++ {
		g.Go(func() error {
			for c := range work {
				if err := ctx.Err(); err != nil {
					return err
				}
				rows := make([]normalize.Row, 0, len(c.lines))
				for i, raw := range c.lines {
					row, reason := normalize.Line(raw, opts.Delimiter)
					if reason != normalize.OK {
						stats.reject(reason)
						sampler.add(reason, c.start+i, raw)
						continue
					}
					rows = append(rows, row)
				}
				// Each chunk index is written by exactly one worker.
				results[c.index] = chunkResult{rows: rows}
				stats.Accepted.Add(int64(len(rows)))
				stats.Chunks.Add(1)

				done := processed.Add(int64(len(c.lines)))
				if done/progressEvery != (done-int64(len(c.lines)))/progressEvery {
					log.Printf("transform progress: %s/%s lines",
						humanize.Comma(done), humanize.Comma(int64(total)))
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}

	sampler.logSummary()

	out := make([]normalize.Row, 0, stats.Accepted.Load())
	for _, r := range results {
		out = append(out, r.rows...)
	}
	return out, nil
}
