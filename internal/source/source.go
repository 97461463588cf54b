// Package source reads local delimited export files for the transform phase.
//
// The whole file is slurped into per-line strings up front: the pipeline is
// CPU-bound on normalization, total line count is needed for percentage
// progress, and the rows exist only in the producer's buffer until handoff.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// scanBufSize caps the line scanner's token size. Export lines are short; a
// megabyte leaves generous headroom for damaged input.
const scanBufSize = 1 << 20

// File is the in-memory form of one source file. The header row is metadata,
// not data: it is kept for diagnostics and layout fingerprinting but never
// fed to the normalizer.
type File struct {
	Path        string
	Header      string
	Lines       []string
	Fingerprint uint64 // xxh3 of the raw header line
}

// TotalLines returns the number of data lines (header excluded).
func (f *File) TotalLines() int { return len(f.Lines) }

// Read opens path and returns its header and data lines. encoding is "utf8"
// or "latin1"; Latin-1 sources are transcoded on the fly so the normalizer
// always sees UTF-8.
func Read(ctx context.Context, path, encoding string) (*File, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	adviseSequential(f)

	var r io.Reader = f
	switch encoding {
	case "", "utf8":
	case "latin1":
		r = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), scanBufSize)

	out := &File{Path: path}
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			first = false
			line = strings.TrimPrefix(line, "\uFEFF") // strip BOM
			out.Header = line
			out.Fingerprint = xxh3.HashString(line)
			continue
		}
		out.Lines = append(out.Lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
