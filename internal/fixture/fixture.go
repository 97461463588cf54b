// Package fixture writes synthetic grid-frequency CSV files in the same
// localized shape as the real exports: a header line, then one ;-delimited
// row per second with a German weekday prefix and a comma decimal mark.
package fixture

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Header is the column header line of a generated file.
const Header = "Datum Zeit;A:f_soll_aktiv [Hz]"

// weekdayAbbrev maps time.Weekday onto the German two-letter abbreviations
// used in the exports.
var weekdayAbbrev = [7]string{"So.", "Mo.", "Di.", "Mi.", "Do.", "Fr.", "Sa."}

// Options configures one generated file.
type Options struct {
	// Path is the output file; an existing file is overwritten.
	Path string
	// Start is the timestamp of the first row; naive wall-clock, written as-is.
	Start time.Time
	// Seconds is the covered span; the file holds Seconds+1 rows, one per
	// second inclusive of both endpoints.
	Seconds int
	// Frequency is the constant value written to every row, in Hz.
	// Zero means 50.
	Frequency float64
}

// FormatLine renders one data line in the localized export shape.
func FormatLine(ts time.Time, hz float64) string {
	value := strings.Replace(fmt.Sprintf("%.3f", hz), ".", ",", 1)
	return fmt.Sprintf("%s %s;%s", weekdayAbbrev[ts.Weekday()], ts.Format("02.01.06 15:04:05"), value)
}

// Generate writes the fixture file. Rows are emitted in ascending timestamp
// order with no gaps, so the result is a valid one-week-style export that the
// pipeline ingests without rejects.
func Generate(opts Options) error {
	if opts.Path == "" {
		return fmt.Errorf("fixture: path required")
	}
	if opts.Seconds < 0 {
		return fmt.Errorf("fixture: negative span")
	}
	hz := opts.Frequency
	if hz == 0 {
		hz = 50
	}

	f, err := os.Create(opts.Path)
	if err != nil {
		return fmt.Errorf("fixture: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := fmt.Fprintln(w, Header); err != nil {
		return fmt.Errorf("fixture: write header: %w", err)
	}

	total := opts.Seconds + 1
	step := total / 10
	for i := 0; i < total; i++ {
		ts := opts.Start.Add(time.Duration(i) * time.Second)
		if _, err := fmt.Fprintln(w, FormatLine(ts, hz)); err != nil {
			return fmt.Errorf("fixture: write row: %w", err)
		}
		if step > 0 && (i+1)%step == 0 {
			log.Printf("fixture progress: %s/%s rows", humanize.Comma(int64(i+1)), humanize.Comma(int64(total)))
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("fixture: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("fixture: close: %w", err)
	}
	log.Printf("fixture written: %s rows=%s", opts.Path, humanize.Comma(int64(total)))
	return nil
}
