// Package normalize converts raw delimited Swissgrid export lines into
// load-ready rows.
//
// The exported entry point, Line, is a pure function: it performs no I/O,
// holds no state, and is safe to call from any number of goroutines. A line
// either normalizes into a Row or is rejected with a Reason; a malformed line
// is data, never an error.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CanonicalLayout is the fixed output layout for timestamps. No timezone
// suffix; values are treated as UTC-naive downstream.
const CanonicalLayout = "2006-01-02 15:04:05"

// Row is a normalized measurement: one instant, one finite value.
// Immutable once created; the worker that produced it owns it until handoff.
type Row struct {
	Timestamp time.Time
	Frequency float64
}

// Canonical renders the timestamp in the fixed output layout.
func (r Row) Canonical() string {
	return r.Timestamp.Format(CanonicalLayout)
}

// CopyLine renders the row in the sink bulk-load format: "timestamp,value".
func (r Row) CopyLine() string {
	return r.Canonical() + "," + strconv.FormatFloat(r.Frequency, 'g', -1, 64)
}

// Reason classifies the outcome of normalizing one line. OK means the line
// produced a Row; the Reject* values are reject marker classes used only for
// counting.
type Reason uint8

const (
	OK Reason = iota
	RejectFieldCount
	RejectBadValue
	RejectBadTimestamp
)

// String returns the stable label used in reports and logs.
func (r Reason) String() string {
	switch r {
	case OK:
		return "ok"
	case RejectFieldCount:
		return "field_count"
	case RejectBadValue:
		return "bad_value"
	case RejectBadTimestamp:
		return "bad_timestamp"
	}
	return "unknown"
}

// The export renders timestamps as "Sa. 01.05.21 00:00:00" where the weekday
// abbreviation's spelling and length depend on the producing locale. A
// tolerant search keeps us independent of any runtime locale state: we only
// anchor on the digits.
var (
	localizedPattern = regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{2})\s+(\d{2}:\d{2}:\d{2})`)
	canonicalPattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[ T](\d{2}:\d{2}:\d{2})`)
)

// Line normalizes one raw input line split on delim. The first field must
// carry a timestamp in either the localized export layout (DD.MM.YY HH:MM:SS,
// optionally prefixed with a weekday abbreviation) or the canonical layout
// already produced by this function; the second field must carry a decimal
// number with either a comma or a dot separator.
//
// Two-digit years map to the 2000s. The reassembled timestamp is re-parsed
// with the strict canonical layout so impossible calendar instants (month 13,
// day 32) are rejected rather than silently accepted by the pattern match.
func Line(raw, delim string) (Row, Reason) {
	fields := strings.SplitN(raw, delim, 3)
	if len(fields) < 2 {
		return Row{}, RejectFieldCount
	}

	rawTS := trimField(fields[0])
	rawVal := strings.ReplaceAll(trimField(fields[1]), ",", ".")

	val, err := strconv.ParseFloat(rawVal, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return Row{}, RejectBadValue
	}

	iso, ok := canonicalTimestamp(rawTS)
	if !ok {
		return Row{}, RejectBadTimestamp
	}
	ts, err := time.ParseInLocation(CanonicalLayout, iso, time.UTC)
	if err != nil {
		return Row{}, RejectBadTimestamp
	}

	return Row{Timestamp: ts, Frequency: val}, OK
}

// canonicalTimestamp extracts a "YYYY-MM-DD HH:MM:SS" string from the raw
// timestamp field, accepting both the localized and the canonical layout.
func canonicalTimestamp(raw string) (string, bool) {
	if m := canonicalPattern.FindStringSubmatch(raw); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3] + " " + m[4], true
	}
	if m := localizedPattern.FindStringSubmatch(raw); m != nil {
		// m[1]=day m[2]=month m[3]=two-digit year, mapped to the 2000s.
		return "20" + m[3] + "-" + m[2] + "-" + m[1] + " " + m[4], true
	}
	return "", false
}

// trimField strips surrounding whitespace and quote characters.
func trimField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}
