// This file adds a lightweight linter/validator for Run values. It performs
// static checks over a decoded Run and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding surfaced to users without blocking
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Run. Path is a dotted
// path into the config (e.g. "db.dsn").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation of a Run. It does not mutate the run;
// callers decide whether warnings are fatal.
func Validate(r Run) []Issue {
	var issues []Issue

	if strings.TrimSpace(r.Table) == "" {
		issues = append(issues, Issue{SeverityError, "table", "table must not be empty"})
	}
	if strings.TrimSpace(r.SourcePath) == "" {
		issues = append(issues, Issue{SeverityError, "source_path", "source_path must not be empty"})
	}
	switch r.Mode {
	case ModeAppend, ModeTruncate, ModeRebuild, "":
	default:
		issues = append(issues, Issue{
			SeverityError, "mode",
			fmt.Sprintf("unknown mode %q (want append, truncate or rebuild)", r.Mode),
		})
	}
	switch r.Encoding {
	case "", "utf8", "latin1":
	default:
		issues = append(issues, Issue{
			SeverityError, "encoding",
			fmt.Sprintf("unknown encoding %q (want utf8 or latin1)", r.Encoding),
		})
	}
	if len(r.Delimiter) > 1 {
		issues = append(issues, Issue{
			SeverityWarning, "delimiter",
			"multi-character delimiters are unusual for this export format",
		})
	}
	if r.Workers < 0 {
		issues = append(issues, Issue{SeverityError, "workers", "workers must not be negative"})
	}
	if r.ChunkSize < 0 {
		issues = append(issues, Issue{SeverityError, "chunk_size", "chunk_size must not be negative"})
	}
	if r.DB.DSN != "" && !strings.HasPrefix(r.DB.DSN, "postgres") {
		issues = append(issues, Issue{
			SeverityWarning, "db.dsn",
			"dsn does not look like a postgres connection string",
		})
	}
	return issues
}

// HasError reports whether any issue is of error severity.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
