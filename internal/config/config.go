// Package config defines the JSON-serializable run configuration for the
// ingestion service and the environment-variable fallbacks around it.
//
// Precedence, 12-factor style: explicit JSON values win, then environment
// variables, then built-in defaults. Database credentials are never stored in
// run files; the DSN is assembled from POSTGRES_* variables (optionally loaded
// from a local .env file) unless an explicit DSN is provided.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

// Mode selects what happens to the target relation before the load phase.
type Mode string

const (
	// ModeAppend keeps existing rows; duplicate timestamps from re-ingestion
	// are suppressed at load time. This is the default.
	ModeAppend Mode = "append"
	// ModeTruncate keeps the relation but clears all rows before loading.
	ModeTruncate Mode = "truncate"
	// ModeRebuild drops and recreates the relation. Destructive; only ever
	// applied on explicit request.
	ModeRebuild Mode = "rebuild"
)

// Run describes one ingestion run. Field names mirror the JSON structure used
// in run files under configs/.
type Run struct {
	// Table is the target relation name, e.g. "swissgrid_frequency_data".
	Table string `json:"table"`

	// SourcePath is the local path of the delimited input file.
	SourcePath string `json:"source_path"`

	// Mode is one of "append", "truncate", "rebuild". Empty means append.
	Mode Mode `json:"mode"`

	// Delimiter separates the two source columns. Default ";".
	Delimiter string `json:"delimiter"`

	// Encoding is the source text encoding: "utf8" (default) or "latin1".
	Encoding string `json:"encoding"`

	// Workers is the transform worker count. Default: number of CPUs.
	Workers int `json:"workers"`

	// ChunkSize is the number of lines handed to a worker per dispatch.
	// Default 1000.
	ChunkSize int `json:"chunk_size"`

	// MaxInFlight caps the number of dispatched-but-uncollected chunks.
	// Default 2 * Workers.
	MaxInFlight int `json:"max_in_flight"`

	// DB configures the sink connection.
	DB DB `json:"db"`
}

// DB holds sink connection settings.
type DB struct {
	// DSN is the full pgx connection string. When empty it is assembled from
	// POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER and
	// POSTGRES_PASSWORD.
	DSN string `json:"dsn"`

	// ConnectAttempts bounds connection acquisition retries. Default 5.
	ConnectAttempts int `json:"connect_attempts"`

	// ConnectDelaySeconds is the fixed pause between attempts. Default 5.
	ConnectDelaySeconds int `json:"connect_delay_seconds"`
}

// Load reads a run file, loads a .env file when present, and resolves all
// defaults and environment fallbacks. The returned Run is ready to execute.
func Load(path string) (Run, error) {
	// Missing .env is the normal case outside docker-compose setups.
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return Run{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var r Run
	if err := json.NewDecoder(f).Decode(&r); err != nil {
		return Run{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	r.ApplyDefaults()
	return r, nil
}

// ApplyDefaults fills unset fields from environment variables and built-in
// defaults. It is idempotent.
func (r *Run) ApplyDefaults() {
	if r.Table == "" {
		r.Table = getenvStr("INGEST_TABLE", "swissgrid_frequency_data")
	}
	if r.Mode == "" {
		r.Mode = ModeAppend
	}
	if r.Delimiter == "" {
		r.Delimiter = ";"
	}
	if r.Encoding == "" {
		r.Encoding = "utf8"
	}
	r.Workers = pickInt(r.Workers, getenvInt("INGEST_WORKERS", runtime.NumCPU()))
	r.ChunkSize = pickInt(r.ChunkSize, getenvInt("INGEST_CHUNK_SIZE", 1000))
	r.MaxInFlight = pickInt(r.MaxInFlight, 2*r.Workers)
	if r.DB.DSN == "" {
		r.DB.DSN = dsnFromEnv()
	}
	r.DB.ConnectAttempts = pickInt(r.DB.ConnectAttempts, 5)
	r.DB.ConnectDelaySeconds = pickInt(r.DB.ConnectDelaySeconds, 5)
}

// dsnFromEnv assembles a pgx URL from the POSTGRES_* variables, with the
// docker-compose defaults of the project.
func dsnFromEnv() string {
	u := url.URL{
		Scheme: "postgres",
		User: url.UserPassword(
			getenvStr("POSTGRES_USER", "swissgrid"),
			getenvStr("POSTGRES_PASSWORD", "swissgrid1234"),
		),
		Host:     getenvStr("POSTGRES_HOST", "localhost") + ":" + getenvStr("POSTGRES_PORT", "5431"),
		Path:     "/" + getenvStr("POSTGRES_DB", "timeseries_db"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// getenvStr reads a string from the environment, returning def when unset.
func getenvStr(k, def string) string {
	if s := os.Getenv(k); s != "" {
		return s
	}
	return def
}

// getenvInt reads an int from the environment, returning def when unset or
// invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
