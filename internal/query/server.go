// Package query exposes a small read-only HTTP API over ingested frequency
// tables.
//
// Routes:
//
//	GET /health                  → liveness probe
//	GET /data/raw/{table}        → raw rows in [start_time, end_time]
//	GET /data/aggregated/{table} → per-bucket averages at a fixed resolution
//
// Timestamps are accepted as RFC3339 ("2019-07-01T00:00:00Z") or as the
// canonical storage layout ("2019-07-01 00:00:00"). Responses are JSON.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/normalize"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/storage"
)

// Store is the read surface the server queries. It is satisfied by
// storage/postgres.Repo.
type Store = storage.Reader

// resolutions maps the API's resolution tokens onto explicit Postgres
// interval strings. Only these tokens are accepted; the interval string is
// bound as a query parameter, never interpolated.
var resolutions = map[string]string{
	"1s":  "1 second",
	"1m":  "1 minute",
	"15m": "15 minutes",
	"1h":  "1 hour",
	"1d":  "1 day",
}

const defaultResolution = "1m"

// Config controls server startup.
type Config struct {
	Addr string

	// Tables whitelists the relations the API may query. Requests for any
	// other table are rejected with 404.
	Tables []string
}

// Server wraps http.Server for convenience.
type Server struct {
	cfg   Config
	store Store
	mux   *http.ServeMux
}

// NewServer constructs a Server with routes installed.
func NewServer(cfg Config, store Store) *Server {
	s := &Server{cfg: cfg, store: store, mux: http.NewServeMux()}
	s.routes()
	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	log.Printf("query api listening on %s tables=%v", s.cfg.Addr, s.cfg.Tables)
	return http.ListenAndServe(s.cfg.Addr, s.mux)
}

// Handler returns the route multiplexer, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /data/raw/{table}", s.handleRaw)
	s.mux.HandleFunc("GET /data/aggregated/{table}", s.handleAggregated)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// rangeRequest holds the validated parameters shared by both data endpoints.
type rangeRequest struct {
	table      string
	start, end time.Time
}

func (s *Server) parseRange(r *http.Request) (rangeRequest, int, error) {
	table := r.PathValue("table")
	if !s.tableAllowed(table) {
		return rangeRequest{}, http.StatusNotFound, fmt.Errorf("unknown table %q", table)
	}

	q := r.URL.Query()
	start, err := parseTime(q.Get("start_time"))
	if err != nil {
		return rangeRequest{}, http.StatusBadRequest, fmt.Errorf("start_time: %w", err)
	}
	end, err := parseTime(q.Get("end_time"))
	if err != nil {
		return rangeRequest{}, http.StatusBadRequest, fmt.Errorf("end_time: %w", err)
	}
	if end.Before(start) {
		return rangeRequest{}, http.StatusBadRequest, errors.New("end_time before start_time")
	}
	return rangeRequest{table: table, start: start, end: end}, 0, nil
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	req, code, err := s.parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), code)
		return
	}

	pts, err := s.store.RawRange(r.Context(), req.table, req.start, req.end)
	if err != nil {
		log.Printf("raw query table=%s: %v", req.table, err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if len(pts) == 0 {
		http.Error(w, "no data in range", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Table: req.table, Count: len(pts), Data: pts})
}

func (s *Server) handleAggregated(w http.ResponseWriter, r *http.Request) {
	req, code, err := s.parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), code)
		return
	}

	token := r.URL.Query().Get("resolution")
	if token == "" {
		token = defaultResolution
	}
	interval, ok := resolutions[token]
	if !ok {
		http.Error(w, fmt.Sprintf("unsupported resolution %q", token), http.StatusBadRequest)
		return
	}

	pts, err := s.store.BucketedAverage(r.Context(), req.table, req.start, req.end, interval)
	if err != nil {
		log.Printf("aggregated query table=%s: %v", req.table, err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if len(pts) == 0 {
		http.Error(w, "no data in range", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Table: req.table, Resolution: token, Count: len(pts), Data: pts})
}

func (s *Server) tableAllowed(table string) bool {
	for _, t := range s.cfg.Tables {
		if t == table {
			return true
		}
	}
	return false
}

type dataResponse struct {
	Table      string          `json:"table"`
	Resolution string          `json:"resolution,omitempty"`
	Count      int             `json:"count"`
	Data       []storage.Point `json:"data"`
}

// parseTime accepts RFC3339 or the canonical storage layout; naive timestamps
// are taken as UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(normalize.CanonicalLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
