package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/config"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/query"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/storage/postgres"
)

// main is the entry point for the read-only query API. It connects to the
// database and serves raw and aggregated frequency data over HTTP.
func main() {
	var (
		cfgPath   string
		addr      string
		tablesFlg string
	)

	flag.StringVar(&cfgPath, "config", "configs/run.json", "run config JSON path (for DB settings)")
	flag.StringVar(&addr, "addr", ":8000", "listen address")
	flag.StringVar(&tablesFlg, "tables", "", "comma-separated table whitelist (default: config table)")

	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	tables := []string{cfg.Table}
	if tablesFlg != "" {
		tables = strings.Split(tablesFlg, ",")
		for i := range tables {
			tables[i] = strings.TrimSpace(tables[i])
		}
	}

	ctx := context.Background()
	repo, release, err := postgres.Connect(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		ConnectAttempts: cfg.DB.ConnectAttempts,
		ConnectDelay:    time.Duration(cfg.DB.ConnectDelaySeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer release()

	srv := query.NewServer(query.Config{Addr: addr, Tables: tables}, repo)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("%v", err)
	}
}
