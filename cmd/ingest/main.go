package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/config"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/ingest"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/metrics"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/metrics/datadog"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/metrics/prompush"
	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/storage/postgres"
)

// main is the entry point for the ingest binary. It loads the run config,
// optionally initializes a metrics backend, connects to the sink, and
// executes one full ingestion run.
func main() {
	var (
		cfgPath           string
		sourceFlg         string
		tableFlg          string
		modeFlg           string
		workersFlg        int
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/run.json", "run config JSON path")
	flag.StringVar(&sourceFlg, "source", "", "source CSV path (overrides config)")
	flag.StringVar(&tableFlg, "table", "", "target table (overrides config)")
	flag.StringVar(&modeFlg, "mode", "", "ingestion mode: append, truncate, rebuild (overrides config)")
	flag.IntVar(&workersFlg, "workers", 0, "transform workers (overrides config)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if sourceFlg != "" {
		cfg.SourcePath = sourceFlg
	}
	if tableFlg != "" {
		cfg.Table = tableFlg
	}
	if modeFlg != "" {
		cfg.Mode = config.Mode(modeFlg)
	}
	if workersFlg > 0 {
		cfg.Workers = workersFlg
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	setupMetrics(metricsBackendFlg, pushGatewayURLFlg, dogstatsdAddrFlg, cfg.Table, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	repo, release, err := postgres.Connect(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		ConnectAttempts: cfg.DB.ConnectAttempts,
		ConnectDelay:    time.Duration(cfg.DB.ConnectDelaySeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer release()

	if _, err := ingest.Run(ctx, cfg, repo); err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// setupMetrics decides the metrics backend: flag → env → default (nop).
func setupMetrics(backendName, gwURL, ddAddr, jobName string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if jobName == "" {
		jobName = "ingest"
	}

	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
		metrics.SetBackend(b)

	case "datadog":
		if ddAddr == "" {
			ddAddr = os.Getenv("DOGSTATSD_ADDR")
		}
		if ddAddr == "" {
			ddAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: ddAddr, Namespace: "ingest."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", ddAddr, backendName, jobName)
		metrics.SetBackend(b)

	case "", "none":
		// metrics disabled; nop backend remains
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
