package main

import (
	"flag"
	"log"
	"time"

	"github.com/Patxi91/Swissgrid-TimeSeries-Project/internal/fixture"
)

// main is the entry point for the fixture generator. It writes a synthetic
// frequency export covering the requested span, one row per second.
func main() {
	var (
		outPath  string
		startStr string
		days     int
		seconds  int
		hz       float64
	)

	flag.StringVar(&outPath, "out", "frequency.csv", "output CSV path")
	flag.StringVar(&startStr, "start", "2019-07-01 00:00:00", "first timestamp (YYYY-MM-DD HH:MM:SS)")
	flag.IntVar(&days, "days", 7, "span in days (ignored when -seconds is set)")
	flag.IntVar(&seconds, "seconds", 0, "span in seconds (overrides -days)")
	flag.Float64Var(&hz, "hz", 50, "constant frequency value to write")

	flag.Parse()

	start, err := time.ParseInLocation("2006-01-02 15:04:05", startStr, time.UTC)
	if err != nil {
		log.Fatalf("parse -start: %v", err)
	}

	span := seconds
	if span == 0 {
		span = days * 24 * 3600
	}

	begin := time.Now()
	if err := fixture.Generate(fixture.Options{
		Path:      outPath,
		Start:     start,
		Seconds:   span,
		Frequency: hz,
	}); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("completed in %s", time.Since(begin).Truncate(time.Millisecond))
}
