package main

// One-shot ledger maintenance, intended for a cron schedule:
//   go run ./cmd/sweeper -hours 24

import (
	"context"
	"flag"
	"log"
	"time"

	"skincare-backend/internal/bootstrap"
	"skincare-backend/internal/shared/config"
)

func main() {
	hours := flag.Int("hours", 24, "age in hours past which requests are swept")
	flag.Parse()

	if *hours <= 0 {
		log.Fatal("-hours must be positive")
	}

	cfg := config.Load()
	app, err := bootstrap.BuildWorker(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stats, err := app.Analysis.Sweep(ctx, time.Duration(*hours)*time.Hour)
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}
	log.Printf("sweep done: deleted=%d timed_out=%d", stats.Deleted, stats.TimedOut)
}
