package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerijus-areska/aimu/internal/audio"
	"github.com/nerijus-areska/aimu/internal/config"
	database "github.com/nerijus-areska/aimu/internal/db"
	"github.com/nerijus-areska/aimu/internal/ingest"
	"github.com/nerijus-areska/aimu/internal/library"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	rating := flag.Int("rating", 0, "Rating for new tracks, 1-3 (default from config)")
	noMetadata := flag.Bool("no-metadata", false, "Add paths only, skip tag and duration reading")
	formats := flag.String("formats", "", "Comma separated extensions, e.g. mp3,flac (default from config)")
	metricsAddr := flag.String("metrics", "", "Expose scan metrics on this address while scanning")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s <dir> [flags]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// flags may also follow the directory
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	root := args[0]
	flag.CommandLine.Parse(args[1:])

	// 1. Setup Configuration
	cfg := config.Load()
	if *rating != 0 {
		cfg.Scanner.DefaultRating = *rating
	}
	if *formats != "" {
		cfg.Scanner.Formats = *formats
	}

	// 2. Initialize Infrastructure
	db := database.New(cfg)
	defer db.Close()
	if err := db.AutoMigrate(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	// 3. Setup Metrics
	ingest.RegisterMetrics()
	library.RegisterMetrics()
	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Printf("📊 Metrics exposed at http://%s/metrics", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Printf("⚠️ Metrics server error: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Scan
	scanner := ingest.New(library.NewRepository(db.DB), ingest.Options{
		Rating:       cfg.Scanner.DefaultRating,
		ReadMetadata: !*noMetadata,
		Formats:      cfg.ScannerFormats(),
	})

	for _, f := range cfg.ScannerFormats() {
		if !audio.IsKnownFormat(f) {
			log.Printf("⚠️ %s is not a known audio format, files will be skipped by the player", f)
		}
	}
	log.Printf("🔎 Scanning %s (%v)", root, cfg.ScannerFormats())
	res, err := scanner.Scan(ctx, root)
	if err != nil {
		log.Fatalf("❌ Scan failed: %v", err)
	}
	log.Printf("✅ Found %d files, added %d new tracks, %d warnings", res.Found, res.Added, res.Warnings)
}
