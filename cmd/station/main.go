package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiserver "github.com/nerijus-areska/aimu/internal/api/server"
	"github.com/nerijus-areska/aimu/internal/audio"
	"github.com/nerijus-areska/aimu/internal/config"
	database "github.com/nerijus-areska/aimu/internal/db"
	"github.com/nerijus-areska/aimu/internal/dj"
	"github.com/nerijus-areska/aimu/internal/library"
	"github.com/nerijus-areska/aimu/internal/radio"
	"github.com/nerijus-areska/aimu/internal/station"
)

func main() {
	// 1. Parse Flags
	// Flags override config.yaml values
	simulate := flag.Bool("simulate", false, "Dry run: print station picks without playback or DB writes")
	picks := flag.Int("n", 20, "Number of picks to simulate")
	debug := flag.Bool("debug", false, "Log the score of every track on each station pick")
	pleasure := flag.Int("pleasure", 0, "Target pleasure 1-5 (default from config)")
	arousal := flag.Int("arousal", 0, "Target arousal 1-5 (default from config)")
	noAPI := flag.Bool("no-api", false, "Do not start the HTTP API")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// 2. Load Config
	cfg := config.Load()

	// 3. Apply Flag Overrides
	if *debug {
		cfg.Station.Debug = true
	}
	if *pleasure != 0 {
		cfg.Station.DefaultPleasure = *pleasure
	}
	if *arousal != 0 {
		cfg.Station.DefaultArousal = *arousal
	}
	if *noAPI {
		cfg.Server.Enabled = false
	}

	target := dj.Mood{Pleasure: cfg.Station.DefaultPleasure, Arousal: cfg.Station.DefaultArousal}
	if err := target.Validate(); err != nil {
		log.Fatalf("❌ Invalid target mood: %v", err)
	}

	// 4. Init Infrastructure
	db := database.New(cfg)
	defer db.Close()
	if err := db.AutoMigrate(); err != nil {
		log.Fatalf("❌ %v", err)
	}
	repo := library.NewRepository(db.DB).WithLocale(cfg.Language())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *simulate {
		log.Println("🧪 MODE: DRY RUN / SIMULATION")
		log.Println("   - No Audio Output")
		log.Println("   - Database will NOT be updated (Read-Only)")
		clock := audio.NewManualClock(time.Now())
		if err := radio.Simulate(ctx, repo, dj.NewSampler(nil), target, *picks, clock, os.Stdout); err != nil {
			log.Fatalf("❌ Simulation failed: %v", err)
		}
		return
	}

	log.Println("🚀 Starting aimu station...")

	// 5. Setup Metrics
	dj.RegisterMetrics()
	library.RegisterMetrics()
	audio.RegisterMetrics()
	radio.RegisterMetrics()

	// 6. Wire the station
	player := audio.NewPlayer(cfg.Player.Command, cfg.Player.DefaultVolume, audio.ExecLauncher, audio.RealClock{})
	ctrl := station.NewController(repo, player, dj.NewSampler(nil), target)
	if err := ctrl.Load(ctx); err != nil {
		log.Fatalf("❌ Failed to load library: %v", err)
	}

	if cfg.Station.Debug {
		ctrl.SetDebugLogger(debugLogger(cfg.Station.DebugLog))
	}

	keys, err := station.LoadKeybindings(cfg.Station.KeybindingsPath)
	if err != nil {
		log.Printf("⚠️ Keybindings: %v (using defaults)", err)
	}

	// 7. HTTP API
	if cfg.Server.Enabled {
		srv := apiserver.New(cfg, db, repo, ctrl)
		go func() {
			if err := srv.Start(); err != nil {
				log.Printf("⚠️ API server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// 8. Start Engine
	seek := time.Duration(cfg.Player.SeekSeconds) * time.Second
	engine := radio.New(ctrl, player, keys, cfg.PollInterval(), seek, os.Stdin, os.Stdout)
	if err := engine.Run(ctx); err != nil {
		log.Printf("❌ %v", err)
	}
	log.Println("👋 Bye")
}

// debugLogger appends to path, or falls back to the standard logger.
func debugLogger(path string) *log.Logger {
	if path == "" {
		return log.Default()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("⚠️ Cannot open debug log %s: %v", path, err)
		return log.Default()
	}
	return log.New(f, "", log.LstdFlags)
}
