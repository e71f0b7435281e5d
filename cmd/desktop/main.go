package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"fyne.io/fyne/v2/app"

	"github.com/Alexander-D-Karpov/waveline/internal/audio"
	"github.com/Alexander-D-Karpov/waveline/internal/catalog"
	"github.com/Alexander-D-Karpov/waveline/internal/config"
	"github.com/Alexander-D-Karpov/waveline/internal/lyrics"
	"github.com/Alexander-D-Karpov/waveline/internal/storage"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	debug      = flag.Bool("debug", false, "Enable debug mode - shows detailed logging for all components")
	fontPath   = flag.String("font", "", "Path to the TTF/OTF font used by the lyrics view")
	Version    = "dev"
)

func main() {
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("[MAIN] Debug mode enabled - all components will log detailed information")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[MAIN] Failed to load config: %v", err)
	}
	if *debug {
		cfg.Debug = true
	}

	if *debug {
		log.Printf("[MAIN] Configuration loaded successfully")
		log.Printf("[MAIN] - API Base URL: %s", cfg.API.BaseURL)
		log.Printf("[MAIN] - Cache Directory: %s", cfg.Storage.CacheDir)
		log.Printf("[MAIN] - Streaming high-water mark: %d KiB", cfg.Streaming.HighWaterKiB)
		log.Printf("[MAIN] - EQ enabled: %v, preamp %.1f dB", cfg.Audio.EQEnabled, cfg.Audio.PreampDB)
	}

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	freed := storage.CleanupTempFiles(
		filepath.Join(cfg.Storage.CacheDir, "songs"),
		filepath.Join(cfg.Storage.CacheDir, "covers"),
	)
	if *debug && freed.FilesDeleted > 0 {
		log.Printf("[MAIN] Cleaned up %d orphan temp files (%d bytes)", freed.FilesDeleted, freed.BytesFreed)
	}

	hashIndex, err := storage.NewPartialHashIndex(filepath.Join(filepath.Dir(cfg.Storage.DatabasePath), "cache_index.db"))
	if err != nil {
		log.Fatalf("[MAIN] Failed to open partial-hash index: %v", err)
	}
	defer hashIndex.Close()

	catalogClient := catalog.NewClient(cfg.API.BaseURL, cfg.Debug)
	resolver := catalog.NewResolver(cfg.Storage.CacheDir, catalogClient, hashIndex, cfg.Debug)

	player := audio.NewPlayer(cfg.Audio.SampleRate, cfg.Debug)
	params := player.Params()
	params.SetPreampDB(cfg.Audio.PreampDB)
	params.SetEQEnabled(cfg.Audio.EQEnabled)
	for i, gain := range cfg.Audio.EQGains {
		params.SetEQGain(i, gain)
	}

	engine := lyrics.NewEngine()
	_ = resolver

	setupGracefulShutdown(cancel, player)

	if *fontPath != "" {
		// The lyrics view owns its own GL context and frame loop on the main
		// thread; no Fyne app is started on this path.
		view, err := newLyricsView(engine, *fontPath, 1280, 720)
		if err != nil {
			log.Fatalf("[MAIN] Failed to start lyrics view: %v", err)
		}
		defer view.Close()
		for view.Frame(player) {
		}
		return
	}

	// Without a lyrics font the Fyne run loop alone drives UI-thread dispatch.
	fyneApp := app.New()
	fyneApp.Run()
}

func setupGracefulShutdown(cancel context.CancelFunc, player *audio.Player) {
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		sig := <-c
		log.Printf("[MAIN] Received signal: %v", sig)
		log.Printf("[MAIN] Initiating graceful shutdown...")

		cancel()
		player.Stop()

		log.Printf("[MAIN] Graceful shutdown completed")
		os.Exit(0)
	}()
}
