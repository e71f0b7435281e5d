package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("WAVELINE_STORAGE_DATABASE_PATH", filepath.Join(t.TempDir(), "music.db"))
	t.Setenv("WAVELINE_STORAGE_CACHE_DIR", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Audio.SampleRate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Streaming.HighWaterKiB != 400 {
		t.Errorf("Streaming.HighWaterKiB = %d, want 400", cfg.Streaming.HighWaterKiB)
	}
	if cfg.Streaming.PlayableTimeoutSec != 30 {
		t.Errorf("Streaming.PlayableTimeoutSec = %d, want 30", cfg.Streaming.PlayableTimeoutSec)
	}
	if cfg.Lyrics.AlignPosition != "center" {
		t.Errorf("Lyrics.AlignPosition = %q, want \"center\"", cfg.Lyrics.AlignPosition)
	}
	if cfg.Audio.EQEnabled {
		t.Error("Audio.EQEnabled default should be false")
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yaml := `
audio:
  sample_rate: 48000
  preamp_db: -3.0
  eq_enabled: true
streaming:
  high_water_kib: 800
`
	if err := os.WriteFile(configPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("WAVELINE_STORAGE_DATABASE_PATH", filepath.Join(dir, "music.db"))
	t.Setenv("WAVELINE_STORAGE_CACHE_DIR", dir)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("Audio.SampleRate = %d, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.PreampDB != -3.0 {
		t.Errorf("Audio.PreampDB = %v, want -3.0", cfg.Audio.PreampDB)
	}
	if !cfg.Audio.EQEnabled {
		t.Error("Audio.EQEnabled = false, want true from config file")
	}
	if cfg.Streaming.HighWaterKiB != 800 {
		t.Errorf("Streaming.HighWaterKiB = %d, want 800", cfg.Streaming.HighWaterKiB)
	}
}

func TestLoadEnsuresDirectoriesExist(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "music.db")
	cacheDir := filepath.Join(dir, "cache-nested")

	t.Setenv("WAVELINE_STORAGE_DATABASE_PATH", dbPath)
	t.Setenv("WAVELINE_STORAGE_CACHE_DIR", cacheDir)

	if _, err := Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if info, err := os.Stat(filepath.Dir(dbPath)); err != nil || !info.IsDir() {
		t.Error("Load() should create the database path's parent directory")
	}
	if info, err := os.Stat(cacheDir); err != nil || !info.IsDir() {
		t.Error("Load() should create the cache directory")
	}
}
