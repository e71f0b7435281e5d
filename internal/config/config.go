package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/Alexander-D-Karpov/waveline/internal/platform"
)

type Config struct {
	Debug bool `mapstructure:"debug"`

	API struct {
		BaseURL   string `mapstructure:"base_url"`
		Token     string `mapstructure:"token"`
		RateLimit struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			BurstSize         int `mapstructure:"burst_size"`
		} `mapstructure:"rate_limit"`
		Timeout   int    `mapstructure:"timeout"`
		Retries   int    `mapstructure:"retries"`
		UserAgent string `mapstructure:"user_agent"`
	} `mapstructure:"api"`

	Storage struct {
		DatabasePath string `mapstructure:"database_path"`
		CacheDir     string `mapstructure:"cache_dir"`
		MaxCacheSize int64  `mapstructure:"max_cache_size"`
		SyncInterval int    `mapstructure:"sync_interval"`
		EnableWAL    bool   `mapstructure:"enable_wal"`
		MaxSyncPages int    `mapstructure:"max_sync_pages"`
	} `mapstructure:"storage"`

	Audio struct {
		SampleRate      int         `mapstructure:"sample_rate"`
		BufferSize      int         `mapstructure:"buffer_size"`
		DefaultVolume   float64     `mapstructure:"default_volume"`
		Crossfade       bool        `mapstructure:"crossfade"`
		LowLatencyMode  bool        `mapstructure:"low_latency_mode"`
		PlatformOptimal bool        `mapstructure:"platform_optimal"`
		MaxChannels     int         `mapstructure:"max_channels"`
		BitDepth        int         `mapstructure:"bit_depth"`
		PreampDB        float64     `mapstructure:"preamp_db"`
		EQEnabled       bool        `mapstructure:"eq_enabled"`
		EQGains         [10]float64 `mapstructure:"eq_gains"`
	} `mapstructure:"audio"`

	Streaming struct {
		HighWaterKiB       int `mapstructure:"high_water_kib"`
		PlayableTimeoutSec int `mapstructure:"playable_timeout_s"`
	} `mapstructure:"streaming"`

	Lyrics struct {
		HidePassedLines bool   `mapstructure:"hide_passed_lines"`
		AlignPosition   string `mapstructure:"align_position"`
	} `mapstructure:"lyrics"`
}

func Load(configPath string) (*Config, error) {
	viper.Reset()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		configDir, err := platform.GetConfigDir()
		if err != nil {
			return nil, err
		}
		viper.AddConfigPath(configDir)
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("WAVELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, err
	}

	optimizeForPlatform(&cfg)

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("debug", false)

	viper.SetDefault("api.base_url", "https://new.akarpov.ru/api/v1")
	viper.SetDefault("api.rate_limit.requests_per_second", 100)
	viper.SetDefault("api.rate_limit.burst_size", 10)
	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("api.retries", 3)
	viper.SetDefault("api.user_agent", "waveline/1.0.0")

	dataDir, _ := platform.GetDataDir()
	cacheDir, _ := platform.GetCacheDir()

	viper.SetDefault("storage.database_path", filepath.Join(dataDir, "music.db"))
	viper.SetDefault("storage.cache_dir", cacheDir)
	viper.SetDefault("storage.max_cache_size", 1024*1024*1024)
	viper.SetDefault("storage.sync_interval", 300)
	viper.SetDefault("storage.enable_wal", true)
	viper.SetDefault("storage.max_sync_pages", 10)

	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.buffer_size", getDefaultBufferSize())
	viper.SetDefault("audio.default_volume", 0.7)
	viper.SetDefault("audio.crossfade", false)
	viper.SetDefault("audio.low_latency_mode", false)
	viper.SetDefault("audio.platform_optimal", true)
	viper.SetDefault("audio.max_channels", 2)
	viper.SetDefault("audio.bit_depth", 16)
	viper.SetDefault("audio.preamp_db", 0.0)
	viper.SetDefault("audio.eq_enabled", false)
	viper.SetDefault("audio.eq_gains", [10]float64{})

	viper.SetDefault("streaming.high_water_kib", 400)
	viper.SetDefault("streaming.playable_timeout_s", 30)

	viper.SetDefault("lyrics.hide_passed_lines", false)
	viper.SetDefault("lyrics.align_position", "center")
}

func getDefaultBufferSize() int {
	switch runtime.GOOS {
	case "linux":
		return 16384
	case "windows":
		return 8192
	case "darwin":
		return 8192
	default:
		return 16384
	}
}

func optimizeForPlatform(cfg *Config) {
	if !cfg.Audio.PlatformOptimal {
		return
	}

	switch runtime.GOOS {
	case "linux":
		if cfg.Audio.BufferSize < 8192 {
			cfg.Audio.BufferSize = 16384
		}
	case "windows":
		if cfg.Audio.LowLatencyMode {
			cfg.Audio.BufferSize = 4096
		}
	case "darwin":
		if cfg.Audio.LowLatencyMode {
			cfg.Audio.BufferSize = 4096
		}
	case "android":
		cfg.Audio.BufferSize = 16384
		cfg.Storage.MaxCacheSize = 512 * 1024 * 1024
	}
}

func ensureDirectories(cfg *Config) error {
	dirs := []string{
		filepath.Dir(cfg.Storage.DatabasePath),
		cfg.Storage.CacheDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) Save() error {
	configDir, err := platform.GetConfigDir()
	if err != nil {
		return err
	}

	configFile := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configFile)
}
