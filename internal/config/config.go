package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	infraconfig "xrp-monitor/internal/infrastructure/config"

	"gopkg.in/yaml.v3"
)

type SourceConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

type ChannelConfig struct {
	Channel     string         `yaml:"channel"`
	Policy      string         `yaml:"policy"`
	TTL         time.Duration  `yaml:"-"`
	RawTTL      string         `yaml:"ttl"`
	HistoryFile string         `yaml:"history_file"`
	Sources     []SourceConfig `yaml:"sources"`
}

type Config struct {
	// Common
	Env      string
	LogLevel string
	LogFile  string
	// API
	Port            string
	ShutdownTimeout time.Duration
	// Storage
	Storage      string
	DatabaseURL  string
	DataDir      string
	HistoryLimit int
	// Cache and locking
	CacheBackend  string
	Locker        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration
	// Sources
	SourceTimeout time.Duration
	SourceRate    float64
	SourceBurst   int
	MessariAPIKey string
	BaseURLs      map[string]string
	// Quotes
	Policy       string
	AlertPct     float64
	Channels     []ChannelConfig
	ChannelsFile string
	// Worker
	PollInterval time.Duration
	PollRetryMax time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func atofDef(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func msDef(key string, def time.Duration) time.Duration {
	return time.Duration(atoiDef(getEnv(key, ""), int(def/time.Millisecond))) * time.Millisecond
}

// DefaultChannels mirrors the two dashboards the monitor grew out of.
func DefaultChannels() []ChannelConfig {
	return []ChannelConfig{
		{
			Channel:     "XRP/BRL",
			TTL:         5 * time.Minute,
			HistoryFile: "data.json",
			Sources:     []SourceConfig{{Name: "binance", Weight: 1}, {Name: "coinpaprika", Weight: 1}, {Name: "coingecko", Weight: 1}},
		},
		{
			Channel:     "XRP/USD",
			TTL:         10 * time.Minute,
			HistoryFile: "xrp_usd_data.json",
			Sources:     []SourceConfig{{Name: "coinpaprika", Weight: 1}, {Name: "coingecko", Weight: 1}, {Name: "messari", Weight: 1}},
		},
	}
}

// Load reads environment variables and applies defaults. When
// CHANNELS_FILE is set its channels replace the defaults.
func Load() (Config, error) {
	cfg := Config{
		Env:             getEnv("ENV", "local"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		Port:            getEnv("PORT", infraconfig.DefaultHTTPPort),
		ShutdownTimeout: msDef("SHUTDOWN_TIMEOUT_MS", infraconfig.DefaultShutdownTimeout),
		Storage:         strings.ToLower(getEnv("STORAGE", "file")),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DataDir:         getEnv("DATA_DIR", "."),
		HistoryLimit:    atoiDef(getEnv("HISTORY_LIMIT", ""), infraconfig.DefaultHistoryLimit),
		CacheBackend:    strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		Locker:          strings.ToLower(getEnv("LOCKER", "local")),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         atoiDef(getEnv("REDIS_DB", "0"), 0),
		LockTTL:         msDef("LOCK_TTL_MS", infraconfig.DefaultLockTTL),
		SourceTimeout:   msDef("SOURCE_TIMEOUT_MS", infraconfig.DefaultSourceTimeout),
		SourceRate:      atofDef(getEnv("SOURCE_RATE_PER_SEC", ""), 0),
		SourceBurst:     atoiDef(getEnv("SOURCE_BURST", "1"), 1),
		MessariAPIKey:   getEnv("MESSARI_API_KEY", ""),
		Policy:          getEnv("AGGREGATION_POLICY", "first_success"),
		AlertPct:        atofDef(getEnv("ALERT_THRESHOLD_PCT", ""), infraconfig.DefaultAlertPct),
		ChannelsFile:    getEnv("CHANNELS_FILE", ""),
		PollInterval:    msDef("POLL_INTERVAL_MS", infraconfig.DefaultPollInterval),
		PollRetryMax:    msDef("POLL_RETRY_MAX_MS", infraconfig.DefaultPollRetryMax),
		Channels:        DefaultChannels(),
	}

	if cfg.ChannelsFile != "" {
		f, err := loadChannelsFile(cfg.ChannelsFile)
		if err != nil {
			return Config{}, err
		}
		if len(f.Channels) > 0 {
			cfg.Channels = f.Channels
		}
		cfg.BaseURLs = f.BaseURLs
	}

	for i := range cfg.Channels {
		c := &cfg.Channels[i]
		if c.Policy == "" {
			c.Policy = cfg.Policy
		}
		if c.HistoryFile != "" && !filepath.IsAbs(c.HistoryFile) {
			c.HistoryFile = filepath.Join(cfg.DataDir, c.HistoryFile)
		}
	}
	return cfg, nil
}

type channelsFile struct {
	Channels []ChannelConfig   `yaml:"channels"`
	BaseURLs map[string]string `yaml:"base_urls"`
}

func loadChannelsFile(path string) (channelsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return channelsFile{}, fmt.Errorf("channels file: %w", err)
	}
	var f channelsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return channelsFile{}, fmt.Errorf("channels file %s: %w", path, err)
	}
	for i := range f.Channels {
		c := &f.Channels[i]
		if c.Channel == "" {
			return channelsFile{}, fmt.Errorf("channels file %s: entry %d has no channel", path, i)
		}
		if c.RawTTL == "" {
			c.TTL = 5 * time.Minute
		} else if c.TTL, err = time.ParseDuration(c.RawTTL); err != nil || c.TTL <= 0 {
			return channelsFile{}, fmt.Errorf("channels file %s: %s: bad ttl %q", path, c.Channel, c.RawTTL)
		}
		if c.HistoryFile == "" {
			c.HistoryFile = strings.ToLower(strings.ReplaceAll(c.Channel, "/", "_")) + ".json"
		}
		for j := range c.Sources {
			if c.Sources[j].Weight == 0 {
				c.Sources[j].Weight = 1
			}
		}
	}
	return f, nil
}
