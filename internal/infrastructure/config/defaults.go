package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPollInterval    = 60 * time.Second
	DefaultPollRetryMax    = 20 * time.Second
	DefaultSourceTimeout   = 8 * time.Second
	DefaultHistoryLimit    = 500
	DefaultAlertPct        = 5.0
	DefaultLockTTL         = 30 * time.Second
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
)
