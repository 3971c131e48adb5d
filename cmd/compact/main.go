// Command compact normalizes and truncates every channel's history, then exits.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"xrp-monitor/internal/bootstrap"
	"xrp-monitor/internal/config"
	"xrp-monitor/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	limit := flag.Int("limit", 0, "records to keep per channel (default HISTORY_LIMIT)")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logx.L().Fatal("load config", zap.Error(err))
	}
	if *limit > 0 {
		cfg.HistoryLimit = *limit
	}
	log, closeLog, err := bootstrap.ProvideLogger(cfg)
	if err != nil {
		logx.L().Fatal("init logger", zap.Error(err))
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	app, cleanup, err := bootstrap.Build(ctx, cfg, log)
	defer cleanup()
	if err != nil {
		log.Fatal("bootstrap", zap.Error(err))
	}
	if err := bootstrap.CompactAll(ctx, app); err != nil {
		log.Error("compact failed", zap.Error(err))
		cleanup()
		closeLog()
		os.Exit(1)
	}
}
