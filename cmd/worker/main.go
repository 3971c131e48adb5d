package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"xrp-monitor/internal/bootstrap"
	"xrp-monitor/internal/config"
	"xrp-monitor/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.L().Fatal("load config", zap.Error(err))
	}
	log, closeLog, err := bootstrap.ProvideLogger(cfg)
	if err != nil {
		logx.L().Fatal("init logger", zap.Error(err))
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, cleanup, err := bootstrap.InitWorkerApp(ctx, cfg, log)
	defer cleanup()
	if err != nil {
		log.Fatal("init worker", zap.Error(err))
	}
	if err := run(ctx); err != nil {
		log.Fatal("worker exited", zap.Error(err))
	}
}
