package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"xrp-monitor/internal/bootstrap"
	"xrp-monitor/internal/config"
	httpserver "xrp-monitor/internal/infrastructure/http"
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
	logger, closeLog, err := bootstrap.ProvideLogger(cfg)
	if err != nil {
		logx.L().Fatal("init logger", zap.Error(err))
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.Build(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		logger.Fatal("bootstrap", zap.Error(err))
	}

	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:    addr,
		Handler: httpserver.NewRouter(app.Handler()),
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
