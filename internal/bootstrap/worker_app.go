package bootstrap

import (
	"context"
	"fmt"

	"xrp-monitor/internal/config"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type WorkerApp func(ctx context.Context) error

func InitWorkerApp(ctx context.Context, cfg config.Config, log *zap.Logger) (WorkerApp, func(), error) {
	app, cleanup, err := Build(ctx, cfg, log)
	if err != nil {
		return nil, cleanup, fmt.Errorf("init worker: %w", err)
	}
	w := app.Worker()
	runner := func(ctx context.Context) error {
		w.Start(ctx)
		return nil
	}
	return runner, cleanup, nil
}

// CompactAll compacts every configured channel once.
func CompactAll(ctx context.Context, app *App) error {
	var errs error
	for _, ch := range app.Service.Channels() {
		if err := app.Service.Compact(ctx, ch); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", ch, err))
			continue
		}
		app.Log.Info("compacted", zap.String("channel", ch.String()))
	}
	return errs
}
