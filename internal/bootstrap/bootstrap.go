package bootstrap

import (
	"context"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/config"
	httpserver "xrp-monitor/internal/infrastructure/http"
	"xrp-monitor/internal/infrastructure/metrics"
	"xrp-monitor/internal/infrastructure/pg"
	"xrp-monitor/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the wired graph shared by the api, worker and compact commands.
type App struct {
	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
	DB      *pg.DB
	Redis   *redis.Client
	Service *application.QuoteService
}

// Build wires everything from cfg. The returned cleanup releases resources
// in reverse order and is safe to call when Build failed.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	if log == nil {
		log = zap.NewNop()
	}

	db, closeDB, err := ProvideDB(ctx, log, cfg)
	cleanups = append(cleanups, closeDB)
	if err != nil {
		return nil, cleanup, err
	}
	rdb, closeRedis, err := ProvideRedisClient(cfg)
	cleanups = append(cleanups, closeRedis)
	if err != nil {
		return nil, cleanup, err
	}

	m := metrics.NewMetrics()
	channels, err := ProvideChannels(cfg, db, ProvideCacheBackend(cfg, rdb), m, log)
	if err != nil {
		return nil, cleanup, err
	}
	svc := ProvideQuoteService(cfg, channels, ProvideLocker(cfg, rdb, log), m, log)

	return &App{Config: cfg, Log: log, Metrics: m, DB: db, Redis: rdb, Service: svc}, cleanup, nil
}

// ReadyCheck pings whichever shared stores are configured.
func (a *App) ReadyCheck() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if a.DB != nil {
			if err := a.DB.Ping(ctx); err != nil {
				return err
			}
		}
		if a.Redis != nil {
			if err := a.Redis.Ping(ctx).Err(); err != nil {
				return err
			}
		}
		return nil
	}
}

func (a *App) Handler() *httpserver.Server {
	return httpserver.NewServer(a.Service,
		httpserver.WithLogger(a.Log),
		httpserver.WithMetrics(a.Metrics),
		httpserver.WithReadyCheck(a.ReadyCheck()),
	)
}

func (a *App) Worker() application.Worker {
	return &worker.Poller{
		Service:        a.Service,
		Every:          a.Config.PollInterval,
		RetryMax:       a.Config.PollRetryMax,
		CompactOnStart: true,
		Log:            a.Log.With(zap.String("worker", "poller")),
	}
}
