package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/config"
	"xrp-monitor/internal/domain"
	"xrp-monitor/internal/infrastructure/filestore"
	"xrp-monitor/internal/infrastructure/httpx"
	"xrp-monitor/internal/infrastructure/logx"
	"xrp-monitor/internal/infrastructure/metrics"
	"xrp-monitor/internal/infrastructure/pg"
	redisstore "xrp-monitor/internal/infrastructure/redis"
	"xrp-monitor/internal/infrastructure/source"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrMissingDBURL   = errors.New("DATABASE_URL is required for STORAGE=pg")
	ErrUnknownStorage = errors.New("unknown STORAGE")
)

func ProvideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	return logx.Init(logx.Options{Level: cfg.LogLevel, File: cfg.LogFile, MaxSizeMB: 50, MaxBackups: 5})
}

func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.Storage != "pg" {
		return nil, func() {}, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

// ProvideRedisClient returns nil unless the cache or the locker uses Redis.
func ProvideRedisClient(cfg config.Config) (*redis.Client, func(), error) {
	if cfg.CacheBackend != "redis" && cfg.Locker != "redis" {
		return nil, func() {}, nil
	}
	client := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	return client, func() { _ = client.Close() }, nil
}

func ProvideCacheBackend(cfg config.Config, client *redis.Client) application.CacheBackend {
	if cfg.CacheBackend == "redis" && client != nil {
		return redisstore.NewCacheStore(client)
	}
	return application.NewMemoryCache()
}

func ProvideLocker(cfg config.Config, client *redis.Client, log *zap.Logger) application.ChannelLocker {
	if cfg.Locker == "redis" && client != nil {
		return redisstore.NewLocker(client, cfg.LockTTL, log)
	}
	return application.NewLocalLocker()
}

func ProvideHistoryStore(cfg config.Config, db *pg.DB, cc config.ChannelConfig, ch domain.Channel, log *zap.Logger) (application.HistoryStore, error) {
	switch cfg.Storage {
	case "pg":
		return pg.NewHistoryRepo(db, ch, cfg.HistoryLimit, log), nil
	case "file", "":
		return filestore.New(cc.HistoryFile, cfg.HistoryLimit, log.With(zap.String("channel", ch.String()))), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownStorage, cfg.Storage)
	}
}

func ProvideSources(cfg config.Config, cc config.ChannelConfig, client *httpx.Client) ([]application.WeightedSource, error) {
	opts := source.Options{
		Client:     client,
		BaseURLs:   cfg.BaseURLs,
		RatePerSec: cfg.SourceRate,
		Burst:      cfg.SourceBurst,
		Timeout:    cfg.SourceTimeout,
		MessariKey: cfg.MessariAPIKey,
	}
	out := make([]application.WeightedSource, 0, len(cc.Sources))
	for _, sc := range cc.Sources {
		src, err := source.Build(sc.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cc.Channel, err)
		}
		out = append(out, application.WeightedSource{Source: src, Weight: decimal.NewFromFloat(sc.Weight)})
	}
	return out, nil
}

// ProvideChannels wires aggregator, cache and history for every configured
// channel.
func ProvideChannels(cfg config.Config, db *pg.DB, backend application.CacheBackend, m *metrics.Metrics, log *zap.Logger) ([]application.ChannelDeps, error) {
	client := httpx.New(cfg.SourceTimeout)
	out := make([]application.ChannelDeps, 0, len(cfg.Channels))
	for _, cc := range cfg.Channels {
		ch, err := domain.ParseChannel(cc.Channel)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", cc.Channel, err)
		}
		policy, err := application.ParsePolicy(cc.Policy)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ch, err)
		}
		sources, err := ProvideSources(cfg, cc, client)
		if err != nil {
			return nil, err
		}
		history, err := ProvideHistoryStore(cfg, db, cc, ch, log)
		if err != nil {
			return nil, err
		}
		agg := application.NewAggregator(ch, policy, sources, log, m)
		out = append(out, application.ChannelDeps{
			Channel: ch,
			Cache:   application.NewPriceCache(ch, cc.TTL, backend, agg, log, m),
			History: history,
		})
		log.Info("channel_configured",
			zap.String("channel", ch.String()),
			zap.String("policy", string(policy)),
			zap.Duration("ttl", cc.TTL),
			zap.Int("sources", len(sources)),
		)
	}
	return out, nil
}

func ProvideQuoteService(cfg config.Config, channels []application.ChannelDeps, locker application.ChannelLocker, m *metrics.Metrics, log *zap.Logger) *application.QuoteService {
	return application.NewQuoteService(channels,
		application.WithLocker(locker),
		application.WithLogger(log),
		application.WithMetrics(m),
		application.WithAlertThreshold(cfg.AlertPct),
	)
}
