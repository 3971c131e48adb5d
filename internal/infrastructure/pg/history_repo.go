package pg

import (
	"context"
	"errors"
	"fmt"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HistoryRepo stores one channel's history in price_history. Appends and
// compaction take a transaction-scoped advisory lock on the channel so that
// API and worker processes sharing the database serialize per channel.
type HistoryRepo struct {
	db      *DB
	uow     *UnitOfWork
	channel domain.Channel
	limit   int
	log     *zap.Logger
}

var _ application.HistoryStore = (*HistoryRepo)(nil)

func NewHistoryRepo(db *DB, ch domain.Channel, limit int, log *zap.Logger) *HistoryRepo {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoryRepo{
		db:      db,
		uow:     &UnitOfWork{DB: db},
		channel: ch,
		limit:   limit,
		log:     log.With(zap.String("repo", "price_history"), zap.String("channel", ch.String())),
	}
}

const (
	lockChannelSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

	lastPriceSQL = `
        SELECT price::text FROM price_history
        WHERE channel = $1
        ORDER BY observed_at DESC, id DESC
        LIMIT 1`

	insertSQL = `
        INSERT INTO price_history(channel, observed_at, price)
        VALUES ($1, $2, $3::numeric)`

	pruneSQL = `
        DELETE FROM price_history
        WHERE channel = $1
          AND id NOT IN (
            SELECT id FROM price_history
            WHERE channel = $1
            ORDER BY observed_at DESC, id DESC
            LIMIT $2)`

	windowSQL = `
        SELECT observed_at, price::text FROM price_history
        WHERE channel = $1
        ORDER BY observed_at ASC, id ASC`
)

func (r *HistoryRepo) AppendIfChanged(ctx context.Context, rec domain.HistoryRecord) ([]domain.HistoryRecord, error) {
	rec.Timestamp = rec.Timestamp.UTC()
	log := r.log.With(zap.String("operation", "AppendIfChanged"), zap.String("price", rec.Price.String()))

	var window []domain.HistoryRecord
	err := r.uow.Do(ctx, func(ctx context.Context) error {
		q := r.db.q(ctx)
		if _, err := q.Exec(ctx, lockChannelSQL, r.channel.String()); err != nil {
			return fmt.Errorf("lock: %w", err)
		}

		var last string
		err := q.QueryRow(ctx, lastPriceSQL, r.channel.String()).Scan(&last)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return fmt.Errorf("last price: %w", err)
		}
		if err == nil {
			if p, perr := decimal.NewFromString(last); perr == nil && p.Equal(rec.Price) {
				log.Debug("sql.append_skipped_unchanged")
				w, err := r.window(ctx, q)
				window = w
				return err
			}
		}

		tag, err := q.Exec(ctx, insertSQL, r.channel.String(), rec.Timestamp, rec.Price.String())
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		log.Info("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))

		if err := r.prune(ctx, q); err != nil {
			return err
		}
		w, err := r.window(ctx, q)
		window = w
		return err
	})
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return r.fallbackWindow(ctx, rec), fmt.Errorf("%w: %v", domain.ErrHistoryWriteFailed, err)
	}
	return window, nil
}

// fallbackWindow is the best view available after a failed append: the
// stored rows, if readable, plus rec.
func (r *HistoryRepo) fallbackWindow(ctx context.Context, rec domain.HistoryRecord) []domain.HistoryRecord {
	stored, err := r.window(ctx, r.db.Pool)
	if err != nil {
		stored = nil
	}
	if last, ok := domain.Last(stored); ok && last.Price.Equal(rec.Price) {
		return stored
	}
	return domain.NormalizeHistory(append(stored, rec), r.limit)
}

func (r *HistoryRepo) ReadAll(ctx context.Context) ([]domain.HistoryRecord, error) {
	return r.window(ctx, r.db.q(ctx))
}

func (r *HistoryRepo) Compact(ctx context.Context) error {
	err := r.uow.Do(ctx, func(ctx context.Context) error {
		q := r.db.q(ctx)
		if _, err := q.Exec(ctx, lockChannelSQL, r.channel.String()); err != nil {
			return fmt.Errorf("lock: %w", err)
		}
		return r.prune(ctx, q)
	})
	if err != nil {
		r.log.Error("sql.compact_failed", zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrHistoryWriteFailed, err)
	}
	return nil
}

func (r *HistoryRepo) prune(ctx context.Context, q querier) error {
	tag, err := q.Exec(ctx, pruneSQL, r.channel.String(), r.limit)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		r.log.Info("sql.pruned", zap.Int64("rows_affected", n))
	}
	return nil
}

func (r *HistoryRepo) window(ctx context.Context, q querier) ([]domain.HistoryRecord, error) {
	rows, err := q.Query(ctx, windowSQL, r.channel.String())
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		var (
			rec   domain.HistoryRecord
			price string
		)
		if err := rows.Scan(&rec.Timestamp, &price); err != nil {
			return nil, err
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("window: bad price %q: %w", price, err)
		}
		rec.Timestamp = rec.Timestamp.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.NormalizeHistory(out, r.limit), nil
}
