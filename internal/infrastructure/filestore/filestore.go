// Package filestore keeps a channel's price history in a JSON file.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is an application.HistoryStore over a single JSON array file.
// Every write rewrites the whole file through a temp file and rename.
type Store struct {
	path  string
	limit int
	log   *zap.Logger

	mu sync.Mutex
}

var _ application.HistoryStore = (*Store)(nil)

func New(path string, limit int, log *zap.Logger) *Store {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, limit: limit, log: log.With(zap.String("history_file", path))}
}

func (s *Store) Path() string { return s.path }

type fileRecord struct {
	Timestamp string      `json:"timestamp"`
	Price     json.Number `json:"price"`
}

// rawRecord lets one bad record be dropped without rejecting the file.
type rawRecord struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Price     json.RawMessage `json:"price"`
}

// accepted on read; everything is written as RFC3339Nano UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (s *Store) AppendIfChanged(_ context.Context, rec domain.HistoryRecord) ([]domain.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := domain.NormalizeHistory(s.load(), s.limit)
	if last, ok := domain.Last(window); ok && last.Price.Equal(rec.Price) {
		return window, nil
	}
	rec.Timestamp = rec.Timestamp.UTC()
	window = domain.NormalizeHistory(append(window, rec), s.limit)
	if err := s.write(window); err != nil {
		s.log.Warn("history.write_failed", zap.Error(err))
		return window, err
	}
	return window, nil
}

func (s *Store) ReadAll(context.Context) ([]domain.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.NormalizeHistory(s.load(), s.limit), nil
}

// Compact rewrites the file in normalized form. Running it twice leaves
// the file byte-identical.
func (s *Store) Compact(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := domain.NormalizeHistory(s.load(), s.limit)
	if err := s.write(window); err != nil {
		s.log.Warn("history.compact_failed", zap.Error(err))
		return err
	}
	s.log.Info("history.compacted", zap.Int("records", len(window)))
	return nil
}

// load never fails: a missing file is empty history and an unreadable one
// is moved aside to <path>.corrupt.
func (s *Store) load() []domain.HistoryRecord {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.log.Warn("history.read_failed", zap.Error(err))
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var stored []rawRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.quarantine(fmt.Errorf("%w: %v", domain.ErrHistoryCorrupt, err))
		return nil
	}

	out := make([]domain.HistoryRecord, 0, len(stored))
	dropped := 0
	for _, r := range stored {
		rec, ok := decodeRecord(r)
		if !ok {
			dropped++
			continue
		}
		out = append(out, rec)
	}
	if dropped > 0 {
		s.log.Warn("history.records_dropped", zap.Int("dropped", dropped))
	}
	return out
}

func decodeRecord(r rawRecord) (domain.HistoryRecord, bool) {
	var raw string
	if err := json.Unmarshal(r.Timestamp, &raw); err != nil {
		return domain.HistoryRecord{}, false
	}
	ts, ok := parseTimestamp(raw)
	if !ok {
		return domain.HistoryRecord{}, false
	}
	if len(r.Price) == 0 || string(r.Price) == "null" {
		return domain.HistoryRecord{}, false
	}
	var p decimal.Decimal
	if err := p.UnmarshalJSON(r.Price); err != nil {
		return domain.HistoryRecord{}, false
	}
	return domain.HistoryRecord{Timestamp: ts, Price: p}, true
}

func (s *Store) quarantine(cause error) {
	dst := s.path + ".corrupt"
	if err := os.Rename(s.path, dst); err != nil {
		s.log.Error("history.quarantine_failed", zap.Error(cause), zap.NamedError("rename_error", err))
		return
	}
	s.log.Warn("history.corrupt", zap.Error(cause), zap.String("moved_to", dst))
}

func encode(window []domain.HistoryRecord) ([]byte, error) {
	out := make([]fileRecord, len(window))
	for i, r := range window {
		out[i] = fileRecord{
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
			Price:     json.Number(r.Price.String()),
		}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (s *Store) write(window []domain.HistoryRecord) error {
	b, err := encode(window)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrHistoryWriteFailed, err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHistoryWriteFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", domain.ErrHistoryWriteFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", domain.ErrHistoryWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHistoryWriteFailed, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHistoryWriteFailed, err)
	}
	return nil
}
