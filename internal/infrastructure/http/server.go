package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"
	"xrp-monitor/internal/infrastructure/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuoteService is the part of application.QuoteService the API serves.
type QuoteService interface {
	Channels() []domain.Channel
	GetQuote(ctx context.Context, ch domain.Channel) (domain.Snapshot, error)
	History(ctx context.Context, ch domain.Channel) ([]domain.HistoryRecord, error)
	Compact(ctx context.Context, ch domain.Channel) error
	Convert(ctx context.Context, ch domain.Channel, amount decimal.Decimal) (application.Conversion, error)
}

type Server struct {
	svc     QuoteService
	log     *zap.Logger
	metrics *metrics.Metrics
	ping    func(ctx context.Context) error
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option                      { return func(s *Server) { s.log = l } }
func WithMetrics(m *metrics.Metrics) Option                { return func(s *Server) { s.metrics = m } }
func WithReadyCheck(fn func(context.Context) error) Option { return func(s *Server) { s.ping = fn } }

func NewServer(svc QuoteService, opts ...Option) *Server {
	s := &Server{svc: svc, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

type quoteResponse struct {
	Channel       string      `json:"channel"`
	Price         json.Number `json:"price"`
	PercentChange json.Number `json:"percent_change"`
	ObservedAt    time.Time   `json:"observed_at"`
	Alert         string      `json:"alert,omitempty"`
}

type historyRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Price     json.Number `json:"price"`
}

type conversionResponse struct {
	Channel string      `json:"channel"`
	Amount  json.Number `json:"amount"`
	Price   json.Number `json:"price"`
	Value   json.Number `json:"value"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

func (s *Server) Channels(w http.ResponseWriter, _ *http.Request) {
	chs := s.svc.Channels()
	out := make([]string, len(chs))
	for i, c := range chs {
		out[i] = c.String()
	}
	writeJSON(w, http.StatusOK, map[string][]string{"channels": out})
}

func (s *Server) GetLastQuote(w http.ResponseWriter, r *http.Request) {
	ch, ok := channelParam(w, r)
	if !ok {
		return
	}
	snap, err := s.svc.GetQuote(r.Context(), ch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		Channel:       snap.Channel.String(),
		Price:         number(snap.Price),
		PercentChange: number(snap.PercentChange.Round(4)),
		ObservedAt:    snap.ObservedAt.UTC(),
		Alert:         string(snap.Alert),
	})
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	ch, ok := channelParam(w, r)
	if !ok {
		return
	}
	recs, err := s.svc.History(r.Context(), ch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]historyRecord, len(recs))
	for i, rec := range recs {
		out[i] = historyRecord{Timestamp: rec.Timestamp.UTC(), Price: number(rec.Price)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) CompactHistory(w http.ResponseWriter, r *http.Request) {
	ch, ok := channelParam(w, r)
	if !ok {
		return
	}
	if err := s.svc.Compact(r.Context(), ch); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	ch, ok := channelParam(w, r)
	if !ok {
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(r.URL.Query().Get("amount")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal number")
		return
	}
	conv, err := s.svc.Convert(r.Context(), ch, amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse{
		Channel: ch.String(),
		Amount:  number(conv.Amount),
		Price:   number(conv.Snapshot.Price),
		Value:   number(conv.Value),
	})
}

func channelParam(w http.ResponseWriter, r *http.Request) (domain.Channel, bool) {
	raw := r.URL.Query().Get("channel")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "channel is required")
		return "", false
	}
	ch, err := domain.ParseChannel(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid channel")
		return "", false
	}
	return ch, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		s.log.Warn("http.request_failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeError(w, status, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrNoDataAvailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, application.ErrUnknownChannel), errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "unknown channel"
	case errors.Is(err, domain.ErrInvalidChannel), errors.Is(err, application.ErrBadRequest):
		return http.StatusBadRequest, "bad request"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}
