package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"xrp-monitor/internal/bootstrap"
	"xrp-monitor/internal/config"
	httpserver "xrp-monitor/internal/infrastructure/http"
	"xrp-monitor/internal/infrastructure/worker"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

// upstream impersonates the public price APIs on one host.
type upstream struct {
	mu     sync.Mutex
	down   bool
	prices map[string]string
	hits   map[string]int
}

func (u *upstream) set(path, price string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.prices[path] = price
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hits[r.URL.Path]++
	if u.down {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
		return
	}
	p := u.prices[r.URL.Path]
	switch r.URL.Path {
	case "/api/v3/ticker/price":
		_, _ = w.Write([]byte(`{"symbol":"` + r.URL.Query().Get("symbol") + `","price":"` + p + `"}`))
	case "/v1/tickers/xrp-xrp":
		q := r.URL.Query().Get("quotes")
		_, _ = w.Write([]byte(`{"quotes":{"` + q + `":{"price":` + p + `}}}`))
	case "/api/v3/simple/price":
		_, _ = w.Write([]byte(`{"ripple":{"` + r.URL.Query().Get("vs_currencies") + `":` + p + `}}`))
	default:
		http.NotFound(w, r)
	}
}

func setup(t *testing.T) (*upstream, http.Handler, *bootstrap.App, string) {
	t.Helper()
	up := &upstream{
		prices: map[string]string{
			"/api/v3/ticker/price": "2.50",
			"/v1/tickers/xrp-xrp":  "2.60",
			"/api/v3/simple/price": "2.70",
		},
		hits: map[string]int{},
	}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	dir := t.TempDir()
	cfg := config.Config{
		Storage:       "file",
		DataDir:       dir,
		HistoryLimit:  500,
		CacheBackend:  "redis",
		Locker:        "redis",
		RedisAddr:     mr.Addr(),
		LockTTL:       5 * time.Second,
		SourceTimeout: 2 * time.Second,
		AlertPct:      5,
		PollInterval:  time.Hour,
		BaseURLs: map[string]string{
			"binance":     srv.URL,
			"coinpaprika": srv.URL,
			"coingecko":   srv.URL,
		},
		Channels: []config.ChannelConfig{
			{
				Channel:     "XRP/BRL",
				Policy:      "first_success",
				TTL:         5 * time.Minute,
				HistoryFile: filepath.Join(dir, "data.json"),
				Sources:     []config.SourceConfig{{Name: "binance", Weight: 1}, {Name: "coinpaprika", Weight: 1}},
			},
			{
				Channel:     "XRP/USD",
				Policy:      "weighted_average",
				TTL:         time.Nanosecond,
				HistoryFile: filepath.Join(dir, "xrp_usd_data.json"),
				Sources:     []config.SourceConfig{{Name: "coinpaprika", Weight: 1}, {Name: "coingecko", Weight: 3}},
			},
		},
	}

	app, cleanup, err := bootstrap.Build(context.Background(), cfg, nil)
	t.Cleanup(cleanup)
	require.NoError(t, err)
	return up, httpserver.NewRouter(app.Handler()), app, dir
}

func get(t *testing.T, h http.Handler, target string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

type lastQuote struct {
	Channel       string  `json:"channel"`
	Price         float64 `json:"price"`
	PercentChange float64 `json:"percent_change"`
	Alert         string  `json:"alert"`
}

func TestLastQuote_FirstSuccessCachedAndPersisted(t *testing.T) {
	up, h, _, dir := setup(t)

	var q lastQuote
	require.Equal(t, http.StatusOK, get(t, h, "/quotes/last?channel=XRP/BRL", &q))
	require.InDelta(t, 2.5, q.Price, 1e-9)
	require.Zero(t, q.PercentChange)

	// within TTL the cached price is served without hitting the sources
	up.set("/api/v3/ticker/price", "9.99")
	require.Equal(t, http.StatusOK, get(t, h, "/quotes/last?channel=XRP/BRL", &q))
	require.InDelta(t, 2.5, q.Price, 1e-9)
	up.mu.Lock()
	require.Equal(t, 1, up.hits["/api/v3/ticker/price"])
	require.Zero(t, up.hits["/v1/tickers/xrp-xrp"])
	up.mu.Unlock()

	raw, err := os.ReadFile(filepath.Join(dir, "data.json"))
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal(raw, &recs))
	require.Len(t, recs, 1)
}

func TestLastQuote_WeightedAverageAndAlert(t *testing.T) {
	up, h, _, _ := setup(t)

	var q lastQuote
	require.Equal(t, http.StatusOK, get(t, h, "/quotes/last?channel=XRP/USD", &q))
	// (2.60*1 + 2.70*3) / 4
	require.InDelta(t, 2.675, q.Price, 1e-9)

	up.set("/v1/tickers/xrp-xrp", "3.00")
	up.set("/api/v3/simple/price", "3.00")
	require.Equal(t, http.StatusOK, get(t, h, "/quotes/last?channel=XRP/USD", &q))
	require.InDelta(t, 3.0, q.Price, 1e-9)
	require.Greater(t, q.PercentChange, 5.0)
	require.Equal(t, "up", q.Alert)

	var hist []map[string]any
	require.Equal(t, http.StatusOK, get(t, h, "/quotes/history?channel=XRP/USD", &hist))
	require.Len(t, hist, 2)
}

func TestLastQuote_AllSourcesDown(t *testing.T) {
	up, h, _, _ := setup(t)
	up.mu.Lock()
	up.down = true
	up.mu.Unlock()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quotes/last?channel=XRP/USD", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"code":503,"message":"unavailable"}`, rec.Body.String())

	var hist []map[string]any
	require.Equal(t, http.StatusOK, get(t, h, "/quotes/history?channel=XRP/USD", &hist))
	require.Empty(t, hist)
}

func TestPollerAndCompaction(t *testing.T) {
	_, h, app, _ := setup(t)

	p, ok := app.Worker().(*worker.Poller)
	require.True(t, ok)
	require.NoError(t, p.RunOnce(context.Background()))
	require.NoError(t, bootstrap.CompactAll(context.Background(), app))

	var hist []map[string]any
	require.Equal(t, http.StatusOK, get(t, h, "/quotes/history?channel=XRP/BRL", &hist))
	require.Len(t, hist, 1)
	require.Equal(t, http.StatusOK, get(t, h, "/readyz", nil))
}
