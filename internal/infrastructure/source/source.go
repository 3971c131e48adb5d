// Package source holds the HTTP quote sources the aggregator draws from.
package source

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"
	"xrp-monitor/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
)

const (
	NameBinance     = "binance"
	NameCoinPaprika = "coinpaprika"
	NameCoinGecko   = "coingecko"
	NameMessari     = "messari"
)

var defaultBaseURLs = map[string]string{
	NameBinance:     "https://api.binance.com",
	NameCoinPaprika: "https://api.coinpaprika.com",
	NameCoinGecko:   "https://api.coingecko.com",
	NameMessari:     "https://data.messari.io",
}

// Options configures Build.
type Options struct {
	Client *httpx.Client
	// BaseURLs overrides the public endpoint per source name.
	BaseURLs map[string]string
	// RatePerSec > 0 wraps every source in a token bucket.
	RatePerSec float64
	Burst      int
	// Timeout bounds a limited fetch, token wait included.
	Timeout    time.Duration
	MessariKey string
}

// Names lists the sources Build knows about.
func Names() []string {
	out := make([]string, 0, len(defaultBaseURLs))
	for n := range defaultBaseURLs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Build constructs the named source.
func Build(name string, opts Options) (application.Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	base, ok := defaultBaseURLs[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	if u := opts.BaseURLs[name]; u != "" {
		base = u
	}
	client := opts.Client
	if client == nil {
		client = httpx.New(8 * time.Second)
	}
	base = strings.TrimRight(base, "/")

	var src application.Source
	switch name {
	case NameBinance:
		src = &Binance{BaseURL: base, Client: client}
	case NameCoinPaprika:
		src = &CoinPaprika{BaseURL: base, Client: client}
	case NameCoinGecko:
		src = &CoinGecko{BaseURL: base, Client: client}
	case NameMessari:
		src = &Messari{BaseURL: base, Client: client, APIKey: opts.MessariKey}
	}
	if opts.RatePerSec > 0 {
		src = NewLimited(src, opts.RatePerSec, opts.Burst, opts.Timeout)
	}
	return src, nil
}

func quote(ch domain.Channel, src string, p *decimal.Decimal) (domain.Quote, error) {
	if p == nil {
		return domain.Quote{}, fmt.Errorf("%s: %w: price missing", src, domain.ErrSourceFormat)
	}
	if !p.IsPositive() {
		return domain.Quote{}, fmt.Errorf("%s: %w: %s", src, domain.ErrSourceNonPositive, p)
	}
	return domain.Quote{Channel: ch, Price: *p, ObservedAt: time.Now().UTC(), Source: src}, nil
}

func unsupported(src string, ch domain.Channel) error {
	return fmt.Errorf("%s: %w: channel %s not supported", src, domain.ErrSourceUnavailable, ch)
}
