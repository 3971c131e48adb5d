package source

import (
	"context"
	"fmt"
	"strings"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"
	"xrp-monitor/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
)

// Messari only reports USD prices.
type Messari struct {
	BaseURL string
	Client  *httpx.Client
	APIKey  string
}

var _ application.Source = (*Messari)(nil)

type messariMetrics struct {
	Data struct {
		MarketData struct {
			PriceUSD *decimal.Decimal `json:"price_usd"`
		} `json:"market_data"`
	} `json:"data"`
}

func (m *Messari) Name() string { return NameMessari }

func (m *Messari) Fetch(ctx context.Context, ch domain.Channel) (domain.Quote, error) {
	if ch.Quote() != "USD" {
		return domain.Quote{}, unsupported(NameMessari, ch)
	}
	u := m.BaseURL + "/api/v1/assets/" + strings.ToLower(ch.Base()) + "/metrics"

	client := m.Client
	if m.APIKey != "" {
		c := *m.Client
		c.Headers = map[string]string{"x-messari-api-key": m.APIKey}
		client = &c
	}
	var body messariMetrics
	if err := client.GetJSON(ctx, u, &body); err != nil {
		return domain.Quote{}, fmt.Errorf("%s: %w", NameMessari, err)
	}
	return quote(ch, NameMessari, body.Data.MarketData.PriceUSD)
}
