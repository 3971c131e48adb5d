package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"
	"xrp-monitor/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
)

type CoinGecko struct {
	BaseURL string
	Client  *httpx.Client
}

var _ application.Source = (*CoinGecko)(nil)

var geckoCoinIDs = map[string]string{"XRP": "ripple"}

func (g *CoinGecko) Name() string { return NameCoinGecko }

func (g *CoinGecko) Fetch(ctx context.Context, ch domain.Channel) (domain.Quote, error) {
	id, ok := geckoCoinIDs[ch.Base()]
	if !ok {
		return domain.Quote{}, unsupported(NameCoinGecko, ch)
	}
	vs := strings.ToLower(ch.Quote())
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", vs)
	u := g.BaseURL + "/api/v3/simple/price?" + q.Encode()

	// {"ripple": {"brl": 2.91}}
	var body map[string]map[string]*decimal.Decimal
	if err := g.Client.GetJSON(ctx, u, &body); err != nil {
		return domain.Quote{}, fmt.Errorf("%s: %w", NameCoinGecko, err)
	}
	prices, ok := body[id]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%s: %w: %s missing", NameCoinGecko, domain.ErrSourceFormat, id)
	}
	return quote(ch, NameCoinGecko, prices[vs])
}
