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

type CoinPaprika struct {
	BaseURL string
	Client  *httpx.Client
}

var _ application.Source = (*CoinPaprika)(nil)

type paprikaTicker struct {
	Quotes map[string]struct {
		Price *decimal.Decimal `json:"price"`
	} `json:"quotes"`
}

// coin ids are "<symbol>-<name>"; only XRP is mapped.
var paprikaCoinIDs = map[string]string{"XRP": "xrp-xrp"}

func (p *CoinPaprika) Name() string { return NameCoinPaprika }

func (p *CoinPaprika) Fetch(ctx context.Context, ch domain.Channel) (domain.Quote, error) {
	id, ok := paprikaCoinIDs[ch.Base()]
	if !ok {
		return domain.Quote{}, unsupported(NameCoinPaprika, ch)
	}
	cur := strings.ToUpper(ch.Quote())
	u := p.BaseURL + "/v1/tickers/" + id + "?" + url.Values{"quotes": {cur}}.Encode()

	var body paprikaTicker
	if err := p.Client.GetJSON(ctx, u, &body); err != nil {
		return domain.Quote{}, fmt.Errorf("%s: %w", NameCoinPaprika, err)
	}
	q, ok := body.Quotes[cur]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%s: %w: no %s quote", NameCoinPaprika, domain.ErrSourceFormat, cur)
	}
	return quote(ch, NameCoinPaprika, q.Price)
}
