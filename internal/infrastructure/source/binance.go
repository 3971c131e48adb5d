package source

import (
	"context"
	"fmt"
	"net/url"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"
	"xrp-monitor/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
)

const binanceTickerPath = "/api/v3/ticker/price"

type Binance struct {
	BaseURL string
	Client  *httpx.Client
}

var _ application.Source = (*Binance)(nil)

type binanceTicker struct {
	Symbol string           `json:"symbol"`
	Price  *decimal.Decimal `json:"price"`
}

func (b *Binance) Name() string { return NameBinance }

// Binance lists XRP against USDT rather than USD.
func binanceSymbol(ch domain.Channel) string {
	quote := ch.Quote()
	if quote == "USD" {
		quote = "USDT"
	}
	return ch.Base() + quote
}

func (b *Binance) Fetch(ctx context.Context, ch domain.Channel) (domain.Quote, error) {
	if !ch.Valid() {
		return domain.Quote{}, unsupported(NameBinance, ch)
	}
	u := b.BaseURL + binanceTickerPath + "?" + url.Values{"symbol": {binanceSymbol(ch)}}.Encode()

	var body binanceTicker
	if err := b.Client.GetJSON(ctx, u, &body); err != nil {
		return domain.Quote{}, fmt.Errorf("%s: %w", NameBinance, err)
	}
	return quote(ch, NameBinance, body.Price)
}
