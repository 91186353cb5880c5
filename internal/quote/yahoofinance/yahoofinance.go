// Package yahoofinance fetches prices from the Yahoo Finance chart API.
// It is the fallback provider; it serves prices only.
package yahoofinance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"portfoliotracker/internal/domain"
	"portfoliotracker/internal/extract"
	"portfoliotracker/internal/httpx"
	"portfoliotracker/internal/quote"
)

var priceDescriptors = []extract.FieldDescriptor{
	{Field: "price", Path: "$.chart.result[0].meta.regularMarketPrice", Rule: extract.Number},
}

type Config struct {
	Name    string
	BaseURL string
	Format  extract.NumberFormat
}

type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "YahooFinance"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"
	}
	if cfg.Format == (extract.NumberFormat{}) {
		cfg.Format = extract.DefaultFormat()
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Price(ctx context.Context, inst *domain.Instrument) (quote.Quote, error) {
	if err := domain.ValidateCode(inst.Code); err != nil {
		return quote.Quote{}, err
	}
	addr := p.cfg.BaseURL + url.PathEscape(inst.Code)
	body, err := p.client.Fetch(ctx, addr)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("yahoofinance: %s: %w", inst.Code, err)
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return quote.Quote{}, quote.Unavailable(p.Name(), inst.Code, "malformed document", err)
	}
	fields, err := extract.Extract(doc, priceDescriptors, p.cfg.Format)
	if err != nil {
		return quote.Quote{}, quote.Unavailable(p.Name(), inst.Code, "price extraction failed", err)
	}
	price, ok := fields["price"]
	if !ok {
		return quote.Quote{}, quote.Unavailable(p.Name(), inst.Code, "no price published", nil)
	}
	return quote.Quote{
		Code:       inst.Code,
		Price:      price,
		Currency:   inst.Currency,
		Source:     p.Name(),
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// Performance is not served by the chart API.
func (p *Provider) Performance(ctx context.Context, inst *domain.Instrument) (quote.PerformanceResult, error) {
	return quote.PerformanceResult{}, quote.ErrUnsupported
}
