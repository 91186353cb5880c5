// Package ftmarkets fetches quotes from the FT markets data service.
package ftmarkets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"portfoliotracker/internal/domain"
	"portfoliotracker/internal/extract"
	"portfoliotracker/internal/httpx"
	"portfoliotracker/internal/quote"
)

// noData is the upstream's literal marker for a figure it does not have.
const noData = "--"

// priceEndpoints selects the tearsheet per instrument kind. Funds and
// ETFs publish their latest price on the performance tearsheet.
var priceEndpoints = map[domain.Kind]string{
	domain.KindEquity:   "equities/tearsheet/summary?s=",
	domain.KindFund:     "funds/tearsheet/performance?s=",
	domain.KindETF:      "etfs/tearsheet/performance?s=",
	domain.KindCurrency: "currencies/tearsheet/summary?s=",
}

var perfEndpoints = map[domain.Kind]string{
	domain.KindFund: "funds/tearsheet/performance?s=",
	domain.KindETF:  "etfs/tearsheet/performance?s=",
}

var priceDescriptors = []extract.FieldDescriptor{
	{Field: "price", Path: "$.data.items[0].lastPrice", Rule: extract.Number, Sentinel: noData},
}

// perfDescriptors drive one extraction loop over all six horizons.
// Adding a horizon here is the whole change.
var perfDescriptors = []extract.FieldDescriptor{
	{Field: "5y", Path: `$.data.performance["5y"]`, Rule: extract.Percent, Sentinel: noData},
	{Field: "3y", Path: `$.data.performance["3y"]`, Rule: extract.Percent, Sentinel: noData},
	{Field: "1y", Path: `$.data.performance["1y"]`, Rule: extract.Percent, Sentinel: noData},
	{Field: "6m", Path: `$.data.performance["6m"]`, Rule: extract.Percent, Sentinel: noData},
	{Field: "3m", Path: `$.data.performance["3m"]`, Rule: extract.Percent, Sentinel: noData},
	{Field: "1m", Path: `$.data.performance["1m"]`, Rule: extract.Percent, Sentinel: noData},
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
		cfg.Name = "FTMarkets"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://markets.ft.com/data/"
	}
	if cfg.Format == (extract.NumberFormat{}) {
		cfg.Format = extract.DefaultFormat()
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Price fetches the current price for the instrument. Fetch failures keep
// their transient identity; extraction failures come back as a uniform
// quote.UnavailableError.
func (p *Provider) Price(ctx context.Context, inst *domain.Instrument) (quote.Quote, error) {
	if err := domain.ValidateCode(inst.Code); err != nil {
		return quote.Quote{}, err
	}
	seg, ok := priceEndpoints[inst.Kind]
	if !ok {
		return quote.Quote{}, quote.Unavailable(p.Name(), inst.Code, fmt.Sprintf("no endpoint for kind %q", inst.Kind), nil)
	}

	doc, err := p.document(ctx, inst.Code, seg)
	if err != nil {
		return quote.Quote{}, err
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

// Performance fetches the six performance horizons. Extraction runs
// descriptor by descriptor so one broken horizon does not take out the
// others; the caller picks strict or partial semantics from the result.
func (p *Provider) Performance(ctx context.Context, inst *domain.Instrument) (quote.PerformanceResult, error) {
	if err := domain.ValidateCode(inst.Code); err != nil {
		return quote.PerformanceResult{}, err
	}
	seg, ok := perfEndpoints[inst.Kind]
	if !ok {
		return quote.PerformanceResult{}, quote.ErrUnsupported
	}

	doc, err := p.document(ctx, inst.Code, seg)
	if err != nil {
		return quote.PerformanceResult{}, err
	}
	fields, errs := extract.ExtractPartial(doc, perfDescriptors, p.cfg.Format)
	res := quote.PerformanceResult{
		Horizons: make(map[domain.Horizon]decimal.Decimal, len(fields)),
		Failures: errs,
	}
	for _, h := range domain.Horizons() {
		if v, ok := fields[string(h)]; ok {
			res.Horizons[h] = v
		}
	}
	return res, nil
}

func (p *Provider) document(ctx context.Context, code, seg string) (any, error) {
	addr := p.cfg.BaseURL + seg + url.QueryEscape(code)
	body, err := p.client.Fetch(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("ftmarkets: %s: %w", code, err)
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, quote.Unavailable(p.Name(), code, "malformed document", err)
	}
	return doc, nil
}
