package batch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"portfoliotracker/internal/batch"
	"portfoliotracker/internal/domain"
	"portfoliotracker/internal/extract"
	"portfoliotracker/internal/ledger"
	"portfoliotracker/internal/quote"
	"portfoliotracker/internal/refresh"
)

// memStore is an in-memory implementation of all four repositories.
// Batch refreshes run concurrently, so every access is locked.
type memStore struct {
	mu          sync.Mutex
	instruments []*domain.Instrument
	txs         map[uuid.UUID][]*domain.Transaction // keyed by instrument
	holdings    []*domain.Holding
	accounts    []*domain.Account

	priceSaves int
}

func (s *memStore) ListActive(ctx context.Context) ([]*domain.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Instrument
	for _, i := range s.instruments {
		if i.Active {
			out = append(out, i)
		}
	}
	return out, nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.instruments {
		if i.ID == id {
			return i, nil
		}
	}
	return nil, errors.New("instrument not found")
}

func (s *memStore) SavePrice(ctx context.Context, inst *domain.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priceSaves++
	return nil
}

func (s *memStore) SavePerformance(ctx context.Context, inst *domain.Instrument) error {
	return nil
}

func (s *memStore) ListFor(ctx context.Context, instrumentID, accountID uuid.UUID) ([]*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Transaction
	for _, t := range s.txs[instrumentID] {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) ListAll(ctx context.Context) ([]*domain.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Holding(nil), s.holdings...), nil
}

func (s *memStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Holding
	for _, h := range s.holdings {
		if h.AccountID == accountID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *memStore) ListByInstrument(ctx context.Context, instrumentID uuid.UUID) ([]*domain.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Holding
	for _, h := range s.holdings {
		if h.InstrumentID == instrumentID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *memStore) GetFor(ctx context.Context, instrumentID, accountID uuid.UUID) (*domain.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holdings {
		if h.InstrumentID == instrumentID && h.AccountID == accountID {
			return h, nil
		}
	}
	return nil, nil
}

func (s *memStore) Save(ctx context.Context, h *domain.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.holdings {
		if existing.InstrumentID == h.InstrumentID && existing.AccountID == h.AccountID {
			h.ID = existing.ID
			s.holdings[i] = h
			return nil
		}
	}
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	s.holdings = append(s.holdings, h)
	return nil
}

func (s *memStore) List(ctx context.Context) ([]*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Account(nil), s.accounts...), nil
}

func (s *memStore) SaveValue(ctx context.Context, a *domain.Account) error {
	return nil
}

// stubSource returns a canned price per instrument code, and optionally
// a canned performance result.
type stubSource struct {
	prices map[string]decimal.Decimal
	errs   map[string]error
	perf   map[string]quote.PerformanceResult
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Price(ctx context.Context, inst *domain.Instrument) (quote.Quote, error) {
	if err := s.errs[inst.Code]; err != nil {
		return quote.Quote{}, err
	}
	return quote.Quote{
		Code:       inst.Code,
		Price:      s.prices[inst.Code],
		Currency:   inst.Currency,
		Source:     "stub",
		ReceivedAt: time.Now().UTC(),
	}, nil
}

func (s *stubSource) Performance(ctx context.Context, inst *domain.Instrument) (quote.PerformanceResult, error) {
	if res, ok := s.perf[inst.Code]; ok {
		return res, nil
	}
	return quote.PerformanceResult{}, quote.ErrUnsupported
}

func instrument(code string) *domain.Instrument {
	return &domain.Instrument{
		ID:       uuid.New(),
		Name:     code,
		Nickname: code,
		Code:     code,
		Kind:     domain.KindEquity,
		Currency: domain.CurrencyUSD,
		Active:   true,
	}
}

func newRunner(store *memStore, src quote.Source) *batch.Runner {
	agg := &ledger.Aggregator{Transactions: store, Holdings: store}
	return &batch.Runner{
		Refresher: &refresh.Refresher{
			Source:      src,
			Instruments: store,
			Holdings:    store,
			Aggregator:  agg,
		},
		Aggregator:  agg,
		Instruments: store,
		Holdings:    store,
		Accounts:    store,
		Concurrency: 2,
	}
}

func TestRefreshAllInstruments_CollectsFailuresWithoutAborting(t *testing.T) {
	a, b, c := instrument("AAA:USD"), instrument("BBB:USD"), instrument("CCC:USD")
	store := &memStore{
		instruments: []*domain.Instrument{a, b, c},
		txs:         map[uuid.UUID][]*domain.Transaction{},
	}
	src := &stubSource{
		prices: map[string]decimal.Decimal{
			"AAA:USD": decimal.NewFromInt(10),
			"CCC:USD": decimal.NewFromInt(30),
		},
		errs: map[string]error{
			"BBB:USD": quote.Unavailable("stub", "BBB:USD", "price extraction failed", nil),
		},
	}

	summary, err := newRunner(store, src).RefreshAllInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Succeeded, 2)
	require.Len(t, summary.Failed, 1)
	require.Equal(t, b.ID, summary.Failed[0].ID)
	require.Contains(t, summary.Failed[0].Reason, "price extraction failed")
	require.Equal(t, 2, store.priceSaves)
}

func TestRefreshAllInstruments_InactiveInstrumentsAreNotFetched(t *testing.T) {
	a := instrument("AAA:USD")
	b := instrument("BBB:USD")
	b.Active = false
	store := &memStore{
		instruments: []*domain.Instrument{a, b},
		txs:         map[uuid.UUID][]*domain.Transaction{},
	}
	src := &stubSource{prices: map[string]decimal.Decimal{"AAA:USD": decimal.NewFromInt(1)}}

	summary, err := newRunner(store, src).RefreshAllInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Succeeded, 1)
	require.Empty(t, summary.Failed)
}

func TestRefreshAllInstruments_PartialPerformanceSurfacedAsWarning(t *testing.T) {
	inst := instrument("FUND:GBP")
	inst.Kind = domain.KindFund
	inst.Currency = domain.CurrencyGBP
	store := &memStore{
		instruments: []*domain.Instrument{inst},
		txs:         map[uuid.UUID][]*domain.Transaction{},
	}
	src := &stubSource{
		prices: map[string]decimal.Decimal{"FUND:GBP": decimal.NewFromInt(5)},
		perf: map[string]quote.PerformanceResult{
			"FUND:GBP": {
				Horizons: map[domain.Horizon]decimal.Decimal{
					domain.Horizon1Y: decimal.RequireFromString("12.4"),
				},
				Failures: []error{&extract.FieldParseError{Field: "5y", Raw: "garbage"}},
			},
		},
	}

	runner := newRunner(store, src)
	runner.Refresher.PartialPerformance = true

	summary, err := runner.RefreshAllInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Succeeded, 1)
	require.Empty(t, summary.Failed)
	// The broken horizon updated nothing, but the user must still see it.
	require.Len(t, summary.Warnings, 1)
	require.Equal(t, inst.ID, summary.Warnings[0].ID)
	require.Contains(t, summary.Warnings[0].Reason, "5y")
	require.Contains(t, summary.String(), "partial: 1/1")
}

func TestRefreshAllInstruments_CanceledContextReportsRemainder(t *testing.T) {
	a, b := instrument("AAA:USD"), instrument("BBB:USD")
	store := &memStore{
		instruments: []*domain.Instrument{a, b},
		txs:         map[uuid.UUID][]*domain.Transaction{},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newRunner(store, &stubSource{}).RefreshAllInstruments(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Failed, 2)
	require.Empty(t, summary.Succeeded)
}

func TestRefreshAllHoldings_RecomputesFromLedger(t *testing.T) {
	inst := instrument("AAA:USD")
	price := decimal.NewFromInt(100)
	inst.Price = &price
	account := uuid.New()
	store := &memStore{
		instruments: []*domain.Instrument{inst},
		txs: map[uuid.UUID][]*domain.Transaction{
			inst.ID: {
				{ID: uuid.New(), InstrumentID: inst.ID, AccountID: account, Direction: domain.Buy, Volume: 10},
				{ID: uuid.New(), InstrumentID: inst.ID, AccountID: account, Direction: domain.Sell, Volume: 3},
			},
		},
		holdings: []*domain.Holding{
			{ID: uuid.New(), InstrumentID: inst.ID, AccountID: account},
		},
	}

	summary, err := newRunner(store, &stubSource{}).RefreshAllHoldings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, summary.Succeeded, 1)
	require.Empty(t, summary.Failed)

	require.EqualValues(t, 7, store.holdings[0].Volume)
	require.True(t, store.holdings[0].Valuation.Equal(decimal.NewFromInt(700)))
}

func TestRefreshAllHoldings_NegativeLedgerSurfacedPerPair(t *testing.T) {
	inst := instrument("AAA:USD")
	price := decimal.NewFromInt(10)
	inst.Price = &price
	account := uuid.New()
	store := &memStore{
		instruments: []*domain.Instrument{inst},
		txs: map[uuid.UUID][]*domain.Transaction{
			inst.ID: {
				{ID: uuid.New(), InstrumentID: inst.ID, AccountID: account, Direction: domain.Sell, Volume: 5},
			},
		},
		holdings: []*domain.Holding{
			{ID: uuid.New(), InstrumentID: inst.ID, AccountID: account},
		},
	}

	summary, err := newRunner(store, &stubSource{}).RefreshAllHoldings(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
	require.Contains(t, summary.Failed[0].Reason, "negative net volume")
}

func TestRefreshAllHoldings_AccountFilter(t *testing.T) {
	inst := instrument("AAA:USD")
	price := decimal.NewFromInt(10)
	inst.Price = &price
	accountA, accountB := uuid.New(), uuid.New()
	store := &memStore{
		instruments: []*domain.Instrument{inst},
		txs:         map[uuid.UUID][]*domain.Transaction{},
		holdings: []*domain.Holding{
			{ID: uuid.New(), InstrumentID: inst.ID, AccountID: accountA},
			{ID: uuid.New(), InstrumentID: inst.ID, AccountID: accountB},
		},
	}

	summary, err := newRunner(store, &stubSource{}).RefreshAllHoldings(context.Background(), &accountA)
	require.NoError(t, err)
	require.Len(t, summary.Succeeded, 1)
}

func TestRefreshAccountValues_SumsHoldingValuations(t *testing.T) {
	account := &domain.Account{ID: uuid.New(), Name: "isa", Kind: domain.AccountISA}
	store := &memStore{
		accounts: []*domain.Account{account},
		holdings: []*domain.Holding{
			{ID: uuid.New(), InstrumentID: uuid.New(), AccountID: account.ID, Valuation: decimal.RequireFromString("700.00")},
			{ID: uuid.New(), InstrumentID: uuid.New(), AccountID: account.ID, Valuation: decimal.RequireFromString("55.50")},
			{ID: uuid.New(), InstrumentID: uuid.New(), AccountID: uuid.New(), Valuation: decimal.NewFromInt(999)},
		},
	}

	summary, err := newRunner(store, &stubSource{}).RefreshAccountValues(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Succeeded, 1)
	require.True(t, account.Value.Equal(decimal.RequireFromString("755.50")))
}

func TestSummaryString(t *testing.T) {
	s := &batch.Summary{
		Succeeded: []uuid.UUID{uuid.New(), uuid.New()},
		Failed:    []batch.Failure{{ID: uuid.New(), Name: "msft", Reason: "boom"}},
	}
	out := s.String()
	require.Contains(t, out, "updated: 2/3")
	require.Contains(t, out, "failed:  1/3")
	require.Contains(t, out, "msft: boom")
}
