package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies an instrument. The value doubles as the upstream URL
// segment selector, so the set is closed.
type Kind string

const (
	KindEquity   Kind = "equity"
	KindFund     Kind = "fund"
	KindETF      Kind = "etfs"
	KindCurrency Kind = "curr"
)

// Currency is the unit an instrument is quoted in. GBX quotes arrive in
// pence and are normalized to GBP before persisting.
type Currency string

const (
	CurrencyGBP Currency = "gbp"
	CurrencyGBX Currency = "gbx"
	CurrencyUSD Currency = "usd"
)

// Horizon is a performance lookback window.
type Horizon string

const (
	Horizon5Y Horizon = "5y"
	Horizon3Y Horizon = "3y"
	Horizon1Y Horizon = "1y"
	Horizon6M Horizon = "6m"
	Horizon3M Horizon = "3m"
	Horizon1M Horizon = "1m"
)

// Horizons returns all horizons in display order, longest first.
func Horizons() []Horizon {
	return []Horizon{Horizon5Y, Horizon3Y, Horizon1Y, Horizon6M, Horizon3M, Horizon1M}
}

// Instrument is a tradable entity tracked by the system. Price and the
// performance figures are nil until the first successful fetch.
type Instrument struct {
	ID             uuid.UUID
	Name           string
	Nickname       string
	Code           string // upstream code, e.g. "MSFT:USD"
	Kind           Kind
	Currency       Currency
	Active         bool
	Price          *decimal.Decimal
	PriceUpdatedAt *time.Time
	Performance    map[Horizon]decimal.Decimal
}

// HasPerformance reports whether performance figures are meaningful for
// this instrument's kind. Plain equities and currencies have none; this
// is policy, not a side effect of missing data.
func (i *Instrument) HasPerformance() bool {
	return i.Kind == KindFund || i.Kind == KindETF
}

// Direction is the side of a ledger transaction.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// Transaction is a single entry in the append-only ledger. The core never
// mutates or deletes transactions.
type Transaction struct {
	ID           uuid.UUID
	InstrumentID uuid.UUID
	AccountID    uuid.UUID
	Direction    Direction
	Volume       int64 // always positive; direction carries the sign
	Date         time.Time
	Price        decimal.Decimal
	Cost         decimal.Decimal
}

// Price is one observation in the price history. A row is appended on
// every successful refresh; the instrument's current price is always the
// latest row.
type Price struct {
	ID           uuid.UUID
	InstrumentID uuid.UUID
	Price        decimal.Decimal
	RecordedAt   time.Time
}

// Holding is the derived position of one instrument within one account.
// It is a materialized view over the ledger and the instrument price,
// never a source of truth. BookCost is the exception: it is entered by
// the user, so a recompute carries it forward instead of deriving it.
type Holding struct {
	ID                 uuid.UUID
	InstrumentID       uuid.UUID
	AccountID          uuid.UUID
	Volume             int64
	BookCost           decimal.Decimal
	Valuation          decimal.Decimal
	ValuationUpdatedAt time.Time
}

// AccountKind is the tax wrapper of an account.
type AccountKind string

const (
	AccountISA      AccountKind = "isa"
	AccountPension  AccountKind = "pension"
	AccountStandard AccountKind = "standard"
)

// Account groups holdings. Value is the sum of its holding valuations.
type Account struct {
	ID    uuid.UUID
	Name  string
	Kind  AccountKind
	Value decimal.Decimal
}

// InvalidCodeError reports an instrument code that failed the allow-list
// check. The refresh is refused before any network call is made.
type InvalidCodeError struct {
	Code string
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("instrument code %q contains disallowed characters", e.Code)
}

// ValidateCode checks that code contains only allow-listed characters
// before it may be embedded into an upstream URL.
func ValidateCode(code string) error {
	if code == "" {
		return &InvalidCodeError{Code: code}
	}
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == ':' || r == '-' || r == '^':
		default:
			return &InvalidCodeError{Code: code}
		}
	}
	return nil
}
