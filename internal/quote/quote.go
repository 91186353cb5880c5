package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portfoliotracker/internal/domain"
)

// Quote is a single price observation with provenance. It is never
// persisted on its own; it folds into the instrument it was fetched for.
type Quote struct {
	Code       string
	Price      decimal.Decimal
	Currency   domain.Currency
	Source     string
	ReceivedAt time.Time
}

// PerformanceResult carries the horizons a provider managed to extract
// plus the per-horizon failures of those it did not. The caller decides
// whether partial success is acceptable.
type PerformanceResult struct {
	Horizons map[domain.Horizon]decimal.Decimal
	Failures []error
}

// Source produces quotes for instruments from one upstream provider.
//
//go:generate mockgen -package=refresh_test -destination=../refresh/mock_source_test.go portfoliotracker/internal/quote Source
type Source interface {
	Name() string
	Price(ctx context.Context, inst *domain.Instrument) (Quote, error)
	Performance(ctx context.Context, inst *domain.Instrument) (PerformanceResult, error)
}

// ErrUnsupported means the provider does not serve that operation for the
// instrument, e.g. performance figures for an equity.
var ErrUnsupported = errors.New("operation not supported by this source")

// UnavailableError is the uniform wrapper a source converts extraction
// failures into.
type UnavailableError struct {
	Source string
	Code   string
	Reason string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("quote unavailable from %s for %s: %s", e.Source, e.Code, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable builds an UnavailableError.
func Unavailable(source, code, reason string, err error) *UnavailableError {
	return &UnavailableError{Source: source, Code: code, Reason: reason, Err: err}
}
