// Command portfoliotracker runs refresh cycles against the portfolio
// database: scrape prices, recompute holdings, roll up account values.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"portfoliotracker/internal/batch"
	"portfoliotracker/internal/config"
	"portfoliotracker/internal/httpx"
	"portfoliotracker/internal/ledger"
	"portfoliotracker/internal/quote"
	"portfoliotracker/internal/quote/ftmarkets"
	"portfoliotracker/internal/quote/yahoofinance"
	"portfoliotracker/internal/refresh"
	"portfoliotracker/internal/store/postgres"
)

var configPath = flag.String("config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&getPricesCmd{}, "refresh")
	subcommands.Register(&refreshHoldingsCmd{}, "refresh")
	subcommands.Register(&refreshAccountsCmd{}, "refresh")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(int(subcommands.Execute(ctx)))
}

// newRunner builds the full refresh stack from configuration. The
// returned closer releases the database connection.
func newRunner(ctx context.Context) (*batch.Runner, func() error, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, nil, err
	}

	db, err := postgres.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	hc := httpx.New(time.Duration(cfg.RequestTimeoutSec) * time.Second)
	hc.MaxAttempts = cfg.MaxAttempts
	if cfg.UserAgent != "" {
		hc.UserAgent = cfg.UserAgent
	}

	var src quote.Source
	switch cfg.Provider {
	case "", "ftmarkets":
		src = ftmarkets.New(ftmarkets.Config{BaseURL: cfg.ProviderBaseURL}, hc)
	case "yahoofinance":
		src = yahoofinance.New(yahoofinance.Config{BaseURL: cfg.ProviderBaseURL}, hc)
	default:
		db.Close()
		return nil, nil, fmt.Errorf("unknown quote provider %q", cfg.Provider)
	}
	if cfg.MinRequestIntervalSec > 0 {
		src = &quote.Throttled{S: src, Interval: time.Duration(cfg.MinRequestIntervalSec) * time.Second}
	}

	instruments := postgres.NewInstrumentRepository(db)
	transactions := postgres.NewTransactionRepository(db)
	holdings := postgres.NewHoldingRepository(db)
	accounts := postgres.NewAccountRepository(db)
	prices := postgres.NewPriceRepository(db)

	aggregator := &ledger.Aggregator{Transactions: transactions, Holdings: holdings}
	refresher := &refresh.Refresher{
		Source:             src,
		Instruments:        instruments,
		Holdings:           holdings,
		Aggregator:         aggregator,
		Prices:             prices,
		PartialPerformance: cfg.PartialPerformance,
		Logger:             slog.Default(),
	}
	runner := &batch.Runner{
		Refresher:   refresher,
		Aggregator:  aggregator,
		Instruments: instruments,
		Holdings:    holdings,
		Accounts:    accounts,
		Concurrency: int64(cfg.Concurrency),
		Logger:      slog.Default(),
	}
	return runner, db.Close, nil
}

func report(summary *batch.Summary, err error) subcommands.ExitStatus {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(summary)
	return subcommands.ExitSuccess
}

type getPricesCmd struct{}

func (*getPricesCmd) Name() string     { return "get-prices" }
func (*getPricesCmd) Synopsis() string { return "scrape current prices for all active instruments" }
func (*getPricesCmd) Usage() string {
	return `portfoliotracker get-prices

Fetches the current price (and performance figures for funds and ETFs)
of every active instrument from the configured quote provider, persists
them and recomputes the affected holdings. Per-instrument failures are
collected into the run summary; they never abort the run.
`
}
func (*getPricesCmd) SetFlags(*flag.FlagSet) {}

func (c *getPricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	runner, closer, err := newRunner(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closer()
	summary, err := runner.RefreshAllInstruments(ctx)
	return report(summary, err)
}

type refreshHoldingsCmd struct {
	account string
}

func (*refreshHoldingsCmd) Name() string     { return "refresh-holdings" }
func (*refreshHoldingsCmd) Synopsis() string { return "recompute holding volumes and valuations" }
func (*refreshHoldingsCmd) Usage() string {
	return `portfoliotracker refresh-holdings [-account <uuid>]

Recomputes volume and valuation of every holding from the transaction
ledger and the last known instrument prices. With -account only that
account's holdings are recomputed.
`
}

func (c *refreshHoldingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "restrict to one account id")
}

func (c *refreshHoldingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var filter *uuid.UUID
	if c.account != "" {
		id, err := uuid.Parse(c.account)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid account id %q: %v\n", c.account, err)
			return subcommands.ExitUsageError
		}
		filter = &id
	}
	runner, closer, err := newRunner(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closer()
	summary, err := runner.RefreshAllHoldings(ctx, filter)
	return report(summary, err)
}

type refreshAccountsCmd struct{}

func (*refreshAccountsCmd) Name() string     { return "refresh-accounts" }
func (*refreshAccountsCmd) Synopsis() string { return "refresh account values by summing holdings" }
func (*refreshAccountsCmd) Usage() string {
	return `portfoliotracker refresh-accounts

Sets each account's value to the sum of its holding valuations.
`
}
func (*refreshAccountsCmd) SetFlags(*flag.FlagSet) {}

func (c *refreshAccountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	runner, closer, err := newRunner(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closer()
	summary, err := runner.RefreshAccountValues(ctx)
	return report(summary, err)
}
