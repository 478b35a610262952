package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/tropicaldog17/folio/internal/app"
	"github.com/tropicaldog17/folio/internal/config"
	"github.com/tropicaldog17/folio/internal/db"
	"github.com/tropicaldog17/folio/internal/logger"
)

var commands = []subcommands.Command{
	&migrateCmd{},
	&refreshCmd{},
	&rebuildCmd{},
	&historyCmd{},
	&statsCmd{},
}

// setup loads the configuration and builds the application.
func setup(ctx context.Context) (*app.App, error) {
	log, err := logger.New()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return &d, nil
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply database migrations" }
func (*migrateCmd) Usage() string {
	return `migrate

  Applies the embedded SQL migrations to the configured postgres database,
  or creates the schema of the configured sqlite file.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log, err := logger.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	cfg, err := config.Load(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if cfg.DB.Driver == db.DriverPostgres {
		applied, err := db.RunMigrations(cfg.DB, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("%d migration(s) applied\n", applied)
		return subcommands.ExitSuccess
	}

	database, err := db.Connect(cfg.DB)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer database.Close()
	if err := app.Migrate(cfg, database, log); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	log.Info("Schema up to date", zap.String("path", cfg.DB.SQLitePath))
	return subcommands.ExitSuccess
}

type refreshCmd struct{}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "fetch market data for every known ticker" }
func (*refreshCmd) Usage() string {
	return `refresh

  Fetches daily prices and reference data of every traded ticker and stored
  FX pair from the configured market data provider.
`
}
func (*refreshCmd) SetFlags(*flag.FlagSet) {}

func (*refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := setup(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	result, err := a.Refresh.RefreshAll(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	printJSON(os.Stdout, result)
	return subcommands.ExitSuccess
}

type rebuildCmd struct {
	base string
}

func (*rebuildCmd) Name() string     { return "rebuild" }
func (*rebuildCmd) Synopsis() string { return "recompute positions and portfolio history" }
func (*rebuildCmd) Usage() string {
	return `rebuild [-base <currency>]

  Rebuilds the positions table from the ledger and values it into the
  portfolio history in the base currency (BASE_CURRENCY by default).
`
}

func (c *rebuildCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.base, "base", "", "Base currency, 3-letter code (default BASE_CURRENCY)")
}

func (c *rebuildCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := setup(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	info := a.Tasks.Submit("rebuild_all", func(ctx context.Context) (interface{}, error) {
		return a.Rebuild.RebuildAll(ctx, c.base)
	})
	done, err := a.Tasks.Wait(ctx, info.ID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if done.Error != "" {
		fmt.Fprintln(os.Stderr, "Error:", done.Error)
		return subcommands.ExitFailure
	}
	printJSON(os.Stdout, done.Result)
	return subcommands.ExitSuccess
}

type historyCmd struct {
	from, to string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "print the portfolio history as JSON" }
func (*historyCmd) Usage() string {
	return `history [-from YYYY-MM-DD] [-to YYYY-MM-DD]

  Prints the portfolio history of the last rebuild.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First day, inclusive")
	f.StringVar(&c.to, "to", "", "Last day, inclusive")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	from, err := parseDay(c.from)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	to, err := parseDay(c.to)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	a, err := setup(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	rows, err := a.Reporting.GetHistory(ctx, from, to)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	printJSON(os.Stdout, rows)
	return subcommands.ExitSuccess
}

type statsCmd struct {
	asOf   string
	ticker string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "print per-ticker and portfolio stats as JSON" }
func (*statsCmd) Usage() string {
	return `stats [-as-of YYYY-MM-DD] [-ticker <ticker>|PORTFOLIO]

  Prints market value, profit and loss, and 1W/1M/3M/6M/1Y period returns.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asOf, "as-of", "", "As-of day (default today)")
	f.StringVar(&c.ticker, "ticker", "", "Only this ticker, or PORTFOLIO")
}

func (c *statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	asOf, err := parseDay(c.asOf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	day := time.Now().UTC()
	if asOf != nil {
		day = *asOf
	}

	a, err := setup(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	report, err := a.Reporting.GetStats(ctx, day, c.ticker)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	printJSON(os.Stdout, report)
	return subcommands.ExitSuccess
}
