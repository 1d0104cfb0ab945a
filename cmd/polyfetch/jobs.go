package main

import (
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"polyfetch/internal/config"
	"polyfetch/internal/domain"
	"polyfetch/internal/gather"
	"polyfetch/internal/metrics"
	"polyfetch/internal/store"
)

// overrides holds the per-command flags that take precedence over the
// gather section of the config file.
type overrides struct {
	types      string
	delisted   bool
	asOf       string
	start      string
	end        string
	symbols    string
	timeframe  string
	multiplier int
}

func registerOverrides(fs *flag.FlagSet, cmd string) *overrides {
	ov := &overrides{}
	switch cmd {
	case "tickers":
		fs.StringVar(&ov.types, "types", "", "comma-separated ticker type codes, e.g. CS,ETF (default: every stock type)")
		fs.BoolVar(&ov.delisted, "delisted", false, "include delisted tickers; -delisted=false fetches active only")
		fs.StringVar(&ov.asOf, "as-of", "", "universe as of this date (YYYY-MM-DD)")
	case "ohlc":
		fs.StringVar(&ov.start, "start", "", "first date (YYYY-MM-DD or ISO-8601)")
		fs.StringVar(&ov.end, "end", "", "last date (default: today)")
		fs.StringVar(&ov.symbols, "symbols", "", "comma-separated symbols (default: the stored ticker catalog)")
		fs.StringVar(&ov.timeframe, "timeframe", "", "bar timeframe: second, minute, hour, day, week, month, quarter, year")
		fs.IntVar(&ov.multiplier, "multiplier", 0, "bar multiplier")
	}
	return ov
}

// apply copies every flag the user actually set into g.
func (ov *overrides) apply(fs *flag.FlagSet, g *config.Gather) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "types":
			g.TickerTypes = splitList(ov.types)
		case "delisted":
			g.IncludeDelisted = ov.delisted
		case "as-of":
			g.AsOf = ov.asOf
		case "start":
			g.StartDate = ov.start
		case "end":
			g.EndDate = ov.end
		case "symbols":
			g.Symbols = splitList(ov.symbols)
		case "timeframe":
			g.Timeframe = ov.timeframe
		case "multiplier":
			g.Multiplier = ov.multiplier
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type jobDeps struct {
	collector *gather.Collector
	store     *store.ParquetStore
	metrics   *metrics.Recorder
	log       *slog.Logger
}

// newJob builds the gatherer for cmd from the gather config.
func newJob(cmd string, g config.Gather, loc *time.Location, deps jobDeps) (gather.Gatherer, error) {
	switch cmd {
	case "tickers":
		q, err := tickerQuery(g, loc)
		if err != nil {
			return nil, err
		}
		return &gather.TickerJob{
			Collector: deps.collector,
			Store:     deps.store,
			Query:     q,
			Metrics:   deps.metrics,
			Log:       deps.log,
		}, nil
	case "ohlc":
		q, err := ohlcQuery(g, loc)
		if err != nil {
			return nil, err
		}
		return &gather.OHLCJob{
			Collector: deps.collector,
			Bars:      deps.store,
			Tickers:   deps.store,
			Query:     q,
			Location:  loc,
			Metrics:   deps.metrics,
			Log:       deps.log,
		}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func tickerQuery(g config.Gather, loc *time.Location) (gather.TickerQuery, error) {
	q := gather.TickerQuery{
		Types:           g.TickerTypes,
		IncludeDelisted: gather.Bool(g.IncludeDelisted),
	}
	if g.AsOf != "" {
		d, err := domain.Canonicalize(domain.IsoString(g.AsOf), loc)
		if err != nil {
			return q, fmt.Errorf("as_of: %w", err)
		}
		q.AsOf = &d
	}
	return q, nil
}

func ohlcQuery(g config.Gather, loc *time.Location) (gather.OHLCQuery, error) {
	tf, err := domain.ParseTimeframe(g.Timeframe)
	if err != nil {
		return gather.OHLCQuery{}, err
	}
	q := gather.OHLCQuery{
		Symbols:    domain.NewSymbols(g.Symbols...),
		Timeframe:  tf,
		Multiplier: g.Multiplier,
	}
	if g.StartDate == "" {
		return q, fmt.Errorf("%w: start_date is required", gather.ErrInvalidArgument)
	}
	if q.Start, err = domain.Canonicalize(domain.IsoString(g.StartDate), loc); err != nil {
		return q, fmt.Errorf("start_date: %w", err)
	}
	if g.EndDate != "" {
		if q.End, err = domain.Canonicalize(domain.IsoString(g.EndDate), loc); err != nil {
			return q, fmt.Errorf("end_date: %w", err)
		}
	}
	return q, nil
}
