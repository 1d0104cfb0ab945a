package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"polyfetch/internal/domain"
	"polyfetch/internal/metrics"
	"polyfetch/internal/store"
)

// Compile-time interface checks.
var _ Gatherer = (*TickerJob)(nil)
var _ Gatherer = (*OHLCJob)(nil)

// TickerJob fetches the ticker universe and replaces the stored catalog.
type TickerJob struct {
	Collector *Collector
	Store     store.TickerStore
	Query     TickerQuery
	Metrics   *metrics.Recorder
	Log       *slog.Logger
}

// Name returns the gatherer identifier.
func (j *TickerJob) Name() string { return "tickers" }

// Run performs one catalog refresh.
func (j *TickerJob) Run(ctx context.Context) error {
	t, err := j.Collector.FetchTickers(ctx, j.Query)
	if err != nil {
		return err
	}
	tickers := TickersFromTable(t)
	if err := j.Store.WriteTickers(ctx, tickers); err != nil {
		return err
	}
	j.Metrics.RecordRowsWritten(len(tickers))
	logger(j.Log).Info("ticker catalog written", "rows", len(tickers))
	return nil
}

// OHLCJob fetches bars and merges them into the partitioned store. With no
// symbols in the query, the symbols of the stored ticker catalog are used.
// A zero Query.End means today in Location at the time of each run.
type OHLCJob struct {
	Collector *Collector
	Bars      store.BarStore
	Tickers   store.TickerStore
	Query     OHLCQuery
	Location  *time.Location
	Now       func() time.Time // time.Now when nil
	Metrics   *metrics.Recorder
	Log       *slog.Logger
}

// Name returns the gatherer identifier.
func (j *OHLCJob) Name() string {
	return "ohlc/" + domain.BucketName(j.Query.Timeframe, j.Query.Multiplier)
}

// Run performs one fetch-and-merge pass.
func (j *OHLCJob) Run(ctx context.Context) error {
	log := logger(j.Log).With("job", j.Name())

	q := j.Query
	if q.End.IsZero() {
		now := time.Now
		if j.Now != nil {
			now = j.Now
		}
		q.End = domain.DayOf(now(), j.Location)
	}
	if len(q.Symbols) == 0 {
		symbols, err := j.catalogSymbols(ctx)
		if err != nil {
			return err
		}
		q.Symbols = symbols
		log.Info("using symbols from ticker catalog", "count", len(symbols))
	}

	t, err := j.Collector.FetchOHLC(ctx, q)
	if err != nil {
		return err
	}
	if t.Empty() {
		return nil
	}
	bars, err := BarsFromTable(t)
	if err != nil {
		return fmt.Errorf("converting bars: %w", err)
	}
	if err := j.Bars.WriteBars(ctx, bars, q.Timeframe, q.Multiplier); err != nil {
		return err
	}
	j.Metrics.RecordRowsWritten(len(bars))
	log.Info("bars written", "rows", len(bars), "symbols", len(q.Symbols))
	return nil
}

func (j *OHLCJob) catalogSymbols(ctx context.Context) (domain.Symbols, error) {
	if j.Tickers == nil {
		return nil, fmt.Errorf("%w: no symbols and no ticker catalog configured", ErrInvalidArgument)
	}
	tickers, err := j.Tickers.ReadTickers(ctx)
	if errors.Is(err, store.ErrNoCatalog) {
		return nil, fmt.Errorf("%w: no symbols given and %v", ErrInvalidArgument, err)
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tickers))
	for i, t := range tickers {
		names[i] = t.Ticker
	}
	return domain.NewSymbols(names...), nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
