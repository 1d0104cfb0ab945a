package gather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"polyfetch/internal/domain"
	"polyfetch/internal/table"
)

// Reasons reported on polyfetch_symbols_skipped_total.
const (
	skipPathSeparator = "path_separator"
	skipNoData        = "no_data"
	skipFetchError    = "fetch_error"
)

// OHLCQuery selects the bars to fetch.
type OHLCQuery struct {
	Start      domain.Date
	End        domain.Date
	Symbols    domain.Symbols
	Timeframe  domain.Timeframe
	Multiplier int
}

// ohlcArgs is the validated view of an OHLCQuery.
type ohlcArgs struct {
	Start      time.Time `validate:"required"`
	End        time.Time `validate:"required,gtefield=Start"`
	Timeframe  string    `validate:"required,oneof=second minute hour day week month quarter year"`
	Multiplier int       `validate:"gte=1"`
}

func (q OHLCQuery) check() error {
	return checkArgs(ohlcArgs{
		Start:      q.Start.Time(),
		End:        q.End.Time(),
		Timeframe:  string(q.Timeframe),
		Multiplier: q.Multiplier,
	})
}

// FetchOHLC retrieves bars for every symbol over [Start, End] and stacks
// them in symbol order. Symbols that cannot be fetched, return nothing or
// fail at the transport level are logged and skipped. A schema conflict
// aborts the call.
func (c *Collector) FetchOHLC(ctx context.Context, q OHLCQuery) (*table.Table, error) {
	if err := q.check(); err != nil {
		return nil, err
	}

	out := table.New(OHLCSchema)
	for _, sym := range q.Symbols {
		log := c.log.With("symbol", sym)
		if !domain.Fetchable(sym) {
			log.Warn("skipping symbol with path separator")
			c.metrics.RecordSkipped(skipPathSeparator)
			continue
		}

		url := c.provider.AggregatesURL(sym, q.Multiplier, q.Timeframe, q.Start, q.End)
		bars, err := c.provider.Fetch(ctx, url, OHLCSchema, false)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, table.ErrSchemaConflict) {
				return nil, fmt.Errorf("fetching %s: %w", sym, err)
			}
			log.Warn("fetch failed, skipping symbol", "error", err)
			c.metrics.RecordSkipped(skipFetchError)
			continue
		}
		if bars.Empty() {
			log.Warn("no data for symbol", "start", q.Start.ISODate(), "end", q.End.ISODate())
			c.metrics.RecordSkipped(skipNoData)
			continue
		}

		if err := stampBars(bars, sym); err != nil {
			return nil, fmt.Errorf("reshaping %s: %w", sym, err)
		}
		if err := out.VStack(bars); err != nil {
			return nil, fmt.Errorf("stacking %s: %w", sym, err)
		}
		log.Info("fetched bars", "rows", bars.Len())
	}

	if out.Empty() {
		c.log.Warn("no bars fetched for any symbol", "symbols", len(q.Symbols))
	}
	return out, nil
}

// stampBars fills the columns the aggregates payload leaves out: the
// ticker, the otc flag and the display timestamp derived from t.
func stampBars(bars *table.Table, sym string) error {
	if err := bars.FillNull("ticker", sym); err != nil {
		return err
	}
	if err := bars.FillNull("otc", false); err != nil {
		return err
	}
	for i := 0; i < bars.Len(); i++ {
		ms, ok := bars.Value(i, "t").(int64)
		if !ok {
			return fmt.Errorf("%w: row %d has no t", table.ErrSchemaConflict, i)
		}
		ts := domain.DisplayTime(ms).Format(domain.DisplayLayout)
		if err := bars.Set(i, "timestamp", ts); err != nil {
			return err
		}
	}
	return nil
}
