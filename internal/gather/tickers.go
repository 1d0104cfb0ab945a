package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"polyfetch/internal/domain"
	"polyfetch/internal/metrics"
	"polyfetch/internal/table"
)

// Collector turns provider requests into canonical tables. Requests are
// issued one at a time in input order.
type Collector struct {
	provider Provider
	metrics  *metrics.Recorder
	log      *slog.Logger
}

// NewCollector creates a collector over p. A nil logger uses the default.
func NewCollector(p Provider, rec *metrics.Recorder, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{
		provider: p,
		metrics:  rec,
		log:      log.With("component", "gather"),
	}
}

// Bool returns a pointer to b, for TickerQuery.IncludeDelisted.
func Bool(b bool) *bool { return &b }

// TickerQuery selects the ticker universe to fetch.
type TickerQuery struct {
	// Types are provider ticker type codes such as "CS" or "ETF". Empty
	// means every stock type in the provider catalog.
	Types []string `validate:"omitempty,dive,required"`
	// IncludeDelisted also fetches inactive tickers. It must be set.
	IncludeDelisted *bool `validate:"required"`
	// AsOf asks for the universe as of a past date.
	AsOf *domain.Date
}

// FetchTickers retrieves the ticker universe for every requested type,
// active tickers first, then delisted ones when requested. Every fetch is
// strict: any provider failure aborts the whole call.
func (c *Collector) FetchTickers(ctx context.Context, q TickerQuery) (*table.Table, error) {
	if err := checkArgs(q); err != nil {
		return nil, err
	}

	types := make([]string, 0, len(q.Types))
	for _, typ := range q.Types {
		types = append(types, strings.ToUpper(strings.TrimSpace(typ)))
	}
	if len(types) == 0 {
		catalog, err := c.FetchTickerTypes(ctx, "stocks", "")
		if err != nil {
			return nil, fmt.Errorf("discovering ticker types: %w", err)
		}
		for _, tt := range catalog {
			types = append(types, tt.Code)
		}
		c.log.Info("discovered ticker types", "count", len(types))
	}

	states := []bool{true}
	if *q.IncludeDelisted {
		states = append(states, false)
	}

	out := table.New(TickerSchema)
	for _, typ := range types {
		for _, active := range states {
			rows, err := c.provider.Fetch(ctx, c.provider.TickersURL(typ, active, q.AsOf), TickerSchema, true)
			if err != nil {
				return nil, fmt.Errorf("fetching %s tickers (active=%t): %w", typ, active, err)
			}
			if err := out.VStack(rows); err != nil {
				return nil, fmt.Errorf("stacking %s tickers: %w", typ, err)
			}
			c.log.Info("fetched tickers", "type", typ, "active", active, "rows", rows.Len())
		}
	}
	return out, nil
}

// FetchTickerTypes retrieves the provider's ticker type catalog. Empty
// arguments are not sent.
func (c *Collector) FetchTickerTypes(ctx context.Context, assetClass, locale string) ([]domain.TickerType, error) {
	rows, err := c.provider.Fetch(ctx, c.provider.TickerTypesURL(assetClass, locale), TickerTypeSchema, true)
	if err != nil {
		return nil, err
	}
	return TickerTypesFromTable(rows), nil
}
