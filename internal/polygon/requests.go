package polygon

import (
	"fmt"
	"net/url"
	"strconv"

	"polyfetch/internal/domain"
)

// Page sizes requested from the provider.
const (
	aggregatesLimit = 50000
	tickersLimit    = 1000
)

// AggregatesURL builds the custom-bars request for one symbol over
// [start, end], oldest first.
func (c *Client) AggregatesURL(symbol string, multiplier int, tf domain.Timeframe, start, end domain.Date) string {
	u := c.endpoint(fmt.Sprintf("/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
		symbol, multiplier, tf, start.Param(), end.Param()))
	q := url.Values{}
	q.Set("adjusted", "true")
	q.Set("sort", "asc")
	q.Set("limit", strconv.Itoa(aggregatesLimit))
	u.RawQuery = q.Encode()
	return u.String()
}

// TickersURL builds the reference-tickers request for one ticker type in the
// stocks market. asOf, when non-nil, asks for the universe as of that date.
func (c *Client) TickersURL(tickerType string, active bool, asOf *domain.Date) string {
	u := c.endpoint("/v3/reference/tickers")
	q := url.Values{}
	q.Set("type", tickerType)
	q.Set("market", "stocks")
	if asOf != nil && !asOf.IsZero() {
		q.Set("date", asOf.ISODate())
	}
	q.Set("active", strconv.FormatBool(active))
	q.Set("order", "asc")
	q.Set("limit", strconv.Itoa(tickersLimit))
	q.Set("sort", "ticker")
	u.RawQuery = q.Encode()
	return u.String()
}

// TickerTypesURL builds the ticker-types catalog request. Empty arguments
// are omitted.
func (c *Client) TickerTypesURL(assetClass, locale string) string {
	u := c.endpoint("/v3/reference/tickers/types")
	q := url.Values{}
	if assetClass != "" {
		q.Set("asset_class", assetClass)
	}
	if locale != "" {
		q.Set("locale", locale)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.baseURL
	u.Path = u.Path + path
	u.RawPath = ""
	return &u
}
