package gather

import (
	"fmt"

	"polyfetch/internal/domain"
	"polyfetch/internal/table"
)

// OHLCSchema is the canonical column layout of an OHLC result. "ticker" and
// "timestamp" are not part of the provider payload and are filled in after
// fetching.
var OHLCSchema = table.Schema{
	{Name: "ticker", Kind: table.String},
	{Name: "timestamp", Kind: table.String},
	{Name: "o", Kind: table.Float},
	{Name: "h", Kind: table.Float},
	{Name: "l", Kind: table.Float},
	{Name: "c", Kind: table.Float},
	{Name: "v", Kind: table.Float},
	{Name: "vw", Kind: table.Float},
	{Name: "n", Kind: table.Int},
	{Name: "otc", Kind: table.Bool},
	{Name: "t", Kind: table.Int},
}

// TickerSchema is the canonical column layout of the ticker universe.
var TickerSchema = table.Schema{
	{Name: "ticker", Kind: table.String},
	{Name: "name", Kind: table.String},
	{Name: "market", Kind: table.String},
	{Name: "locale", Kind: table.String},
	{Name: "primary_exchange", Kind: table.String},
	{Name: "type", Kind: table.String},
	{Name: "active", Kind: table.Bool},
	{Name: "currency_name", Kind: table.String},
	{Name: "cik", Kind: table.String},
	{Name: "last_updated_utc", Kind: table.String},
	{Name: "delisted_utc", Kind: table.String},
	{Name: "composite_figi", Kind: table.String},
	{Name: "share_class_figi", Kind: table.String},
}

// TickerTypeSchema is the layout of the ticker type catalog.
var TickerTypeSchema = table.Schema{
	{Name: "code", Kind: table.String},
	{Name: "description", Kind: table.String},
	{Name: "asset_class", Kind: table.String},
	{Name: "locale", Kind: table.String},
}

// BarsFromTable converts an OHLC table into bars. A row missing t or any
// price or volume column is an error; null vw and n stay nil and a null otc
// reads as false.
func BarsFromTable(t *table.Table) ([]domain.Bar, error) {
	bars := make([]domain.Bar, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ms, ok := t.Value(i, "t").(int64)
		if !ok {
			return nil, fmt.Errorf("row %d (%s): missing t", i, str(t.Value(i, "ticker")))
		}
		var ohlcv [5]float64
		for k, col := range []string{"o", "h", "l", "c", "v"} {
			f, ok := t.Value(i, col).(float64)
			if !ok {
				return nil, fmt.Errorf("row %d (%s): missing %s", i, str(t.Value(i, "ticker")), col)
			}
			ohlcv[k] = f
		}
		bars = append(bars, domain.Bar{
			Ticker:      str(t.Value(i, "ticker")),
			Timestamp:   domain.DisplayTime(ms),
			Open:        ohlcv[0],
			High:        ohlcv[1],
			Low:         ohlcv[2],
			Close:       ohlcv[3],
			Volume:      ohlcv[4],
			VWAP:        optF64(t.Value(i, "vw")),
			TradeCount:  optI64(t.Value(i, "n")),
			OTC:         boolean(t.Value(i, "otc")),
			EpochMillis: ms,
		})
	}
	return bars, nil
}

// TickersFromTable converts a ticker universe table into ticker rows.
func TickersFromTable(t *table.Table) []domain.Ticker {
	out := make([]domain.Ticker, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, domain.Ticker{
			Ticker:          str(t.Value(i, "ticker")),
			Name:            str(t.Value(i, "name")),
			Market:          str(t.Value(i, "market")),
			Locale:          str(t.Value(i, "locale")),
			PrimaryExchange: str(t.Value(i, "primary_exchange")),
			Type:            str(t.Value(i, "type")),
			Active:          boolean(t.Value(i, "active")),
			CurrencyName:    str(t.Value(i, "currency_name")),
			CIK:             str(t.Value(i, "cik")),
			LastUpdatedUTC:  str(t.Value(i, "last_updated_utc")),
			DelistedUTC:     str(t.Value(i, "delisted_utc")),
			CompositeFIGI:   str(t.Value(i, "composite_figi")),
			ShareClassFIGI:  str(t.Value(i, "share_class_figi")),
		})
	}
	return out
}

// TickerTypesFromTable converts a ticker type catalog table.
func TickerTypesFromTable(t *table.Table) []domain.TickerType {
	out := make([]domain.TickerType, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, domain.TickerType{
			Code:        str(t.Value(i, "code")),
			Description: str(t.Value(i, "description")),
			AssetClass:  str(t.Value(i, "asset_class")),
			Locale:      str(t.Value(i, "locale")),
		})
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func optF64(v any) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}

func optI64(v any) *int64 {
	if n, ok := v.(int64); ok {
		return &n
	}
	return nil
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}
