// Package domain defines the core value types shared by the fetch, gather and
// store layers: OHLC bars, ticker reference rows, canonical dates, symbol
// sets and bar timeframes.
package domain

import "time"

// DisplayLayout is the UTC, millisecond-precision layout of a bar's display
// timestamp.
const DisplayLayout = "2006-01-02T15:04:05.000Z"

// Bar is a single OHLC aggregate for one ticker.
type Bar struct {
	Ticker      string
	Timestamp   time.Time // display timestamp, derived from EpochMillis
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	VWAP        *float64 // nil when the provider omits vw
	TradeCount  *int64   // nil when the provider omits n
	OTC         bool
	EpochMillis int64 // raw provider "t"
}

// DisplayTimestamp renders the bar's display timestamp.
func (b Bar) DisplayTimestamp() string {
	return b.Timestamp.UTC().Format(DisplayLayout)
}

// PartitionDate returns the UTC calendar date the bar is filed under.
func (b Bar) PartitionDate() string {
	return b.Timestamp.UTC().Format("2006-01-02")
}

// DisplayTime converts a provider epoch-millisecond timestamp into the UTC
// display time.
func DisplayTime(epochMillis int64) time.Time {
	return time.UnixMilli(epochMillis).UTC()
}

// Ticker is a reference row describing one listed (or delisted) instrument.
type Ticker struct {
	Ticker          string
	Name            string
	Market          string
	Locale          string
	PrimaryExchange string
	Type            string
	Active          bool
	CurrencyName    string
	CIK             string
	LastUpdatedUTC  string
	DelistedUTC     string
	CompositeFIGI   string
	ShareClassFIGI  string
}

// TickerType is one entry of the provider's ticker type catalog.
type TickerType struct {
	Code        string
	Description string
	AssetClass  string
	Locale      string
}
