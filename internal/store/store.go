// Package store defines storage interfaces for persisting and retrieving
// fetched bars and the ticker catalog.
package store

import (
	"context"
	"errors"
	"time"

	"polyfetch/internal/domain"
)

// ErrNoDataDir is returned when the configured data root does not exist.
// The root is never created implicitly.
var ErrNoDataDir = errors.New("data directory does not exist")

// ErrNoCatalog is returned when the ticker catalog has not been written yet.
var ErrNoCatalog = errors.New("ticker catalog not found")

// BarStore persists and retrieves OHLC bars partitioned by day.
type BarStore interface {
	// WriteBars merges bars into their daily partitions for the given
	// bucket. Rows sharing (timestamp, ticker) with stored rows replace them.
	WriteBars(ctx context.Context, bars []domain.Bar, tf domain.Timeframe, multiplier int) error

	// ReadBars returns the bars of one daily partition.
	ReadBars(ctx context.Context, tf domain.Timeframe, multiplier int, day time.Time) ([]domain.Bar, error)

	// ListPartitions returns the partition dates stored for a bucket.
	ListPartitions(ctx context.Context, tf domain.Timeframe, multiplier int) ([]string, error)
}

// TickerStore persists and retrieves the ticker catalog.
type TickerStore interface {
	// WriteTickers replaces the catalog.
	WriteTickers(ctx context.Context, tickers []domain.Ticker) error

	// ReadTickers returns the catalog in stored order.
	ReadTickers(ctx context.Context) ([]domain.Ticker, error)
}
