package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"polyfetch/internal/domain"
)

// Compile-time interface checks.
var _ BarStore = (*ParquetStore)(nil)
var _ TickerStore = (*ParquetStore)(nil)

const tickersFile = "tickers.parquet"

// ParquetStore implements BarStore and TickerStore using Parquet files on disk.
//
// Layout:
//
//	<DataDir>/<multiplier>_<timeframe>/<YYYY-MM-DD>.parquet
//	<DataDir>/tickers.parquet
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema of a partition row.
type BarRecord struct {
	Ticker     string   `parquet:"ticker"`
	Timestamp  string   `parquet:"timestamp"` // display timestamp, UTC
	Open       float64  `parquet:"o"`
	High       float64  `parquet:"h"`
	Low        float64  `parquet:"l"`
	Close      float64  `parquet:"c"`
	Volume     float64  `parquet:"v"`
	VWAP       *float64 `parquet:"vw,optional"`
	TradeCount *int64   `parquet:"n,optional"`
	OTC        bool     `parquet:"otc"`
	T          int64    `parquet:"t"` // provider epoch ms
}

// TickerRecord is the Parquet schema of the ticker catalog.
type TickerRecord struct {
	Ticker          string `parquet:"ticker"`
	Name            string `parquet:"name"`
	Market          string `parquet:"market"`
	Locale          string `parquet:"locale"`
	PrimaryExchange string `parquet:"primary_exchange"`
	Type            string `parquet:"type"`
	Active          bool   `parquet:"active"`
	CurrencyName    string `parquet:"currency_name"`
	CIK             string `parquet:"cik"`
	LastUpdatedUTC  string `parquet:"last_updated_utc"`
	DelistedUTC     string `parquet:"delisted_utc"`
	CompositeFIGI   string `parquet:"composite_figi"`
	ShareClassFIGI  string `parquet:"share_class_figi"`
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars groups bars by the UTC date of their display timestamp and
// merges each group into its partition file. Existing rows are kept unless
// an incoming row has the same (timestamp, ticker); within the incoming
// batch the last occurrence wins. Partitions are rewritten sorted by
// (t, ticker), so writing the same batch twice leaves identical files.
func (s *ParquetStore) WriteBars(ctx context.Context, bars []domain.Bar, tf domain.Timeframe, multiplier int) error {
	if err := s.checkDataDir(); err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}
	bucket := filepath.Join(s.DataDir, domain.BucketName(tf, multiplier))
	if err := os.MkdirAll(bucket, 0o755); err != nil {
		return fmt.Errorf("creating bucket %s: %w", bucket, err)
	}

	groups := make(map[string][]BarRecord)
	for _, b := range bars {
		day := b.PartitionDate()
		groups[day] = append(groups[day], toBarRecord(b))
	}
	days := make([]string, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(bucket, day+".parquet")

		var existing []BarRecord
		if fileExists(path) {
			var err error
			existing, err = readParquetFile[BarRecord](path)
			if err != nil {
				return fmt.Errorf("reading partition %s: %w", path, err)
			}
		}
		merged := mergeBarRecords(existing, groups[day])

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing partition %s: %w", path, err)
		}
	}
	return nil
}

// ReadBars reads one daily partition. A missing partition yields no bars.
func (s *ParquetStore) ReadBars(_ context.Context, tf domain.Timeframe, multiplier int, day time.Time) ([]domain.Bar, error) {
	path := s.partitionPath(tf, multiplier, day)
	if !fileExists(path) {
		return nil, nil
	}
	records, err := readParquetFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading partition %s: %w", path, err)
	}
	bars := make([]domain.Bar, len(records))
	for i, r := range records {
		bars[i] = fromBarRecord(r)
	}
	return bars, nil
}

// ListPartitions lists the partition dates of a bucket in ascending order.
func (s *ParquetStore) ListPartitions(_ context.Context, tf domain.Timeframe, multiplier int) ([]string, error) {
	dir := filepath.Join(s.DataDir, domain.BucketName(tf, multiplier))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var days []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".parquet"); ok && !e.IsDir() {
			days = append(days, name)
		}
	}
	sort.Strings(days)
	return days, nil
}

// ---------------------------------------------------------------------------
// TickerStore implementation
// ---------------------------------------------------------------------------

// WriteTickers overwrites the ticker catalog.
func (s *ParquetStore) WriteTickers(_ context.Context, tickers []domain.Ticker) error {
	if err := s.checkDataDir(); err != nil {
		return err
	}
	records := make([]TickerRecord, len(tickers))
	for i, t := range tickers {
		records[i] = TickerRecord(t)
	}
	path := filepath.Join(s.DataDir, tickersFile)
	if err := writeParquetFile(path, records); err != nil {
		return fmt.Errorf("writing ticker catalog: %w", err)
	}
	return nil
}

// ReadTickers reads the ticker catalog.
func (s *ParquetStore) ReadTickers(_ context.Context) ([]domain.Ticker, error) {
	path := filepath.Join(s.DataDir, tickersFile)
	if !fileExists(path) {
		return nil, fmt.Errorf("%w: %s", ErrNoCatalog, path)
	}
	records, err := readParquetFile[TickerRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading ticker catalog: %w", err)
	}
	tickers := make([]domain.Ticker, len(records))
	for i, r := range records {
		tickers[i] = domain.Ticker(r)
	}
	return tickers, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// partitionPath returns the filesystem path of a daily partition.
// Layout: <dataDir>/<multiplier>_<timeframe>/<YYYY-MM-DD>.parquet
func (s *ParquetStore) partitionPath(tf domain.Timeframe, multiplier int, day time.Time) string {
	return filepath.Join(s.DataDir, domain.BucketName(tf, multiplier), day.UTC().Format("2006-01-02")+".parquet")
}

func (s *ParquetStore) checkDataDir() error {
	info, err := os.Stat(s.DataDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %q", ErrNoDataDir, s.DataDir)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

// writeParquetFile replaces path atomically through a temporary file in the
// same directory.
func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// readParquetFile reads every row of path into T. Columns of the file that
// T lacks are dropped; fields of T missing from the file read as zero.
func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeBarRecords deduplicates bar records by (timestamp, ticker), preferring
// later records over earlier ones, and sorts the result by (t, ticker).
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		timestamp string
		ticker    string
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Timestamp, r.Ticker}] = r
	}
	for _, r := range incoming {
		seen[key{r.Timestamp, r.Ticker}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].T != merged[j].T {
			return merged[i].T < merged[j].T
		}
		return merged[i].Ticker < merged[j].Ticker
	})
	return merged
}

func toBarRecord(b domain.Bar) BarRecord {
	return BarRecord{
		Ticker:     b.Ticker,
		Timestamp:  b.DisplayTimestamp(),
		Open:       b.Open,
		High:       b.High,
		Low:        b.Low,
		Close:      b.Close,
		Volume:     b.Volume,
		VWAP:       b.VWAP,
		TradeCount: b.TradeCount,
		OTC:        b.OTC,
		T:          b.EpochMillis,
	}
}

func fromBarRecord(r BarRecord) domain.Bar {
	return domain.Bar{
		Ticker:      r.Ticker,
		Timestamp:   domain.DisplayTime(r.T),
		Open:        r.Open,
		High:        r.High,
		Low:         r.Low,
		Close:       r.Close,
		Volume:      r.Volume,
		VWAP:        r.VWAP,
		TradeCount:  r.TradeCount,
		OTC:         r.OTC,
		EpochMillis: r.T,
	}
}
