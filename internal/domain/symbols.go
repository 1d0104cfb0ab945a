package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTimeframe is returned for timeframe strings outside the
// supported set.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// Timeframe is the unit of an aggregate bar.
type Timeframe string

const (
	Second  Timeframe = "second"
	Minute  Timeframe = "minute"
	Hour    Timeframe = "hour"
	Day     Timeframe = "day"
	Week    Timeframe = "week"
	Month   Timeframe = "month"
	Quarter Timeframe = "quarter"
	Year    Timeframe = "year"
)

// Timeframes lists every supported timeframe, finest first.
var Timeframes = []Timeframe{Second, Minute, Hour, Day, Week, Month, Quarter, Year}

// Valid reports whether tf is a supported timeframe.
func (tf Timeframe) Valid() bool {
	for _, v := range Timeframes {
		if tf == v {
			return true
		}
	}
	return false
}

// ParseTimeframe validates s as a timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if !tf.Valid() {
		return "", fmt.Errorf("%w: %q, must be one of %v", ErrInvalidTimeframe, s, Timeframes)
	}
	return tf, nil
}

// BucketName is the partition directory name for a timeframe and multiplier,
// e.g. "5_minute".
func BucketName(tf Timeframe, multiplier int) string {
	return fmt.Sprintf("%d_%s", multiplier, tf)
}

// Symbols is an ordered list of instrument identifiers. Duplicates are kept.
type Symbols []string

// NewSymbols trims and upper-cases every symbol, dropping blanks. Order is
// preserved.
func NewSymbols(in ...string) Symbols {
	out := make(Symbols, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseSymbols splits a comma-separated list such as "AAPL, goog".
func ParseSymbols(list string) Symbols {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	return NewSymbols(strings.Split(list, ",")...)
}

// Fetchable reports whether the provider can serve aggregates for sym.
// Share-class symbols with a path separator (e.g. "BRK/B") cannot be put in
// a URL path.
func Fetchable(sym string) bool {
	return !strings.Contains(sym, "/")
}

// Split partitions s into fetchable and skipped symbols, both in input order.
func (s Symbols) Split() (fetchable, skipped Symbols) {
	for _, sym := range s {
		if Fetchable(sym) {
			fetchable = append(fetchable, sym)
		} else {
			skipped = append(skipped, sym)
		}
	}
	return fetchable, skipped
}
