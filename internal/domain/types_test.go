package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestBarTimestamps(t *testing.T) {
	b := Bar{Ticker: "AAPL", EpochMillis: 1722484800000}
	b.Timestamp = DisplayTime(b.EpochMillis)

	if got := b.DisplayTimestamp(); got != "2024-08-01T04:00:00.000Z" {
		t.Errorf("DisplayTimestamp = %s", got)
	}
	if got := b.PartitionDate(); got != "2024-08-01" {
		t.Errorf("PartitionDate = %s", got)
	}
}

func TestCanonicalize(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		in   DateInput
		loc  *time.Location
		want time.Time
	}{
		{"iso date", IsoString("2024-08-01"), time.UTC, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)},
		{"iso datetime", IsoString("2021-12-25T05:12:06"), time.UTC, time.Date(2021, 12, 25, 5, 12, 6, 0, time.UTC)},
		{"iso with offset", IsoString("2024-08-01T09:30:00-04:00"), time.UTC, time.Date(2024, 8, 1, 13, 30, 0, 0, time.UTC)},
		{"iso in zone", IsoString("2024-08-01"), ny, time.Date(2024, 8, 1, 0, 0, 0, 0, ny)},
		{"epoch seconds float", EpochSeconds(1658105431.54), time.UTC, time.Date(2022, 7, 18, 0, 50, 31, 540000000, time.UTC)},
		{"epoch seconds int", EpochSeconds(1620814598), time.UTC, time.Date(2021, 5, 12, 10, 16, 38, 0, time.UTC)},
		{"epoch millis", EpochMillis(1722470400000), time.UTC, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)},
		{"calendar", CalendarDate{2020, time.May, 1}, time.UTC, time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Canonicalize(tt.in, tt.loc)
			if err != nil {
				t.Fatalf("Canonicalize: %v", err)
			}
			if !d.Time().Equal(tt.want) {
				t.Errorf("got %v, want %v", d.Time(), tt.want)
			}
			if d.Time().Location() != tt.loc {
				t.Errorf("location = %v, want %v", d.Time().Location(), tt.loc)
			}
		})
	}
}

func TestCanonicalizeInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   DateInput
	}{
		{"nil", nil},
		{"garbage", IsoString("invalid-date")},
		{"malformed", IsoString("20345-2345-23")},
		{"overflow", EpochSeconds(2.3521352152125123e22)},
		{"nan", EpochSeconds(math.NaN())},
		{"millis overflow", EpochMillis(math.MaxInt64)},
		{"feb 30", CalendarDate{2024, time.February, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Canonicalize(tt.in, nil); !errors.Is(err, ErrInvalidDate) {
				t.Errorf("Canonicalize error = %v, want ErrInvalidDate", err)
			}
		})
	}
}

func TestDateCompareAndParam(t *testing.T) {
	start, _ := Canonicalize(IsoString("2024-08-01"), nil)
	end, _ := Canonicalize(EpochMillis(start.Millis()+1000), nil)

	if !start.Before(end) || end.Before(start) || start.Equal(end) {
		t.Error("comparisons inconsistent")
	}
	if start.Param() != "2024-08-01" {
		t.Errorf("midnight Param = %s, want calendar date", start.Param())
	}
	if end.Param() != "1722470401000" {
		t.Errorf("intraday Param = %s, want millisecond epoch", end.Param())
	}
}

func TestParseTimeframe(t *testing.T) {
	for _, tf := range Timeframes {
		if got, err := ParseTimeframe(string(tf)); err != nil || got != tf {
			t.Errorf("ParseTimeframe(%q) = %q, %v", tf, got, err)
		}
	}
	if _, err := ParseTimeframe("invalid-timeframe"); !errors.Is(err, ErrInvalidTimeframe) {
		t.Errorf("ParseTimeframe(invalid) error = %v", err)
	}
	if got := BucketName(Minute, 5); got != "5_minute" {
		t.Errorf("BucketName = %s", got)
	}
}

func TestSymbols(t *testing.T) {
	s := ParseSymbols(" aapl, GOOG ,,brk/b, AAPL")
	want := Symbols{"AAPL", "GOOG", "BRK/B", "AAPL"}
	if len(s) != len(want) {
		t.Fatalf("ParseSymbols = %v, want %v", s, want)
	}
	for i := range want {
		if s[i] != want[i] {
			t.Fatalf("ParseSymbols = %v, want %v", s, want)
		}
	}

	ok, skipped := s.Split()
	if len(ok) != 3 || len(skipped) != 1 || skipped[0] != "BRK/B" {
		t.Errorf("Split = %v / %v", ok, skipped)
	}
	if ParseSymbols("  ") != nil {
		t.Error("blank list should yield no symbols")
	}
}

func TestDayOf(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable:", err)
	}
	d := DayOf(time.Date(2024, 8, 2, 2, 30, 0, 0, time.UTC), ny)
	if d.ISODate() != "2024-08-01" || d.Param() != "2024-08-01" {
		t.Errorf("DayOf = %s (param %s), want local midnight of 2024-08-01", d, d.Param())
	}
	if got := DayOf(time.Date(2024, 8, 2, 23, 0, 0, 0, time.UTC), nil); got.Param() != "2024-08-02" {
		t.Errorf("DayOf UTC = %s", got.Param())
	}
}
