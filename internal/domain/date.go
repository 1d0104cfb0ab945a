package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date input cannot be canonicalized.
var ErrInvalidDate = errors.New("invalid date")

// Bounds of representable inputs: years 0001 through 9999.
const (
	minEpochSeconds = -62135596800
	maxEpochSeconds = 253402300799
)

// DateInput is the closed set of accepted date representations: IsoString,
// EpochMillis, EpochSeconds and CalendarDate.
type DateInput interface {
	toTime(loc *time.Location) (time.Time, error)
}

// IsoString is an ISO-8601 date or date-time, e.g. "2024-08-01" or
// "2024-08-01T09:30:00Z". Values without an offset are read in the
// canonical timezone.
type IsoString string

// EpochMillis is a Unix timestamp in milliseconds.
type EpochMillis int64

// EpochSeconds is a Unix timestamp in (possibly fractional) seconds.
type EpochSeconds float64

// CalendarDate is a plain calendar day.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

func (s IsoString) toTime(loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(string(s))
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not an ISO-8601 date (YYYY-MM-DD)", ErrInvalidDate, v)
}

func (ms EpochMillis) toTime(loc *time.Location) (time.Time, error) {
	sec := int64(ms) / 1000
	if sec < minEpochSeconds || sec > maxEpochSeconds {
		return time.Time{}, fmt.Errorf("%w: unix millisecond timestamp %d out of range", ErrInvalidDate, int64(ms))
	}
	return time.UnixMilli(int64(ms)).In(loc), nil
}

func (s EpochSeconds) toTime(loc *time.Location) (time.Time, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < minEpochSeconds || f > maxEpochSeconds {
		return time.Time{}, fmt.Errorf("%w: unix timestamp %v out of range", ErrInvalidDate, f)
	}
	whole, frac := math.Modf(f)
	// Round to microseconds to avoid float noise like .539999.
	nanos := math.Round(frac*1e6) * 1e3
	return time.Unix(int64(whole), int64(nanos)).In(loc), nil
}

func (c CalendarDate) toTime(loc *time.Location) (time.Time, error) {
	t := time.Date(c.Year, c.Month, c.Day, 0, 0, 0, 0, loc)
	if t.Year() != c.Year || t.Month() != c.Month || t.Day() != c.Day {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d is not a calendar day", ErrInvalidDate, c.Year, int(c.Month), c.Day)
	}
	return t, nil
}

// Date is a canonical instant pinned to a timezone. Only canonical dates are
// comparable.
type Date struct {
	t time.Time
}

// Canonicalize converts any DateInput into a Date in loc. A nil loc means UTC.
func Canonicalize(in DateInput, loc *time.Location) (Date, error) {
	if in == nil {
		return Date{}, fmt.Errorf("%w: no date given", ErrInvalidDate)
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := in.toTime(loc)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// DateOf wraps an existing time in loc (UTC when nil).
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return Date{t: t.In(loc)}
}

// DayOf returns local midnight of the calendar day containing t in loc
// (UTC when nil).
func DayOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return Date{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)}
}

// Time returns the underlying instant.
func (d Date) Time() time.Time { return d.t }

// IsZero reports whether d was never set.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal reports whether d and o are the same instant.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// ISODate returns the calendar date in the canonical timezone.
func (d Date) ISODate() string { return d.t.Format("2006-01-02") }

// Millis returns the Unix millisecond timestamp.
func (d Date) Millis() int64 { return d.t.UnixMilli() }

// Param renders the date for a provider URL: a plain calendar date when the
// instant is local midnight, a millisecond timestamp otherwise.
func (d Date) Param() string {
	h, m, s := d.t.Clock()
	if h == 0 && m == 0 && s == 0 && d.t.Nanosecond() == 0 {
		return d.ISODate()
	}
	return fmt.Sprintf("%d", d.Millis())
}

func (d Date) String() string { return d.t.Format(time.RFC3339Nano) }
