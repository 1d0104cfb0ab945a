package polygon

import (
	"net/url"
	"testing"
	"time"

	"polyfetch/internal/domain"
)

func mustDate(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.Canonicalize(domain.IsoString(s), time.UTC)
	if err != nil {
		t.Fatalf("Canonicalize(%q): %v", s, err)
	}
	return d
}

func TestAggregatesURL(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "https://api.polygon.io/"})
	if err != nil {
		t.Fatal(err)
	}

	got := c.AggregatesURL("AAPL", 5, domain.Minute, mustDate(t, "2024-08-01"), mustDate(t, "2024-08-22"))
	want := "https://api.polygon.io/v2/aggs/ticker/AAPL/range/5/minute/2024-08-01/2024-08-22?adjusted=true&limit=50000&sort=asc"
	if got != want {
		t.Errorf("AggregatesURL:\n  got  %s\n  want %s", got, want)
	}
}

func TestAggregatesURLIntraday(t *testing.T) {
	c, _ := NewClient(Config{})
	start := mustDate(t, "2024-08-01T09:30:00Z")

	got := c.AggregatesURL("TSLA", 1, domain.Minute, start, mustDate(t, "2024-08-02"))
	want := "https://api.polygon.io/v2/aggs/ticker/TSLA/range/1/minute/1722504600000/2024-08-02?adjusted=true&limit=50000&sort=asc"
	if got != want {
		t.Errorf("AggregatesURL:\n  got  %s\n  want %s", got, want)
	}
}

func TestTickersURL(t *testing.T) {
	c, _ := NewClient(Config{})
	asOf := mustDate(t, "2025-05-02")

	u, err := url.Parse(c.TickersURL("WARRANT", false, &asOf))
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != "/v3/reference/tickers" {
		t.Errorf("path = %s", u.Path)
	}
	q := u.Query()
	checks := map[string]string{
		"type":   "WARRANT",
		"market": "stocks",
		"date":   "2025-05-02",
		"active": "false",
		"order":  "asc",
		"limit":  "1000",
		"sort":   "ticker",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}

	noDate, _ := url.Parse(c.TickersURL("CS", true, nil))
	if noDate.Query().Has("date") {
		t.Errorf("date should be omitted without asOf: %s", noDate)
	}
}

func TestTickerTypesURL(t *testing.T) {
	c, _ := NewClient(Config{})
	got := c.TickerTypesURL("stocks", "us")
	want := "https://api.polygon.io/v3/reference/tickers/types?asset_class=stocks&locale=us"
	if got != want {
		t.Errorf("TickerTypesURL = %s, want %s", got, want)
	}
}
