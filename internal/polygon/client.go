// Package polygon is a client for the Polygon.io REST API: a retrying HTTP
// transport, a cursor-paginated fetch engine that assembles pages into a
// uniform table, and request builders for the aggregates and ticker
// reference endpoints.
package polygon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"polyfetch/internal/metrics"
	"polyfetch/internal/table"
	"polyfetch/internal/util"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.polygon.io"

// DefaultSoftErrorCooldown is how long to wait after a status=ERROR body
// before retrying the same request.
const DefaultSoftErrorCooldown = 70 * time.Second

// Config holds the client settings.
type Config struct {
	APIKey            string
	BaseURL           string
	MaxAttempts       int
	BackoffBase       time.Duration
	Timeout           time.Duration
	SoftErrorCooldown time.Duration
	RateLimitPerMin   int // 0 disables client-side throttling
}

// Client fetches paginated results from the provider. Requests are issued
// one at a time; a Client is not meant for concurrent use.
type Client struct {
	apiKey   string
	baseURL  *url.URL
	http     *http.Client
	cooldown time.Duration
	limiter  *util.RateLimiter
	sleep    func(context.Context, time.Duration) error
	metrics  *metrics.Recorder
	log      *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient shares hc across clients, e.g. one retrying client for a
// whole bulk fetch.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger for warnings and page progress.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records requests, pages and soft errors on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// WithSleep replaces the cooldown sleep. Tests use it to skip the wait.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient creates a client. Without WithHTTPClient it builds a private
// retrying HTTP client from cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", base, err)
	}
	cooldown := cfg.SoftErrorCooldown
	if cooldown <= 0 {
		cooldown = DefaultSoftErrorCooldown
	}

	c := &Client{
		apiKey:   cfg.APIKey,
		baseURL:  u,
		cooldown: cooldown,
		limiter:  util.NewRateLimiter(cfg.RateLimitPerMin),
		sleep:    util.Sleep,
		log:      slog.Default().With("component", "polygon"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		backoff := cfg.BackoffBase
		if backoff <= 0 {
			backoff = DefaultBackoffBase
		}
		c.http = NewHTTPClient(cfg.MaxAttempts, backoff, cfg.Timeout, c.log)
	}
	return c, nil
}

// BaseURL returns the API root requests are built against.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Fetch retrieves every page of rawURL, following next_url cursors, and
// returns the rows as one table in page order.
//
// A nil schema is inferred from the first page and then enforced on every
// later page; incompatible pages fail with table.ErrSchemaConflict. With
// strict unset, transport failures and empty result sets are logged and
// yield an empty table conforming to schema instead of an error.
func (c *Client) Fetch(ctx context.Context, rawURL string, schema table.Schema, strict bool) (*table.Table, error) {
	log := c.log.With("url", Redact(rawURL))

	res, err := c.getPage(ctx, rawURL)
	if err != nil {
		return c.degrade(log, schema, strict, err)
	}
	if res.status != http.StatusOK {
		return c.degrade(log, schema, strict, res.transportError(rawURL))
	}
	if res.state == stateDegradedSuccess {
		log.Warn("provider error persisted after cooldown, proceeding with response", "reason", res.page.reason())
	}
	if res.page.empty() {
		if strict {
			return nil, fmt.Errorf("%w: %s", ErrNoResults, Redact(rawURL))
		}
		log.Warn("request returned no results")
		return table.New(schema), nil
	}

	acc, err := table.FromRecords(res.page.results, schema)
	if err != nil {
		return nil, fmt.Errorf("page 1 of %s: %w", Redact(rawURL), err)
	}
	c.metrics.RecordPage()
	log.Debug("fetched page", "page", 1, "rows", acc.Len(), "more", res.page.NextURL != "")

	seen := map[string]bool{}
	for n := 2; res.page.NextURL != ""; n++ {
		next := res.page.NextURL
		if seen[next] {
			return nil, fmt.Errorf("%w: %s", ErrCursorLoop, Redact(next))
		}
		seen[next] = true

		res, err = c.getPage(ctx, next)
		if err != nil {
			return c.degrade(log, schema, strict, err)
		}
		if res.status != http.StatusOK {
			return c.degrade(log, schema, strict, res.transportError(next))
		}
		if res.state == stateDegradedSuccess {
			return c.degrade(log, schema, strict, &TransportError{
				URL:    Redact(next),
				Status: res.status,
				Body:   res.page.reason(),
				Err:    ErrSoftFailure,
			})
		}

		var pt *table.Table
		if schema != nil {
			pt, err = table.FromRecords(res.page.results, schema)
		} else {
			pt, err = table.Conform(res.page.results, acc.Schema())
		}
		if err == nil {
			err = acc.VStack(pt)
		}
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", n, Redact(rawURL), err)
		}
		c.metrics.RecordPage()
		log.Debug("fetched page", "page", n, "rows", pt.Len(), "more", res.page.NextURL != "")
	}
	return acc, nil
}

// degrade turns a transport failure into an empty table in non-strict mode.
// Every other error is returned unchanged.
func (c *Client) degrade(log *slog.Logger, schema table.Schema, strict bool, err error) (*table.Table, error) {
	if strict || !errors.Is(err, ErrTransport) {
		return nil, err
	}
	log.Warn("request failed, returning empty result", "error", err)
	return table.New(schema), nil
}

// getPage requests one page, applying the single cooldown-and-retry rule
// for status=ERROR bodies.
func (c *Client) getPage(ctx context.Context, rawURL string) (pageResult, error) {
	var res pageResult
	state := stateFetching
	for {
		switch state {
		case stateFetching, stateRetried:
			p, status, err := c.do(ctx, rawURL)
			if err != nil {
				return res, err
			}
			res.page, res.status, res.retried = p, status, state == stateRetried
			switch {
			case status != http.StatusOK:
				res.state = state
			case !p.softError():
				res.state = stateSuccess
				if res.retried {
					c.metrics.RecordSoftError("recovered")
				}
			case state == stateRetried:
				res.state = stateDegradedSuccess
				c.metrics.RecordSoftError("degraded")
			default:
				state = stateSoftErrorDetected
				continue
			}
			return res, nil

		case stateSoftErrorDetected:
			c.log.Warn("provider returned status ERROR, cooling down before retry",
				"url", Redact(rawURL), "cooldown", c.cooldown, "reason", res.page.reason())
			if err := c.sleep(ctx, c.cooldown); err != nil {
				return res, err
			}
			state = stateRetried
		}
	}
}

// do performs a single GET. Non-200 responses are returned with a nil page
// and the body kept for error reporting.
func (c *Client) do(ctx context.Context, rawURL string) (*page, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	signed, err := c.sign(rawURL)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signed, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, &TransportError{URL: Redact(signed), Err: err}
	}
	defer resp.Body.Close()
	c.metrics.RecordRequest(resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &page{Message: strings.TrimSpace(string(snippet))}, resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &TransportError{URL: Redact(signed), Status: resp.StatusCode, Err: err}
	}
	p, err := decodePage(body)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", Redact(signed), err)
	}
	return p, resp.StatusCode, nil
}

// sign resolves rawURL against the base URL and sets the apiKey parameter.
// Continuation cursors arrive without the key and go through here too.
func (c *Client) sign(rawURL string) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing request URL: %w", err)
	}
	u := c.baseURL.ResolveReference(ref)
	if c.apiKey != "" {
		q := u.Query()
		q.Set("apiKey", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (r pageResult) transportError(rawURL string) *TransportError {
	te := &TransportError{URL: Redact(rawURL), Status: r.status}
	if r.page != nil {
		te.Body = r.page.reason()
	}
	return te
}
