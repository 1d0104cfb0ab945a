package polygon

import (
	"bytes"
	"encoding/json"
	"fmt"

	"polyfetch/internal/table"
)

// page is one JSON response body of a paginated endpoint.
type page struct {
	Status       string          `json:"status"`
	RawResults   json.RawMessage `json:"results"`
	ResultsCount *int            `json:"resultsCount"`
	Count        *int            `json:"count"`
	NextURL      string          `json:"next_url"`
	RequestID    string          `json:"request_id"`
	Error        string          `json:"error"`
	Message      string          `json:"message"`

	results []table.Record
}

// softError reports the provider's application-level failure signal.
func (p *page) softError() bool { return p.Status == "ERROR" }

// empty reports whether the provider declared an empty result set.
func (p *page) empty() bool { return p.ResultsCount != nil && *p.ResultsCount == 0 }

// reason is the provider's explanation of a soft error, if any.
func (p *page) reason() string {
	if p.Error != "" {
		return p.Error
	}
	return p.Message
}

// decodePage parses a response body. Numbers are kept as json.Number so
// integer columns are not widened to floats. "results" may be an array of
// objects, a single object, or absent.
func decodePage(body []byte) (*page, error) {
	var p page
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	raw := bytes.TrimSpace(p.RawResults)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		if err := decodeNumbers(raw, &p.results); err != nil {
			return nil, fmt.Errorf("%w: results: %v", ErrDecode, err)
		}
	case raw[0] == '{':
		var rec table.Record
		if err := decodeNumbers(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: results: %v", ErrDecode, err)
		}
		p.results = []table.Record{rec}
	default:
		return nil, fmt.Errorf("%w: results is neither an array nor an object", ErrDecode)
	}
	return &p, nil
}

func decodeNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// fetchState is the soft-error recovery state of a single page request.
type fetchState int

const (
	stateFetching fetchState = iota
	stateSoftErrorDetected
	stateRetried
	stateSuccess
	stateDegradedSuccess
)

func (s fetchState) String() string {
	switch s {
	case stateFetching:
		return "fetching"
	case stateSoftErrorDetected:
		return "soft-error-detected"
	case stateRetried:
		return "retried"
	case stateSuccess:
		return "success"
	case stateDegradedSuccess:
		return "degraded-success"
	default:
		return fmt.Sprintf("fetchState(%d)", int(s))
	}
}

// pageResult is the terminal outcome of a page request.
type pageResult struct {
	page    *page
	status  int
	state   fetchState // stateSuccess or stateDegradedSuccess when status is 200
	retried bool
}
