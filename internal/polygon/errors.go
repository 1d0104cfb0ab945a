package polygon

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrTransport marks requests that did not yield a usable 200 response.
	ErrTransport = errors.New("transport error")
	// ErrNoResults is returned by strict fetches whose result set is empty.
	ErrNoResults = errors.New("no results")
	// ErrSoftFailure marks a continuation page whose status=ERROR body
	// persisted through the cooldown retry.
	ErrSoftFailure = errors.New("provider soft error persisted after retry")
	// ErrDecode marks response bodies that are not valid page JSON.
	ErrDecode = errors.New("decoding response")
	// ErrCursorLoop marks a provider returning a cursor it already served.
	ErrCursorLoop = errors.New("pagination cursor repeated")
)

// TransportError describes a failed provider request. It matches
// ErrTransport with errors.Is, as well as its underlying cause.
type TransportError struct {
	URL    string // API key redacted
	Status int    // 0 when no response was received
	Body   string // leading bytes of the response body, if any
	Err    error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("http request failed: %s", e.URL)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

// Redact replaces the apiKey query parameter of rawURL so URLs can be logged.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Get("apiKey") == "" {
		return rawURL
	}
	q.Set("apiKey", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
