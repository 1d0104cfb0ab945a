// Package gather collects ticker reference data and OHLC bars from the
// provider, reshapes them into canonical tables, and persists them.
package gather

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"polyfetch/internal/domain"
	"polyfetch/internal/table"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one complete gathering pass.
	Run(ctx context.Context) error
}

// ErrInvalidArgument marks precondition failures. They are raised before
// any network call and never retried.
var ErrInvalidArgument = errors.New("invalid argument")

// Provider is the subset of the polygon client the collectors need.
type Provider interface {
	Fetch(ctx context.Context, rawURL string, schema table.Schema, strict bool) (*table.Table, error)
	AggregatesURL(symbol string, multiplier int, tf domain.Timeframe, start, end domain.Date) string
	TickersURL(tickerType string, active bool, asOf *domain.Date) string
	TickerTypesURL(assetClass, locale string) string
}

var validate = validator.New()

// checkArgs validates a query struct and flattens validator errors into a
// single ErrInvalidArgument.
func checkArgs(q any) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidArgument, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be an integer greater than or equal to %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be earlier than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
