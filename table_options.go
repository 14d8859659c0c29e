package tablepulse

import (
	"errors"
	"time"
)

// tableConfig holds mutable state during table construction.
type tableConfig struct {
	orderBy string
	headers map[string]string
	timeout time.Duration
}

// TableOption is a function that configures a [Table] during construction.
//
// TableOption implements the functional options pattern, allowing optional
// configuration to be passed to [NewTable] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithOrderBy], [WithRequestTimeout], [WithQueryHeaders].
type TableOption func(*tableConfig) error

// WithOrderBy sets the ordering clause sent with each query.
//
// The clause uses the hosted service's syntax, e.g. "created_at" or
// "created_at.desc". If not specified, rows arrive in the service's natural
// order.
//
// Example:
//
//	tbl, err := tablepulse.NewTable("tickets",
//	    tablepulse.WithOrderBy("created_at.desc"),
//	)
//
// Returns an error if the clause is empty.
func WithOrderBy(clause string) TableOption {
	return func(cfg *tableConfig) error {
		if clause == "" {
			return errors.New("order by clause cannot be empty")
		}
		cfg.orderBy = clause
		return nil
	}
}

// WithRequestTimeout sets the per-query timeout for this table.
//
// If the service does not respond within this duration, the fetch is
// considered failed; the next tick is the only retry. Defaults to 10
// seconds if not specified.
//
// Example:
//
//	tbl, err := tablepulse.NewTable("tickets",
//	    tablepulse.WithRequestTimeout(30 * time.Second),
//	)
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) TableOption {
	return func(cfg *tableConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithQueryHeaders adds custom HTTP headers to every query for this table.
//
// Use this when the service needs extra headers beyond the access key
// (e.g. a schema selector).
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	tbl, err := tablepulse.NewTable("tickets",
//	    tablepulse.WithQueryHeaders("Accept-Profile", "reporting"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithQueryHeaders(keyValues ...string) TableOption {
	return func(cfg *tableConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithQueryHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}
