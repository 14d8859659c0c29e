package tablepulse

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// tableNamePattern restricts table names to identifiers that are safe to
// interpolate into a REST path.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Table identifies the single hosted table to watch.
//
// Table is immutable after creation via [NewTable]. All fields are private
// with getter methods that return copies of mutable data (maps), ensuring
// the table cannot be modified after construction.
//
// Tables are configured using the functional options pattern with
// [TableOption] functions such as [WithOrderBy], [WithRequestTimeout], and
// [WithQueryHeaders].
type Table struct {
	name    string
	orderBy string
	headers map[string]string
	timeout time.Duration
}

// Name returns the table's identifier as known to the hosted service.
func (t Table) Name() string {
	return t.name
}

// OrderBy returns the ordering clause sent with each query, or "" for the
// service's natural order.
func (t Table) OrderBy() string {
	return t.orderBy
}

// Headers returns a copy of the extra HTTP headers sent with each query.
// Returns nil if no custom headers are set.
func (t Table) Headers() map[string]string {
	return copyMap(t.headers)
}

// RequestTimeout returns the per-query timeout.
// Returns 0 if not explicitly set, meaning the client default (10s) applies.
func (t Table) RequestTimeout() time.Duration {
	return t.timeout
}

// NewTable creates a [Table] with the given name and options.
//
// The name must be a plain identifier (letters, digits, underscores, not
// starting with a digit); anything else would not survive interpolation
// into the service's REST path.
//
// Example:
//
//	tbl, err := tablepulse.NewTable("tickets",
//	    tablepulse.WithOrderBy("created_at.desc"),
//	    tablepulse.WithRequestTimeout(5 * time.Second),
//	)
func NewTable(name string, opts ...TableOption) (Table, error) {
	if name == "" {
		return Table{}, errors.New("table name cannot be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return Table{}, fmt.Errorf("invalid table name %q: must match %s", name, tableNamePattern.String())
	}

	cfg := &tableConfig{
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Table{}, err
		}
	}

	return Table{
		name:    name,
		orderBy: cfg.orderBy,
		headers: cfg.headers,
		timeout: cfg.timeout,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
