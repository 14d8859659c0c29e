package config

import (
	"fmt"

	"github.com/jpalmerr/tablepulse"
)

// BuildOptions converts a parsed [Config] into SDK options for
// [tablepulse.New]. The service credentials are not part of the file; the
// SDK resolves them from the environment unless the caller adds
// [tablepulse.WithService] to the returned slice.
func BuildOptions(cfg *Config) ([]tablepulse.Option, error) {
	tbl, err := BuildTable(cfg)
	if err != nil {
		return nil, err
	}

	opts := []tablepulse.Option{
		tablepulse.WithTable(tbl),
		tablepulse.WithPollInterval(cfg.PollInterval.Duration()),
		tablepulse.WithPort(cfg.Port),
	}
	if cfg.Title != "" {
		opts = append(opts, tablepulse.WithTitle(cfg.Title))
	}
	return opts, nil
}

// BuildTable converts the table-related parts of a [Config] into a
// [tablepulse.Table].
func BuildTable(cfg *Config) (tablepulse.Table, error) {
	var tableOpts []tablepulse.TableOption
	if cfg.OrderBy != "" {
		tableOpts = append(tableOpts, tablepulse.WithOrderBy(cfg.OrderBy))
	}
	if cfg.RequestTimeout > 0 {
		tableOpts = append(tableOpts, tablepulse.WithRequestTimeout(cfg.RequestTimeout.Duration()))
	}

	tbl, err := tablepulse.NewTable(cfg.Table, tableOpts...)
	if err != nil {
		return tablepulse.Table{}, fmt.Errorf("failed to build table: %w", err)
	}
	return tbl, nil
}
