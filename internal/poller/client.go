package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// maxResponseBodySize caps row payloads; a single-table viewer has no
// business holding more than this in memory.
const maxResponseBodySize = 8 << 20 // 8MB

const defaultRequestTimeout = 10 * time.Second

// connection pooling limits; the client talks to exactly one host, so the
// per-host numbers are the ones that matter
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TableInfo contains the configuration needed to query a single table.
//
// This is the poller-internal representation of a table, decoupled from the
// main tablepulse.Table type to avoid circular dependencies.
type TableInfo struct {
	// Name is the table identifier, interpolated into the request path.
	Name string

	// OrderBy is an optional ordering clause (e.g. "created_at.desc").
	// Empty means the service's natural order.
	OrderBy string

	// Headers contains extra HTTP headers to send with each query.
	Headers map[string]string

	// Timeout is the per-request timeout. Zero means the default (10s).
	Timeout time.Duration
}

// RowFetcher is the query contract the watch loop depends on.
//
// The production implementation is [Client]; tests substitute fakes. A fetch
// either succeeds with the full row set (possibly empty) or fails with a
// single message-bearing error. No partial results.
type RowFetcher interface {
	FetchRows(ctx context.Context, table TableInfo) ([]Record, error)
}

// Client queries a hosted database's REST interface for table rows.
//
// The client issues GET {base}/rest/v1/{table}?select=* with the service
// access key attached, and decodes the response as a JSON array of rows.
// All failure classes (network, auth, malformed response) collapse into a
// single wrapped error; the caller has no reason to tell them apart.
type Client struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
}

// NewClient creates a REST [Client] for the hosted table service.
//
// baseURL is the service endpoint (e.g. "https://xyz.supabase.co") and
// accessKey the API key sent as both the "apikey" header and a bearer token.
// Timeouts are applied per-request via context in [Client.FetchRows], not as
// a global client timeout.
func NewClient(baseURL, accessKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: accessKey,
		httpClient: &http.Client{
			// no default timeout - per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// FetchRows queries all rows and all fields of the given table.
//
// On success it returns the decoded rows; an empty table yields an empty,
// non-nil slice. On any failure it returns a nil slice and an error whose
// message is suitable for direct display. FetchRows never returns partial
// data alongside an error.
func (c *Client) FetchRows(ctx context.Context, table TableInfo) ([]Record, error) {
	timeout := table.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	query := url.Values{}
	query.Set("select", "*")
	if table.OrderBy != "" {
		query.Set("order", table.OrderBy)
	}
	requestURL := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(table.Name), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.accessKey)
	req.Header.Set("Authorization", "Bearer "+c.accessKey)
	req.Header.Set("Accept", "application/json")
	for key, value := range table.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("table %q query returned status %d: %s", table.Name, resp.StatusCode, errorSnippet(body))
	}

	var rows []Record
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows for table %q: %w", table.Name, err)
	}
	if rows == nil {
		// "zero rows" is a valid loaded state, distinct from "not yet loaded"
		rows = []Record{}
	}
	return rows, nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// errorSnippet trims a response body to something fit for an error message.
func errorSnippet(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "(empty body)"
	}
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
