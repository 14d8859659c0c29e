package tablepulse

import (
	"os"
	"strings"

	"github.com/jpalmerr/tablepulse/internal/env"
)

// Environment variables that carry the hosted service credentials.
const (
	// EnvServiceURL names the variable holding the service endpoint,
	// e.g. "https://your-project.supabase.co".
	EnvServiceURL = "TABLEPULSE_SERVICE_URL"

	// EnvServiceKey names the variable holding the service access key.
	EnvServiceKey = "TABLEPULSE_SERVICE_KEY"
)

// Placeholder sentinel values. Configuration equal to these is treated as
// never supplied; they exist so example .env files can ship with
// recognizable fill-me-in values.
const (
	PlaceholderServiceURL = "YOUR_SERVICE_URL"
	PlaceholderServiceKey = "YOUR_SERVICE_KEY"
)

// ServiceConfig holds the two external values needed to reach the hosted
// database: the endpoint URL and the access key.
//
// A ServiceConfig is plain data; whether it is usable is answered by
// [ServiceConfig.Configured]. The zero value is unconfigured.
type ServiceConfig struct {
	// URL is the service endpoint.
	URL string

	// Key is the access credential, sent as both the "apikey" header and
	// a bearer token.
	Key string
}

// ServiceFromEnv resolves the service configuration from the environment,
// loading the nearest .env file first. Missing variables yield an
// unconfigured ServiceConfig rather than an error; the caller decides what
// an unconfigured service means (TablePulse serves setup instructions).
func ServiceFromEnv() ServiceConfig {
	_ = env.Ensure()
	return ServiceConfig{
		URL: os.Getenv(EnvServiceURL),
		Key: os.Getenv(EnvServiceKey),
	}
}

// Configured reports whether both values are present and neither is a known
// placeholder. This is a simple sentinel test, not a validation engine:
// a present-but-wrong key still counts as configured and will surface as
// fetch failures instead.
func (c ServiceConfig) Configured() bool {
	url := strings.TrimSpace(c.URL)
	key := strings.TrimSpace(c.Key)
	if url == "" || key == "" {
		return false
	}
	return url != PlaceholderServiceURL && key != PlaceholderServiceKey
}
