package exchangerate

import (
	"errors"
	"net/url"
	"time"
)

// DefaultAPIURL is the public latest-rates endpoint
const DefaultAPIURL = "https://open.er-api.com/v6/latest"

var (
	ErrConfigMissingURL = errors.New("exchangerate: api url is required")
	ErrConfigInvalidURL = errors.New("exchangerate: api url must be absolute http(s)")
)

// Config holds rate API client configuration
type Config struct {
	// APIURL is the latest-rates endpoint. A "{base}" placeholder is replaced
	// with the base currency, otherwise it is sent as the base query parameter.
	APIURL string
	// APIKey is optional and sent as the apikey header
	APIKey string
	// ProviderName labels persisted rows
	ProviderName string
	// Timeout bounds each request
	Timeout time.Duration
}

// NewConfig creates a config with defaults
func NewConfig(apiURL, apiKey string) *Config {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Config{
		APIURL:       apiURL,
		APIKey:       apiKey,
		ProviderName: "exchangerate-api",
		Timeout:      10 * time.Second,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return ErrConfigMissingURL
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrConfigInvalidURL
	}
	return nil
}
