// Package location resolves a client IP to a coarse location via ipapi.co
// and provides timezone-aware date helpers.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// DefaultBaseURL is the ipapi.co endpoint prefix.
const DefaultBaseURL = "https://ipapi.co"

// Data is the location seed used for default weather lookups.
type Data struct {
	City        string
	CountryName string
	Timezone    string
}

// Opts holds configuration options for the geolocation client.
type Opts struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Option defines a configuration option for the geolocation client.
type Option func(*Opts)

// WithAPIKey sets the ipapi.co API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the ipapi.co endpoint.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client resolves IPs against ipapi.co.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a geolocation client. The key falls back to the
// IPAPI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("IPAPI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("IPAPI_API_KEY not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{http: cfg.HTTPClient, baseURL: cfg.BaseURL, apiKey: cfg.APIKey}, nil
}

// Resolve looks up city, country, and timezone for an IP. The timezone
// defaults to UTC when the provider omits it.
func (c *Client) Resolve(ctx context.Context, ip string) (Data, error) {
	var d Data
	url := fmt.Sprintf("%s/%s/json/?key=%s", c.baseURL, ip, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return d, fmt.Errorf("build geolocation request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return d, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return d, fmt.Errorf("geolocation failed with status %d", resp.StatusCode)
	}

	var wire struct {
		City        string `json:"city"`
		CountryName string `json:"country_name"`
		Timezone    string `json:"timezone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return d, fmt.Errorf("decode geolocation response: %w", err)
	}
	if wire.City == "" {
		return d, fmt.Errorf("unable to resolve location for IP %s", ip)
	}
	d = Data{City: wire.City, CountryName: wire.CountryName, Timezone: wire.Timezone}
	if d.Timezone == "" {
		d.Timezone = "UTC"
	}
	return d, nil
}

// Name returns the "City, Country" label used to seed weather prompts.
func (d Data) Name() string {
	return d.City + ", " + d.CountryName
}

// TodayInZone returns today's date (YYYY-MM-DD) in the given IANA timezone.
func TodayInZone(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return time.Now().In(loc).Format("2006-01-02"), nil
}
