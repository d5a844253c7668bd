// Package weather fetches forecast data from the WeatherAPI forecast.json
// endpoint.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/guided-app/weatherd/internal/schema"
)

// DefaultBaseURL is the WeatherAPI forecast endpoint.
const DefaultBaseURL = "https://api.weatherapi.com/v1/forecast.json"

// Opts holds configuration options for the WeatherAPI client.
type Opts struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Option defines a configuration option for the WeatherAPI client.
type Option func(*Opts)

// WithAPIKey sets the WeatherAPI key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the forecast endpoint URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client calls the WeatherAPI forecast endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a WeatherAPI client. The key falls back to the
// WEATHER_API_KEY environment variable, the endpoint to WEATHER_API_URL.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("WEATHER_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("WEATHER_API_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{http: cfg.HTTPClient, baseURL: cfg.BaseURL, apiKey: cfg.APIKey}, nil
}

// Fetch retrieves forecast data for a validated query. Non-2xx responses,
// API error payloads, and shape-mismatched bodies are all fetch failures.
func (c *Client) Fetch(ctx context.Context, q schema.WeatherQuery) (*Response, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", q.Location)
	params.Set("days", strconv.Itoa(q.Days))
	params.Set("alerts", q.Alerts)
	params.Set("aqi", q.AirQuality)
	params.Set("lang", q.Lang)
	if q.Date != "" {
		params.Set("dt", q.Date)
	}
	if q.Hour != nil {
		params.Set("hour", strconv.Itoa(*q.Hour))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("WeatherAPI error response", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("WeatherAPI failed with status %d", resp.StatusCode)
	}

	var data Response
	if err := json.Unmarshal(body, &data); err != nil {
		slog.Error("WeatherAPI response decode failed", "error", err)
		return nil, fmt.Errorf("invalid response from WeatherAPI: %w", err)
	}
	if data.Error != nil {
		return nil, fmt.Errorf("WeatherAPI error %d: %s", data.Error.Code, data.Error.Message)
	}
	if data.Location.Name == "" {
		return nil, fmt.Errorf("invalid response from WeatherAPI: missing location")
	}
	return &data, nil
}
