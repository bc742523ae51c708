// Package airquality provides a client for the WAQI city feed API and a
// tiered reading source for the monitor loop.
package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/provider/resilience"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/scoring"
)

const (
	// DefaultBaseURL is the base URL for the WAQI API.
	DefaultBaseURL = "https://api.waqi.info"

	// ProviderName identifies this provider.
	ProviderName = "waqi"
)

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// Token is the WAQI API token.
	Token string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client is a WAQI API client.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPDoer
}

// NewClient creates a new WAQI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
	}
}

// API response types (from the WAQI feed API).

type feedResponse struct {
	Status string   `json:"status"`
	Data   feedData `json:"data"`
}

type feedData struct {
	AQI  int                  `json:"aqi"`
	IAQI map[string]iaqiValue `json:"iaqi"`
	City cityData             `json:"city"`
	Time timeData             `json:"time"`
}

type iaqiValue struct {
	V float64 `json:"v"`
}

type cityData struct {
	Name string `json:"name"`
}

type timeData struct {
	ISO string `json:"iso"`
}

// FetchReading retrieves the current reading for the given coordinates.
func (c *Client) FetchReading(ctx context.Context, lat, lon float64) (scoring.EnvironmentalReading, error) {
	url := fmt.Sprintf("%s/feed/geo:%.6f;%.6f/?token=%s", c.baseURL, lat, lon, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return scoring.EnvironmentalReading{}, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return scoring.EnvironmentalReading{}, fmt.Errorf("fetch air quality feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return scoring.EnvironmentalReading{}, fmt.Errorf("fetch air quality feed: unexpected status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return scoring.EnvironmentalReading{}, fmt.Errorf("decode air quality feed: %w", err)
	}
	if feed.Status != "ok" {
		return scoring.EnvironmentalReading{}, fmt.Errorf("air quality feed status %q", feed.Status)
	}

	return c.toReading(feed.Data), nil
}

func (c *Client) toReading(data feedData) scoring.EnvironmentalReading {
	reading := scoring.EnvironmentalReading{
		PM25:          data.IAQI["pm25"].V,
		PM10:          data.IAQI["pm10"].V,
		O3:            data.IAQI["o3"].V,
		NO2:           data.IAQI["no2"].V,
		CO:            data.IAQI["co"].V,
		SO2:           data.IAQI["so2"].V,
		AQI:           data.AQI,
		LocationLabel: data.City.Name,
		Provenance:    ProviderName,
		// Device-local: the capture time keys the record's calendar day.
		CapturedAt: time.Now(),
	}

	if t, ok := data.IAQI["t"]; ok {
		temp := t.V
		reading.TemperatureC = &temp
	}
	if h, ok := data.IAQI["h"]; ok {
		humidity := h.V
		reading.HumidityPct = &humidity
	}

	if ts, err := time.Parse(time.RFC3339, data.Time.ISO); err == nil {
		reading.CapturedAt = ts
	}

	return reading
}
