package airquality

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedJSON = `{
	"status": "ok",
	"data": {
		"aqi": 180,
		"iaqi": {
			"pm25": {"v": 95},
			"pm10": {"v": 120},
			"o3": {"v": 12},
			"t": {"v": 31.5},
			"h": {"v": 68}
		},
		"city": {"name": "Bangkok"},
		"time": {"iso": "2025-06-01T08:30:00+07:00"}
	}
}`

func TestFetchReading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/feed/geo:")
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedJSON))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Token: "test-token"})

	reading, err := client.FetchReading(context.Background(), 13.7563, 100.5018)
	require.NoError(t, err)

	assert.Equal(t, 95.0, reading.PM25)
	assert.Equal(t, 120.0, reading.PM10)
	assert.Equal(t, 180, reading.AQI)
	assert.Equal(t, "Bangkok", reading.LocationLabel)
	require.NotNil(t, reading.TemperatureC)
	assert.Equal(t, 31.5, *reading.TemperatureC)
	assert.Equal(t, "2025-06-01", reading.CapturedAt.Format("2006-01-02"))
}

func TestFetchReading_FeedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "error", "data": null}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	_, err := client.FetchReading(context.Background(), 0, 0)
	assert.Error(t, err)
}

func TestFetchReading_MissingPollutants(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok", "data": {"aqi": 42, "iaqi": {}, "city": {"name": "Nowhere"}, "time": {"iso": "bad"}}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	reading, err := client.FetchReading(context.Background(), 0, 0)
	require.NoError(t, err)

	assert.Zero(t, reading.PM25)
	assert.Equal(t, 42, reading.AQI)
	assert.Nil(t, reading.TemperatureC)

	// An unparsable feed timestamp falls back to the device-local clock,
	// so the reading lands on the local calendar day.
	assert.False(t, reading.CapturedAt.IsZero())
	assert.Equal(t, time.Local, reading.CapturedAt.Location())
	assert.WithinDuration(t, time.Now(), reading.CapturedAt, time.Minute)
}
