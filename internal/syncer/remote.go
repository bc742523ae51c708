// Package syncer drains unsynced exposure records from the local store to
// the remote backend. It is the only component that flips a record's synced
// flag, and it runs at most one pass at a time.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/exposure"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/provider/resilience"
)

// Remote is the logical sync endpoint: an upsert idempotent on
// (userID, dayKey).
type Remote interface {
	UpsertExposureRecord(ctx context.Context, userID string, rec exposure.Record) error
}

// HTTPRemote talks to the ingest API over the resilient HTTP client.
type HTTPRemote struct {
	baseURL string
	client  *resilience.Client
}

// NewHTTPRemote creates a Remote against the given base URL.
func NewHTTPRemote(baseURL string, client *resilience.Client) *HTTPRemote {
	if client == nil {
		client = resilience.NewClient(resilience.DefaultClientConfig("sync-uplink"))
	}
	return &HTTPRemote{baseURL: baseURL, client: client}
}

// upsertPayload is the wire form of one exposure upsert.
type upsertPayload struct {
	CapturedAt     string   `json:"capturedAt"`
	PM25           float64  `json:"pm25"`
	PM10           float64  `json:"pm10"`
	O3             float64  `json:"o3"`
	NO2            float64  `json:"no2"`
	CO             float64  `json:"co"`
	SO2            float64  `json:"so2"`
	AQI            int      `json:"aqi"`
	PHRI           float64  `json:"phri"`
	OutdoorMinutes int      `json:"outdoorMinutes"`
	Symptoms       []string `json:"symptoms"`
	WearingMask    bool     `json:"wearingMask"`
	Location       string   `json:"location"`
}

// UpsertExposureRecord PUTs one record to the backend, keyed by user and
// day. Any non-2xx response is a failure; the record stays unsynced.
func (r *HTTPRemote) UpsertExposureRecord(ctx context.Context, userID string, rec exposure.Record) error {
	payload := upsertPayload{
		CapturedAt:     rec.CapturedAt.UTC().Format(time.RFC3339),
		PM25:           rec.PM25,
		PM10:           rec.PM10,
		O3:             rec.O3,
		NO2:            rec.NO2,
		CO:             rec.CO,
		SO2:            rec.SO2,
		AQI:            rec.AQI,
		PHRI:           rec.PHRI,
		OutdoorMinutes: rec.OutdoorMinutes,
		Symptoms:       rec.Symptoms,
		WearingMask:    rec.WearingMask,
		Location:       rec.Location,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode upsert payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1/users/%s/exposures/%s", r.baseURL, userID, rec.DayKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("upsert exposure record: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upsert exposure record: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Ensure HTTPRemote implements Remote.
var _ Remote = (*HTTPRemote)(nil)
