package airquality

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/monitor"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/scoring"
)

type fakeFetcher struct {
	reading scoring.EnvironmentalReading
	err     error
}

func (f *fakeFetcher) FetchReading(_ context.Context, _, _ float64) (scoring.EnvironmentalReading, error) {
	return f.reading, f.err
}

func TestTieredSource_Live(t *testing.T) {
	fetcher := &fakeFetcher{reading: scoring.EnvironmentalReading{PM25: 42, LocationLabel: "Bangkok"}}
	source := NewTieredSource(fetcher, zerolog.Nop())

	reading, err := source.Reading(context.Background(), monitor.Position{Lat: 13.75, Lon: 100.5})
	require.NoError(t, err)
	assert.Equal(t, 42.0, reading.PM25)
	assert.Equal(t, ProvenanceLive, reading.Provenance)
}

func TestTieredSource_FallsBackToCache(t *testing.T) {
	fetcher := &fakeFetcher{reading: scoring.EnvironmentalReading{PM25: 42}}
	source := NewTieredSource(fetcher, zerolog.Nop())

	_, err := source.Reading(context.Background(), monitor.Position{})
	require.NoError(t, err)

	fetcher.err = errors.New("provider down")

	reading, err := source.Reading(context.Background(), monitor.Position{})
	require.NoError(t, err)
	assert.Equal(t, 42.0, reading.PM25)
	assert.Equal(t, ProvenanceCache, reading.Provenance)
}

func TestTieredSource_DefaultWhenNoHistory(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("provider down")}
	source := NewTieredSource(fetcher, zerolog.Nop())

	reading, err := source.Reading(context.Background(), monitor.Position{Label: "home"})
	require.NoError(t, err)
	assert.Equal(t, ProvenanceDefault, reading.Provenance)
	assert.Equal(t, "home", reading.LocationLabel)
	assert.Greater(t, reading.PM25, 0.0)
}
