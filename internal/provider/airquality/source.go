package airquality

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/monitor"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/scoring"
)

// Provenance tags for the reading tiers.
const (
	ProvenanceLive    = ProviderName
	ProvenanceCache   = "cache"
	ProvenanceDefault = "default"
)

// Fetcher retrieves a live reading for a coordinate.
type Fetcher interface {
	FetchReading(ctx context.Context, lat, lon float64) (scoring.EnvironmentalReading, error)
}

// TieredSource serves readings live-first, falling back to the last good
// reading and finally to a conservative default, so a provider outage never
// stalls the monitor loop. The tier is recorded in the reading's Provenance.
type TieredSource struct {
	fetcher Fetcher
	logger  zerolog.Logger

	mu   sync.Mutex
	last *scoring.EnvironmentalReading
}

// NewTieredSource creates a reading source over the given fetcher.
func NewTieredSource(fetcher Fetcher, logger zerolog.Logger) *TieredSource {
	return &TieredSource{
		fetcher: fetcher,
		logger:  logger.With().Str("component", "reading-source").Logger(),
	}
}

// Reading returns the best available reading for the position.
func (s *TieredSource) Reading(ctx context.Context, pos monitor.Position) (scoring.EnvironmentalReading, error) {
	reading, err := s.fetcher.FetchReading(ctx, pos.Lat, pos.Lon)
	if err == nil {
		reading.Provenance = ProvenanceLive
		if reading.LocationLabel == "" {
			reading.LocationLabel = pos.Label
		}

		s.mu.Lock()
		cached := reading
		s.last = &cached
		s.mu.Unlock()
		return reading, nil
	}

	s.logger.Warn().Err(err).Msg("live reading unavailable, falling back")

	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last != nil {
		cached := *last
		cached.Provenance = ProvenanceCache
		return cached, nil
	}

	// No history at all. A moderate default keeps scoring defined without
	// inventing an emergency.
	return scoring.EnvironmentalReading{
		PM25:          25,
		AQI:           75,
		LocationLabel: pos.Label,
		Provenance:    ProvenanceDefault,
	}, nil
}

// Ensure TieredSource implements monitor.ReadingSource.
var _ monitor.ReadingSource = (*TieredSource)(nil)
