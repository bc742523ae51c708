// Package monitor drives the measurement cycle: on a bounded-staleness
// timer it pulls a position and a reading, scores them, appends the
// exposure record and evaluates the alert gate. The append always precedes
// the alert evaluation, so an alert can never reference a measurement that
// was not persisted.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/alert"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/exposure"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/scoring"
)

// State of the monitor loop.
type State string

// Monitor states.
const (
	StateIdle     State = "idle"
	StateWatching State = "watching"
)

// Position is one device location fix.
type Position struct {
	Lat   float64
	Lon   float64
	Label string
}

// PositionSource supplies the device's current position.
type PositionSource interface {
	Current(ctx context.Context) (Position, error)
}

// ReadingSource supplies an environmental reading for a position. The
// source may fall back through live, cached and default tiers; the monitor
// only requires a reading tagged with its provenance.
type ReadingSource interface {
	Reading(ctx context.Context, pos Position) (scoring.EnvironmentalReading, error)
}

// BehaviorSource supplies the user's current behavioral input.
type BehaviorSource interface {
	Current(ctx context.Context) (scoring.BehavioralInput, error)
}

// Config holds monitor loop configuration.
type Config struct {
	// TickInterval bounds reading staleness. Default: 2 minutes.
	TickInterval time.Duration

	// MaxPositionAge is how old a cached position fix may be before a
	// fresh one is requested. Default: TickInterval.
	MaxPositionAge time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval == 0 {
		c.TickInterval = 2 * time.Minute
	}
	if c.MaxPositionAge == 0 {
		c.MaxPositionAge = c.TickInterval
	}
	return c
}

// Monitor is the orchestrating driver.
type Monitor struct {
	store     exposure.Store
	strategy  scoring.Strategy
	gate      *alert.Gate
	notifier  alert.Notifier
	positions PositionSource
	readings  ReadingSource
	behavior  BehaviorSource
	geofences *alert.GeofenceWatcher
	config    Config
	logger    zerolog.Logger

	// now is swappable for tests.
	now func() time.Time

	mu      sync.Mutex
	profile scoring.RiskProfile
	enabled bool

	lastPos     Position
	lastPosAt   time.Time
	prevReading *scoring.EnvironmentalReading
}

// Deps bundles the monitor's collaborators.
type Deps struct {
	Store     exposure.Store
	Strategy  scoring.Strategy
	Gate      *alert.Gate
	Notifier  alert.Notifier
	Positions PositionSource
	Readings  ReadingSource
	Behavior  BehaviorSource

	// Geofences is optional.
	Geofences *alert.GeofenceWatcher
}

// New creates a monitor loop. Monitoring starts disabled.
func New(deps Deps, cfg Config, logger zerolog.Logger) *Monitor {
	return &Monitor{
		store:     deps.Store,
		strategy:  deps.Strategy,
		gate:      deps.Gate,
		notifier:  deps.Notifier,
		positions: deps.Positions,
		readings:  deps.Readings,
		behavior:  deps.Behavior,
		geofences: deps.Geofences,
		config:    cfg.withDefaults(),
		logger:    logger.With().Str("component", "monitor").Logger(),
		now:       time.Now,
	}
}

// SetProfile updates the profile used for scoring and alert gating. Losing
// the last qualifying condition stops the watch on the next state check.
func (m *Monitor) SetProfile(p scoring.RiskProfile) {
	m.mu.Lock()
	m.profile = p
	m.mu.Unlock()
}

// Enable turns monitoring on. The watch only actually starts when the
// profile has a qualifying condition.
func (m *Monitor) Enable() {
	m.mu.Lock()
	m.enabled = true
	m.mu.Unlock()
}

// Disable turns monitoring off and clears all pending alert state.
func (m *Monitor) Disable() {
	m.mu.Lock()
	m.enabled = false
	m.prevReading = nil
	m.lastPosAt = time.Time{}
	m.mu.Unlock()

	m.gate.Reset()
	if m.geofences != nil {
		m.geofences.Reset()
	}
}

// State reports whether the loop is currently watching.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enabled && alert.Qualifies(m.profile) {
		return StateWatching
	}
	return StateIdle
}

// Run ticks until the context is cancelled. Ticks while idle are no-ops.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.State() != StateWatching {
				continue
			}
			if err := m.Tick(ctx); err != nil {
				m.logger.Error().Err(err).Msg("monitor tick failed")
			}
		}
	}
}

// Tick runs one measurement cycle: position, reading, score, append,
// evaluate. A reading-fetch failure skips the cycle; a storage fault is
// returned to the caller, never swallowed.
func (m *Monitor) Tick(ctx context.Context) error {
	pos, err := m.position(ctx)
	if err != nil {
		return fmt.Errorf("fetch position: %w", err)
	}

	reading, err := m.readings.Reading(ctx, pos)
	if err != nil {
		return fmt.Errorf("fetch reading: %w", err)
	}
	if reading.LocationLabel == "" {
		reading.LocationLabel = pos.Label
	}

	behavior, err := m.behavior.Current(ctx)
	if err != nil {
		return fmt.Errorf("fetch behavior: %w", err)
	}

	m.mu.Lock()
	profile := m.profile
	prev := m.prevReading
	m.mu.Unlock()

	result := m.strategy.Score(profile, reading, behavior)

	capturedAt := reading.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = m.now()
	}
	rec := &exposure.Record{
		DayKey:         exposure.DayKey(capturedAt),
		CapturedAt:     capturedAt,
		PM25:           reading.PM25,
		PM10:           reading.PM10,
		O3:             reading.O3,
		NO2:            reading.NO2,
		CO:             reading.CO,
		SO2:            reading.SO2,
		AQI:            reading.AQI,
		PHRI:           result.Score,
		OutdoorMinutes: behavior.OutdoorMinutes,
		Symptoms:       exposure.StringList(behavior.Symptoms),
		WearingMask:    behavior.EffectiveMask() != scoring.MaskNone,
		Location:       reading.LocationLabel,
	}

	// The record must exist before any alert referencing it goes out.
	if _, err := m.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append exposure record: %w", err)
	}

	m.mu.Lock()
	m.prevReading = &reading
	m.mu.Unlock()

	decision := m.gate.ShouldAlert(reading, prev, profile)
	if decision.Emit {
		if err := m.notifier.Notify(ctx, alert.Payload(decision, reading, result.Level)); err != nil {
			m.logger.Error().Err(err).Msg("notification dispatch failed")
		}
	} else if decision.Reason != alert.ReasonBelowFloor && decision.Reason != alert.ReasonNoQualifyingCondition {
		m.logger.Debug().Str("reason", decision.Reason).Msg("alert suppressed")
	}

	if m.geofences != nil {
		for _, n := range m.geofences.Update(pos.Lat, pos.Lon) {
			if err := m.notifier.Notify(ctx, n); err != nil {
				m.logger.Error().Err(err).Msg("geofence notification dispatch failed")
			}
		}
	}

	m.logger.Debug().
		Float64("pm25", reading.PM25).
		Float64("phri", result.Score).
		Str("level", string(result.Level)).
		Bool("alerted", decision.Emit).
		Msg("measurement recorded")

	return nil
}

// position returns a cached fix when it is fresh enough, otherwise asks
// the source for a new one.
func (m *Monitor) position(ctx context.Context) (Position, error) {
	m.mu.Lock()
	cached := m.lastPos
	cachedAt := m.lastPosAt
	m.mu.Unlock()

	if !cachedAt.IsZero() && m.now().Sub(cachedAt) <= m.config.MaxPositionAge {
		return cached, nil
	}

	pos, err := m.positions.Current(ctx)
	if err != nil {
		return Position{}, err
	}

	m.mu.Lock()
	m.lastPos = pos
	m.lastPosAt = m.now()
	m.mu.Unlock()
	return pos, nil
}
