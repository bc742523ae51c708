// Package alert decides when a deteriorating reading warrants a
// notification and keeps alert frequency bounded. The gate only decides;
// actually dispatching the payload is the Notifier's job.
package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/scoring"
)

// Severity classifies an alert by PM2.5 band.
type Severity string

// Alert severities.
const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Suppression reasons; a suppressed alert is an intentional no-op, distinct
// from a dispatch failure.
const (
	ReasonNoQualifyingCondition = "profile has no qualifying chronic condition"
	ReasonBelowFloor            = "pm2.5 below alert floor"
	ReasonCooldown              = "within cooldown window"
)

// Decision is the gate's verdict for one reading.
type Decision struct {
	Emit     bool
	Severity Severity

	// Reason explains a suppression; empty when Emit is true.
	Reason string
}

// Config holds gate thresholds.
type Config struct {
	// PM25Floor is the minimum PM2.5 to consider alerting at all.
	// Default: 37 µg/m³.
	PM25Floor float64

	// Cooldown suppresses repeated alerts. Default: 3 minutes.
	Cooldown time.Duration

	// WorseningCooldown replaces Cooldown when the reading is degrading.
	// Default: 1 minute.
	WorseningCooldown time.Duration

	// WorseningDelta is how much the current PM2.5 must exceed the
	// previous one to count as degrading. Default: 5 µg/m³.
	WorseningDelta float64
}

func (c Config) withDefaults() Config {
	if c.PM25Floor == 0 {
		c.PM25Floor = 37
	}
	if c.Cooldown == 0 {
		c.Cooldown = 3 * time.Minute
	}
	if c.WorseningCooldown == 0 {
		c.WorseningCooldown = time.Minute
	}
	if c.WorseningDelta == 0 {
		c.WorseningDelta = 5
	}
	return c
}

// Conditions that qualify a profile for air-quality alerts.
var qualifyingConditions = []string{
	"asthma", "copd", "bronchitis", "emphysema",
	"heart disease", "hypertension", "arrhythmia",
}

// Qualifies reports whether the profile has at least one chronic condition
// that warrants pollution alerts.
func Qualifies(profile scoring.RiskProfile) bool {
	for _, c := range qualifyingConditions {
		if profile.HasCondition(c) {
			return true
		}
	}
	return false
}

// Gate rate-limits and classifies outgoing alerts. State is process-local;
// it is cleared when monitoring stops.
type Gate struct {
	config Config

	// now is swappable for tests.
	now func() time.Time

	mu          sync.Mutex
	lastAlertAt time.Time
	lastPM25    float64
	hasAlerted  bool
}

// NewGate creates an alert gate.
func NewGate(cfg Config) *Gate {
	return &Gate{config: cfg.withDefaults(), now: time.Now}
}

// ShouldAlert decides whether the current reading warrants an alert for
// this profile. previous may be nil on the first evaluation.
func (g *Gate) ShouldAlert(current scoring.EnvironmentalReading, previous *scoring.EnvironmentalReading, profile scoring.RiskProfile) Decision {
	if !Qualifies(profile) {
		return Decision{Severity: SeverityLow, Reason: ReasonNoQualifyingCondition}
	}
	if current.PM25 <= g.config.PM25Floor {
		return Decision{Severity: SeverityLow, Reason: ReasonBelowFloor}
	}

	severity := g.severityFor(current.PM25)

	g.mu.Lock()
	defer g.mu.Unlock()

	// Degrading trends alert sooner than stable-bad conditions.
	window := g.config.Cooldown
	prevPM25 := g.lastPM25
	if previous != nil {
		prevPM25 = previous.PM25
	}
	if current.PM25-prevPM25 > g.config.WorseningDelta {
		window = g.config.WorseningCooldown
	}

	if g.hasAlerted && g.now().Sub(g.lastAlertAt) < window {
		g.lastPM25 = current.PM25
		return Decision{Severity: severity, Reason: ReasonCooldown}
	}

	g.hasAlerted = true
	g.lastAlertAt = g.now()
	g.lastPM25 = current.PM25
	return Decision{Emit: true, Severity: severity}
}

// Reset clears the rolling alert state, used when monitoring is disabled.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hasAlerted = false
	g.lastAlertAt = time.Time{}
	g.lastPM25 = 0
}

// severityFor bands PM2.5 into alert severities above the floor.
func (g *Gate) severityFor(pm25 float64) Severity {
	switch {
	case pm25 > 90:
		return SeverityCritical
	case pm25 > 50:
		return SeverityHigh
	case pm25 > g.config.PM25Floor:
		return SeverityModerate
	default:
		return SeverityLow
	}
}

// Payload builds the notification content for an emitted decision. The
// level carries the scored risk band; its urgency label rides along so
// downstream delivery can prioritize without re-scoring.
func Payload(d Decision, reading scoring.EnvironmentalReading, level scoring.Level) Notification {
	title := fmt.Sprintf("Air quality alert: %s", d.Severity)
	body := fmt.Sprintf("PM2.5 is %.0f µg/m³ at %s.", reading.PM25, reading.LocationLabel)
	if reading.LocationLabel == "" {
		body = fmt.Sprintf("PM2.5 is %.0f µg/m³ at your location.", reading.PM25)
	}
	return Notification{
		Title:    title,
		Body:     body,
		Severity: d.Severity,
		Urgency:  level.Urgency(),
	}
}
