package scoring

import "fmt"

// Strategy maps (profile, reading, behavior) to a PHRIResult. Implementations
// are pure and total: well-formed numeric input never causes an error, and
// out-of-range values are clamped with a breakdown note rather than rejected.
type Strategy interface {
	// Score computes the PHRI for one reading.
	Score(profile RiskProfile, reading EnvironmentalReading, behavior BehavioralInput) PHRIResult

	// Scale reports which scale this strategy produces.
	Scale() Scale
}

// NewStrategy returns the strategy for the given scale. A deployment picks
// one scale at startup and keeps it for its lifetime.
func NewStrategy(scale Scale) (Strategy, error) {
	switch scale {
	case Scale100:
		return ComprehensiveStrategy{}, nil
	case Scale10:
		return SimpleStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown score scale %q", scale)
	}
}

// sanitizeProfile clamps out-of-range profile fields, noting each clamp in
// the breakdown so malformed input stays visible without failing the call.
func sanitizeProfile(p RiskProfile, b *breakdown) RiskProfile {
	if p.Age < 1 {
		b.note("input", fmt.Sprintf("age %d below minimum, clamped to 1", p.Age))
		p.Age = 1
	}
	return p
}

// sanitizeReading clamps negative pollutant values to zero.
func sanitizeReading(r EnvironmentalReading, b *breakdown) EnvironmentalReading {
	clampPollutant := func(name string, v *float64) {
		if *v < 0 {
			b.note("input", fmt.Sprintf("%s %.1f below zero, clamped to 0", name, *v))
			*v = 0
		}
	}
	clampPollutant("pm2.5", &r.PM25)
	clampPollutant("pm10", &r.PM10)
	clampPollutant("o3", &r.O3)
	clampPollutant("no2", &r.NO2)
	clampPollutant("co", &r.CO)
	clampPollutant("so2", &r.SO2)
	if r.AQI < 0 {
		b.note("input", fmt.Sprintf("aqi %d below zero, clamped to 0", r.AQI))
		r.AQI = 0
	}
	return r
}

// sanitizeBehavior clamps negative outdoor minutes to zero.
func sanitizeBehavior(in BehavioralInput, b *breakdown) BehavioralInput {
	if in.OutdoorMinutes < 0 {
		b.note("input", fmt.Sprintf("outdoor minutes %d below zero, clamped to 0", in.OutdoorMinutes))
		in.OutdoorMinutes = 0
	}
	return in
}
