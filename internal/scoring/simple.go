package scoring

import (
	"fmt"
	"math"
)

// SimpleStrategy produces scores on the 0-10 scale as a weighted sum of
// environmental, personal, behavioral and protective sub-scores, rounded to
// one decimal.
type SimpleStrategy struct{}

// Scale reports the 0-10 scale.
func (SimpleStrategy) Scale() Scale { return Scale10 }

const outdoorCeilingMinutes = 180

// Score computes the simple 0-10 PHRI.
func (s SimpleStrategy) Score(profile RiskProfile, reading EnvironmentalReading, behavior BehavioralInput) PHRIResult {
	var bd breakdown
	profile = sanitizeProfile(profile, &bd)
	reading = sanitizeReading(reading, &bd)
	behavior = sanitizeBehavior(behavior, &bd)

	env := simpleEnvironmental(reading)
	bd.add("environmental", env, fmt.Sprintf("PM2.5 %.1f µg/m³, AQI %d", reading.PM25, reading.AQI))

	personal := simplePersonal(profile)
	bd.add("personal", personal, fmt.Sprintf("%d chronic conditions, age %d, %s dust sensitivity", len(profile.ChronicConditions), profile.Age, sensitivityLabel(profile.DustSensitivity)))

	behav := simpleBehavioral(behavior)
	bd.add("behavioral", behav, fmt.Sprintf("%d minutes outdoors, %s activity", behavior.OutdoorMinutes, activityLabel(behavior.ActivityLevel)))

	// Symptoms shape recommendations only; the sub-score is surfaced for
	// visibility but never added to the published score.
	if n := len(behavior.Symptoms); n > 0 {
		bd.note("symptoms", fmt.Sprintf("%d symptoms reported (recommendations only)", n))
	}

	protective := simpleProtective(profile, behavior)
	if protective > 0 {
		bd.add("protective", -protective, protectiveDescription(profile, behavior))
	}

	raw := env + personal + behav - protective
	score := math.Round(clamp(raw, 0, 10)*10) / 10
	level := levelFor10(score)

	return PHRIResult{
		Score:           score,
		Scale:           Scale10,
		Level:           level,
		Breakdown:       bd.entries,
		Recommendations: recommend(level, reading, behavior),
	}
}

// simpleEnvironmental is the 0-3 pollutant sub-score: PM2.5 tiered, with a
// half-point bump when the AQI is in the hazardous range.
func simpleEnvironmental(r EnvironmentalReading) float64 {
	var v float64
	switch {
	case r.PM25 <= 12:
		v = 0
	case r.PM25 <= 35:
		v = 1
	case r.PM25 <= 55:
		v = 1.5
	case r.PM25 <= 90:
		v = 2
	case r.PM25 <= 150:
		v = 2.5
	default:
		v = 3
	}
	if r.AQI > 200 {
		v += 0.5
	}
	return clamp(v, 0, 3)
}

// simplePersonal is the 0-2.5 profile sub-score.
func simplePersonal(p RiskProfile) float64 {
	var v float64
	for _, class := range diseaseClasses {
		for _, cond := range class.conditions {
			if p.HasCondition(cond) {
				// Scale the 0-25 class points down to the 0-1 range.
				v += class.points / 25.0
				break
			}
		}
	}
	if p.Age < 12 || p.Age > 65 {
		v += 0.5
	}
	switch p.DustSensitivity {
	case SensitivityHigh:
		v += 0.5
	case SensitivityMedium:
		v += 0.25
	}
	return clamp(v, 0, 2.5)
}

// simpleBehavioral is the 0-2 behavior sub-score: the outdoor-time fraction
// of a 180-minute ceiling plus an activity bonus.
func simpleBehavioral(b BehavioralInput) float64 {
	frac := float64(b.OutdoorMinutes) / outdoorCeilingMinutes
	if frac > 1 {
		frac = 1
	}
	v := frac * 1.5
	switch b.ActivityLevel {
	case ActivityExercising:
		v += 0.3
	case ActivityIntense:
		v += 0.5
	}
	return clamp(v, 0, 2)
}

// simpleProtective is the 0-1 protection sub-score, subtracted from the sum.
func simpleProtective(p RiskProfile, b BehavioralInput) float64 {
	var v float64
	if b.EffectiveMask() != MaskNone {
		v += 0.5
	}
	if p.HasAirPurifier && b.IsIndoor {
		v += 0.3
	}
	return clamp(v, 0, 1)
}

func protectiveDescription(p RiskProfile, b BehavioralInput) string {
	switch {
	case b.EffectiveMask() != MaskNone && p.HasAirPurifier && b.IsIndoor:
		return "mask worn, air purifier running"
	case b.EffectiveMask() != MaskNone:
		return "mask worn"
	default:
		return "air purifier running"
	}
}

func sensitivityLabel(s Sensitivity) string {
	if s == "" {
		return string(SensitivityLow)
	}
	return string(s)
}

func activityLabel(a ActivityLevel) string {
	if a == "" {
		return string(ActivityResting)
	}
	return string(a)
}

func levelFor10(score float64) Level {
	switch {
	case score >= 9:
		return LevelVeryHigh
	case score >= 6:
		return LevelHigh
	case score >= 3:
		return LevelModerate
	default:
		return LevelLow
	}
}
