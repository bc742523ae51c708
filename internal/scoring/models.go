// Package scoring computes the Personal Health Risk Index (PHRI) from a
// user's risk profile, one environmental reading and the user's current
// behavior. All scoring is pure and deterministic: no I/O, no clocks, no
// hidden state. Two strategies are supported behind one interface; a
// deployment selects exactly one scale and never mixes them.
package scoring

import (
	"strings"
	"time"
)

// Sensitivity describes the user's self-reported dust sensitivity.
type Sensitivity string

// Dust sensitivity levels.
const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// ActivityHabit describes the user's general physical activity habit.
type ActivityHabit string

// Physical activity habits.
const (
	HabitSedentary ActivityHabit = "sedentary"
	HabitModerate  ActivityHabit = "moderate"
	HabitActive    ActivityHabit = "active"
)

// Smoking describes the user's smoking status.
type Smoking string

// Smoking statuses.
const (
	SmokingNever   Smoking = "never"
	SmokingFormer  Smoking = "former"
	SmokingCurrent Smoking = "current"
)

// RiskProfile holds the user's static and slow-changing health attributes.
// The scoring engine treats a profile as read-only; it is mutated only
// through an explicit profile update by the owning collaborator.
type RiskProfile struct {
	Age                 int
	ChronicConditions   []string
	Allergies           []string
	DustSensitivity     Sensitivity
	PhysicalActivity    ActivityHabit
	HasAirPurifier      bool
	SmokingStatus       Smoking
	IsOutdoorWorker     bool
	IsImmunoCompromised bool
}

// HasCondition reports whether the profile lists the given chronic
// condition. Matching is case-insensitive on the canonical lowercase names
// used throughout the package.
func (p RiskProfile) HasCondition(name string) bool {
	for _, c := range p.ChronicConditions {
		if normalize(c) == name {
			return true
		}
	}
	return false
}

// HasAllergy reports whether the profile lists the given allergy.
func (p RiskProfile) HasAllergy(name string) bool {
	for _, a := range p.Allergies {
		if normalize(a) == name {
			return true
		}
	}
	return false
}

// EnvironmentalReading is one snapshot of pollutant and weather values for
// a location at a point in time. A reading is immutable once captured and
// feeds exactly one scoring call.
type EnvironmentalReading struct {
	PM25 float64
	PM10 float64
	O3   float64
	NO2  float64
	CO   float64
	SO2  float64
	AQI  int

	// TemperatureC and HumidityPct are nil when the weather collaborator
	// had no data for the location.
	TemperatureC *float64
	HumidityPct  *float64

	LocationLabel    string
	NearConstruction bool
	NearMainRoad     bool

	// Provenance records which tier of the reading source produced this
	// snapshot (live, cache, default). Display only; never scored.
	Provenance string

	CapturedAt time.Time
}

// ActivityLevel describes the current physical activity intensity.
type ActivityLevel string

// Activity intensity levels.
const (
	ActivityResting    ActivityLevel = "resting"
	ActivityWalking    ActivityLevel = "walking"
	ActivityExercising ActivityLevel = "exercising"
	ActivityIntense    ActivityLevel = "intense"
)

// MaskType describes the kind of mask worn, if any.
type MaskType string

// Mask types, in ascending order of filtration.
const (
	MaskNone     MaskType = "none"
	MaskCloth    MaskType = "cloth"
	MaskSurgical MaskType = "surgical"
	MaskN95      MaskType = "n95"
)

// MaskFit describes how well the mask seals.
type MaskFit string

// Mask fit qualities.
const (
	FitGood     MaskFit = "good"
	FitModerate MaskFit = "moderate"
	FitPoor     MaskFit = "poor"
)

// BehavioralInput holds the user's current behavior for one scoring call.
type BehavioralInput struct {
	OutdoorMinutes int
	IsIndoor       bool
	ActivityLevel  ActivityLevel

	MaskType MaskType
	MaskFit  MaskFit

	// WearingMask is the simple-mode flag; when MaskType is set it is
	// derived from it.
	WearingMask bool

	// Symptoms reported alongside this measurement. Symptoms never feed
	// back into the score; they only shape recommendations.
	Symptoms []string
}

// EffectiveMask returns the mask actually worn, reconciling the simple
// WearingMask flag with the typed field.
func (b BehavioralInput) EffectiveMask() MaskType {
	if b.MaskType != "" && b.MaskType != MaskNone {
		return b.MaskType
	}
	if b.WearingMask {
		return MaskCloth
	}
	return MaskNone
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
