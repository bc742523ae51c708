package scoring_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/scoring"
)

func strategy100(t *testing.T) scoring.Strategy {
	t.Helper()
	s, err := scoring.NewStrategy(scoring.Scale100)
	require.NoError(t, err)
	return s
}

func TestComprehensive_EndToEndExample(t *testing.T) {
	s := strategy100(t)

	profile := scoring.RiskProfile{
		Age:               8,
		ChronicConditions: []string{"asthma"},
	}
	reading := scoring.EnvironmentalReading{
		PM25:       95,
		AQI:        180,
		CapturedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	behavior := scoring.BehavioralInput{
		OutdoorMinutes: 70,
		IsIndoor:       false,
		MaskType:       scoring.MaskNone,
	}

	result := s.Score(profile, reading, behavior)

	// 25 (respiratory) + 10 (age under 12) + 25 (PM2.5 tier) + 10 (outdoor
	// duration band).
	assert.Equal(t, 70.0, result.Score)
	assert.Equal(t, scoring.LevelHigh, result.Level)
	assert.Equal(t, scoring.Scale100, result.Scale)

	joined := strings.Join(result.Recommendations, "\n")
	assert.Contains(t, joined, "N95")
	assert.Contains(t, joined, "70 minutes")
}

func TestComprehensive_Deterministic(t *testing.T) {
	s := strategy100(t)

	profile := scoring.RiskProfile{
		Age:               44,
		ChronicConditions: []string{"COPD", "diabetes"},
		Allergies:         []string{"dust", "pollen"},
		SmokingStatus:     scoring.SmokingFormer,
		IsOutdoorWorker:   true,
	}
	temp := 36.0
	reading := scoring.EnvironmentalReading{
		PM25:         60,
		PM10:         90,
		O3:           130,
		AQI:          155,
		TemperatureC: &temp,
		NearMainRoad: true,
	}
	behavior := scoring.BehavioralInput{
		OutdoorMinutes: 45,
		ActivityLevel:  scoring.ActivityExercising,
		MaskType:       scoring.MaskSurgical,
		MaskFit:        scoring.FitModerate,
	}

	a := s.Score(profile, reading, behavior)
	b := s.Score(profile, reading, behavior)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs produced different results:\n%+v\n%+v", a, b)
	}
}

func TestComprehensive_PM25Monotonic(t *testing.T) {
	s := strategy100(t)

	profile := scoring.RiskProfile{Age: 30, ChronicConditions: []string{"asthma"}}
	behavior := scoring.BehavioralInput{OutdoorMinutes: 40, ActivityLevel: scoring.ActivityWalking}

	prev := -1.0
	for _, pm25 := range []float64{0, 5, 12, 13, 25, 26, 35, 36, 55, 56, 90, 91, 150, 151, 400, 10000} {
		result := s.Score(profile, scoring.EnvironmentalReading{PM25: pm25, AQI: 80}, behavior)
		if result.Score < prev {
			t.Fatalf("score decreased from %.1f to %.1f when PM2.5 rose to %.0f", prev, result.Score, pm25)
		}
		prev = result.Score
	}
}

func TestComprehensive_ConditionNeverLowers(t *testing.T) {
	s := strategy100(t)

	reading := scoring.EnvironmentalReading{PM25: 40, AQI: 110}
	behavior := scoring.BehavioralInput{OutdoorMinutes: 20}

	base := s.Score(scoring.RiskProfile{Age: 50}, reading, behavior)

	for _, cond := range []string{"asthma", "heart disease", "diabetes", "allergic rhinitis"} {
		with := s.Score(scoring.RiskProfile{Age: 50, ChronicConditions: []string{cond}}, reading, behavior)
		assert.GreaterOrEqual(t, with.Score, base.Score, "adding %s lowered the score", cond)
	}
}

func TestComprehensive_PurpleZoneAddsLocationPoints(t *testing.T) {
	s := strategy100(t)

	profile := scoring.RiskProfile{Age: 30}
	behavior := scoring.BehavioralInput{OutdoorMinutes: 20}

	red := s.Score(profile, scoring.EnvironmentalReading{PM25: 40, AQI: 200}, behavior)
	purple := s.Score(profile, scoring.EnvironmentalReading{PM25: 40, AQI: 201}, behavior)

	// Only crossing into the purple zone moves the location component.
	assert.Equal(t, red.Score+3, purple.Score)
}

func TestComprehensive_MaskGradeMonotonic(t *testing.T) {
	s := strategy100(t)

	profile := scoring.RiskProfile{Age: 35}
	reading := scoring.EnvironmentalReading{PM25: 80, AQI: 160}

	prev := 1e9
	for _, mask := range []scoring.MaskType{scoring.MaskCloth, scoring.MaskSurgical, scoring.MaskN95} {
		behavior := scoring.BehavioralInput{
			OutdoorMinutes: 30,
			MaskType:       mask,
			MaskFit:        scoring.FitGood,
		}
		result := s.Score(profile, reading, behavior)
		if result.Score > prev {
			t.Fatalf("score increased to %.1f with higher-grade mask %s", result.Score, mask)
		}
		prev = result.Score
	}
}

func TestComprehensive_ComponentClamping(t *testing.T) {
	s := strategy100(t)

	// Maximal profile against a clean reading: risk component alone, must
	// stay within [0,50].
	maxProfile := scoring.RiskProfile{
		Age:                 80,
		ChronicConditions:   []string{"asthma", "heart disease", "diabetes", "allergic rhinitis"},
		Allergies:           []string{"dust", "pollen"},
		SmokingStatus:       scoring.SmokingCurrent,
		IsOutdoorWorker:     true,
		IsImmunoCompromised: true,
	}
	riskOnly := s.Score(maxProfile, scoring.EnvironmentalReading{}, scoring.BehavioralInput{})
	assert.LessOrEqual(t, riskOnly.Score, 50.0)

	// Extreme pollution against an empty profile: exposure component alone.
	temp := 45.0
	hum := 95.0
	extreme := scoring.EnvironmentalReading{
		PM25: 10000, PM10: 5000, O3: 900, NO2: 800, CO: 60, SO2: 500,
		AQI: 999, TemperatureC: &temp, HumidityPct: &hum,
		NearConstruction: true, NearMainRoad: true,
	}
	exposureOnly := s.Score(scoring.RiskProfile{Age: 30}, extreme, scoring.BehavioralInput{
		OutdoorMinutes: 100000,
		ActivityLevel:  scoring.ActivityIntense,
	})
	assert.LessOrEqual(t, exposureOnly.Score, 50.0)

	// Both maxed: total stays on the scale.
	both := s.Score(maxProfile, extreme, scoring.BehavioralInput{OutdoorMinutes: 100000, ActivityLevel: scoring.ActivityIntense})
	assert.LessOrEqual(t, both.Score, 100.0)
	assert.Equal(t, scoring.LevelVeryHigh, both.Level)

	// Maximal protection with clean air never goes negative.
	clean := s.Score(scoring.RiskProfile{Age: 30, HasAirPurifier: true}, scoring.EnvironmentalReading{PM25: 1}, scoring.BehavioralInput{IsIndoor: true})
	assert.GreaterOrEqual(t, clean.Score, 0.0)
}

func TestComprehensive_SymptomIndependence(t *testing.T) {
	s := strategy100(t)

	profile := scoring.RiskProfile{Age: 28, ChronicConditions: []string{"asthma"}}
	reading := scoring.EnvironmentalReading{PM25: 55, AQI: 140}

	without := s.Score(profile, reading, scoring.BehavioralInput{OutdoorMinutes: 30})
	with := s.Score(profile, reading, scoring.BehavioralInput{
		OutdoorMinutes: 30,
		Symptoms:       []string{"cough", "wheezing", "headache"},
	})

	assert.Equal(t, without.Score, with.Score)
	assert.NotEqual(t, without.Recommendations, with.Recommendations)
}

func TestComprehensive_ClampsNegativeInput(t *testing.T) {
	s := strategy100(t)

	result := s.Score(
		scoring.RiskProfile{Age: -4},
		scoring.EnvironmentalReading{PM25: -10, AQI: -5},
		scoring.BehavioralInput{OutdoorMinutes: -30},
	)

	assert.GreaterOrEqual(t, result.Score, 0.0)

	var clampNotes int
	for _, c := range result.Breakdown {
		if c.Factor == "input" {
			clampNotes++
		}
	}
	assert.Equal(t, 4, clampNotes, "each clamp should leave a breakdown note")
}

func TestComprehensive_DiseaseClassDominance(t *testing.T) {
	s := strategy100(t)

	reading := scoring.EnvironmentalReading{}
	behavior := scoring.BehavioralInput{}

	// Respiratory alone fills the entire 25-point disease cap, so adding a
	// cardiovascular condition on top must not change the score.
	resp := s.Score(scoring.RiskProfile{Age: 30, ChronicConditions: []string{"asthma"}}, reading, behavior)
	both := s.Score(scoring.RiskProfile{Age: 30, ChronicConditions: []string{"asthma", "heart disease"}}, reading, behavior)
	assert.Equal(t, resp.Score, both.Score)
	assert.Equal(t, 25.0, resp.Score)

	// Cardiovascular (20) leaves 5 points of headroom for metabolic (15).
	cardioMeta := s.Score(scoring.RiskProfile{Age: 30, ChronicConditions: []string{"heart disease", "diabetes"}}, reading, behavior)
	assert.Equal(t, 25.0, cardioMeta.Score)
}
