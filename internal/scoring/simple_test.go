package scoring_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/scoring"
)

func strategy10(t *testing.T) scoring.Strategy {
	t.Helper()
	s, err := scoring.NewStrategy(scoring.Scale10)
	require.NoError(t, err)
	return s
}

func TestSimple_Levels(t *testing.T) {
	s := strategy10(t)

	tests := []struct {
		name     string
		profile  scoring.RiskProfile
		reading  scoring.EnvironmentalReading
		behavior scoring.BehavioralInput
		level    scoring.Level
	}{
		{
			name:    "clean air, healthy adult",
			profile: scoring.RiskProfile{Age: 30},
			reading: scoring.EnvironmentalReading{PM25: 8, AQI: 30},
			level:   scoring.LevelLow,
		},
		{
			name:    "hazardous air, vulnerable profile",
			profile: scoring.RiskProfile{Age: 72, ChronicConditions: []string{"asthma", "heart disease"}, DustSensitivity: scoring.SensitivityHigh},
			reading: scoring.EnvironmentalReading{PM25: 220, AQI: 290},
			behavior: scoring.BehavioralInput{
				OutdoorMinutes: 200,
				ActivityLevel:  scoring.ActivityIntense,
			},
			// With symptoms excluded from the score the 0-10 scale tops
			// out at 7.5, inside the urgent band.
			level: scoring.LevelHigh,
		},
		{
			name:     "moderate air with long outdoor time",
			profile:  scoring.RiskProfile{Age: 40, ChronicConditions: []string{"asthma"}},
			reading:  scoring.EnvironmentalReading{PM25: 48, AQI: 120},
			behavior: scoring.BehavioralInput{OutdoorMinutes: 90},
			level:    scoring.LevelModerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.Score(tt.profile, tt.reading, tt.behavior)
			assert.Equal(t, tt.level, result.Level, "score was %.1f", result.Score)
		})
	}
}

func TestSimple_ScaleAndRounding(t *testing.T) {
	s := strategy10(t)

	result := s.Score(
		scoring.RiskProfile{Age: 55, ChronicConditions: []string{"diabetes"}, DustSensitivity: scoring.SensitivityMedium},
		scoring.EnvironmentalReading{PM25: 42, AQI: 115},
		scoring.BehavioralInput{OutdoorMinutes: 50, ActivityLevel: scoring.ActivityExercising},
	)

	assert.Equal(t, scoring.Scale10, result.Scale)
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 10.0)

	// One-decimal rounding.
	assert.InDelta(t, result.Score, math.Round(result.Score*10)/10, 1e-9)
}

func TestSimple_ExtremesStayOnScale(t *testing.T) {
	s := strategy10(t)

	result := s.Score(
		scoring.RiskProfile{Age: 90, ChronicConditions: []string{"asthma", "copd", "heart disease", "diabetes"}, DustSensitivity: scoring.SensitivityHigh},
		scoring.EnvironmentalReading{PM25: 10000, AQI: 999},
		scoring.BehavioralInput{OutdoorMinutes: 100000, ActivityLevel: scoring.ActivityIntense},
	)

	assert.LessOrEqual(t, result.Score, 10.0)
	assert.Equal(t, scoring.LevelHigh, result.Level)
}

func TestSimple_SymptomIndependence(t *testing.T) {
	s := strategy10(t)

	profile := scoring.RiskProfile{Age: 35, ChronicConditions: []string{"asthma"}}
	reading := scoring.EnvironmentalReading{PM25: 60, AQI: 150}

	without := s.Score(profile, reading, scoring.BehavioralInput{OutdoorMinutes: 40})
	with := s.Score(profile, reading, scoring.BehavioralInput{
		OutdoorMinutes: 40,
		Symptoms:       []string{"cough", "sore throat", "fatigue"},
	})

	assert.Equal(t, without.Score, with.Score)
	assert.NotEqual(t, without.Recommendations, with.Recommendations)
}

func TestSimple_ProtectionLowersScore(t *testing.T) {
	s := strategy10(t)

	profile := scoring.RiskProfile{Age: 35, HasAirPurifier: true}
	reading := scoring.EnvironmentalReading{PM25: 80, AQI: 170}

	unprotected := s.Score(profile, reading, scoring.BehavioralInput{OutdoorMinutes: 60})
	masked := s.Score(profile, reading, scoring.BehavioralInput{OutdoorMinutes: 60, WearingMask: true})

	assert.Less(t, masked.Score, unprotected.Score)
}

func TestNewStrategy_UnknownScale(t *testing.T) {
	_, err := scoring.NewStrategy(scoring.Scale("0-42"))
	require.Error(t, err)
}
