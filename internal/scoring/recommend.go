package scoring

import "fmt"

// Base recommendation lines per level. Order within a level is fixed so
// identical inputs always produce identical output.
var baseRecommendations = map[Level][]string{
	LevelLow: {
		"Air quality poses minimal risk for you right now.",
		"Normal outdoor activities are fine.",
	},
	LevelModerate: {
		"Air quality may affect you; consider limiting prolonged outdoor exertion.",
		"Keep windows closed during peak traffic hours.",
	},
	LevelHigh: {
		"Reduce outdoor activity and move strenuous exercise indoors.",
		"Keep your reliever medication at hand if you use one.",
	},
	LevelVeryHigh: {
		"Stay indoors and avoid all outdoor exertion.",
		"Run an air purifier if available and seal windows and doors.",
		"Seek medical advice if you experience breathing difficulty.",
	},
}

// Symptoms that escalate the recommendation set on their own.
var severeSymptoms = map[string]bool{
	"chest pain":           true,
	"difficulty breathing": true,
	"shortness of breath":  true,
	"wheezing":             true,
}

// recommend builds the ordered recommendation list for a result: the fixed
// per-level lines first, then situational lines in a fixed priority order
// (mask upgrade, outdoor duration, site proximity, symptom escalation).
func recommend(level Level, reading EnvironmentalReading, behavior BehavioralInput) []string {
	recs := make([]string, 0, 6)
	recs = append(recs, baseRecommendations[level]...)

	if !behavior.IsIndoor && reading.PM25 > 25 {
		switch behavior.EffectiveMask() {
		case MaskNone:
			recs = append(recs, "Wear an N95 mask while outdoors at this PM2.5 level.")
		case MaskCloth, MaskSurgical:
			recs = append(recs, fmt.Sprintf("Upgrade from a %s mask to an N95 for better protection.", behavior.EffectiveMask()))
		}
	}

	if behavior.OutdoorMinutes > 60 {
		recs = append(recs, fmt.Sprintf("You have been outdoors for %d minutes; take an indoor break.", behavior.OutdoorMinutes))
	}

	if reading.NearConstruction {
		recs = append(recs, "Construction nearby raises local dust; keep your distance where possible.")
	}
	if reading.NearMainRoad {
		recs = append(recs, "Traffic on the main road raises local pollution; prefer side streets.")
	}

	if escalate, reason := symptomEscalation(behavior.Symptoms); escalate {
		recs = append(recs, reason)
	}

	return recs
}

// symptomEscalation reports whether the symptom set warrants a medical
// escalation line. Symptoms never change the score itself.
func symptomEscalation(symptoms []string) (bool, string) {
	for _, s := range symptoms {
		if severeSymptoms[normalize(s)] {
			return true, fmt.Sprintf("You reported %s; consider contacting a medical professional.", normalize(s))
		}
	}
	if len(symptoms) >= 3 {
		return true, fmt.Sprintf("You reported %d symptoms today; monitor them closely and rest indoors.", len(symptoms))
	}
	return false, ""
}
