package scoring

import (
	"fmt"

	"github.com/hibro315/smart-pm25-buddy-sub001/pkg/aqizone"
)

// ComprehensiveStrategy produces scores on the 0-100 scale as the sum of a
// risk-factor component and an exposure component, each clamped to [0,50].
type ComprehensiveStrategy struct{}

// Scale reports the 0-100 scale.
func (ComprehensiveStrategy) Scale() Scale { return Scale100 }

// Disease classes in descending severity. The highest-severity class a
// profile matches contributes its full points; lower classes only fill
// whatever headroom remains under the disease cap.
var diseaseClasses = []struct {
	name       string
	points     float64
	conditions []string
}{
	{"respiratory", 25, []string{"asthma", "copd", "bronchitis", "emphysema", "pulmonary fibrosis"}},
	{"cardiovascular", 20, []string{"heart disease", "hypertension", "arrhythmia", "coronary artery disease"}},
	{"metabolic", 15, []string{"diabetes", "obesity"}},
	{"allergy", 10, []string{"allergic rhinitis", "chronic sinusitis"}},
}

const (
	diseaseCap        = 25
	componentCap      = 50
	secondaryPollCap  = 10
	weatherCap        = 5
	outdoorTimeCap    = 10
	activityCap       = 8
	locationCap       = 7
)

// Score computes the two-part 0-100 PHRI.
func (s ComprehensiveStrategy) Score(profile RiskProfile, reading EnvironmentalReading, behavior BehavioralInput) PHRIResult {
	var bd breakdown
	profile = sanitizeProfile(profile, &bd)
	reading = sanitizeReading(reading, &bd)
	behavior = sanitizeBehavior(behavior, &bd)

	risk := s.riskFactorScore(profile, &bd)
	exposure := s.exposureScore(reading, behavior, profile, &bd)

	total := risk + exposure
	level := levelFor100(total)

	return PHRIResult{
		Score:           total,
		Scale:           Scale100,
		Level:           level,
		Breakdown:       bd.entries,
		Recommendations: recommend(level, reading, behavior),
	}
}

// riskFactorScore sums the profile-driven contributions, capped at 50.
func (s ComprehensiveStrategy) riskFactorScore(p RiskProfile, bd *breakdown) float64 {
	var score float64

	// addCapped records a contribution clipped to the remaining headroom
	// under the component cap.
	addCapped := func(factor string, points float64, desc string) {
		if points <= 0 {
			return
		}
		if room := componentCap - score; points > room {
			points = room
		}
		if points <= 0 {
			bd.note(factor, desc+" (no headroom remaining)")
			return
		}
		bd.add(factor, points, desc)
		score += points
	}

	// Chronic disease classes: the dominant class contributes fully, lower
	// classes only fill the remaining disease headroom.
	diseasePoints := 0.0
	for _, class := range diseaseClasses {
		matched := ""
		for _, cond := range class.conditions {
			if p.HasCondition(cond) {
				matched = cond
				break
			}
		}
		if matched == "" {
			continue
		}
		points := class.points
		if room := diseaseCap - diseasePoints; points > room {
			points = room
		}
		if points <= 0 {
			bd.note("chronic:"+class.name, fmt.Sprintf("%s present, disease cap reached", matched))
			continue
		}
		bd.add("chronic:"+class.name, points, fmt.Sprintf("%s condition (%s)", class.name, matched))
		diseasePoints += points
		score += points
	}

	switch {
	case p.Age < 12:
		addCapped("age", 10, fmt.Sprintf("age %d under 12", p.Age))
	case p.Age > 65:
		addCapped("age", 10, fmt.Sprintf("age %d over 65", p.Age))
	case p.Age >= 60:
		addCapped("age", 7, fmt.Sprintf("age %d in 60-65", p.Age))
	case p.Age >= 12 && p.Age <= 18:
		addCapped("age", 5, fmt.Sprintf("age %d in 12-18", p.Age))
	}

	switch p.SmokingStatus {
	case SmokingCurrent:
		addCapped("smoking", 10, "current smoker")
	case SmokingFormer:
		addCapped("smoking", 5, "former smoker")
	}

	if p.IsOutdoorWorker {
		addCapped("occupation", 10, "outdoor occupation")
	}
	if p.IsImmunoCompromised {
		addCapped("immune", 5, "immunocompromised")
	}

	if p.HasAllergy("dust") {
		addCapped("allergy:dust", 5, "dust allergy")
	}
	if p.HasAllergy("pollen") {
		addCapped("allergy:pollen", 3, "pollen allergy")
	}

	return clamp(score, 0, componentCap)
}

// pm25Points maps PM2.5 to its tier points: 0 at the WHO guideline,
// 5-point steps through the tiers, flat 30 past 150.
func pm25Points(pm25 float64) float64 {
	switch {
	case pm25 <= 12:
		return 0
	case pm25 <= 25:
		return 5
	case pm25 <= 35:
		return 10
	case pm25 <= 55:
		return 15
	case pm25 <= 90:
		return 20
	case pm25 <= 150:
		return 25
	default:
		return 30
	}
}

// exposureScore sums the environment- and behavior-driven contributions and
// applies protective reductions, clamped to [0,50].
func (s ComprehensiveStrategy) exposureScore(r EnvironmentalReading, b BehavioralInput, p RiskProfile, bd *breakdown) float64 {
	var score float64

	if pts := pm25Points(r.PM25); pts > 0 {
		bd.add("pm25", pts, fmt.Sprintf("PM2.5 at %.1f µg/m³", r.PM25))
		score += pts
	}

	if pts := secondaryPollutantPoints(r); pts > 0 {
		bd.add("pollutants", pts, fmt.Sprintf("secondary pollutants (PM10 %.0f, O3 %.0f, NO2 %.0f, CO %.1f, SO2 %.0f)", r.PM10, r.O3, r.NO2, r.CO, r.SO2))
		score += pts
	}

	if pts := weatherPoints(r); pts > 0 {
		bd.add("weather", pts, "temperature/humidity extremes")
		score += pts
	}

	if pts := outdoorTimePoints(b.OutdoorMinutes); pts > 0 {
		bd.add("outdoor_time", pts, fmt.Sprintf("%d minutes outdoors", b.OutdoorMinutes))
		score += pts
	}

	// Activity intensity only matters while actually outdoors in
	// meaningfully polluted air.
	if !b.IsIndoor && r.PM25 > 25 {
		if pts := activityPoints(b.ActivityLevel); pts > 0 {
			bd.add("activity", pts, fmt.Sprintf("%s activity outdoors with PM2.5 %.1f", b.ActivityLevel, r.PM25))
			score += pts
		}
	}

	if pts, desc := locationPoints(r); pts > 0 {
		bd.add("location", pts, desc)
		score += pts
	}

	// Protective reductions, recorded as negative contributions.
	if b.IsIndoor {
		reduction := 6.0
		desc := "indoors"
		if p.HasAirPurifier {
			reduction = 12
			desc = "indoors with air purifier"
		}
		bd.add("protection:indoor", -reduction, desc)
		score -= reduction
	} else if mask := b.EffectiveMask(); mask != MaskNone {
		base := maskBase(mask)
		factor := fitFactor(b.MaskFit)
		reduction := base * factor
		bd.add("protection:mask", -reduction, fmt.Sprintf("%s mask, %s fit", mask, fitLabel(b.MaskFit)))
		score -= reduction
	}

	return clamp(score, 0, componentCap)
}

func secondaryPollutantPoints(r EnvironmentalReading) float64 {
	var pts float64
	switch {
	case r.PM10 > 150:
		pts += 3
	case r.PM10 > 80:
		pts += 2
	case r.PM10 > 50:
		pts += 1
	}
	switch {
	case r.O3 > 180:
		pts += 3
	case r.O3 > 120:
		pts += 2
	case r.O3 > 70:
		pts += 1
	}
	switch {
	case r.NO2 > 200:
		pts += 2
	case r.NO2 > 100:
		pts += 1
	}
	switch {
	case r.CO > 10:
		pts += 2
	case r.CO > 4:
		pts += 1
	}
	if r.SO2 > 75 {
		pts += 1
	}
	return clamp(pts, 0, secondaryPollCap)
}

func weatherPoints(r EnvironmentalReading) float64 {
	var pts float64
	if r.TemperatureC != nil {
		t := *r.TemperatureC
		switch {
		case t >= 35 || t <= 0:
			pts += 3
		case t >= 30:
			pts += 2
		}
	}
	if r.HumidityPct != nil {
		h := *r.HumidityPct
		if h >= 80 || h <= 20 {
			pts += 2
		}
	}
	return clamp(pts, 0, weatherCap)
}

func outdoorTimePoints(minutes int) float64 {
	switch {
	case minutes <= 15:
		return 0
	case minutes <= 30:
		return 3
	case minutes <= 60:
		return 6
	default:
		// 61-120 and beyond both hit the duration cap.
		return outdoorTimeCap
	}
}

func activityPoints(level ActivityLevel) float64 {
	switch level {
	case ActivityWalking:
		return 3
	case ActivityExercising:
		return 6
	case ActivityIntense:
		return activityCap
	default:
		return 0
	}
}

// locationPoints scores location risk: the hazardous AQI zone plus fixed
// bumps for construction and main-road proximity. The orange and red zones
// contribute nothing here because the PM2.5 tiers already carry that
// pollutant signal.
func locationPoints(r EnvironmentalReading) (float64, string) {
	var pts float64
	zone := aqizone.FromAQI(r.AQI)
	desc := fmt.Sprintf("AQI zone %s", zone)
	if zone.Rank() > aqizone.Red.Rank() {
		pts += 3
	}
	if r.NearConstruction {
		pts += 2
		desc += ", near construction"
	}
	if r.NearMainRoad {
		pts += 2
		desc += ", near main road"
	}
	return clamp(pts, 0, locationCap), desc
}

func maskBase(m MaskType) float64 {
	switch m {
	case MaskN95:
		return 10
	case MaskSurgical:
		return 5
	case MaskCloth:
		return 2
	default:
		return 0
	}
}

func fitFactor(f MaskFit) float64 {
	switch f {
	case FitModerate:
		return 0.7
	case FitPoor:
		return 0.3
	default:
		return 1.0
	}
}

func fitLabel(f MaskFit) string {
	if f == "" {
		return string(FitGood)
	}
	return string(f)
}

func levelFor100(score float64) Level {
	switch {
	case score <= 25:
		return LevelLow
	case score <= 50:
		return LevelModerate
	case score <= 75:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}
