package exposure

import (
	"fmt"
	"sort"
)

// Rollup is an aggregate over one bucket of exposure records. Rollups are
// pure functions over records already read from the store; they never touch
// the network.
type Rollup struct {
	Bucket string

	Records        int
	AvgPM25        float64
	MaxPM25        float64
	AvgPHRI        float64
	MaxPHRI        float64
	OutdoorMinutes int
	Symptoms       []string
}

// DailyRollups groups records by DayKey.
func DailyRollups(recs []Record) []Rollup {
	return rollupBy(recs, func(r Record) string { return r.DayKey })
}

// WeeklyRollups groups records by ISO week (YYYY-Www).
func WeeklyRollups(recs []Record) []Rollup {
	return rollupBy(recs, func(r Record) string {
		year, week := r.CapturedAt.ISOWeek()
		return isoWeekKey(year, week)
	})
}

// HourlyRollups groups records by hour of capture (YYYY-MM-DDTHH).
func HourlyRollups(recs []Record) []Rollup {
	return rollupBy(recs, func(r Record) string {
		return r.CapturedAt.Format("2006-01-02T15")
	})
}

func rollupBy(recs []Record, key func(Record) string) []Rollup {
	buckets := make(map[string][]Record)
	for _, r := range recs {
		k := key(r)
		buckets[k] = append(buckets[k], r)
	}

	out := make([]Rollup, 0, len(buckets))
	for k, group := range buckets {
		out = append(out, aggregate(k, group))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket < out[j].Bucket })
	return out
}

func aggregate(bucket string, recs []Record) Rollup {
	r := Rollup{Bucket: bucket, Records: len(recs)}

	symptomSet := make(map[string]bool)
	var sumPM25, sumPHRI float64
	for _, rec := range recs {
		sumPM25 += rec.PM25
		sumPHRI += rec.PHRI
		if rec.PM25 > r.MaxPM25 {
			r.MaxPM25 = rec.PM25
		}
		if rec.PHRI > r.MaxPHRI {
			r.MaxPHRI = rec.PHRI
		}
		r.OutdoorMinutes += rec.OutdoorMinutes
		for _, s := range rec.Symptoms {
			symptomSet[s] = true
		}
	}
	r.AvgPM25 = sumPM25 / float64(len(recs))
	r.AvgPHRI = sumPHRI / float64(len(recs))

	for s := range symptomSet {
		r.Symptoms = append(r.Symptoms, s)
	}
	sort.Strings(r.Symptoms)
	return r
}

// isoWeekKey formats a two-digit week so buckets sort lexically.
func isoWeekKey(year, week int) string {
	return fmt.Sprintf("%04d-W%02d", year, week)
}
