// Package aqizone buckets an Air Quality Index value into the coarse
// color-coded zones used for display and location-risk scoring.
package aqizone

// Zone is a coarse AQI bucket.
type Zone string

// Zones in ascending severity.
const (
	Green  Zone = "green"
	Yellow Zone = "yellow"
	Orange Zone = "orange"
	Red    Zone = "red"
	Purple Zone = "purple"
)

// FromAQI maps an AQI value to its zone. Negative values map to Green.
func FromAQI(aqi int) Zone {
	switch {
	case aqi <= 50:
		return Green
	case aqi <= 100:
		return Yellow
	case aqi <= 150:
		return Orange
	case aqi <= 200:
		return Red
	default:
		return Purple
	}
}

// Rank returns the severity rank of the zone, Green being 0. Unknown zones
// rank as Green.
func (z Zone) Rank() int {
	switch z {
	case Yellow:
		return 1
	case Orange:
		return 2
	case Red:
		return 3
	case Purple:
		return 4
	default:
		return 0
	}
}
