package alert

import (
	"fmt"
	"math"
	"sync"
)

// GeofenceZone is a named circular region with enter/exit notification
// flags. Zones are process-local; they do not persist remotely.
type GeofenceZone struct {
	Name          string
	CenterLat     float64
	CenterLon     float64
	RadiusM       float64
	NotifyOnEnter bool
	NotifyOnExit  bool
}

// Contains reports whether the point lies inside the zone.
func (z GeofenceZone) Contains(lat, lon float64) bool {
	return haversineM(z.CenterLat, z.CenterLon, lat, lon) <= z.RadiusM
}

// GeofenceWatcher tracks zone membership across position updates and
// reports enter/exit transitions.
type GeofenceWatcher struct {
	mu     sync.Mutex
	zones  []GeofenceZone
	inside map[string]bool
}

// NewGeofenceWatcher creates a watcher over the given zones.
func NewGeofenceWatcher(zones []GeofenceZone) *GeofenceWatcher {
	return &GeofenceWatcher{
		zones:  zones,
		inside: make(map[string]bool),
	}
}

// Update evaluates the new position and returns a notification for each
// zone transition whose flag is set.
func (w *GeofenceWatcher) Update(lat, lon float64) []Notification {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []Notification
	for _, zone := range w.zones {
		now := zone.Contains(lat, lon)
		was := w.inside[zone.Name]
		w.inside[zone.Name] = now

		switch {
		case now && !was && zone.NotifyOnEnter:
			out = append(out, Notification{
				Title:    fmt.Sprintf("Entered %s", zone.Name),
				Body:     fmt.Sprintf("You entered the %s zone; check local air quality.", zone.Name),
				Severity: SeverityLow,
			})
		case !now && was && zone.NotifyOnExit:
			out = append(out, Notification{
				Title:    fmt.Sprintf("Left %s", zone.Name),
				Body:     fmt.Sprintf("You left the %s zone.", zone.Name),
				Severity: SeverityLow,
			})
		}
	}
	return out
}

// Reset forgets all zone membership.
func (w *GeofenceWatcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inside = make(map[string]bool)
}

const earthRadiusM = 6371000

// haversineM returns the great-circle distance between two points in
// meters.
func haversineM(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
