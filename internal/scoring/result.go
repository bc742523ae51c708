package scoring

// Scale identifies which numeric scale a result was produced on. The two
// scales must never be mixed within one deployment.
type Scale string

// Supported score scales.
const (
	Scale10  Scale = "0-10"
	Scale100 Scale = "0-100"
)

// Level is the qualitative band a score falls into. The same four bands map
// onto both scales; Urgency gives the notification-facing label.
type Level string

// Risk levels, ascending.
const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

// Urgency returns the notification-facing label for the level.
func (l Level) Urgency() string {
	switch l {
	case LevelLow:
		return "info"
	case LevelModerate:
		return "warning"
	case LevelHigh:
		return "urgent"
	case LevelVeryHigh:
		return "emergency"
	}
	return "info"
}

// Contribution is one line of the score breakdown: a factor, the points it
// added (negative for protective reductions), and a human-readable
// description including the raw value that triggered it.
type Contribution struct {
	Factor      string
	Value       float64
	Description string
}

// PHRIResult is the outcome of one scoring call. It is immutable and fully
// recomputable from its inputs: identical inputs produce an identical
// result, including breakdown order.
type PHRIResult struct {
	Score float64
	Scale Scale
	Level Level

	// Breakdown lists every contribution in the order it was computed.
	Breakdown []Contribution

	// Recommendations are ordered by fixed priority: per-level base lines
	// first, situational lines after.
	Recommendations []string
}

type breakdown struct {
	entries []Contribution
	total   float64
}

// add records a contribution and accumulates it into the running total.
func (b *breakdown) add(factor string, value float64, desc string) {
	b.entries = append(b.entries, Contribution{Factor: factor, Value: value, Description: desc})
	b.total += value
}

// note records a zero-value breakdown line, used for clamps and for
// informational entries that do not move the score.
func (b *breakdown) note(factor, desc string) {
	b.entries = append(b.entries, Contribution{Factor: factor, Description: desc})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
