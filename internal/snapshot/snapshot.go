// Package snapshot aggregates one refresh cycle's classified alerts
// into per-line snapshots.
package snapshot

import (
	"math"

	"github.com/michaelpyon/subway-shame/internal/classify"
	"github.com/michaelpyon/subway-shame/internal/lines"
)

// DirectionSlot holds the score and category breakdown attributed to
// one direction of a line.
type DirectionSlot struct {
	Score     int            `json:"score"`
	Breakdown map[string]int `json:"breakdown"`
}

// Line is one line's aggregate for a single cycle. Breakdown maps hold
// entries only for categories with non-zero accumulated score.
type Line struct {
	Score       int                                   `json:"score"`
	Alerts      []classify.Classified                 `json:"alerts"`
	Breakdown   map[string]int                        `json:"breakdown"`
	ByDirection map[classify.Direction]*DirectionSlot `json:"by_direction"`
}

// EmptyLine returns an all-zero snapshot for a line no alert touched.
func EmptyLine() Line {
	return Line{
		Alerts:    []classify.Classified{},
		Breakdown: map[string]int{},
		ByDirection: map[classify.Direction]*DirectionSlot{
			classify.DirectionUptown:   {Breakdown: map[string]int{}},
			classify.DirectionDowntown: {Breakdown: map[string]int{}},
		},
	}
}

// dirAgg accumulates direction sub-scores as floats so a "both" alert
// splits exactly in half; rounding to integers (to nearest even on a
// half, so an odd split of 5 yields 2/2 and 15 yields 8/8) happens
// once in Build, never on the top-level line score.
type dirAgg struct {
	score     float64
	breakdown map[string]float64
}

type lineAgg struct {
	score     int
	alerts    []classify.Classified
	breakdown map[string]int
	dirs      map[classify.Direction]*dirAgg
}

// Aggregator builds one cycle's per-line snapshots.
type Aggregator struct {
	byLine map[string]*lineAgg
}

func NewAggregator() *Aggregator {
	return &Aggregator{byLine: make(map[string]*lineAgg)}
}

// Add applies one classified alert to its affected lines. Affected ids
// must already be normalized; duplicates in the slice count once. An
// alert whose exact header text is already recorded for a line this
// cycle is not appended to that line's alert list again, but each
// distinct alert contributes its score.
func (a *Aggregator) Add(alert classify.Classified, affected []string) {
	seen := make(map[string]struct{}, len(affected))
	for _, id := range affected {
		if !lines.IsTracked(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		la := a.byLine[id]
		if la == nil {
			la = &lineAgg{
				breakdown: make(map[string]int),
				dirs: map[classify.Direction]*dirAgg{
					classify.DirectionUptown:   {breakdown: make(map[string]float64)},
					classify.DirectionDowntown: {breakdown: make(map[string]float64)},
				},
			}
			a.byLine[id] = la
		}

		la.score += alert.Score

		if !hasText(la.alerts, alert.Text) {
			la.alerts = append(la.alerts, alert)
		}

		la.breakdown[alert.Category] += alert.Score

		if alert.Direction == classify.DirectionBoth {
			half := float64(alert.Score) / 2
			for _, d := range []classify.Direction{classify.DirectionUptown, classify.DirectionDowntown} {
				la.dirs[d].score += half
				la.dirs[d].breakdown[alert.Category] += half
			}
		} else {
			da := la.dirs[alert.Direction]
			da.score += float64(alert.Score)
			da.breakdown[alert.Category] += float64(alert.Score)
		}
	}
}

// Build finalizes the cycle into one snapshot per tracked line, with
// direction sub-scores rounded to integers. Lines no alert touched get
// an all-zero snapshot.
func (a *Aggregator) Build() map[string]Line {
	out := make(map[string]Line, len(lines.Tracked))
	for _, id := range lines.Tracked {
		la := a.byLine[id]
		if la == nil {
			out[id] = EmptyLine()
			continue
		}
		line := Line{
			Score:       la.score,
			Alerts:      la.alerts,
			Breakdown:   la.breakdown,
			ByDirection: make(map[classify.Direction]*DirectionSlot, 2),
		}
		for d, da := range la.dirs {
			slot := &DirectionSlot{
				Score:     int(math.RoundToEven(da.score)),
				Breakdown: make(map[string]int, len(da.breakdown)),
			}
			for cat, v := range da.breakdown {
				slot.Breakdown[cat] = int(math.RoundToEven(v))
			}
			line.ByDirection[d] = slot
		}
		out[id] = line
	}
	return out
}

func hasText(alerts []classify.Classified, text string) bool {
	for _, a := range alerts {
		if a.Text == text {
			return true
		}
	}
	return false
}
