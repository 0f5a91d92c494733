// Package daily accumulates cycle snapshots into running totals for
// the current local day.
package daily

import (
	"time"

	"github.com/michaelpyon/subway-shame/internal/classify"
	"github.com/michaelpyon/subway-shame/internal/lines"
	"github.com/michaelpyon/subway-shame/internal/localday"
	"github.com/michaelpyon/subway-shame/internal/snapshot"
)

// LineState is one line's running totals for the local day.
// PeakAlerts is the largest alert set seen for the line so far today,
// replaced only when a new cycle carries strictly more alerts.
type LineState struct {
	DailyScore  int                                            `json:"daily_score"`
	Breakdown   map[string]int                                 `json:"breakdown"`
	ByDirection map[classify.Direction]*snapshot.DirectionSlot `json:"by_direction"`
	PeakAlerts  []classify.Classified                          `json:"peak_alerts"`
}

func emptyLineState() *LineState {
	return &LineState{
		Breakdown: map[string]int{},
		ByDirection: map[classify.Direction]*snapshot.DirectionSlot{
			classify.DirectionUptown:   {Breakdown: map[string]int{}},
			classify.DirectionDowntown: {Breakdown: map[string]int{}},
		},
		PeakAlerts: []classify.Classified{},
	}
}

// Accumulator holds the per-line daily totals. It is not safe for
// concurrent use; the engine serializes mutation.
type Accumulator struct {
	day   string
	lines map[string]*LineState
}

func New() *Accumulator {
	return &Accumulator{lines: make(map[string]*LineState)}
}

// Accumulate merges one cycle snapshot into the daily totals. If the
// local day has rolled over since the last call, every line is reset
// to zero first; calling again on the same day never resets twice.
func (a *Accumulator) Accumulate(now time.Time, snap map[string]snapshot.Line) {
	today := localday.Key(now)
	if today != a.day {
		a.reset(today)
	}

	for _, id := range lines.Tracked {
		sl, ok := snap[id]
		if !ok {
			continue
		}
		st := a.lines[id]
		st.DailyScore += sl.Score

		for cat, pts := range sl.Breakdown {
			st.Breakdown[cat] += pts
		}

		for _, d := range []classify.Direction{classify.DirectionUptown, classify.DirectionDowntown} {
			src := sl.ByDirection[d]
			if src == nil {
				continue
			}
			dst := st.ByDirection[d]
			dst.Score += src.Score
			for cat, pts := range src.Breakdown {
				dst.Breakdown[cat] += pts
			}
		}

		if len(sl.Alerts) > len(st.PeakAlerts) {
			st.PeakAlerts = append([]classify.Classified(nil), sl.Alerts...)
		}
	}
}

func (a *Accumulator) reset(day string) {
	a.day = day
	a.lines = make(map[string]*LineState, len(lines.Tracked))
	for _, id := range lines.Tracked {
		a.lines[id] = emptyLineState()
	}
}

// Line returns the daily state for one line. Before the first
// accumulation of the day it returns an all-zero state.
func (a *Accumulator) Line(id string) *LineState {
	if st, ok := a.lines[id]; ok {
		return st
	}
	return emptyLineState()
}

// Day returns the day key the totals belong to; empty before the first
// accumulation.
func (a *Accumulator) Day() string {
	return a.day
}

// Export returns the persistable view of the accumulator.
func (a *Accumulator) Export() (string, map[string]*LineState) {
	return a.day, a.lines
}

// Restore replaces the accumulator's contents, used at startup when
// the persisted day matches the current local day.
func (a *Accumulator) Restore(day string, states map[string]*LineState) {
	a.reset(day)
	for id, st := range states {
		if !lines.IsTracked(id) || st == nil {
			continue
		}
		normalize(st)
		a.lines[id] = st
	}
}

// normalize fills in maps a persisted document may have omitted.
func normalize(st *LineState) {
	if st.Breakdown == nil {
		st.Breakdown = map[string]int{}
	}
	if st.PeakAlerts == nil {
		st.PeakAlerts = []classify.Classified{}
	}
	if st.ByDirection == nil {
		st.ByDirection = map[classify.Direction]*snapshot.DirectionSlot{}
	}
	for _, d := range []classify.Direction{classify.DirectionUptown, classify.DirectionDowntown} {
		if st.ByDirection[d] == nil {
			st.ByDirection[d] = &snapshot.DirectionSlot{Breakdown: map[string]int{}}
		} else if st.ByDirection[d].Breakdown == nil {
			st.ByDirection[d].Breakdown = map[string]int{}
		}
	}
}
