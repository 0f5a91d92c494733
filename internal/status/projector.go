package status

import (
	"sort"
	"time"

	"github.com/michaelpyon/subway-shame/internal/classify"
	"github.com/michaelpyon/subway-shame/internal/daily"
	"github.com/michaelpyon/subway-shame/internal/lines"
	"github.com/michaelpyon/subway-shame/internal/localday"
	"github.com/michaelpyon/subway-shame/internal/snapshot"
	"github.com/michaelpyon/subway-shame/internal/timeseries"
)

// statusLabels maps a category to the label shown for a line whose
// worst current alert is in that category.
var statusLabels = map[string]string{
	"No Service":      "Suspended",
	"Delays":          "Delays",
	"Slow Speeds":     "Slow Speeds",
	"Skip Stop":       "Skip Stop",
	"Rerouted":        "Rerouted",
	"Runs Local":      "Runs Local",
	"Reduced Freq":    "Fewer Trains",
	"Platform Change": "Platform Change",
	"Other":           "Issues",
}

// LineStatus is one line's entry in the API response. Breakdown and
// ByDirection carry daily totals; the Live variants carry the current
// cycle.
type LineStatus struct {
	ID              string                                         `json:"id"`
	Score           int                                            `json:"score"`
	DailyScore      int                                            `json:"daily_score"`
	Status          string                                         `json:"status"`
	Alerts          []classify.Classified                          `json:"alerts"`
	PeakAlerts      []classify.Classified                          `json:"peak_alerts"`
	Breakdown       map[string]int                                 `json:"breakdown"`
	LiveBreakdown   map[string]int                                 `json:"live_breakdown"`
	ByDirection     map[classify.Direction]*snapshot.DirectionSlot `json:"by_direction"`
	LiveByDirection map[classify.Direction]*snapshot.DirectionSlot `json:"live_by_direction"`
	TripCount       int                                            `json:"trip_count"`
}

// Response is the full status payload served to clients.
type Response struct {
	Timestamp  string             `json:"timestamp"`
	Date       string             `json:"date"`
	Winner     *LineStatus        `json:"winner"`
	Podium     []*LineStatus      `json:"podium"`
	Lines      []*LineStatus      `json:"lines"`
	Timeseries []timeseries.Point `json:"timeseries"`
}

// statusLabel derives a line's label from its current-cycle alerts:
// the alert whose category carries the highest table score wins, ties
// broken by input order. No alerts means "Good Service".
func statusLabel(alerts []classify.Classified) string {
	if len(alerts) == 0 {
		return "Good Service"
	}
	worst := alerts[0]
	for _, a := range alerts[1:] {
		if classify.CategoryScores[a.Category] > classify.CategoryScores[worst.Category] {
			worst = a
		}
	}
	if label, ok := statusLabels[worst.Category]; ok {
		return label
	}
	return "Issues"
}

// project composes the response from the cycle snapshot, the daily
// accumulator, the trip counts, and the time series.
func project(now time.Time, snap map[string]snapshot.Line, tripCounts map[string]int, acc *daily.Accumulator, points []timeseries.Point) *Response {
	all := make([]*LineStatus, 0, len(lines.Tracked))
	for _, id := range lines.Tracked {
		sl, ok := snap[id]
		if !ok {
			sl = snapshot.EmptyLine()
		}
		// Snapshot maps are never touched again after the cycle is
		// built, but the accumulator keeps mutating its state on later
		// cycles while old responses may still be getting encoded, so
		// the daily side is copied.
		dl := acc.Line(id)
		all = append(all, &LineStatus{
			ID:              id,
			Score:           sl.Score,
			DailyScore:      dl.DailyScore,
			Status:          statusLabel(sl.Alerts),
			Alerts:          sl.Alerts,
			PeakAlerts:      append([]classify.Classified{}, dl.PeakAlerts...),
			Breakdown:       copyBreakdown(dl.Breakdown),
			LiveBreakdown:   sl.Breakdown,
			ByDirection:     copyDirections(dl.ByDirection),
			LiveByDirection: sl.ByDirection,
			TripCount:       tripCounts[id],
		})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].DailyScore != all[j].DailyScore {
			return all[i].DailyScore > all[j].DailyScore
		}
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].ID < all[j].ID
	})

	var winner *LineStatus
	if len(all) > 0 && all[0].DailyScore > 0 {
		winner = all[0]
	}

	return &Response{
		Timestamp:  now.UTC().Format(time.RFC3339),
		Date:       localday.HumanDate(now),
		Winner:     winner,
		Podium:     podium(all),
		Lines:      all,
		Timeseries: append([]timeseries.Point{}, points...),
	}
}

func copyBreakdown(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyDirections(src map[classify.Direction]*snapshot.DirectionSlot) map[classify.Direction]*snapshot.DirectionSlot {
	dst := make(map[classify.Direction]*snapshot.DirectionSlot, len(src))
	for d, slot := range src {
		dst[d] = &snapshot.DirectionSlot{
			Score:     slot.Score,
			Breakdown: copyBreakdown(slot.Breakdown),
		}
	}
	return dst
}

// podium walks the sorted lines with positive daily score and admits
// every line whose place is at most 3. A line's place is the count of
// lines already admitted plus one, shared across a run of equal
// scores, so a tie for first is followed by place 3, not place 2.
func podium(sorted []*LineStatus) []*LineStatus {
	result := []*LineStatus{}
	place := 0
	var prevScore *int
	for _, l := range sorted {
		if l.DailyScore <= 0 {
			continue
		}
		if prevScore == nil || l.DailyScore != *prevScore {
			place = len(result) + 1
			score := l.DailyScore
			prevScore = &score
		}
		if place > 3 {
			break
		}
		result = append(result, l)
	}
	return result
}
