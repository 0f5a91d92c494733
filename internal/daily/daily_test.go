package daily

import (
	"testing"
	"time"

	"github.com/michaelpyon/subway-shame/internal/classify"
	"github.com/michaelpyon/subway-shame/internal/snapshot"
)

// noon is safely inside a single local day at UTC-5.
var noon = time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

func cycleSnapshot(line string, score int, alerts ...classify.Classified) map[string]snapshot.Line {
	if alerts == nil {
		alerts = []classify.Classified{}
	}
	return map[string]snapshot.Line{
		line: {
			Score:     score,
			Alerts:    alerts,
			Breakdown: map[string]int{"Delays": score},
			ByDirection: map[classify.Direction]*snapshot.DirectionSlot{
				classify.DirectionUptown:   {Score: score / 2, Breakdown: map[string]int{"Delays": score / 2}},
				classify.DirectionDowntown: {Score: score / 2, Breakdown: map[string]int{"Delays": score / 2}},
			},
		},
	}
}

func TestAccumulate_AddsAcrossCycles(t *testing.T) {
	acc := New()
	acc.Accumulate(noon, cycleSnapshot("A", 30))
	acc.Accumulate(noon.Add(time.Minute), cycleSnapshot("A", 20))

	st := acc.Line("A")
	if st.DailyScore != 50 {
		t.Errorf("daily score = %d, want 50", st.DailyScore)
	}
	if st.Breakdown["Delays"] != 50 {
		t.Errorf("breakdown[Delays] = %d, want 50", st.Breakdown["Delays"])
	}
	if st.ByDirection[classify.DirectionUptown].Score != 25 {
		t.Errorf("uptown = %d, want 25", st.ByDirection[classify.DirectionUptown].Score)
	}
}

func TestAccumulate_RolloverResetsOnce(t *testing.T) {
	acc := New()
	acc.Accumulate(noon, cycleSnapshot("A", 30))

	nextDay := noon.Add(24 * time.Hour)
	acc.Accumulate(nextDay, cycleSnapshot("A", 10))
	if got := acc.Line("A").DailyScore; got != 10 {
		t.Errorf("after rollover daily score = %d, want 10", got)
	}

	// Same-day calls must not reset again.
	acc.Accumulate(nextDay.Add(time.Minute), cycleSnapshot("A", 10))
	if got := acc.Line("A").DailyScore; got != 20 {
		t.Errorf("same-day accumulate = %d, want 20", got)
	}
	if acc.Day() != "2026-03-11" {
		t.Errorf("day key = %q, want 2026-03-11", acc.Day())
	}
}

func TestAccumulate_PeakAlertsStrictlyGreaterOnly(t *testing.T) {
	acc := New()

	first := []classify.Classified{
		{Text: "first a", Category: "Delays", Score: 30, Direction: classify.DirectionBoth},
		{Text: "first b", Category: "Delays", Score: 30, Direction: classify.DirectionBoth},
	}
	acc.Accumulate(noon, cycleSnapshot("A", 60, first...))
	if got := acc.Line("A").PeakAlerts; len(got) != 2 || got[0].Text != "first a" {
		t.Fatalf("peak alerts not recorded: %+v", got)
	}

	// A tie in count keeps the existing set.
	tied := []classify.Classified{
		{Text: "second a", Category: "Delays", Score: 30, Direction: classify.DirectionBoth},
		{Text: "second b", Category: "Delays", Score: 30, Direction: classify.DirectionBoth},
	}
	acc.Accumulate(noon.Add(time.Minute), cycleSnapshot("A", 60, tied...))
	if got := acc.Line("A").PeakAlerts; got[0].Text != "first a" {
		t.Errorf("tie replaced peak alerts, want existing kept: %+v", got)
	}

	// Strictly more alerts replaces.
	bigger := append(tied, classify.Classified{Text: "second c", Category: "Delays", Score: 30, Direction: classify.DirectionBoth})
	acc.Accumulate(noon.Add(2*time.Minute), cycleSnapshot("A", 90, bigger...))
	if got := acc.Line("A").PeakAlerts; len(got) != 3 || got[0].Text != "second a" {
		t.Errorf("larger set should replace peak alerts: %+v", got)
	}
}

func TestLine_UnknownBeforeFirstCycle(t *testing.T) {
	acc := New()
	st := acc.Line("A")
	if st.DailyScore != 0 || st.Breakdown == nil || st.PeakAlerts == nil {
		t.Errorf("pre-cycle line state not all-zero: %+v", st)
	}
}

func TestRestore_Normalizes(t *testing.T) {
	acc := New()
	acc.Restore("2026-03-10", map[string]*LineState{
		"A": {DailyScore: 40},
	})
	st := acc.Line("A")
	if st.DailyScore != 40 {
		t.Errorf("daily score = %d, want 40", st.DailyScore)
	}
	if st.Breakdown == nil || st.ByDirection[classify.DirectionUptown] == nil {
		t.Error("restore should fill in omitted maps")
	}
	if acc.Line("B").DailyScore != 0 {
		t.Error("lines absent from the document should start at zero")
	}
}
