package snapshot

import (
	"testing"

	"github.com/michaelpyon/subway-shame/internal/classify"
)

func delayAlert(text string, dir classify.Direction) classify.Classified {
	return classify.Classified{Text: text, Category: "Delays", Score: 30, Direction: dir}
}

func TestAggregator_BothDirectionSplitsEvenly(t *testing.T) {
	agg := NewAggregator()
	agg.Add(delayAlert("A trains are running with delays", classify.DirectionBoth), []string{"A"})

	line := agg.Build()["A"]
	if line.Score != 30 {
		t.Errorf("score = %d, want 30", line.Score)
	}
	if got := line.ByDirection[classify.DirectionUptown].Score; got != 15 {
		t.Errorf("uptown score = %d, want 15", got)
	}
	if got := line.ByDirection[classify.DirectionDowntown].Score; got != 15 {
		t.Errorf("downtown score = %d, want 15", got)
	}
	if got := line.ByDirection[classify.DirectionUptown].Breakdown["Delays"]; got != 15 {
		t.Errorf("uptown Delays breakdown = %d, want 15", got)
	}
}

func TestAggregator_HalfSplitsRoundToEven(t *testing.T) {
	cases := []struct {
		category string
		score    int
		want     int
	}{
		{"Planned Work", 5, 2},
		{"Skip Stop", 15, 8},
		{"Other", 1, 0},
	}
	for _, tc := range cases {
		agg := NewAggregator()
		agg.Add(classify.Classified{
			Text:      tc.category + " on the A",
			Category:  tc.category,
			Score:     tc.score,
			Direction: classify.DirectionBoth,
		}, []string{"A"})

		line := agg.Build()["A"]
		if line.Score != tc.score {
			t.Errorf("%s: line score = %d, want %d", tc.category, line.Score, tc.score)
		}
		for _, d := range []classify.Direction{classify.DirectionUptown, classify.DirectionDowntown} {
			if got := line.ByDirection[d].Score; got != tc.want {
				t.Errorf("%s: %s score = %d, want %d", tc.category, d, got, tc.want)
			}
			if got := line.ByDirection[d].Breakdown[tc.category]; got != tc.want {
				t.Errorf("%s: %s breakdown = %d, want %d", tc.category, d, got, tc.want)
			}
		}
	}
}

func TestAggregator_SingleDirection(t *testing.T) {
	agg := NewAggregator()
	agg.Add(delayAlert("Uptown A trains are running with delays", classify.DirectionUptown), []string{"A"})

	line := agg.Build()["A"]
	if got := line.ByDirection[classify.DirectionUptown].Score; got != 30 {
		t.Errorf("uptown score = %d, want 30", got)
	}
	if got := line.ByDirection[classify.DirectionDowntown].Score; got != 0 {
		t.Errorf("downtown score = %d, want 0", got)
	}
}

func TestAggregator_DuplicateAffectedLineCountsOnce(t *testing.T) {
	agg := NewAggregator()
	agg.Add(delayAlert("A trains are running with delays", classify.DirectionBoth), []string{"A", "A"})

	line := agg.Build()["A"]
	if line.Score != 30 {
		t.Errorf("score = %d, want 30 (duplicate informed entity must count once)", line.Score)
	}
	if len(line.Alerts) != 1 {
		t.Errorf("alerts = %d, want 1", len(line.Alerts))
	}
}

func TestAggregator_AlertListDedupedByText(t *testing.T) {
	agg := NewAggregator()
	a := delayAlert("A trains are running with delays", classify.DirectionBoth)
	agg.Add(a, []string{"A"})
	agg.Add(a, []string{"A"})
	agg.Add(delayAlert("Uptown A trains are held at Jay St", classify.DirectionUptown), []string{"A"})

	line := agg.Build()["A"]
	if len(line.Alerts) != 2 {
		t.Errorf("alerts = %d, want 2 distinct texts", len(line.Alerts))
	}
	if line.Score != 90 {
		t.Errorf("score = %d, want 90", line.Score)
	}
}

func TestAggregator_UntouchedLinesAreZero(t *testing.T) {
	agg := NewAggregator()
	agg.Add(delayAlert("A trains are running with delays", classify.DirectionBoth), []string{"A"})

	snap := agg.Build()
	if len(snap) != 24 {
		t.Errorf("snapshot has %d lines, want 24", len(snap))
	}
	b := snap["B"]
	if b.Score != 0 || len(b.Alerts) != 0 || len(b.Breakdown) != 0 {
		t.Errorf("untouched line not all-zero: %+v", b)
	}
	if b.ByDirection[classify.DirectionUptown] == nil || b.ByDirection[classify.DirectionUptown].Score != 0 {
		t.Error("untouched line should have zeroed direction slots")
	}
}

func TestAggregator_BreakdownHoldsOnlyNonZeroCategories(t *testing.T) {
	agg := NewAggregator()
	agg.Add(delayAlert("A trains are running with delays", classify.DirectionBoth), []string{"A"})

	line := agg.Build()["A"]
	if len(line.Breakdown) != 1 {
		t.Errorf("breakdown keys = %d, want 1", len(line.Breakdown))
	}
	if line.Breakdown["Delays"] != 30 {
		t.Errorf("breakdown[Delays] = %d, want 30", line.Breakdown["Delays"])
	}
}

func TestAggregator_UntrackedLinesIgnored(t *testing.T) {
	agg := NewAggregator()
	agg.Add(delayAlert("delays", classify.DirectionBoth), []string{"ZZ"})

	for id, line := range agg.Build() {
		if line.Score != 0 {
			t.Errorf("line %s scored from untracked route", id)
		}
	}
}
