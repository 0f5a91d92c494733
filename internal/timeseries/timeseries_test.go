package timeseries

import (
	"testing"
	"time"

	"github.com/michaelpyon/subway-shame/internal/snapshot"
)

func scoredSnapshot(scores map[string]int) map[string]snapshot.Line {
	snap := make(map[string]snapshot.Line, len(scores))
	for id, s := range scores {
		snap[id] = snapshot.Line{Score: s}
	}
	return snap
}

func TestRecord_OnePointPerBucket(t *testing.T) {
	rec := New()
	base := time.Date(2026, 3, 10, 17, 2, 0, 0, time.UTC) // 12:02 local

	rec.Record(base, scoredSnapshot(map[string]int{"A": 30}))
	rec.Record(base.Add(5*time.Minute), scoredSnapshot(map[string]int{"A": 50}))

	points := rec.Points()
	if len(points) != 1 {
		t.Fatalf("points = %d, want 1 (same bucket)", len(points))
	}
	if points[0].Time != "12:00" {
		t.Errorf("bucket = %q, want 12:00", points[0].Time)
	}
	if points[0].Scores["A"] != 30 {
		t.Errorf("second call in same bucket must be a no-op, got %d", points[0].Scores["A"])
	}

	rec.Record(base.Add(15*time.Minute), scoredSnapshot(map[string]int{"A": 50}))
	points = rec.Points()
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2 after next bucket", len(points))
	}
	if points[1].Time != "12:15" {
		t.Errorf("second bucket = %q, want 12:15", points[1].Time)
	}
}

func TestRecord_OnlyPositiveScores(t *testing.T) {
	rec := New()
	base := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	rec.Record(base, scoredSnapshot(map[string]int{"A": 30, "B": 0, "C": 5}))

	scores := rec.Points()[0].Scores
	if len(scores) != 2 {
		t.Errorf("scores = %v, want only positive lines", scores)
	}
	if _, ok := scores["B"]; ok {
		t.Error("zero-score line should be omitted")
	}
}

func TestRecord_RolloverResets(t *testing.T) {
	rec := New()
	base := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	rec.Record(base, scoredSnapshot(map[string]int{"A": 30}))
	rec.Record(base.Add(24*time.Hour), scoredSnapshot(map[string]int{"A": 10}))

	points := rec.Points()
	if len(points) != 1 {
		t.Fatalf("points = %d, want 1 after rollover", len(points))
	}
	if points[0].Scores["A"] != 10 {
		t.Errorf("post-rollover point = %v", points[0].Scores)
	}
}

func TestRecord_SameBucketLabelAcrossDaysStillRecords(t *testing.T) {
	// The "12:00" bucket of the next day is distinct because rollover
	// clears the last-bucket marker first.
	rec := New()
	base := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	rec.Record(base, scoredSnapshot(map[string]int{"A": 30}))
	rec.Record(base.Add(24*time.Hour), scoredSnapshot(map[string]int{"A": 30}))

	if len(rec.Points()) != 1 {
		t.Fatalf("rollover should clear points before recording")
	}
	if rec.Points()[0].Time != "12:00" {
		t.Errorf("bucket = %q, want 12:00", rec.Points()[0].Time)
	}
}
