// Package timeseries records per-line scores into 15-minute buckets
// over the local day.
package timeseries

import (
	"time"

	"github.com/michaelpyon/subway-shame/internal/localday"
	"github.com/michaelpyon/subway-shame/internal/snapshot"
)

// Point is one recorded bucket. Scores carries only lines whose
// current-cycle score was greater than zero.
type Point struct {
	Time   string         `json:"time"`
	Scores map[string]int `json:"scores"`
}

// Recorder appends at most one point per 15-minute bucket and wipes
// its buffer at day rollover. It tracks its own day key, independent
// of the daily accumulator's. Not safe for concurrent use; the engine
// serializes mutation.
type Recorder struct {
	day        string
	lastBucket string
	points     []Point
}

func New() *Recorder {
	return &Recorder{points: []Point{}}
}

// Record stores the cycle's scores into the current bucket. A second
// call within the same bucket is a no-op.
func (r *Recorder) Record(now time.Time, snap map[string]snapshot.Line) {
	today := localday.Key(now)
	if today != r.day {
		r.day = today
		r.lastBucket = ""
		r.points = []Point{}
	}

	bucket := localday.Bucket(now)
	if bucket == r.lastBucket {
		return
	}
	r.lastBucket = bucket

	scores := make(map[string]int)
	for id, line := range snap {
		if line.Score > 0 {
			scores[id] = line.Score
		}
	}
	r.points = append(r.points, Point{Time: bucket, Scores: scores})
}

// Points returns the ordered point list for the current day.
func (r *Recorder) Points() []Point {
	return r.points
}

// Export returns the persistable view of the recorder.
func (r *Recorder) Export() (day, lastBucket string, points []Point) {
	return r.day, r.lastBucket, r.points
}

// Restore replaces the recorder's contents, used at startup when the
// persisted day matches the current local day.
func (r *Recorder) Restore(day, lastBucket string, points []Point) {
	r.day = day
	r.lastBucket = lastBucket
	if points == nil {
		points = []Point{}
	}
	r.points = points
}
