// Package state persists the engine's daily totals and time series so
// a restart within the same local day does not lose them.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/michaelpyon/subway-shame/internal/daily"
	"github.com/michaelpyon/subway-shame/internal/localday"
	"github.com/michaelpyon/subway-shame/internal/timeseries"
)

// Document is the on-disk shape of the engine state.
type Document struct {
	DailyDate    string                      `json:"daily_date"`
	Daily        map[string]*daily.LineState `json:"daily"`
	TSDate       string                      `json:"ts_date"`
	TSLastBucket string                      `json:"ts_last_bucket"`
	Timeseries   []timeseries.Point          `json:"timeseries"`
}

// Store reads and writes the state document at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save serializes the accumulator and recorder to disk atomically:
// the document is written to a temp file and renamed over the old one,
// so a crash mid-write never leaves a partial document behind.
func (s *Store) Save(acc *daily.Accumulator, rec *timeseries.Recorder) error {
	dailyDay, lineStates := acc.Export()
	tsDay, lastBucket, points := rec.Export()

	doc := Document{
		DailyDate:    dailyDay,
		Daily:        lineStates,
		TSDate:       tsDay,
		TSLastBucket: lastBucket,
		Timeseries:   points,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Restore loads the persisted document, if any, and applies each
// sub-state whose day key matches the current local day. The two
// checks are independent: the daily totals may restore while the time
// series starts empty, or the other way around. A missing or corrupt
// file leaves both empty.
func (s *Store) Restore(now time.Time, acc *daily.Accumulator, rec *timeseries.Recorder) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("State: failed to read %s: %v", s.path, err)
		}
		return
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("State: failed to decode %s: %v", s.path, err)
		return
	}

	today := localday.Key(now)

	if doc.DailyDate == today {
		acc.Restore(doc.DailyDate, doc.Daily)
		scored := 0
		for _, st := range doc.Daily {
			if st != nil && st.DailyScore > 0 {
				scored++
			}
		}
		log.Printf("State: restored daily totals (%s) with %d scored lines", today, scored)
	}

	if doc.TSDate == today {
		rec.Restore(doc.TSDate, doc.TSLastBucket, doc.Timeseries)
		log.Printf("State: restored time series: %d points", len(doc.Timeseries))
	}
}
