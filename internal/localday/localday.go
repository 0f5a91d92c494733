// Package localday implements the service's notion of a local day.
//
// The day boundary uses a fixed UTC-5 offset with no daylight-saving
// adjustment, so rollover drifts by an hour across DST transitions.
// This is a known limitation carried over deliberately.
package localday

import (
	"fmt"
	"time"
)

var zone = time.FixedZone("EST", -5*60*60)

// In converts t to the fixed local offset.
func In(t time.Time) time.Time {
	return t.In(zone)
}

// Key returns the local calendar date used to detect day rollover.
func Key(t time.Time) string {
	return In(t).Format("2006-01-02")
}

// Bucket returns the local time-of-day floored to a 15-minute boundary,
// formatted as "HH:MM".
func Bucket(t time.Time) string {
	lt := In(t)
	minute := (lt.Minute() / 15) * 15
	return fmt.Sprintf("%02d:%02d", lt.Hour(), minute)
}

// HumanDate formats the local date for display, e.g. "Monday, January 2".
func HumanDate(t time.Time) string {
	return In(t).Format("Monday, January 2")
}
