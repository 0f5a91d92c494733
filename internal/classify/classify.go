// Package classify turns free-text alert headers into scored, directed
// disruption categories. The MTA tags nearly every alert OTHER_EFFECT,
// so classification is keyword matching over the header text.
package classify

import (
	"log"
	"strings"
	"time"
)

// Direction is the directional scope detected in an alert header.
type Direction string

const (
	DirectionUptown   Direction = "uptown"
	DirectionDowntown Direction = "downtown"
	DirectionBoth     Direction = "both"
)

// CategoryScores maps each disruption category to its fixed severity
// score. Headers that match no rule are categorized "Other" but scored
// 1 rather than the table value, so unmatched text stays visible
// without skewing totals.
var CategoryScores = map[string]int{
	"No Service":      50,
	"Delays":          30,
	"Slow Speeds":     20,
	"Skip Stop":       15,
	"Rerouted":        15,
	"Runs Local":      10,
	"Reduced Freq":    10,
	"Planned Work":    5,
	"Platform Change": 2,
	"Other":           5,
}

// rule pairs a category with the keywords that select it.
type rule struct {
	category string
	keywords []string
}

// rules is evaluated top to bottom; the first rule with any keyword
// present in the lowercased header wins. The order is part of the
// contract: "no service" must beat "delays" even when both appear.
var rules = []rule{
	{"No Service", []string{"no [", "no trains", "no service", "suspended", "out of service", "service suspended", "not running"}},
	{"Delays", []string{"running with delays", "delays", "running late", "experiencing delays", "longer travel times", "slow speeds", "held at", "holding at", "held"}},
	{"Slow Speeds", []string{"slow", "reduced speed", "running slowly"}},
	{"Skip Stop", []string{"skip", "bypassing", "not stopping at", "skipping"}},
	{"Rerouted", []string{"runs via", "reroute", "rerouted", "diverted", "alternate route"}},
	{"Runs Local", []string{"runs local", "running local", "making local stops"}},
	{"Reduced Freq", []string{"runs every", "less frequently", "reduced service", "fewer trains", "running every"}},
	{"Planned Work", []string{"shuttle", "express skips"}},
	{"Platform Change", []string{"board from", "platform", "change at"}},
}

var noiseKeywords = []string{
	"planned work", "planned service", "running on a",
	"schedule", "holiday service",
}

var uptownKeywords = []string{
	"uptown", "northbound", "bronx-bound", "queens-bound",
	"flushing-bound", "court sq-bound",
}

var downtownKeywords = []string{
	"downtown", "southbound", "manhattan-bound", "brooklyn-bound",
	"bedford-nostrand", "church av-bound",
}

// Classified is an alert header after classification.
type Classified struct {
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	Score     int       `json:"score"`
	Direction Direction `json:"direction"`
}

// ActivePeriod is one interval during which an alert applies. A nil
// bound is open: nil Start means "since forever", nil End means "until
// further notice". Times are epoch seconds.
type ActivePeriod struct {
	Start *int64
	End   *int64
}

// IsNoise reports whether a header is an informational or planned-work
// notice that should never enter the scoring pipeline.
func IsNoise(header string) bool {
	h := strings.ToLower(header)
	for _, kw := range noiseKeywords {
		if strings.Contains(h, kw) {
			return true
		}
	}
	return false
}

// Active reports whether an alert with the given periods applies at
// now. An alert with no periods is always active; otherwise it is
// active iff now falls inside at least one interval, bounds inclusive.
func Active(periods []ActivePeriod, now time.Time) bool {
	if len(periods) == 0 {
		return true
	}
	ts := now.Unix()
	for _, p := range periods {
		if p.Start != nil && ts < *p.Start {
			continue
		}
		if p.End != nil && ts > *p.End {
			continue
		}
		return true
	}
	return false
}

// Classify categorizes and scores a header and detects its directional
// scope.
func Classify(header string) Classified {
	h := strings.ToLower(header)

	category := "Other"
	for _, r := range rules {
		if containsAny(h, r.keywords) {
			category = r.category
			break
		}
	}
	if category == "Other" {
		log.Printf("Classify: unmatched header: %.100s", header)
		return Classified{Text: header, Category: "Other", Score: 1, Direction: DirectionBoth}
	}

	return Classified{
		Text:      header,
		Category:  category,
		Score:     CategoryScores[category],
		Direction: direction(h),
	}
}

// direction inspects the lowercased header for directional language.
// Both kinds present, neither present, or only an explicit "both
// directions" phrase all resolve to DirectionBoth.
func direction(h string) Direction {
	hasUp := containsAny(h, uptownKeywords)
	hasDown := containsAny(h, downtownKeywords)
	switch {
	case hasUp && hasDown:
		return DirectionBoth
	case hasUp:
		return DirectionUptown
	case hasDown:
		return DirectionDowntown
	default:
		return DirectionBoth
	}
}

func containsAny(h string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(h, kw) {
			return true
		}
	}
	return false
}
