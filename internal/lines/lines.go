package lines

// Tracked is the fixed set of subway lines the service scores.
var Tracked = []string{
	"1", "2", "3", "4", "5", "6", "7",
	"A", "C", "E", "B", "D", "F", "M",
	"N", "Q", "R", "W", "G", "J", "Z",
	"L", "S", "SI",
}

// aliases maps the various route_id spellings the feed uses to a
// canonical line. Express variants collapse onto their parent line and
// the three shuttle ids all map to "S".
var aliases = map[string]string{
	"GS":  "S",
	"FS":  "S",
	"H":   "S",
	"SIR": "SI",
	"5X":  "5",
	"6X":  "6",
	"7X":  "7",
	"FX":  "F",
}

var tracked = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Tracked))
	for _, id := range Tracked {
		m[id] = struct{}{}
	}
	return m
}()

// Normalize maps a raw route id onto the tracked set. The second return
// is false when the id does not resolve to a tracked line; the feeds
// routinely reference routes outside the network, so callers drop those
// silently.
func Normalize(routeID string) (string, bool) {
	id := routeID
	if canonical, ok := aliases[id]; ok {
		id = canonical
	}
	if _, ok := tracked[id]; !ok {
		return "", false
	}
	return id, true
}

// IsTracked reports whether id is a canonical tracked line.
func IsTracked(id string) bool {
	_, ok := tracked[id]
	return ok
}
