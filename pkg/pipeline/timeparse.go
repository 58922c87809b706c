package pipeline

import "time"

// timestampLayouts are tried in order. The normalized isoMillis output of
// casting is covered by RFC3339Nano, keeping timestamp casting idempotent.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
}

// parseTimestamp attempts to read s as a date or date-time.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
