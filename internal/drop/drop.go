// Package drop defines the context records exchanged with the hub (drops,
// sessions, digests) and reads drops from local directories.
package drop

import (
	"sort"
	"time"
	"unicode/utf8"
)

// Drop is a single captured note with provenance. IDs are unique within one
// scan or fetch batch only.
type Drop struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"` // ISO-8601
	Tags      []string `json:"tags,omitempty"`
}

// Session is a prior conversation summary produced by the hub.
type Session struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Summary   string `json:"summary,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Label returns the session name, falling back to its ID.
func (s Session) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Digest is a periodic summary record produced by the hub.
type Digest struct {
	Date    string `json:"date"`
	Summary string `json:"summary,omitempty"`
}

// TruncationMarker is appended to content cut by Truncate.
const TruncationMarker = "\n...[truncated]"

// Truncate cuts s to at most maxChars runes, appending TruncationMarker when
// anything was removed. Truncation is lossy.
func Truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + TruncationMarker
}

// SortNewestFirst orders drops by timestamp descending. Timestamps that do not
// parse as RFC 3339 sort after all parseable ones; ties keep input order.
func SortNewestFirst(drops []Drop) {
	sort.SliceStable(drops, func(i, j int) bool {
		return parseTimestamp(drops[i].Timestamp).After(parseTimestamp(drops[j].Timestamp))
	})
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}
