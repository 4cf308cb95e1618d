package inference

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"
)

// Entry is one timestamped journal entry in a /check request.
type Entry struct {
	Text      *string `json:"text,omitempty"`
	Image     *string `json:"image,omitempty"`
	Timestamp string  `json:"timestamp"`
}

// CheckRequest is the /check body.
type CheckRequest struct {
	Data []Entry `json:"data"`
}

// ErrInvalidTimestamp is returned when an entry's timestamp is not ISO 8601.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Slot is one position of the model window. Padding slots have no text, no
// image and time 0.
type Slot struct {
	Text     string
	HasText  bool
	ImageURL string
	Image    image.Image
	Time     float64
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp converts an ISO 8601 timestamp or date to epoch seconds.
// A trailing Z is UTC; values without an offset are read as UTC.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.UnixNano()) / 1e9, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// BuildWindow converts entries into exactly size slots: the first size
// entries are kept and the rest of the window is padding. Any text that is
// present, even an empty string, is embedded. Relative image paths are
// resolved against backend.
func BuildWindow(entries []Entry, size int, backend string) ([]Slot, error) {
	slots := make([]Slot, size)
	if len(entries) > size {
		entries = entries[:size]
	}
	for i, e := range entries {
		ts, err := ParseTimestamp(e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		slots[i].Time = ts
		if e.Text != nil {
			slots[i].Text = *e.Text
			slots[i].HasText = true
		}
		if e.Image != nil && *e.Image != "" {
			slots[i].ImageURL = ResolveImageURL(backend, *e.Image)
		}
	}
	return slots, nil
}

// ResolveImageURL prefixes relative paths with the backend endpoint.
func ResolveImageURL(backend, raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return strings.TrimRight(backend, "/") + raw
}
