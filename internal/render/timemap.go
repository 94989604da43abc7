package render

import (
	"math"
	"time"
)

// Anchor maps a playback position to absolute stream time.
type Anchor struct {
	start float64
	known bool
}

// StartAt anchors a recording whose first frame was captured at start (unix seconds).
func StartAt(start float64) Anchor {
	return Anchor{start: start, known: true}
}

// Live anchors a rolling window that ends at the current wall clock.
func Live() Anchor {
	return Anchor{}
}

func (a Anchor) Known() bool {
	return a.known
}

// Span is the absolute interval covered by a playback of the given duration.
func (a Anchor) Span(now time.Time, duration float64) (start, end float64) {
	if a.known {
		return a.start, a.start + duration
	}
	end = UnixSeconds(now)
	return end - duration, end
}

// Absolute is the stream time shown at currentTime.
func (a Anchor) Absolute(now time.Time, currentTime, duration float64) float64 {
	start, _ := a.Span(now, duration)
	return start + currentTime
}

func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func validDuration(d float64) bool {
	return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}
