package interval

import (
	"sort"
	"time"
)

// Span is a half-open [Start, End) interval between two UTC instants.
type Span struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the span.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Empty reports whether the span covers no time at all.
func (s Span) Empty() bool {
	return !s.Start.Before(s.End)
}

// Overlaps reports whether two half-open spans share any instant.
// Touching endpoints (a.End == b.Start) do not overlap.
func Overlaps(a, b Span) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Clip restricts s to the given bounds. The result may be empty.
func Clip(s, bounds Span) Span {
	out := s
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	return out
}

// Merge sorts the spans by start and coalesces overlapping or adjacent
// spans into the minimal covering set. Empty spans are dropped. The input
// slice is not modified.
func Merge(spans []Span) []Span {
	work := make([]Span, 0, len(spans))
	for _, s := range spans {
		if !s.Empty() {
			work = append(work, s)
		}
	}
	if len(work) == 0 {
		return nil
	}

	sort.Slice(work, func(i, j int) bool {
		return work[i].Start.Before(work[j].Start)
	})

	merged := []Span{work[0]}
	for _, s := range work[1:] {
		last := &merged[len(merged)-1]
		if s.Start.After(last.End) {
			merged = append(merged, s)
			continue
		}
		if s.End.After(last.End) {
			last.End = s.End
		}
	}
	return merged
}

// Subtract carves the busy spans out of window and returns the remaining
// sub-intervals in chronological order. Busy spans extending past the
// window's bounds are clipped; overlapping or adjacent busy spans are
// coalesced before subtraction. The result never reaches outside window.
func Subtract(window Span, busy []Span) []Span {
	if window.Empty() {
		return nil
	}

	clipped := make([]Span, 0, len(busy))
	for _, b := range busy {
		c := Clip(b, window)
		if !c.Empty() {
			clipped = append(clipped, c)
		}
	}
	mask := Merge(clipped)
	if len(mask) == 0 {
		return []Span{window}
	}

	var free []Span
	cursor := window.Start
	for _, b := range mask {
		if cursor.Before(b.Start) {
			free = append(free, Span{Start: cursor, End: b.Start})
		}
		cursor = b.End
	}
	if cursor.Before(window.End) {
		free = append(free, Span{Start: cursor, End: window.End})
	}
	return free
}
