package buffer

import "fmt"

// CharOffset is a position measured in Unicode scalar values.
type CharOffset = int

// Range is a half-open char range [Start, End).
type Range struct {
	Start CharOffset
	End   CharOffset
}

// NewRange creates a range, swapping the ends if reversed.
func NewRange(start, end CharOffset) Range {
	if end < start {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}

// Len returns the number of chars covered by the range.
func (r Range) Len() int { return r.End - r.Start }

// IsEmpty returns true if the range covers no chars.
func (r Range) IsEmpty() bool { return r.Start >= r.End }

// Contains reports whether the offset lies inside the range.
func (r Range) Contains(off CharOffset) bool {
	return off >= r.Start && off < r.End
}

// ContainsInclusive reports whether the offset lies inside the range,
// counting both endpoints. Visibility checks use this form.
func (r Range) ContainsInclusive(off CharOffset) bool {
	return off >= r.Start && off <= r.End
}

// Overlaps reports whether two ranges share at least one position,
// counting endpoint contact as overlap.
func (r Range) Overlaps(other Range) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// Shift returns the range moved by delta.
func (r Range) Shift(delta int) Range {
	return Range{Start: r.Start + delta, End: r.End + delta}
}

// String returns a human-readable representation.
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}
