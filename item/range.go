// Copyright (c) 2025 BVK Chaitanya

package item

import "fmt"

// Range is a wear-float interval. A nil bound means the range is unbounded on
// that side. Wear values on the marketplace are within [0, 1].
type Range struct {
	Min *float64
	Max *float64
}

func NewRange(min, max float64) Range {
	return Range{Min: &min, Max: &max}
}

func (r Range) String() string {
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = fmt.Sprintf("%g", *r.Min)
	}
	if r.Max != nil {
		hi = fmt.Sprintf("%g", *r.Max)
	}
	return fmt.Sprintf("[%s,%s]", lo, hi)
}

func (r *Range) IsUnbounded() bool {
	return r.Min == nil && r.Max == nil
}

func (r Range) Check() error {
	if r.Min != nil && (*r.Min < 0 || *r.Min > 1) {
		return fmt.Errorf("wear lower bound %g is outside [0, 1]", *r.Min)
	}
	if r.Max != nil && (*r.Max < 0 || *r.Max > 1) {
		return fmt.Errorf("wear upper bound %g is outside [0, 1]", *r.Max)
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("wear lower bound %g is above upper bound %g", *r.Min, *r.Max)
	}
	return nil
}

// Contains reports whether a wear value falls inside the range.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Overlaps reports whether two wear ranges intersect. Two ranges are disjoint
// only when one range's upper bound lies below the other's lower bound; an
// absent bound can never rule out an overlap.
func (r Range) Overlaps(other Range) bool {
	if r.Min != nil && other.Max != nil && *other.Max < *r.Min {
		return false
	}
	if r.Max != nil && other.Min != nil && *other.Min > *r.Max {
		return false
	}
	return true
}
