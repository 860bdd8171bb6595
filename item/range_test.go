// Copyright (c) 2025 BVK Chaitanya

package item

import "testing"

func fp(v float64) *float64 {
	return &v
}

func TestRangeOverlaps(t *testing.T) {
	tests := []struct {
		a, b Range
		want bool
	}{
		// Identical ranges always overlap.
		{NewRange(0, 0.07), NewRange(0, 0.07), true},
		// Disjoint ranges never overlap.
		{NewRange(0, 0.07), NewRange(0.15, 0.38), false},
		// Touching bounds overlap (bounds are inclusive for the test).
		{NewRange(0, 0.07), NewRange(0.07, 0.15), true},
		// Contained ranges overlap.
		{NewRange(0, 1), NewRange(0.2, 0.3), true},
		// Absent bounds never falsify the overlap.
		{Range{}, NewRange(0.15, 0.38), true},
		{Range{Min: fp(0.5)}, NewRange(0.15, 0.38), false},
		{Range{Min: fp(0.2)}, NewRange(0.15, 0.38), true},
		{Range{Max: fp(0.1)}, NewRange(0.15, 0.38), false},
		{Range{Max: fp(0.2)}, NewRange(0.15, 0.38), true},
		{Range{Min: fp(0.1)}, Range{Max: fp(0.05)}, false},
		{Range{}, Range{}, true},
	}
	for i, test := range tests {
		if got := test.a.Overlaps(test.b); got != test.want {
			t.Errorf("test %d: %s overlaps %s: got %v, want %v", i, test.a, test.b, got, test.want)
		}
		// Overlap must be symmetric.
		if got := test.b.Overlaps(test.a); got != test.want {
			t.Errorf("test %d: %s overlaps %s is not symmetric", i, test.b, test.a)
		}
	}
}

func TestRangeCheck(t *testing.T) {
	if err := NewRange(0.07, 0.0).Check(); err == nil {
		t.Errorf("inverted range must not pass the check")
	}
	if err := NewRange(-0.1, 0.5).Check(); err == nil {
		t.Errorf("negative wear bound must not pass the check")
	}
	if err := NewRange(0.5, 1.5).Check(); err == nil {
		t.Errorf("wear bound above 1 must not pass the check")
	}
	if err := (Range{}).Check(); err != nil {
		t.Errorf("unbounded range must pass the check: %v", err)
	}
	if err := NewRange(0.15, 0.38).Check(); err != nil {
		t.Errorf("valid range must pass the check: %v", err)
	}
}
