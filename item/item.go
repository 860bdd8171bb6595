// Copyright (c) 2025 BVK Chaitanya

// Package item describes the target of a buy order: either an exact item
// name, or a weapon/paint pair restricted to a wear-float range.
package item

import (
	"fmt"
	"log/slog"

	"github.com/bvk/floatbid/gobs"
)

// Descriptor is a tagged variant over the two order kinds. Plain descriptors
// carry only the market hash name. Ranged descriptors carry the weapon/paint
// identifiers and an optional wear range; Name may still be set for display
// and for relaxed fallback searches.
type Descriptor struct {
	Kind string

	Name string

	DefIndex   int
	PaintIndex int

	Wear Range
}

// FromOrder builds a descriptor from a persisted buy order.
func FromOrder(order *gobs.BuyOrder) Descriptor {
	return Descriptor{
		Kind:       order.Kind,
		Name:       order.Name,
		DefIndex:   order.DefIndex,
		PaintIndex: order.PaintIndex,
		Wear:       Range{Min: order.WearMin, Max: order.WearMax},
	}
}

func (d Descriptor) String() string {
	if d.Kind == gobs.OrderKindRanged {
		return fmt.Sprintf("%s:%d/%d@%s", d.Name, d.DefIndex, d.PaintIndex, d.Wear)
	}
	return d.Name
}

func (d Descriptor) LogValue() slog.Value {
	return slog.StringValue(d.String())
}

func (d *Descriptor) IsRanged() bool {
	return d.Kind == gobs.OrderKindRanged
}

func (d *Descriptor) Check() error {
	switch d.Kind {
	case gobs.OrderKindPlain:
		if len(d.Name) == 0 {
			return fmt.Errorf("plain item name cannot be empty")
		}
	case gobs.OrderKindRanged:
		if d.DefIndex == 0 {
			return fmt.Errorf("ranged item def-index cannot be zero")
		}
		if d.PaintIndex == 0 {
			return fmt.Errorf("ranged item paint-index cannot be zero")
		}
		if err := d.Wear.Check(); err != nil {
			return fmt.Errorf("ranged item wear range is invalid: %w", err)
		}
	default:
		return fmt.Errorf("unknown item kind %q", d.Kind)
	}
	return nil
}
