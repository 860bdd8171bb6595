// Copyright (c) 2025 BVK Chaitanya

package csfloat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bvk/floatbid/item"
)

// BuyOrderExpression builds the structured filter for a ranged buy order.
// Wear bounds are included only when the descriptor carries them.
func BuyOrderExpression(d *item.Descriptor) *Expression {
	rules := []Rule{
		{Field: "DefIndex", Operator: "==", Value: RuleValue{Constant: strconv.Itoa(d.DefIndex)}},
		{Field: "PaintIndex", Operator: "==", Value: RuleValue{Constant: strconv.Itoa(d.PaintIndex)}},
	}
	if d.Wear.Min != nil {
		rules = append(rules, Rule{Field: "FloatValue", Operator: ">=", Value: RuleValue{Constant: formatWear(*d.Wear.Min)}})
	}
	if d.Wear.Max != nil {
		rules = append(rules, Rule{Field: "FloatValue", Operator: "<", Value: RuleValue{Constant: formatWear(*d.Wear.Max)}})
	}
	return &Expression{Condition: "and", Rules: rules}
}

func formatWear(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseExpression recovers filter clauses from the textual expression the
// marketplace reports on competitor bids, e.g.
//
//	DefIndex == 7 and PaintIndex == 282 and FloatValue >= 0.15 and FloatValue < 0.38
//
// This is a narrow parser: it only understands a flat conjunction of
// field/operator/constant clauses and fails on anything else.
func parseExpression(s string) ([]Rule, error) {
	var rules []Rule
	for _, clause := range strings.Split(s, " and ") {
		fields := strings.Fields(clause)
		if len(fields) != 3 {
			return nil, fmt.Errorf("unsupported expression clause %q", clause)
		}
		switch fields[1] {
		case "==", "!=", ">", ">=", "<", "<=":
		default:
			return nil, fmt.Errorf("unsupported operator %q in expression clause %q", fields[1], clause)
		}
		rules = append(rules, Rule{
			Field:    fields[0],
			Operator: fields[1],
			Value:    RuleValue{Constant: fields[2]},
		})
	}
	return rules, nil
}

// wearRange extracts the wear-float bounds from parsed expression rules.
// Clauses over other fields are ignored; a bound never mentioned stays nil.
func wearRange(rules []Rule) (item.Range, error) {
	var r item.Range
	for _, rule := range rules {
		if rule.Field != "FloatValue" {
			continue
		}
		v, err := strconv.ParseFloat(rule.Value.Constant, 64)
		if err != nil {
			return item.Range{}, fmt.Errorf("invalid wear constant %q: %w", rule.Value.Constant, err)
		}
		switch rule.Operator {
		case ">", ">=":
			r.Min = &v
		case "<", "<=":
			r.Max = &v
		}
	}
	return r, nil
}

// bidWearRange parses a competitor bid's expression into a wear range. Bids
// without an expression, and bids whose expression cannot be parsed, get the
// unbounded range so that they are never dropped by the overlap filter.
func bidWearRange(bid *Bid) item.Range {
	if len(bid.Expression) == 0 {
		return item.Range{}
	}
	rules, err := parseExpression(bid.Expression)
	if err != nil {
		return item.Range{}
	}
	r, err := wearRange(rules)
	if err != nil {
		return item.Range{}
	}
	return r
}
