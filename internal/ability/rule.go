// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// GroupingRule decides how abilities governed by the same rule are grouped
// before stacking.
type GroupingRule int

// Grouping rules.
const (
	// DoNotGroup places all of the rule's abilities in one group.
	DoNotGroup GroupingRule = iota
	// GroupByValue1 groups abilities by their first value.
	GroupByValue1
	// GroupByValue2 groups abilities by their second value.
	GroupByValue2
)

var groupingNames = map[GroupingRule]string{
	DoNotGroup:    "do_not_group",
	GroupByValue1: "group_by_value1",
	GroupByValue2: "group_by_value2",
}

func (g GroupingRule) String() string {
	if name, ok := groupingNames[g]; ok {
		return name
	}
	return "unknown"
}

// keySlot is the value index used as the grouping key, or -1.
func (g GroupingRule) keySlot() int {
	switch g {
	case GroupByValue1:
		return 0
	case GroupByValue2:
		return 1
	default:
		return -1
	}
}

// ParseGroupingRule parses names such as "group_by_value1" or "Group By Value 1".
func ParseGroupingRule(s string) (GroupingRule, error) {
	key := normalizeName(s)
	for g, name := range groupingNames {
		if normalizeName(name) == key {
			return g, nil
		}
	}
	return DoNotGroup, oops.Code(CodeInvalidRule).With("grouping", s).Errorf("unknown grouping rule %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (g GroupingRule) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GroupingRule) UnmarshalText(text []byte) error {
	parsed, err := ParseGroupingRule(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// StackingRule decides how the values within a group are combined.
type StackingRule int

// Stacking rules. Only DoNotStack is meaningful for non-numeric values.
const (
	// DoNotStack keeps the first ability of the group as its representative.
	DoNotStack StackingRule = iota
	// Add sums each value slot.
	Add
	// TakeHighest keeps the maximum of each value slot.
	TakeHighest
	// TakeAverage keeps the arithmetic mean of each value slot.
	TakeAverage
	// TakeLowest keeps the minimum of each value slot.
	TakeLowest
)

var stackingNames = map[StackingRule]string{
	DoNotStack:  "do_not_stack",
	Add:         "add",
	TakeHighest: "take_highest",
	TakeAverage: "take_average",
	TakeLowest:  "take_lowest",
}

func (s StackingRule) String() string {
	if name, ok := stackingNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsNumeric reports whether the rule combines values arithmetically.
func (s StackingRule) IsNumeric() bool {
	return s == Add || s == TakeHighest || s == TakeAverage || s == TakeLowest
}

// ParseStackingRule parses names such as "take_highest" or "TakeHighest".
func ParseStackingRule(s string) (StackingRule, error) {
	key := normalizeName(s)
	for r, name := range stackingNames {
		if normalizeName(name) == key {
			return r, nil
		}
	}
	return DoNotStack, oops.Code(CodeInvalidRule).With("stacking", s).Errorf("unknown stacking rule %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s StackingRule) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *StackingRule) UnmarshalText(text []byte) error {
	parsed, err := ParseStackingRule(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Rule describes how abilities of a given name are grouped, stacked and
// where they may apply. Rules are created through a RulesetBuilder.
type Rule struct {
	Name        string
	Aliases     []string
	Description string
	Targets     Target
	Grouping    GroupingRule
	Stacking    StackingRule

	aliases []glob.Glob
}

// Matches reports whether the rule governs abilities called name: either the
// rule's own name or one of its alias patterns.
func (r *Rule) Matches(name string) bool {
	if r == nil {
		return false
	}
	if r.Name == name {
		return true
	}
	if r.aliases == nil {
		for _, alias := range r.Aliases {
			if alias == name {
				return true
			}
		}
		return false
	}
	for _, g := range r.aliases {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// CanTarget reports whether the rule may apply to a category. A nil rule
// applies everywhere.
func (r *Rule) CanTarget(t Target) bool {
	if r == nil {
		return true
	}
	return r.Targets&t != 0
}

func (r *Rule) compile() error {
	compiled := make([]glob.Glob, 0, len(r.Aliases))
	for i, alias := range r.Aliases {
		if alias == "" {
			return oops.Code(CodeInvalidRule).With("rule", r.Name).With("alias", i).Errorf("rule %q: empty alias", r.Name)
		}
		g, err := glob.Compile(alias)
		if err != nil {
			return oops.Code(CodeInvalidRule).With("rule", r.Name).With("alias", alias).Wrapf(err, "rule %q: invalid alias", r.Name)
		}
		compiled = append(compiled, g)
	}
	r.aliases = compiled
	return nil
}
