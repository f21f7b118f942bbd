// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

import (
	"context"
	"log/slog"
	"math"

	"github.com/freee/freee/internal/formula"
)

// Tree maps each stacked ability to the abilities that produced it.
type Tree struct {
	keys    []*Ability
	members map[*Ability][]*Ability
}

func newTree() *Tree {
	return &Tree{members: make(map[*Ability][]*Ability)}
}

func (t *Tree) add(key *Ability, members ...*Ability) {
	if _, ok := t.members[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.members[key] = append(t.members[key], members...)
}

// Keys returns the stacked abilities in output order.
func (t *Tree) Keys() []*Ability {
	out := make([]*Ability, len(t.keys))
	copy(out, t.keys)
	return out
}

// Members returns the abilities that were stacked into key.
func (t *Tree) Members(key *Ability) []*Ability {
	return t.members[key]
}

// Len returns the number of stacked abilities.
func (t *Tree) Len() int { return len(t.keys) }

// StackToTree stacks abilities per the ruleset, keeping the originals under
// the stacked abilities they contributed to. Groups are emitted rule by rule
// in definition order, each rule's groups in order of first appearance, and
// finally abilities no rule governs, unchanged, in input order.
// Stacked abilities are owned by stackTo.
func (rs *Ruleset) StackToTree(ctx context.Context, abilities []*Ability, stackTo any) (*Tree, error) {
	tree := newTree()
	if len(abilities) == 0 {
		return tree, nil
	}

	governing := make([]*Rule, len(abilities))
	byRule := make(map[*Rule][]*Ability)
	for i, a := range abilities {
		r := rs.RuleFor(a.Name)
		governing[i] = r
		if r != nil {
			byRule[r] = append(byRule[r], a)
		}
	}

	for _, rule := range rs.rules {
		matched := byRule[rule]
		if len(matched) == 0 {
			continue
		}
		groups, err := groupAbilities(ctx, rule, matched)
		if err != nil {
			return nil, err
		}
		for _, group := range groups {
			rep, err := rs.reduce(ctx, rule, group, stackTo)
			if err != nil {
				return nil, err
			}
			tree.add(rep, group...)
		}
	}

	for i, a := range abilities {
		if governing[i] == nil {
			tree.add(a, a)
		}
	}
	return tree, nil
}

// Stack returns the stacked abilities of StackToTree.
func (rs *Ruleset) Stack(ctx context.Context, abilities []*Ability, stackTo any) ([]*Ability, error) {
	tree, err := rs.StackToTree(ctx, abilities, stackTo)
	if err != nil {
		return nil, err
	}
	return tree.keys, nil
}

func groupAbilities(ctx context.Context, rule *Rule, abilities []*Ability) ([][]*Ability, error) {
	slot := rule.Grouping.keySlot()
	if slot < 0 {
		return [][]*Ability{abilities}, nil
	}

	var order []string
	groups := make(map[string][]*Ability)
	for _, a := range abilities {
		var key string
		if f := a.ValueAt(slot); f != nil {
			v, err := f.Value(ctx)
			if err != nil {
				return nil, err
			}
			key = v
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], a)
	}

	out := make([][]*Ability, len(order))
	for i, key := range order {
		out[i] = groups[key]
	}
	return out, nil
}

// reduce picks or builds the representative of a group. A numeric rule
// meeting a non-numeric value falls back to DoNotStack for the whole group.
func (rs *Ruleset) reduce(ctx context.Context, rule *Rule, group []*Ability, stackTo any) (*Ability, error) {
	first := group[0]
	if !rule.Stacking.IsNumeric() {
		return first, nil
	}

	keySlot := rule.Grouping.keySlot()
	slots := 0
	for _, a := range group {
		if len(a.Values) > slots {
			slots = len(a.Values)
		}
	}

	values := make([]formula.Formula, slots)
	for s := 0; s < slots; s++ {
		if s == keySlot {
			values[s] = first.ValueAt(s)
			continue
		}
		var nums []float64
		for _, a := range group {
			f := a.ValueAt(s)
			if f == nil {
				continue
			}
			text, err := f.Value(ctx)
			if err != nil {
				return nil, err
			}
			n, ok := formula.Number(text)
			if !ok {
				rs.logger.WarnContext(ctx, "non-numeric ability value under numeric stacking rule; not stacking group",
					slog.String("rule", rule.Name),
					slog.String("stacking", rule.Stacking.String()),
					slog.String("ability", a.Name),
					slog.Int("slot", s+1),
					slog.String("value", text),
				)
				stackingFallbacks.WithLabelValues(rule.Name).Inc()
				return first, nil
			}
			nums = append(nums, n)
		}
		values[s] = formula.NumberLiteral(combine(rule.Stacking, nums))
	}

	return &Ability{
		Name:      first.Name,
		Values:    values,
		Container: stackTo,
	}, nil
}

func combine(rule StackingRule, nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	switch rule {
	case Add:
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return sum
	case TakeHighest:
		best := math.Inf(-1)
		for _, n := range nums {
			best = math.Max(best, n)
		}
		return best
	case TakeLowest:
		best := math.Inf(1)
		for _, n := range nums {
			best = math.Min(best, n)
		}
		return best
	case TakeAverage:
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return sum / float64(len(nums))
	default:
		return nums[0]
	}
}
