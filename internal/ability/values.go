// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

import (
	"context"

	"github.com/samber/oops"
)

// HasAbility reports whether obj has an ability governed by a rule matching
// name. Without includeShared, treaty-shared abilities are ignored.
func (e *Engine) HasAbility(ctx context.Context, obj Object, name string, includeShared bool) (bool, error) {
	abils, err := e.abilities(ctx, obj, nil, !includeShared)
	if err != nil {
		return false, err
	}
	return e.anyMatches(abils, name), nil
}

// HasCommonAbility is HasAbility for an aggregate seen by emp.
func (e *Engine) HasCommonAbility(ctx context.Context, obj CommonObject, emp Empire, name string, includeShared bool) (bool, error) {
	abils, err := e.CommonAbilities(ctx, obj, emp, nil)
	if err != nil {
		return false, err
	}
	if e.anyMatches(abils, name) {
		return true, nil
	}
	if !includeShared {
		return false, nil
	}
	shared, err := e.SharedCommonAbilities(ctx, obj, emp, nil)
	if err != nil {
		return false, err
	}
	return e.anyMatches(shared, name), nil
}

func (e *Engine) anyMatches(abils []*Ability, name string) bool {
	for _, a := range abils {
		if r := e.rules.RuleFor(a.Name); r != nil && r.Matches(name) {
			return true
		}
	}
	return false
}

// AbilityValue returns value index (1-based) of obj's effective ability
// matching name, stacked. Under a do_not_stack rule an arbitrary matching
// ability is chosen. ok is false when obj has no such ability or the
// ability has no such value.
func (e *Engine) AbilityValue(ctx context.Context, obj Object, name string, index int, includeShared bool, filter Filter) (value string, ok bool, err error) {
	if err := checkIndex(index); err != nil {
		return "", false, err
	}
	abils, err := e.abilities(ctx, obj, nil, !includeShared)
	if err != nil {
		return "", false, err
	}
	candidates := e.matching(abils, name, obj.AbilityTarget(), filter)
	stacked, err := e.rules.Stack(ctx, candidates, obj)
	if err != nil {
		return "", false, err
	}
	return firstValue(ctx, stacked, index)
}

// ObjectsAbilityValue stacks the abilities matching name across objs, owned
// by stackTo, and returns value index of the result.
func (e *Engine) ObjectsAbilityValue(ctx context.Context, objs []Object, name string, stackTo any, index int, includeShared bool, filter Filter) (string, bool, error) {
	if err := checkIndex(index); err != nil {
		return "", false, err
	}
	var candidates []*Ability
	for _, o := range objs {
		abils, err := e.abilities(ctx, o, nil, !includeShared)
		if err != nil {
			return "", false, err
		}
		candidates = append(candidates, e.matching(abils, name, o.AbilityTarget(), filter)...)
	}
	stacked, err := e.rules.Stack(ctx, candidates, stackTo)
	if err != nil {
		return "", false, err
	}
	return firstValue(ctx, stacked, index)
}

// CommonAbilityValue returns value index of the aggregate's ability matching
// name as seen by emp.
func (e *Engine) CommonAbilityValue(ctx context.Context, obj CommonObject, emp Empire, name string, index int, filter Filter) (string, bool, error) {
	if err := checkIndex(index); err != nil {
		return "", false, err
	}
	abils, err := e.CommonAbilities(ctx, obj, emp, nil)
	if err != nil {
		return "", false, err
	}
	return firstValue(ctx, e.matching(abils, name, obj.AbilityTarget(), filter), index)
}

// StackAbilities stacks the abilities of several objects into one set owned by stackTo.
func (e *Engine) StackAbilities(ctx context.Context, objs []Object, stackTo any) ([]*Ability, error) {
	tree, err := e.StackAbilitiesToTree(ctx, objs, stackTo)
	if err != nil {
		return nil, err
	}
	return tree.Keys(), nil
}

// StackAbilitiesToTree is StackAbilities keeping the contributors.
func (e *Engine) StackAbilitiesToTree(ctx context.Context, objs []Object, stackTo any) (*Tree, error) {
	var raw []*Ability
	for _, o := range objs {
		abils, err := e.Abilities(ctx, o, nil)
		if err != nil {
			return nil, err
		}
		raw = append(raw, abils...)
	}
	return e.rules.StackToTree(ctx, raw, stackTo)
}

func (e *Engine) matching(abils []*Ability, name string, t Target, filter Filter) []*Ability {
	var out []*Ability
	for _, a := range abils {
		r := e.rules.RuleFor(a.Name)
		if r == nil || !r.Matches(name) || !r.CanTarget(t) {
			continue
		}
		if filter != nil && !filter(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func checkIndex(index int) error {
	if index < 1 {
		return oops.Code(CodeInvalidValueIndex).With("index", index).Errorf("ability value index %d must be 1 or greater", index)
	}
	return nil
}

func firstValue(ctx context.Context, abils []*Ability, index int) (string, bool, error) {
	if len(abils) == 0 {
		return "", false, nil
	}
	f := abils[0].ValueAt(index - 1)
	if f == nil {
		return "", false, nil
	}
	v, err := f.Value(ctx)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
