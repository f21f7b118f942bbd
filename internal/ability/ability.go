// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

// Package ability computes the effective abilities of game objects. It
// gathers abilities from an object, its ancestors and descendants and from
// treaty sharing, stacks them per the mod's rules and memoises the result for
// the lifetime of a galaxy snapshot.
package ability

import (
	"context"
	"strings"

	"github.com/freee/freee/internal/formula"
)

// Ability is a special ability of a game object, or a tag used by the AI or
// by modders.
type Ability struct {
	// Name selects the rule governing the ability.
	Name string
	// Description is optional display text.
	Description formula.Formula
	// Values holds the ability's data, usually one or two values.
	Values []formula.Formula
	// Container owns the ability.
	Container any
}

// New creates an ability owned by container with literal values.
func New(container any, name string, values ...string) *Ability {
	a := &Ability{Name: name, Container: container}
	for _, v := range values {
		a.Values = append(a.Values, formula.Literal(v))
	}
	return a
}

// ValueAt returns the value at the zero-based index, or nil.
func (a *Ability) ValueAt(i int) formula.Formula {
	if i < 0 || i >= len(a.Values) {
		return nil
	}
	return a.Values[i]
}

// Value1 returns the first value. Not all abilities have values, so this might be nil.
func (a *Ability) Value1() formula.Formula { return a.ValueAt(0) }

// Value2 returns the second value, or nil.
func (a *Ability) Value2() formula.Formula { return a.ValueAt(1) }

// String renders the description, or "Name: v1, v2" when there is none.
func (a *Ability) String(ctx context.Context) (string, error) {
	if a.Description != nil {
		return a.Description.Value(ctx)
	}
	vals := make([]string, 0, len(a.Values))
	for _, f := range a.Values {
		v, err := f.Value(ctx)
		if err != nil {
			return "", err
		}
		vals = append(vals, v)
	}
	return a.Name + ": " + strings.Join(vals, ", "), nil
}
