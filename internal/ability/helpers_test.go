// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freee/freee/internal/formula"
)

// stubObject is a call-counting Object that is also Owned and Located.
type stubObject struct {
	name     string
	target   Target
	abils    []*Ability
	children []Object
	parent   Object
	owner    Empire
	sector   CommonObject
	system   CommonObject

	intrinsicCalls int
	childrenCalls  int
}

func newStub(name string, target Target) *stubObject {
	return &stubObject{name: name, target: target}
}

func (s *stubObject) IntrinsicAbilities() []*Ability {
	s.intrinsicCalls++
	return s.abils
}

func (s *stubObject) Children() []Object {
	s.childrenCalls++
	return s.children
}

func (s *stubObject) Parent() Object           { return s.parent }
func (s *stubObject) AbilityTarget() Target    { return s.target }
func (s *stubObject) Owner() Empire            { return s.owner }
func (s *stubObject) Sector() CommonObject     { return s.sector }
func (s *stubObject) StarSystem() CommonObject { return s.system }

func (s *stubObject) grant(name string, values ...string) *Ability {
	a := New(s, name, values...)
	s.abils = append(s.abils, a)
	return a
}

func (s *stubObject) adopt(children ...*stubObject) {
	for _, c := range children {
		s.children = append(s.children, c)
		c.parent = s
	}
}

type stubEmpire struct {
	name    string
	clauses []ShareClause
}

func (e *stubEmpire) ReceivedShareClauses() []ShareClause { return e.clauses }

// stubCommon is an aggregate whose contents are listed per empire.
type stubCommon struct {
	target   Target
	contents map[Empire][]Object
	calls    int
}

func newCommon(target Target) *stubCommon {
	return &stubCommon{target: target, contents: make(map[Empire][]Object)}
}

func (c *stubCommon) AbilityTarget() Target { return c.target }

func (c *stubCommon) ContainedAbilityObjects(emp Empire) []Object {
	c.calls++
	return c.contents[emp]
}

type stubWorld struct {
	empires []Empire
	galaxy  CommonObject
}

func (w *stubWorld) Empires() []Empire    { return w.empires }
func (w *stubWorld) Galaxy() CommonObject { return w.galaxy }

func mustRuleset(t *testing.T, rules ...Rule) *Ruleset {
	t.Helper()
	b := NewRulesetBuilder()
	for _, r := range rules {
		require.NoError(t, b.Add(r))
	}
	rs, err := b.Finalize()
	require.NoError(t, err)
	return rs
}

func abilityNames(abils []*Ability) []string {
	names := make([]string, len(abils))
	for i, a := range abils {
		names[i] = a.Name
	}
	return names
}

func valueOf(t *testing.T, a *Ability, slot int) string {
	t.Helper()
	f := a.ValueAt(slot)
	require.NotNil(t, f, "ability %q has no value %d", a.Name, slot+1)
	v, err := f.Value(context.Background())
	require.NoError(t, err)
	return v
}

func numberOf(t *testing.T, a *Ability, slot int) float64 {
	t.Helper()
	n, ok := formula.Number(valueOf(t, a, slot))
	require.True(t, ok)
	return n
}

// failingFormula always fails evaluation.
type failingFormula struct{ err error }

func (f failingFormula) Text() string                          { return "boom" }
func (f failingFormula) IsLiteral() bool                       { return false }
func (f failingFormula) Value(context.Context) (string, error) { return "", f.err }
