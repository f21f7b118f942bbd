// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freee/freee/pkg/errutil"
)

func TestRulesetBuilder_AddRejectsInvalidRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		code string
	}{
		{"empty name", Rule{Name: "  ", Targets: TargetShip}, CodeInvalidRule},
		{"no targets", Rule{Name: "Cloak"}, CodeInvalidRule},
		{"bad grouping", Rule{Name: "Cloak", Targets: TargetShip, Grouping: GroupingRule(42)}, CodeInvalidRule},
		{"bad stacking", Rule{Name: "Cloak", Targets: TargetShip, Stacking: StackingRule(-1)}, CodeInvalidRule},
		{"empty alias", Rule{Name: "Cloak", Targets: TargetShip, Aliases: []string{""}}, CodeInvalidRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRulesetBuilder().Add(tt.rule)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestRulesetBuilder_DuplicateName(t *testing.T) {
	b := NewRulesetBuilder()
	require.NoError(t, b.Add(Rule{Name: "Supply Storage", Targets: TargetShip}))

	err := b.Add(Rule{Name: "Supply Storage", Targets: TargetPlanet})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeDuplicateRule)
	errutil.AssertErrorContext(t, err, "rule", "Supply Storage")
}

func TestRulesetBuilder_FinalizeDetectsAliasClaimingAnotherRule(t *testing.T) {
	b := NewRulesetBuilder()
	require.NoError(t, b.Add(Rule{Name: "Supply Generation", Targets: TargetShip}))
	require.NoError(t, b.Add(Rule{Name: "Supply Storage", Targets: TargetShip, Aliases: []string{"Supply *"}}))

	_, err := b.Finalize()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeRuleConflict)
	errutil.AssertErrorContext(t, err, "rule", "Supply Generation")
	errutil.AssertErrorContext(t, err, "claimed_by", "Supply Storage")
}

func TestRulesetBuilder_UnusableAfterFinalize(t *testing.T) {
	b := NewRulesetBuilder()
	require.NoError(t, b.Add(Rule{Name: "Cloak", Targets: TargetShip}))
	_, err := b.Finalize()
	require.NoError(t, err)

	err = b.Add(Rule{Name: "Sensor", Targets: TargetShip})
	errutil.AssertErrorCode(t, err, CodeRulesetFinalized)

	_, err = b.Finalize()
	errutil.AssertErrorCode(t, err, CodeRulesetFinalized)
}

func TestRulesetBuilder_CopiesRule(t *testing.T) {
	rule := Rule{Name: "Cloak", Targets: TargetShip, Aliases: []string{"Cloak *"}}
	b := NewRulesetBuilder()
	require.NoError(t, b.Add(rule))
	rule.Aliases[0] = "Sensor *"

	rs, err := b.Finalize()
	require.NoError(t, err)
	r, ok := rs.Rule("Cloak")
	require.True(t, ok)
	assert.Equal(t, []string{"Cloak *"}, r.Aliases)
}

func TestRuleset_RuleFor(t *testing.T) {
	rs := mustRuleset(t,
		Rule{Name: "Shield Generation", Targets: TargetShip, Aliases: []string{"Shield Generation *"}},
		Rule{Name: "Shield Regeneration", Targets: TargetShip},
		Rule{Name: "Armor", Targets: TargetShip, Aliases: []string{"Armor Plating", "Armo?r"}},
	)

	tests := []struct {
		name string
		want string
	}{
		{"Shield Generation", "Shield Generation"},
		{"Shield Regeneration", "Shield Regeneration"},
		{"Shield Generation From Facilities", "Shield Generation"},
		{"Armor Plating", "Armor"},
		{"Armour", "Armor"},
		{"Cloak", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rs.RuleFor(tt.name)
			if tt.want == "" {
				assert.Nil(t, r)
				return
			}
			require.NotNil(t, r)
			assert.Equal(t, tt.want, r.Name)
			// memoised lookups agree
			assert.Same(t, r, rs.RuleFor(tt.name))
		})
	}
}

func TestRuleset_RuleForConcurrent(t *testing.T) {
	rs := mustRuleset(t, Rule{Name: "Shield Generation", Targets: TargetShip, Aliases: []string{"Shield *"}})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotNil(t, rs.RuleFor("Shield Boost"))
			assert.Nil(t, rs.RuleFor("Cloak"))
		}()
	}
	wg.Wait()
}

func TestRuleset_NilSafe(t *testing.T) {
	var rs *Ruleset
	assert.Nil(t, rs.RuleFor("anything"))

	var r *Rule
	assert.False(t, r.Matches("anything"))
	assert.True(t, r.CanTarget(TargetPlanet))
}

func TestRuleset_Order(t *testing.T) {
	rs := mustRuleset(t,
		Rule{Name: "B", Targets: TargetShip},
		Rule{Name: "A", Targets: TargetShip},
	)
	rules := rs.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "B", rules[0].Name)
	assert.Equal(t, "A", rules[1].Name)
	assert.Equal(t, 2, rs.Len())

	rules[0] = nil
	assert.NotNil(t, rs.Rules()[0], "Rules returns a copy")
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{"Ship", TargetShip, false},
		{"ship", TargetShip, false},
		{"Star System", TargetStarSystem, false},
		{"star-system", TargetStarSystem, false},
		{"warp_point", TargetWarpPoint, false},
		{" Planet ", TargetPlanet, false},
		{"Moon", TargetNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, CodeInvalidRule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTarget_TextRoundTrip(t *testing.T) {
	set := TargetShip | TargetBase | TargetPlanet
	text, err := set.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Planet|Ship|Base", string(text))

	var parsed Target
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, set, parsed)
	assert.Equal(t, []Target{TargetPlanet, TargetShip, TargetBase}, set.Categories())
	assert.Equal(t, "None", TargetNone.String())
}

func TestParseRules(t *testing.T) {
	g, err := ParseGroupingRule("Group By Value 1")
	require.NoError(t, err)
	assert.Equal(t, GroupByValue1, g)

	s, err := ParseStackingRule("take_highest")
	require.NoError(t, err)
	assert.Equal(t, TakeHighest, s)
	assert.True(t, s.IsNumeric())
	assert.False(t, DoNotStack.IsNumeric())

	_, err = ParseStackingRule("multiply")
	errutil.AssertErrorCode(t, err, CodeInvalidRule)
	_, err = ParseGroupingRule("group_by_value3")
	errutil.AssertErrorCode(t, err, CodeInvalidRule)
}
