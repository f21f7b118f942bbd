// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// RulesetBuilder collects rules while a mod is loading. Finalize turns it
// into an immutable Ruleset; the builder cannot be used afterwards.
type RulesetBuilder struct {
	rules     []*Rule
	names     map[string]struct{}
	logger    *slog.Logger
	finalized bool
}

// NewRulesetBuilder creates an empty builder.
func NewRulesetBuilder() *RulesetBuilder {
	return &RulesetBuilder{names: make(map[string]struct{})}
}

// WithLogger sets the logger the finished ruleset reports stacking
// diagnostics to. Defaults to slog.Default().
func (b *RulesetBuilder) WithLogger(logger *slog.Logger) *RulesetBuilder {
	b.logger = logger
	return b
}

// Add validates and appends a copy of rule. Rule order is significant: it
// is the order groups appear in stacked output.
func (b *RulesetBuilder) Add(rule Rule) error {
	if b.finalized {
		return oops.Code(CodeRulesetFinalized).With("rule", rule.Name).Errorf("ruleset already finalized")
	}
	if strings.TrimSpace(rule.Name) == "" {
		return oops.Code(CodeInvalidRule).Errorf("ability rule name cannot be empty")
	}
	if _, dup := b.names[rule.Name]; dup {
		return oops.Code(CodeDuplicateRule).With("rule", rule.Name).Errorf("ability rule %q already defined", rule.Name)
	}
	if rule.Targets == TargetNone {
		return oops.Code(CodeInvalidRule).With("rule", rule.Name).Errorf("ability rule %q has no targets", rule.Name)
	}
	if _, ok := groupingNames[rule.Grouping]; !ok {
		return oops.Code(CodeInvalidRule).With("rule", rule.Name).With("grouping", int(rule.Grouping)).Errorf("ability rule %q: invalid grouping rule", rule.Name)
	}
	if _, ok := stackingNames[rule.Stacking]; !ok {
		return oops.Code(CodeInvalidRule).With("rule", rule.Name).With("stacking", int(rule.Stacking)).Errorf("ability rule %q: invalid stacking rule", rule.Name)
	}

	r := rule
	r.Aliases = append([]string(nil), rule.Aliases...)
	if err := r.compile(); err != nil {
		return err
	}
	b.rules = append(b.rules, &r)
	b.names[r.Name] = struct{}{}
	return nil
}

// Finalize checks that no rule's name is claimed by another rule's alias and
// returns the ruleset.
func (b *RulesetBuilder) Finalize() (*Ruleset, error) {
	if b.finalized {
		return nil, oops.Code(CodeRulesetFinalized).Errorf("ruleset already finalized")
	}
	for _, r := range b.rules {
		for _, other := range b.rules {
			if other != r && other.Matches(r.Name) {
				return nil, oops.Code(CodeRuleConflict).
					With("rule", r.Name).
					With("claimed_by", other.Name).
					Errorf("ability rule %q is also matched by rule %q", r.Name, other.Name)
			}
		}
	}
	b.finalized = true

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	rs := &Ruleset{
		rules:    b.rules,
		byName:   make(map[string]*Rule, len(b.rules)),
		resolved: make(map[string]*Rule),
		logger:   logger,
	}
	for _, r := range b.rules {
		rs.byName[r.Name] = r
	}
	return rs, nil
}

// Ruleset is the finalized, ordered set of ability rules of a mod.
// It is safe for concurrent use.
type Ruleset struct {
	rules  []*Rule
	byName map[string]*Rule
	logger *slog.Logger

	mu       sync.RWMutex
	resolved map[string]*Rule // memoised alias lookups, nil entries included
}

// Rules returns the rules in definition order.
func (rs *Ruleset) Rules() []*Rule {
	out := make([]*Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules.
func (rs *Ruleset) Len() int { return len(rs.rules) }

// Rule returns the rule with exactly this name.
func (rs *Ruleset) Rule(name string) (*Rule, bool) {
	r, ok := rs.byName[name]
	return r, ok
}

// RuleFor returns the rule governing abilities called name, or nil.
// An exact rule name wins over alias patterns; among aliases the first rule
// in definition order wins.
func (rs *Ruleset) RuleFor(name string) *Rule {
	if rs == nil {
		return nil
	}
	if r, ok := rs.byName[name]; ok {
		return r
	}

	rs.mu.RLock()
	r, ok := rs.resolved[name]
	rs.mu.RUnlock()
	if ok {
		return r
	}

	for _, candidate := range rs.rules {
		if candidate.Matches(name) {
			r = candidate
			break
		}
	}
	rs.mu.Lock()
	rs.resolved[name] = r
	rs.mu.Unlock()
	return r
}

// CanTarget reports whether an ability may apply to a category under this
// ruleset. Abilities no rule governs apply everywhere.
func (rs *Ruleset) CanTarget(a *Ability, t Target) bool {
	return rs.RuleFor(a.Name).CanTarget(t)
}
