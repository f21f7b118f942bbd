// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

import (
	"context"
	"log/slog"
)

// Engine answers ability queries against one galaxy snapshot. Formula
// evaluation errors are returned as-is. An Engine is not safe for concurrent
// use; it shares the snapshot's single-threaded ownership.
type Engine struct {
	rules    *Ruleset
	world    World
	cache    *Cache
	observer Empire
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache memoises results in c. Without a cache every query recomputes.
func WithCache(c *Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithObserver sets the empire whose client is asking. Results are only
// cached while an observer is set.
func WithObserver(emp Empire) Option {
	return func(e *Engine) { e.observer = emp }
}

// WithLogger sets the engine's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine over rules. world may be nil, in which case no
// ability is ever shared.
func NewEngine(rules *Ruleset, world World, opts ...Option) *Engine {
	e := &Engine{rules: rules, world: world}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Rules returns the engine's ruleset.
func (e *Engine) Rules() *Ruleset { return e.rules }

// Observer returns the observing empire, or nil.
func (e *Engine) Observer() Empire { return e.observer }

func (e *Engine) cacheable(filter SourceFilter) bool {
	return filter == nil && e.observer != nil && e.cache != nil
}

// Abilities returns the stacked abilities of obj. With no filter and an
// observer set, the result comes from and goes to the cache. The returned
// slice is shared with the cache and must not be modified.
func (e *Engine) Abilities(ctx context.Context, obj Object, filter SourceFilter) ([]*Ability, error) {
	return e.abilities(ctx, obj, filter, false)
}

// LocalAbilities is Abilities without treaty-shared abilities.
func (e *Engine) LocalAbilities(ctx context.Context, obj Object, filter SourceFilter) ([]*Ability, error) {
	return e.abilities(ctx, obj, filter, true)
}

func (e *Engine) abilities(ctx context.Context, obj Object, filter SourceFilter, local bool) ([]*Ability, error) {
	cacheable := e.cacheable(filter)
	if cacheable {
		if cached, ok := e.cache.Object(obj, local); ok {
			return cached, nil
		}
	}

	var raw []*Ability
	var err error
	if local {
		raw = e.localUnstacked(obj, filter)
	} else {
		raw, err = e.UnstackedAbilities(ctx, obj, filter)
		if err != nil {
			return nil, err
		}
	}
	stacked, err := e.rules.Stack(ctx, raw, obj)
	if err != nil {
		return nil, err
	}
	if cacheable {
		e.cache.StoreObject(obj, local, stacked)
	}
	return stacked, nil
}

// UnstackedAbilities returns, before stacking and in this order: obj's own
// abilities (when filter accepts obj), abilities shared to it by treaty, and
// abilities passed up from descendants and down from ancestors. Only
// abilities that may target obj's category are included.
func (e *Engine) UnstackedAbilities(ctx context.Context, obj Object, filter SourceFilter) ([]*Ability, error) {
	out := e.intrinsic(obj, filter)
	shared, err := e.SharedAbilities(ctx, obj, filter)
	if err != nil {
		return nil, err
	}
	out = append(out, shared...)
	out = append(out, e.DescendantAbilities(obj)...)
	out = append(out, e.AncestorAbilities(obj)...)
	return out, nil
}

func (e *Engine) localUnstacked(obj Object, filter SourceFilter) []*Ability {
	out := e.intrinsic(obj, filter)
	out = append(out, e.DescendantAbilities(obj)...)
	out = append(out, e.AncestorAbilities(obj)...)
	return out
}

func (e *Engine) intrinsic(obj Object, filter SourceFilter) []*Ability {
	if filter != nil && !filter(obj) {
		return nil
	}
	return e.applicable(obj.IntrinsicAbilities(), obj.AbilityTarget())
}

func (e *Engine) applicable(abils []*Ability, t Target) []*Ability {
	out := make([]*Ability, 0, len(abils))
	for _, a := range abils {
		if e.rules.CanTarget(a, t) {
			out = append(out, a)
		}
	}
	return out
}

// DescendantAbilities returns abilities passed up from obj's children and
// their descendants that may target obj's category. Every child-to-parent
// step filters by the parent's category, so an ability stops at the first
// level it cannot target. An object reachable along several paths
// contributes once per path; a path that returns to one of its own objects
// ends there.
func (e *Engine) DescendantAbilities(obj Object) []*Ability {
	return e.descendants(obj, map[Object]bool{obj: true})
}

// descendants walks obj's subtree. path holds the objects between the root
// and obj and is restored before returning.
func (e *Engine) descendants(obj Object, path map[Object]bool) []*Ability {
	var out []*Ability
	t := obj.AbilityTarget()
	for _, child := range obj.Children() {
		if child == nil || path[child] {
			continue
		}
		path[child] = true
		for _, a := range child.IntrinsicAbilities() {
			if e.rules.CanTarget(a, t) {
				out = append(out, a)
			}
		}
		for _, a := range e.descendants(child, path) {
			if e.rules.CanTarget(a, t) {
				out = append(out, a)
			}
		}
		delete(path, child)
	}
	return out
}

// AncestorAbilities returns abilities inherited from obj's parent and its
// ancestors that may target obj's category.
func (e *Engine) AncestorAbilities(obj Object) []*Ability {
	return e.ancestors(obj, map[Object]bool{obj: true})
}

func (e *Engine) ancestors(obj Object, visited map[Object]bool) []*Ability {
	parent := obj.Parent()
	if parent == nil || visited[parent] {
		return nil
	}
	visited[parent] = true
	t := obj.AbilityTarget()
	var out []*Ability
	for _, a := range parent.IntrinsicAbilities() {
		if e.rules.CanTarget(a, t) {
			out = append(out, a)
		}
	}
	for _, a := range e.ancestors(parent, visited) {
		if e.rules.CanTarget(a, t) {
			out = append(out, a)
		}
	}
	return out
}

// AbilityTree returns obj's stacked abilities with their contributors.
func (e *Engine) AbilityTree(ctx context.Context, obj Object, filter SourceFilter) (*Tree, error) {
	raw, err := e.UnstackedAbilities(ctx, obj, filter)
	if err != nil {
		return nil, err
	}
	return e.rules.StackToTree(ctx, raw, obj)
}

// CommonAbilities returns the stacked abilities of an aggregate as seen by
// emp: obj's own intrinsic abilities when it is also an Object, followed by
// the abilities of every object it contains for emp, restricted to those
// that may target obj's category.
func (e *Engine) CommonAbilities(ctx context.Context, obj CommonObject, emp Empire, filter SourceFilter) ([]*Ability, error) {
	return e.commonAbilities(ctx, obj, emp, filter, false)
}

// commonAbilities with local set gathers contributions without their
// treaty-shared abilities. Sharing uses it, so shared abilities are never
// shared onwards.
func (e *Engine) commonAbilities(ctx context.Context, obj CommonObject, emp Empire, filter SourceFilter, local bool) ([]*Ability, error) {
	cacheable := e.cacheable(filter)
	if cacheable {
		if cached, ok := e.cache.Common(obj, emp, local); ok {
			return cached, nil
		}
	}

	t := obj.AbilityTarget()
	var raw []*Ability
	if own, ok := obj.(Object); ok {
		raw = append(raw, e.applicable(own.IntrinsicAbilities(), t)...)
	}
	for _, o := range obj.ContainedAbilityObjects(emp) {
		if filter != nil && !filter(o) {
			continue
		}
		abils, err := e.abilities(ctx, o, nil, local)
		if err != nil {
			return nil, err
		}
		raw = append(raw, e.applicable(abils, t)...)
	}

	stacked, err := e.rules.Stack(ctx, raw, obj)
	if err != nil {
		return nil, err
	}
	if cacheable {
		e.cache.StoreCommon(obj, emp, local, stacked)
	}
	return stacked, nil
}

// SharedAbilities returns the abilities shared to obj through its owner's
// treaties. Unowned objects receive nothing. Each clause is scoped to the
// object's sector if its rule can target sectors, else its star system,
// else the galaxy, and draws from every empire in the galaxy.
func (e *Engine) SharedAbilities(ctx context.Context, obj Object, filter SourceFilter) ([]*Ability, error) {
	owned, ok := obj.(Owned)
	if !ok {
		return nil, nil
	}
	owner := owned.Owner()
	if owner == nil {
		return nil, nil
	}
	located, _ := obj.(Located)
	return e.shared(ctx, owner, obj.AbilityTarget(), func(rule *Rule) CommonObject {
		return e.shareScope(rule, located, nil)
	}, filter)
}

// SharedCommonAbilities returns the abilities shared by treaty to emp within
// the aggregate obj.
func (e *Engine) SharedCommonAbilities(ctx context.Context, obj CommonObject, emp Empire, filter SourceFilter) ([]*Ability, error) {
	if emp == nil {
		return nil, nil
	}
	located, _ := obj.(Located)
	return e.shared(ctx, emp, obj.AbilityTarget(), func(rule *Rule) CommonObject {
		return e.shareScope(rule, located, obj)
	}, filter)
}

func (e *Engine) shareScope(rule *Rule, located Located, self CommonObject) CommonObject {
	switch {
	case rule.CanTarget(TargetSector) && located != nil:
		return located.Sector()
	case rule.CanTarget(TargetSector) && self != nil && self.AbilityTarget() == TargetSector:
		return self
	case rule.CanTarget(TargetStarSystem) && located != nil:
		return located.StarSystem()
	case rule.CanTarget(TargetStarSystem) && self != nil && self.AbilityTarget() == TargetStarSystem:
		return self
	case rule.CanTarget(TargetGalaxy) && e.world != nil:
		return e.world.Galaxy()
	default:
		return nil
	}
}

type shareKey struct {
	rule  *Rule
	scope CommonObject
}

func (e *Engine) shared(ctx context.Context, receiver Empire, t Target, scopeOf func(*Rule) CommonObject, filter SourceFilter) ([]*Ability, error) {
	if e.world == nil {
		return nil, nil
	}
	var out []*Ability
	seen := make(map[shareKey]bool)
	for _, clause := range receiver.ReceivedShareClauses() {
		rule := clause.Rule
		if rule == nil || !rule.CanTarget(t) {
			continue
		}
		scope := scopeOf(rule)
		if scope == nil {
			continue
		}
		key := shareKey{rule: rule, scope: scope}
		if seen[key] {
			continue
		}
		seen[key] = true

		for _, emp := range e.world.Empires() {
			if emp == nil {
				continue
			}
			abils, err := e.commonAbilities(ctx, scope, emp, filter, true)
			if err != nil {
				return nil, err
			}
			for _, a := range abils {
				if e.rules.RuleFor(a.Name) == rule {
					out = append(out, a)
				}
			}
		}
	}
	return out, nil
}
