// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

// Package galaxy is the in-memory simulation snapshot the ability engine
// runs against. Every object lives in one arena and refers to others by ID.
// A snapshot is owned by a single goroutine.
package galaxy

import (
	"log/slog"

	"github.com/freee/freee/internal/ability"
	"github.com/freee/freee/internal/formula"
	"github.com/freee/freee/internal/referrable"
)

type treaty struct {
	giver    referrable.Ref[*Empire]
	receiver referrable.Ref[*Empire]
	rule     string
}

// Galaxy is a simulation snapshot and the root of its object hierarchy.
type Galaxy struct {
	node
	reg      *referrable.Registry
	rules    *ability.Ruleset
	formulas *formula.Engine
	cache    *ability.Cache
	logger   *slog.Logger
	turn     int
	treaties []treaty
}

var (
	_ ability.Object       = (*Galaxy)(nil)
	_ ability.CommonObject = (*Galaxy)(nil)
	_ ability.World        = (*Galaxy)(nil)
)

// Option configures a Galaxy.
type Option func(*Galaxy)

// WithLogger sets the snapshot's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Galaxy) { g.logger = logger }
}

// WithFormulas sets the engine used for script ability values. Without one,
// every value is a literal.
func WithFormulas(engine *formula.Engine) Option {
	return func(g *Galaxy) { g.formulas = engine }
}

// New creates an empty snapshot governed by rules.
func New(name string, rules *ability.Ruleset, opts ...Option) *Galaxy {
	g := &Galaxy{
		reg:   referrable.NewRegistry(),
		rules: rules,
		turn:  1,
	}
	g.node = node{g: g, name: name}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.cache = ability.NewCache(g.logger)
	return g
}

// Turn returns the current turn number.
func (g *Galaxy) Turn() int { return g.turn }

// Rules returns the snapshot's ruleset.
func (g *Galaxy) Rules() *ability.Ruleset { return g.rules }

// Cache returns the snapshot's ability cache.
func (g *Galaxy) Cache() *ability.Cache { return g.cache }

// Engine returns an ability engine over the snapshot. Results are cached
// only when observer is non-nil.
func (g *Galaxy) Engine(observer *Empire) *ability.Engine {
	opts := []ability.Option{ability.WithCache(g.cache), ability.WithLogger(g.logger)}
	if observer != nil {
		opts = append(opts, ability.WithObserver(observer))
	}
	return ability.NewEngine(g.rules, g, opts...)
}

// AbilityTarget implements ability.Object.
func (g *Galaxy) AbilityTarget() ability.Target { return ability.TargetGalaxy }

// Parent implements ability.Object. The galaxy is the root.
func (g *Galaxy) Parent() ability.Object { return nil }

// Children returns the star systems.
func (g *Galaxy) Children() []ability.Object {
	var out []ability.Object
	for _, s := range g.StarSystems() {
		out = append(out, s)
	}
	return out
}

// ContainedAbilityObjects returns every space object emp owns.
func (g *Galaxy) ContainedAbilityObjects(emp ability.Empire) []ability.Object {
	return g.owned(emp, func(spaceObject) bool { return true })
}

// Empires implements ability.World.
func (g *Galaxy) Empires() []ability.Empire {
	var out []ability.Empire
	for _, e := range entities[*Empire](g) {
		out = append(out, e)
	}
	return out
}

// Galaxy implements ability.World.
func (g *Galaxy) Galaxy() ability.CommonObject { return g }

// EmpireList returns the empires in ID order.
func (g *Galaxy) EmpireList() []*Empire { return entities[*Empire](g) }

// StarSystems returns the star systems in ID order.
func (g *Galaxy) StarSystems() []*StarSystem { return entities[*StarSystem](g) }

// Lookup returns the live object with the given ID.
func (g *Galaxy) Lookup(id referrable.ID) (Entity, error) {
	return referrable.Resolve[Entity](g.reg, id)
}

// Find returns the live object with the given name, lowest ID first.
func (g *Galaxy) Find(name string) (Entity, bool) {
	for _, obj := range g.reg.All() {
		if e, ok := obj.(Entity); ok && !e.IsDisposed() && e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// Objects returns every live object in ID order.
func (g *Galaxy) Objects() []Entity { return entities[Entity](g) }

func entities[T Entity](g *Galaxy) []T {
	var out []T
	for _, obj := range g.reg.All() {
		if t, ok := obj.(T); ok && !t.IsDisposed() {
			out = append(out, t)
		}
	}
	return out
}

func (g *Galaxy) spaceObjects() []spaceObject { return entities[spaceObject](g) }

// owned returns the top-level space objects owned by emp that match keep.
func (g *Galaxy) owned(emp ability.Empire, keep func(spaceObject) bool) []ability.Object {
	e, ok := emp.(*Empire)
	if !ok || e == nil {
		return nil
	}
	var out []ability.Object
	for _, o := range g.spaceObjects() {
		if o.topLevel() && o.ownerRef().ID() == e.ID() && keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// object resolves id to a live object, or to an untyped nil.
func (g *Galaxy) object(id referrable.ID) ability.Object {
	e, err := referrable.Resolve[Entity](g.reg, id)
	if err != nil {
		return nil
	}
	return e
}

func (g *Galaxy) empireOf(r referrable.Ref[*Empire]) ability.Empire {
	if e, ok := r.Resolve(g.reg); ok {
		return e
	}
	return nil
}

func (g *Galaxy) systemOf(r referrable.Ref[*StarSystem]) ability.CommonObject {
	if s, ok := r.Resolve(g.reg); ok {
		return s
	}
	return nil
}

func (g *Galaxy) sectorAt(r referrable.Ref[*StarSystem], at Coords) ability.CommonObject {
	if s, ok := r.Resolve(g.reg); ok {
		return s.Sector(at)
	}
	return nil
}
