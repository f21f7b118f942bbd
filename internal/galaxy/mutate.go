// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package galaxy

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/freee/freee/internal/ability"
	"github.com/freee/freee/internal/formula"
	"github.com/freee/freee/internal/referrable"
)

// Every method here changes an input of ability collection and invalidates
// the snapshot's cache.

func (g *Galaxy) register(e Entity, reason string) error {
	if strings.TrimSpace(e.Name()) == "" {
		return oops.Code(CodeInvalidScenario).Errorf("object name cannot be empty")
	}
	if _, taken := g.Find(e.Name()); taken {
		return oops.Code(CodeDuplicateName).With("name", e.Name()).Errorf("an object named %q already exists", e.Name())
	}
	if _, err := g.reg.Register(e); err != nil {
		return oops.With("name", e.Name()).Wrap(err)
	}
	g.cache.Invalidate(reason)
	return nil
}

// AddEmpire creates an empire.
func (g *Galaxy) AddEmpire(name string) (*Empire, error) {
	e := &Empire{node: node{g: g, name: name}}
	if err := g.register(e, "empire added"); err != nil {
		return nil, err
	}
	return e, nil
}

// AddStarSystem creates a star system.
func (g *Galaxy) AddStarSystem(name string) (*StarSystem, error) {
	s := &StarSystem{node: node{g: g, name: name}}
	if err := g.register(s, "star system added"); err != nil {
		return nil, err
	}
	return s, nil
}

// AddPlanet creates a planet in sys at the given coordinates. owner may be nil.
func (g *Galaxy) AddPlanet(sys *StarSystem, name string, at Coords, owner *Empire) (*Planet, error) {
	p := &Planet{node: node{g: g, name: name}, system: referrable.NewRef(sys), at: at, owner: refOrZero(owner)}
	if err := g.register(p, "planet added"); err != nil {
		return nil, err
	}
	return p, nil
}

// AddFleet creates an empty fleet in sys at the given coordinates.
func (g *Galaxy) AddFleet(sys *StarSystem, name string, at Coords, owner *Empire) (*Fleet, error) {
	f := &Fleet{node: node{g: g, name: name}, system: referrable.NewRef(sys), at: at, owner: refOrZero(owner)}
	if err := g.register(f, "fleet added"); err != nil {
		return nil, err
	}
	return f, nil
}

// AddShip creates a ship flying alone in sys at the given coordinates.
func (g *Galaxy) AddShip(sys *StarSystem, name string, at Coords, owner *Empire) (*Ship, error) {
	s := &Ship{node: node{g: g, name: name}, system: referrable.NewRef(sys), at: at, owner: refOrZero(owner)}
	if err := g.register(s, "ship added"); err != nil {
		return nil, err
	}
	return s, nil
}

// AddComponent mounts a new component on ship.
func (g *Galaxy) AddComponent(ship *Ship, name string) (*Component, error) {
	c := &Component{node: node{g: g, name: name}, ship: referrable.NewRef(ship)}
	if err := g.register(c, "component added"); err != nil {
		return nil, err
	}
	ship.components = append(ship.components, referrable.NewRef(c))
	return c, nil
}

// AddFacility builds a new facility on planet.
func (g *Galaxy) AddFacility(planet *Planet, name string) (*Facility, error) {
	f := &Facility{node: node{g: g, name: name}, planet: referrable.NewRef(planet)}
	if err := g.register(f, "facility added"); err != nil {
		return nil, err
	}
	planet.facilities = append(planet.facilities, referrable.NewRef(f))
	return f, nil
}

// Grant gives h an ability. Values beginning with "=" are Lua expressions,
// evaluated at most once with the globals turn and name bound to the current
// turn and h's name.
func (g *Galaxy) Grant(h Holder, name string, values ...string) *ability.Ability {
	vars := map[string]any{"turn": g.turn, "name": h.Name()}
	a := &ability.Ability{Name: name, Container: h}
	for _, v := range values {
		a.Values = append(a.Values, formula.Parse(g.formulas, v, vars))
	}
	n := h.holder()
	n.abilities = append(n.abilities, a)
	g.cache.Invalidate("ability granted")
	return a
}

// Revoke removes every ability called name from h and returns how many were removed.
func (g *Galaxy) Revoke(h Holder, name string) int {
	n := h.holder()
	kept := n.abilities[:0]
	removed := 0
	for _, a := range n.abilities {
		if a.Name == name {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	for i := len(kept); i < len(n.abilities); i++ {
		n.abilities[i] = nil
	}
	n.abilities = kept
	if removed > 0 {
		g.cache.Invalidate("ability revoked")
	}
	return removed
}

// SetOwner transfers a planet, fleet or loose ship to emp, or leaves it
// unowned when emp is nil. Ships in a fleet move with it.
func (g *Galaxy) SetOwner(obj Entity, emp *Empire) error {
	owner := refOrZero(emp)
	switch o := obj.(type) {
	case *Planet:
		o.owner = owner
	case *Fleet:
		o.owner = owner
		for _, s := range o.Ships() {
			s.owner = owner
		}
	case *Ship:
		if !o.topLevel() {
			return oops.Code(CodeInvalidMove).With("ship", o.Name()).Errorf("ship %q belongs to a fleet; transfer the fleet", o.Name())
		}
		o.owner = owner
	default:
		return oops.Code(CodeInvalidMove).With("object", obj.Name()).Errorf("%q cannot be owned on its own", obj.Name())
	}
	g.cache.Invalidate("owner changed")
	return nil
}

// Move relocates a planet, fleet or loose ship.
func (g *Galaxy) Move(obj Entity, sys *StarSystem, at Coords) error {
	to := referrable.NewRef(sys)
	switch o := obj.(type) {
	case *Planet:
		o.system, o.at = to, at
	case *Fleet:
		o.system, o.at = to, at
	case *Ship:
		if !o.topLevel() {
			return oops.Code(CodeInvalidMove).With("ship", o.Name()).Errorf("ship %q moves with its fleet", o.Name())
		}
		o.system, o.at = to, at
	default:
		return oops.Code(CodeInvalidMove).With("object", obj.Name()).Errorf("%q cannot move on its own", obj.Name())
	}
	g.cache.Invalidate("object moved")
	return nil
}

// JoinFleet puts a loose ship into fleet. Both must share an owner and sector.
func (g *Galaxy) JoinFleet(ship *Ship, fleet *Fleet) error {
	if !ship.topLevel() {
		return oops.Code(CodeInvalidMove).With("ship", ship.Name()).Errorf("ship %q is already in a fleet", ship.Name())
	}
	sys, at := ship.position()
	if sys.ID() != fleet.system.ID() || at != fleet.at {
		return oops.Code(CodeInvalidMove).
			With("ship", ship.Name()).
			With("fleet", fleet.Name()).
			Errorf("ship %q is not in fleet %q's sector", ship.Name(), fleet.Name())
	}
	if ship.owner.ID() != fleet.owner.ID() {
		return oops.Code(CodeInvalidMove).
			With("ship", ship.Name()).
			With("fleet", fleet.Name()).
			Errorf("ship %q and fleet %q have different owners", ship.Name(), fleet.Name())
	}
	ship.fleet = referrable.NewRef(fleet)
	fleet.ships = append(fleet.ships, referrable.NewRef(ship))
	g.cache.Invalidate("ship joined fleet")
	return nil
}

// LeaveFleet detaches ship from its fleet, leaving it in the fleet's sector.
func (g *Galaxy) LeaveFleet(ship *Ship) error {
	fleet, ok := ship.Fleet()
	if !ok {
		return oops.Code(CodeInvalidMove).With("ship", ship.Name()).Errorf("ship %q is not in a fleet", ship.Name())
	}
	ship.system, ship.at = fleet.system, fleet.at
	ship.fleet = referrable.Ref[*Fleet]{}
	fleet.ships = removeRef(fleet.ships, ship.ID())
	g.cache.Invalidate("ship left fleet")
	return nil
}

// Share adds a treaty clause under which giver shares abilities governed by
// the named rule with receiver.
func (g *Galaxy) Share(giver, receiver *Empire, rule string) error {
	if _, ok := g.rules.Rule(rule); !ok {
		return oops.Code(CodeUnknownRule).With("rule", rule).Errorf("no ability rule named %q", rule)
	}
	g.treaties = append(g.treaties, treaty{
		giver:    referrable.NewRef(giver),
		receiver: referrable.NewRef(receiver),
		rule:     rule,
	})
	g.cache.Invalidate("treaty signed")
	return nil
}

// Unshare removes giver's clauses sharing rule with receiver and reports
// whether any existed.
func (g *Galaxy) Unshare(giver, receiver *Empire, rule string) bool {
	kept := g.treaties[:0]
	removed := false
	for _, t := range g.treaties {
		if t.giver.ID() == giver.ID() && t.receiver.ID() == receiver.ID() && t.rule == rule {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	g.treaties = kept
	if removed {
		g.cache.Invalidate("treaty broken")
	}
	return removed
}

// Dispose marks obj and everything it carries as destroyed. Disposed objects
// stop contributing at once and are swept on the next turn.
func (g *Galaxy) Dispose(obj Entity) {
	switch o := obj.(type) {
	case *Ship:
		for _, c := range resolveAll(g, o.components) {
			c.(Entity).Dispose()
		}
		if f, ok := o.Fleet(); ok {
			f.ships = removeRef(f.ships, o.ID())
		}
	case *Fleet:
		for _, s := range o.Ships() {
			g.Dispose(s)
		}
	case *Planet:
		for _, f := range resolveAll(g, o.facilities) {
			f.(Entity).Dispose()
		}
	case *Component:
		if s, ok := o.ship.Resolve(g.reg); ok {
			s.components = removeRef(s.components, o.ID())
		}
	case *Facility:
		if p, ok := o.planet.Resolve(g.reg); ok {
			p.facilities = removeRef(p.facilities, o.ID())
		}
	}
	obj.Dispose()
	g.cache.Invalidate("object disposed")
}

// CopyShip builds a copy of ship and its components with fresh IDs. The copy
// flies alone in the original's sector.
func (g *Galaxy) CopyShip(ship *Ship, name string) (*Ship, error) {
	if _, taken := g.Find(name); taken {
		return nil, oops.Code(CodeDuplicateName).With("name", name).Errorf("an object named %q already exists", name)
	}
	cp := *ship
	cp.name = name
	cp.system, cp.at = ship.position()
	cp.fleet = referrable.Ref[*Fleet]{}
	cp.abilities = g.copyAbilities(&cp, ship.abilities)
	cp.components = nil
	if _, err := g.reg.Reassign(&cp); err != nil {
		return nil, oops.With("ship", ship.Name()).Wrap(err)
	}

	for _, ref := range ship.components {
		orig, ok := ref.Resolve(g.reg)
		if !ok {
			continue
		}
		c := *orig
		c.name = name + " " + orig.name
		c.ship = referrable.NewRef(&cp)
		c.abilities = g.copyAbilities(&c, orig.abilities)
		if _, err := g.reg.Reassign(&c); err != nil {
			return nil, oops.With("component", orig.Name()).Wrap(err)
		}
		cp.components = append(cp.components, referrable.NewRef(&c))
	}
	g.cache.Invalidate("ship copied")
	return &cp, nil
}

func (g *Galaxy) copyAbilities(owner Holder, abils []*ability.Ability) []*ability.Ability {
	out := make([]*ability.Ability, len(abils))
	for i, a := range abils {
		cp := *a
		cp.Values = append([]formula.Formula(nil), a.Values...)
		cp.Container = owner
		out[i] = &cp
	}
	return out
}

// RemapIDs rewrites client-side provisional IDs to their authoritative
// values, updating every stored reference. Either all of mapping applies or
// none does.
func (g *Galaxy) RemapIDs(mapping map[referrable.ID]referrable.ID) error {
	if err := g.reg.Remap(mapping); err != nil {
		return err
	}
	for _, e := range entities[Entity](g) {
		e.remapIDs(mapping)
	}
	for i := range g.treaties {
		g.treaties[i].giver = g.treaties[i].giver.Remap(mapping)
		g.treaties[i].receiver = g.treaties[i].receiver.Remap(mapping)
	}
	g.cache.Invalidate("ids remapped")
	return nil
}

// NewTurn advances the turn, sweeps disposed objects and starts a new cache
// generation.
func (g *Galaxy) NewTurn(ctx context.Context) {
	g.turn++
	swept := g.reg.CleanDisposed()
	g.cache.Invalidate("new turn")
	g.logger.InfoContext(ctx, "turn started",
		slog.Int("turn", g.turn),
		slog.Int("disposed_swept", swept),
		slog.Int("objects", g.reg.Len()),
	)
}

func refOrZero(e *Empire) referrable.Ref[*Empire] {
	if e == nil {
		return referrable.Ref[*Empire]{}
	}
	return referrable.NewRef(e)
}

func removeRef[T referrable.Referrable](refs []referrable.Ref[T], id referrable.ID) []referrable.Ref[T] {
	out := refs[:0]
	for _, r := range refs {
		if r.ID() != id {
			out = append(out, r)
		}
	}
	return out
}
