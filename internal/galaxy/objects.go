// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package galaxy

import (
	"github.com/freee/freee/internal/ability"
	"github.com/freee/freee/internal/referrable"
)

// Coords locates a sector within its star system.
type Coords struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// node is the state shared by every object of a snapshot.
type node struct {
	referrable.Base
	g         *Galaxy
	name      string
	abilities []*ability.Ability
}

// ID returns the object's ID.
func (n *node) ID() referrable.ID { return n.ReferrableID() }

// Name returns the display name.
func (n *node) Name() string { return n.name }

// IntrinsicAbilities returns the abilities granted directly to the object.
func (n *node) IntrinsicAbilities() []*ability.Ability { return n.abilities }

func (n *node) holder() *node { return n }

// Holder is anything abilities can be granted to, the galaxy included.
type Holder interface {
	ability.Object
	Name() string
	holder() *node
}

// Entity is a registered object of a snapshot.
type Entity interface {
	referrable.Referrable
	Holder
	ID() referrable.ID
	remapIDs(mapping map[referrable.ID]referrable.ID)
}

// spaceObject is an entity that sits in a sector on its own.
type spaceObject interface {
	Entity
	position() (referrable.Ref[*StarSystem], Coords)
	ownerRef() referrable.Ref[*Empire]
	topLevel() bool
}

// Empire is a player or AI faction. Its descendants are the planets it owns,
// so empire-wide abilities gather from its colonies.
type Empire struct {
	node
}

var (
	_ ability.Object = (*Empire)(nil)
	_ ability.Empire = (*Empire)(nil)
)

// AbilityTarget implements ability.Object.
func (e *Empire) AbilityTarget() ability.Target { return ability.TargetEmpire }

// Parent implements ability.Object. Empires are roots.
func (e *Empire) Parent() ability.Object { return nil }

// Children returns the planets the empire owns.
func (e *Empire) Children() []ability.Object {
	var out []ability.Object
	for _, o := range e.g.spaceObjects() {
		if p, ok := o.(*Planet); ok && p.owner.ID() == e.ID() {
			out = append(out, p)
		}
	}
	return out
}

// ReceivedShareClauses returns the sharing clauses of treaties in which the
// empire receives. Clauses naming a rule the ruleset lacks are skipped.
func (e *Empire) ReceivedShareClauses() []ability.ShareClause {
	var out []ability.ShareClause
	for _, t := range e.g.treaties {
		if t.receiver.ID() != e.ID() {
			continue
		}
		rule, ok := e.g.rules.Rule(t.rule)
		if !ok {
			continue
		}
		var giver ability.Empire
		if emp, ok := t.giver.Resolve(e.g.reg); ok {
			giver = emp
		}
		out = append(out, ability.ShareClause{Giver: giver, Rule: rule})
	}
	return out
}

func (e *Empire) remapIDs(map[referrable.ID]referrable.ID) {}

// StarSystem is a system of sectors. As an object its children are the
// planets, fleets and loose ships in it; as an aggregate it sums those an
// empire owns.
type StarSystem struct {
	node
}

var (
	_ ability.Object       = (*StarSystem)(nil)
	_ ability.CommonObject = (*StarSystem)(nil)
)

// AbilityTarget implements ability.Object.
func (s *StarSystem) AbilityTarget() ability.Target { return ability.TargetStarSystem }

// Parent returns the galaxy.
func (s *StarSystem) Parent() ability.Object { return s.g }

// Children returns the space objects in the system.
func (s *StarSystem) Children() []ability.Object {
	var out []ability.Object
	for _, o := range s.g.spaceObjects() {
		if sys, _ := o.position(); o.topLevel() && sys.ID() == s.ID() {
			out = append(out, o)
		}
	}
	return out
}

// ContainedAbilityObjects returns the space objects in the system owned by emp.
func (s *StarSystem) ContainedAbilityObjects(emp ability.Empire) []ability.Object {
	return s.g.owned(emp, func(o spaceObject) bool {
		sys, _ := o.position()
		return sys.ID() == s.ID()
	})
}

// Sector returns the sector of the system at the given coordinates.
func (s *StarSystem) Sector(at Coords) Sector {
	return Sector{g: s.g, system: referrable.NewRef(s), at: at}
}

func (s *StarSystem) remapIDs(map[referrable.ID]referrable.ID) {}

// Sector is a location within a star system. Sectors are values: two
// Sectors with the same system and coordinates are the same sector.
type Sector struct {
	g      *Galaxy
	system referrable.Ref[*StarSystem]
	at     Coords
}

var (
	_ ability.CommonObject = Sector{}
	_ ability.Located      = Sector{}
)

// Coords returns the sector's coordinates.
func (s Sector) Coords() Coords { return s.at }

// AbilityTarget implements ability.CommonObject.
func (s Sector) AbilityTarget() ability.Target { return ability.TargetSector }

// ContainedAbilityObjects returns the space objects in the sector owned by emp.
func (s Sector) ContainedAbilityObjects(emp ability.Empire) []ability.Object {
	return s.g.owned(emp, func(o spaceObject) bool {
		sys, at := o.position()
		return sys.ID() == s.system.ID() && at == s.at
	})
}

// Sector returns the sector itself.
func (s Sector) Sector() ability.CommonObject { return s }

// StarSystem returns the sector's system.
func (s Sector) StarSystem() ability.CommonObject { return s.g.systemOf(s.system) }

// Planet is a world that can be colonised.
type Planet struct {
	node
	owner      referrable.Ref[*Empire]
	system     referrable.Ref[*StarSystem]
	at         Coords
	facilities []referrable.Ref[*Facility]
}

var (
	_ ability.Object  = (*Planet)(nil)
	_ ability.Owned   = (*Planet)(nil)
	_ ability.Located = (*Planet)(nil)
)

// AbilityTarget implements ability.Object.
func (p *Planet) AbilityTarget() ability.Target { return ability.TargetPlanet }

// Parent returns the planet's star system.
func (p *Planet) Parent() ability.Object { return p.g.object(p.system.ID()) }

// Children returns the planet's facilities.
func (p *Planet) Children() []ability.Object { return resolveAll(p.g, p.facilities) }

// Owner returns the owning empire, or nil.
func (p *Planet) Owner() ability.Empire { return p.g.empireOf(p.owner) }

// Sector returns the planet's sector.
func (p *Planet) Sector() ability.CommonObject { return p.g.sectorAt(p.system, p.at) }

// StarSystem returns the planet's system.
func (p *Planet) StarSystem() ability.CommonObject { return p.g.systemOf(p.system) }

func (p *Planet) position() (referrable.Ref[*StarSystem], Coords) { return p.system, p.at }
func (p *Planet) ownerRef() referrable.Ref[*Empire]               { return p.owner }
func (p *Planet) topLevel() bool                                  { return true }

func (p *Planet) remapIDs(m map[referrable.ID]referrable.ID) {
	p.owner = p.owner.Remap(m)
	p.system = p.system.Remap(m)
	remapAll(p.facilities, m)
}

// Fleet groups ships that move together.
type Fleet struct {
	node
	owner  referrable.Ref[*Empire]
	system referrable.Ref[*StarSystem]
	at     Coords
	ships  []referrable.Ref[*Ship]
}

var (
	_ ability.Object  = (*Fleet)(nil)
	_ ability.Owned   = (*Fleet)(nil)
	_ ability.Located = (*Fleet)(nil)
)

// AbilityTarget implements ability.Object.
func (f *Fleet) AbilityTarget() ability.Target { return ability.TargetFleet }

// Parent returns the fleet's star system.
func (f *Fleet) Parent() ability.Object { return f.g.object(f.system.ID()) }

// Children returns the ships in the fleet.
func (f *Fleet) Children() []ability.Object { return resolveAll(f.g, f.ships) }

// Owner returns the owning empire, or nil.
func (f *Fleet) Owner() ability.Empire { return f.g.empireOf(f.owner) }

// Sector returns the fleet's sector.
func (f *Fleet) Sector() ability.CommonObject { return f.g.sectorAt(f.system, f.at) }

// StarSystem returns the fleet's system.
func (f *Fleet) StarSystem() ability.CommonObject { return f.g.systemOf(f.system) }

// Ships returns the ships in the fleet.
func (f *Fleet) Ships() []*Ship {
	var out []*Ship
	for _, r := range f.ships {
		if s, ok := r.Resolve(f.g.reg); ok {
			out = append(out, s)
		}
	}
	return out
}

func (f *Fleet) position() (referrable.Ref[*StarSystem], Coords) { return f.system, f.at }
func (f *Fleet) ownerRef() referrable.Ref[*Empire]               { return f.owner }
func (f *Fleet) topLevel() bool                                  { return true }

func (f *Fleet) remapIDs(m map[referrable.ID]referrable.ID) {
	f.owner = f.owner.Remap(m)
	f.system = f.system.Remap(m)
	remapAll(f.ships, m)
}

// Ship is a space vehicle. A ship in a fleet is located with its fleet.
type Ship struct {
	node
	owner      referrable.Ref[*Empire]
	system     referrable.Ref[*StarSystem]
	at         Coords
	fleet      referrable.Ref[*Fleet]
	components []referrable.Ref[*Component]
}

var (
	_ ability.Object  = (*Ship)(nil)
	_ ability.Owned   = (*Ship)(nil)
	_ ability.Located = (*Ship)(nil)
)

// AbilityTarget implements ability.Object.
func (s *Ship) AbilityTarget() ability.Target { return ability.TargetShip }

// Parent returns the ship's fleet, or its star system when it flies alone.
func (s *Ship) Parent() ability.Object {
	if f, ok := s.fleet.Resolve(s.g.reg); ok {
		return f
	}
	return s.g.object(s.system.ID())
}

// Children returns the ship's components.
func (s *Ship) Children() []ability.Object { return resolveAll(s.g, s.components) }

// Owner returns the owning empire, or nil.
func (s *Ship) Owner() ability.Empire { return s.g.empireOf(s.owner) }

// Sector returns the ship's sector.
func (s *Ship) Sector() ability.CommonObject {
	sys, at := s.position()
	return s.g.sectorAt(sys, at)
}

// StarSystem returns the ship's system.
func (s *Ship) StarSystem() ability.CommonObject {
	sys, _ := s.position()
	return s.g.systemOf(sys)
}

// Fleet returns the ship's fleet, if any.
func (s *Ship) Fleet() (*Fleet, bool) { return s.fleet.Resolve(s.g.reg) }

func (s *Ship) position() (referrable.Ref[*StarSystem], Coords) {
	if f, ok := s.fleet.Resolve(s.g.reg); ok {
		return f.system, f.at
	}
	return s.system, s.at
}

func (s *Ship) ownerRef() referrable.Ref[*Empire] { return s.owner }

func (s *Ship) topLevel() bool {
	_, inFleet := s.fleet.Resolve(s.g.reg)
	return !inFleet
}

func (s *Ship) remapIDs(m map[referrable.ID]referrable.ID) {
	s.owner = s.owner.Remap(m)
	s.system = s.system.Remap(m)
	s.fleet = s.fleet.Remap(m)
	remapAll(s.components, m)
}

// Component is a part mounted on a ship. It is owned and located with its ship.
type Component struct {
	node
	ship referrable.Ref[*Ship]
}

var (
	_ ability.Object  = (*Component)(nil)
	_ ability.Owned   = (*Component)(nil)
	_ ability.Located = (*Component)(nil)
)

// AbilityTarget implements ability.Object.
func (c *Component) AbilityTarget() ability.Target { return ability.TargetComponent }

// Parent returns the component's ship.
func (c *Component) Parent() ability.Object { return c.g.object(c.ship.ID()) }

// Children implements ability.Object. Components have none.
func (c *Component) Children() []ability.Object { return nil }

// Owner returns the ship's owner.
func (c *Component) Owner() ability.Empire {
	if s, ok := c.ship.Resolve(c.g.reg); ok {
		return s.Owner()
	}
	return nil
}

// Sector returns the ship's sector.
func (c *Component) Sector() ability.CommonObject {
	if s, ok := c.ship.Resolve(c.g.reg); ok {
		return s.Sector()
	}
	return nil
}

// StarSystem returns the ship's system.
func (c *Component) StarSystem() ability.CommonObject {
	if s, ok := c.ship.Resolve(c.g.reg); ok {
		return s.StarSystem()
	}
	return nil
}

func (c *Component) remapIDs(m map[referrable.ID]referrable.ID) { c.ship = c.ship.Remap(m) }

// Facility is a building on a planet. It is owned and located with its planet.
type Facility struct {
	node
	planet referrable.Ref[*Planet]
}

var (
	_ ability.Object  = (*Facility)(nil)
	_ ability.Owned   = (*Facility)(nil)
	_ ability.Located = (*Facility)(nil)
)

// AbilityTarget implements ability.Object.
func (f *Facility) AbilityTarget() ability.Target { return ability.TargetFacility }

// Parent returns the facility's planet.
func (f *Facility) Parent() ability.Object { return f.g.object(f.planet.ID()) }

// Children implements ability.Object. Facilities have none.
func (f *Facility) Children() []ability.Object { return nil }

// Owner returns the planet's owner.
func (f *Facility) Owner() ability.Empire {
	if p, ok := f.planet.Resolve(f.g.reg); ok {
		return p.Owner()
	}
	return nil
}

// Sector returns the planet's sector.
func (f *Facility) Sector() ability.CommonObject {
	if p, ok := f.planet.Resolve(f.g.reg); ok {
		return p.Sector()
	}
	return nil
}

// StarSystem returns the planet's system.
func (f *Facility) StarSystem() ability.CommonObject {
	if p, ok := f.planet.Resolve(f.g.reg); ok {
		return p.StarSystem()
	}
	return nil
}

func (f *Facility) remapIDs(m map[referrable.ID]referrable.ID) { f.planet = f.planet.Remap(m) }

func resolveAll[T Entity](g *Galaxy, refs []referrable.Ref[T]) []ability.Object {
	out := make([]ability.Object, 0, len(refs))
	for _, r := range refs {
		if obj, ok := r.Resolve(g.reg); ok {
			out = append(out, obj)
		}
	}
	return out
}

func remapAll[T referrable.Referrable](refs []referrable.Ref[T], m map[referrable.ID]referrable.ID) {
	for i, r := range refs {
		refs[i] = r.Remap(m)
	}
}
