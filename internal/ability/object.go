// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

// Object is anything that holds abilities and sits in a containment
// hierarchy. Parent and child links are navigation only.
//
// Implementations are used as map keys by the Cache and must be comparable;
// pointer types are.
type Object interface {
	IntrinsicAbilities() []*Ability
	Children() []Object
	// Parent returns nil for roots.
	Parent() Object
	AbilityTarget() Target
}

// CommonObject is an aggregate, such as a sector, star system or the galaxy,
// whose abilities depend on which empire is looking.
type CommonObject interface {
	AbilityTarget() Target
	// ContainedAbilityObjects lists the objects inside the aggregate that
	// contribute abilities on behalf of emp.
	ContainedAbilityObjects(emp Empire) []Object
}

// Empire is a player whose treaties can share abilities to its objects.
type Empire interface {
	ReceivedShareClauses() []ShareClause
}

// ShareClause is a treaty clause under which abilities governed by Rule are
// shared with the receiving empire.
type ShareClause struct {
	// Giver is the empire that offered the clause. Informational; sharing
	// fans out over every empire of the galaxy.
	Giver Empire
	Rule  *Rule
}

// Owned objects belong to an empire. Only owned objects receive shared abilities.
type Owned interface {
	// Owner returns nil for unowned objects.
	Owner() Empire
}

// Located objects are found in a sector of a star system.
type Located interface {
	Sector() CommonObject
	StarSystem() CommonObject
}

// World is the galaxy-wide state the engine consults for sharing.
type World interface {
	Empires() []Empire
	Galaxy() CommonObject
}

// SourceFilter restricts which objects may contribute abilities.
type SourceFilter func(Object) bool

// Filter selects abilities.
type Filter func(*Ability) bool
