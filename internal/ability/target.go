// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

import (
	"strings"

	"github.com/samber/oops"
)

// Target is an ability target category. Categories are bit flags so a set of
// targets is a Target too.
type Target uint32

// Ability target categories.
const (
	TargetEmpire Target = 1 << iota
	TargetGalaxy
	TargetStarSystem
	TargetSector
	TargetPlanet
	TargetStorm
	TargetWarpPoint
	TargetAsteroidField
	TargetShip
	TargetBase
	TargetFleet
	TargetFighter
	TargetTroop
	TargetMine
	TargetSatellite
	TargetDrone
	TargetComponent
	TargetFacility
)

// TargetNone is the empty target set.
const TargetNone Target = 0

var targetNames = []struct {
	target Target
	name   string
}{
	{TargetEmpire, "Empire"},
	{TargetGalaxy, "Galaxy"},
	{TargetStarSystem, "StarSystem"},
	{TargetSector, "Sector"},
	{TargetPlanet, "Planet"},
	{TargetStorm, "Storm"},
	{TargetWarpPoint, "WarpPoint"},
	{TargetAsteroidField, "AsteroidField"},
	{TargetShip, "Ship"},
	{TargetBase, "Base"},
	{TargetFleet, "Fleet"},
	{TargetFighter, "Fighter"},
	{TargetTroop, "Troop"},
	{TargetMine, "Mine"},
	{TargetSatellite, "Satellite"},
	{TargetDrone, "Drone"},
	{TargetComponent, "Component"},
	{TargetFacility, "Facility"},
}

// TargetAll is every known category.
var TargetAll = func() Target {
	var all Target
	for _, tn := range targetNames {
		all |= tn.target
	}
	return all
}()

// Has reports whether every category in other is in t.
func (t Target) Has(other Target) bool {
	return other != TargetNone && t&other == other
}

// Categories splits a set into its single categories, in declaration order.
func (t Target) Categories() []Target {
	var out []Target
	for _, tn := range targetNames {
		if t&tn.target != 0 {
			out = append(out, tn.target)
		}
	}
	return out
}

// String renders a category or a "|"-joined set.
func (t Target) String() string {
	if t == TargetNone {
		return "None"
	}
	var parts []string
	for _, tn := range targetNames {
		if t&tn.target != 0 {
			parts = append(parts, tn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseTarget parses a single category name. Case, spaces and hyphens are
// ignored, so "Star System" and "star-system" both parse.
func ParseTarget(s string) (Target, error) {
	key := normalizeName(s)
	for _, tn := range targetNames {
		if strings.ToLower(tn.name) == key {
			return tn.target, nil
		}
	}
	return TargetNone, oops.Code(CodeInvalidRule).With("target", s).Errorf("unknown ability target %q", s)
}

// ParseTargets parses and unions category names.
func ParseTargets(names []string) (Target, error) {
	var t Target
	for _, name := range names {
		one, err := ParseTarget(name)
		if err != nil {
			return TargetNone, err
		}
		t |= one
	}
	return t, nil
}

// MarshalText implements encoding.TextMarshaler.
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "|"-joined sets are accepted.
func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := ParseTargets(strings.Split(string(text), "|"))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func normalizeName(s string) string {
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}
