// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package galaxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/freee/freee/internal/ability"
	"github.com/freee/freee/internal/formula"
)

// Scenario is the YAML form of a snapshot.
type Scenario struct {
	Name      string        `yaml:"name"`
	Turn      int           `yaml:"turn,omitempty"`
	Abilities []AbilitySpec `yaml:"abilities,omitempty"`
	Empires   []EmpireSpec  `yaml:"empires"`
	Systems   []SystemSpec  `yaml:"systems"`
	Treaties  []TreatySpec  `yaml:"treaties,omitempty"`
}

// AbilitySpec grants one ability. Values beginning with "=" are Lua expressions.
type AbilitySpec struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values,omitempty"`
}

// EmpireSpec describes an empire.
type EmpireSpec struct {
	Name      string        `yaml:"name"`
	Abilities []AbilitySpec `yaml:"abilities,omitempty"`
}

// SystemSpec describes a star system and its contents.
type SystemSpec struct {
	Name      string        `yaml:"name"`
	Abilities []AbilitySpec `yaml:"abilities,omitempty"`
	Planets   []PlanetSpec  `yaml:"planets,omitempty"`
	Fleets    []FleetSpec   `yaml:"fleets,omitempty"`
	Ships     []ShipSpec    `yaml:"ships,omitempty"`
}

// PlanetSpec describes a planet.
type PlanetSpec struct {
	Name       string        `yaml:"name"`
	Owner      string        `yaml:"owner,omitempty"`
	At         Coords        `yaml:"at"`
	Abilities  []AbilitySpec `yaml:"abilities,omitempty"`
	Facilities []PartSpec    `yaml:"facilities,omitempty"`
}

// FleetSpec describes a fleet. Its ships share its owner and sector.
type FleetSpec struct {
	Name      string        `yaml:"name"`
	Owner     string        `yaml:"owner,omitempty"`
	At        Coords        `yaml:"at"`
	Abilities []AbilitySpec `yaml:"abilities,omitempty"`
	Ships     []ShipSpec    `yaml:"ships,omitempty"`
}

// ShipSpec describes a ship.
type ShipSpec struct {
	Name       string        `yaml:"name"`
	Owner      string        `yaml:"owner,omitempty"`
	At         Coords        `yaml:"at"`
	Abilities  []AbilitySpec `yaml:"abilities,omitempty"`
	Components []PartSpec    `yaml:"components,omitempty"`
}

// PartSpec describes a component or facility.
type PartSpec struct {
	Name      string        `yaml:"name"`
	Abilities []AbilitySpec `yaml:"abilities,omitempty"`
}

// TreatySpec shares abilities governed by Rules from Giver to Receiver.
type TreatySpec struct {
	Giver    string   `yaml:"giver"`
	Receiver string   `yaml:"receiver"`
	Rules    []string `yaml:"rules"`
}

// ParseScenario decodes a scenario document. Unknown keys are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, oops.Code(CodeInvalidScenario).Errorf("scenario document is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, oops.Code(CodeInvalidScenario).Wrapf(err, "invalid scenario YAML")
	}
	return &s, nil
}

// LoadScenario builds a snapshot from a scenario document. formulas may be
// nil, in which case script values are kept as literal text.
func LoadScenario(ctx context.Context, data []byte, rules *ability.Ruleset, formulas *formula.Engine, opts ...Option) (*Galaxy, error) {
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithFormulas(formulas)}, opts...)
	return s.Build(ctx, rules, opts...)
}

// Build creates the snapshot the scenario describes.
func (s *Scenario) Build(ctx context.Context, rules *ability.Ruleset, opts ...Option) (*Galaxy, error) {
	g := New(s.Name, rules, opts...)
	if s.Turn > 0 {
		g.turn = s.Turn
	}
	b := &builder{g: g, empires: make(map[string]*Empire)}

	b.grant(g, s.Abilities)
	for _, es := range s.Empires {
		e, err := g.AddEmpire(es.Name)
		if err != nil {
			return nil, oops.With("empire", es.Name).Wrap(err)
		}
		b.empires[es.Name] = e
		b.grant(e, es.Abilities)
	}
	for _, ss := range s.Systems {
		if err := b.system(ss); err != nil {
			return nil, oops.With("system", ss.Name).Wrap(err)
		}
	}
	for _, ts := range s.Treaties {
		giver, err := b.empire(ts.Giver)
		if err != nil {
			return nil, err
		}
		receiver, err := b.empire(ts.Receiver)
		if err != nil {
			return nil, err
		}
		if giver == nil || receiver == nil {
			return nil, oops.Code(CodeInvalidScenario).
				With("giver", ts.Giver).
				With("receiver", ts.Receiver).
				Errorf("treaty needs both a giver and a receiver")
		}
		for _, rule := range ts.Rules {
			if err := g.Share(giver, receiver, rule); err != nil {
				return nil, oops.With("giver", ts.Giver).With("receiver", ts.Receiver).Wrap(err)
			}
		}
	}

	g.logger.InfoContext(ctx, "scenario loaded",
		slog.String("galaxy", s.Name),
		slog.Int("turn", g.turn),
		slog.Int("objects", g.reg.Len()),
		slog.Int("treaties", len(g.treaties)),
	)
	return g, nil
}

type builder struct {
	g       *Galaxy
	empires map[string]*Empire
}

func (b *builder) grant(h Holder, specs []AbilitySpec) {
	for _, a := range specs {
		b.g.Grant(h, a.Name, a.Values...)
	}
}

// empire resolves an owner name. The empty name means unowned.
func (b *builder) empire(name string) (*Empire, error) {
	if name == "" {
		return nil, nil
	}
	e, ok := b.empires[name]
	if !ok {
		return nil, oops.Code(CodeInvalidScenario).With("empire", name).Errorf("unknown empire %q", name)
	}
	return e, nil
}

func (b *builder) system(ss SystemSpec) error {
	sys, err := b.g.AddStarSystem(ss.Name)
	if err != nil {
		return err
	}
	b.grant(sys, ss.Abilities)

	for _, ps := range ss.Planets {
		owner, err := b.empire(ps.Owner)
		if err != nil {
			return oops.With("planet", ps.Name).Wrap(err)
		}
		p, err := b.g.AddPlanet(sys, ps.Name, ps.At, owner)
		if err != nil {
			return oops.With("planet", ps.Name).Wrap(err)
		}
		b.grant(p, ps.Abilities)
		for _, fs := range ps.Facilities {
			f, err := b.g.AddFacility(p, fs.Name)
			if err != nil {
				return oops.With("planet", ps.Name).With("facility", fs.Name).Wrap(err)
			}
			b.grant(f, fs.Abilities)
		}
	}

	for _, fs := range ss.Fleets {
		owner, err := b.empire(fs.Owner)
		if err != nil {
			return oops.With("fleet", fs.Name).Wrap(err)
		}
		fleet, err := b.g.AddFleet(sys, fs.Name, fs.At, owner)
		if err != nil {
			return oops.With("fleet", fs.Name).Wrap(err)
		}
		b.grant(fleet, fs.Abilities)
		for _, shs := range fs.Ships {
			if shs.Owner != "" && shs.Owner != fs.Owner {
				return oops.Code(CodeInvalidScenario).
					With("fleet", fs.Name).
					With("ship", shs.Name).
					Errorf("ship %q in fleet %q must have the fleet's owner", shs.Name, fs.Name)
			}
			shs.Owner, shs.At = fs.Owner, fs.At
			ship, err := b.ship(sys, shs)
			if err != nil {
				return oops.With("fleet", fs.Name).Wrap(err)
			}
			if err := b.g.JoinFleet(ship, fleet); err != nil {
				return err
			}
		}
	}

	for _, shs := range ss.Ships {
		if _, err := b.ship(sys, shs); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) ship(sys *StarSystem, ss ShipSpec) (*Ship, error) {
	owner, err := b.empire(ss.Owner)
	if err != nil {
		return nil, oops.With("ship", ss.Name).Wrap(err)
	}
	ship, err := b.g.AddShip(sys, ss.Name, ss.At, owner)
	if err != nil {
		return nil, oops.With("ship", ss.Name).Wrap(err)
	}
	b.grant(ship, ss.Abilities)
	for _, cs := range ss.Components {
		c, err := b.g.AddComponent(ship, cs.Name)
		if err != nil {
			return nil, oops.With("ship", ss.Name).With("component", cs.Name).Wrap(err)
		}
		b.grant(c, cs.Abilities)
	}
	return ship, nil
}
