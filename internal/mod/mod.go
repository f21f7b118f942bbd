// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

// Package mod loads mod documents that define ability rules.
package mod

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/freee/freee/internal/ability"
)

// Error codes.
const (
	CodeInvalid      = "MOD_INVALID"
	CodeIncompatible = "MOD_INCOMPATIBLE"
)

// EngineVersion is the ability engine version mods declare compatibility with.
const EngineVersion = "1.0.0"

// Mod is a parsed mod document.
type Mod struct {
	Name         string         `json:"name" yaml:"name" jsonschema:"title=Mod Name,description=Lowercase identifier of the mod.,pattern=^[a-z]([a-z0-9-]*[a-z0-9])?$,minLength=1,maxLength=64,required"`
	Version      string         `json:"version" yaml:"version" jsonschema:"title=Version,description=Semantic version of the mod.,minLength=1,required"`
	Engine       string         `json:"engine,omitempty" yaml:"engine,omitempty" jsonschema:"title=Engine Constraint,description=Semantic version constraint on the ability engine."`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty" jsonschema:"title=Description"`
	AbilityRules []RuleDocument `json:"ability_rules" yaml:"ability_rules" jsonschema:"title=Ability Rules,description=Rules in stacking output order.,required"`
}

// RuleDocument is one ability rule as written in a mod.
type RuleDocument struct {
	Name        string   `json:"name" yaml:"name" jsonschema:"title=Rule Name,minLength=1,required"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases,omitempty" jsonschema:"title=Aliases,description=Glob patterns for ability names governed by this rule."`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" jsonschema:"title=Description"`
	Targets     []string `json:"targets" yaml:"targets" jsonschema:"title=Targets,description=Object categories the ability may apply to.,minItems=1,required"`
	Grouping    string   `json:"grouping,omitempty" yaml:"grouping,omitempty" jsonschema:"title=Grouping,enum=do_not_group,enum=group_by_value1,enum=group_by_value2"`
	Stacking    string   `json:"stacking,omitempty" yaml:"stacking,omitempty" jsonschema:"title=Stacking,enum=do_not_stack,enum=add,enum=take_highest,enum=take_average,enum=take_lowest"`
}

const maxNameLength = 64

var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// Parse decodes and validates a mod document. Unknown keys are rejected.
func Parse(data []byte) (*Mod, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, oops.Code(CodeInvalid).Errorf("mod document is empty")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Mod
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "invalid mod YAML")
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads a mod file, checks it against the mod schema and parses it.
func Load(path string) (*Mod, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: mod paths come from the operator
	if err != nil {
		return nil, oops.Code(CodeInvalid).With("path", path).Wrapf(err, "read mod")
	}
	if err := ValidateSchema(data); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return m, nil
}

// Validate checks mod constraints the rule builder does not.
func (m *Mod) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return oops.Code(CodeInvalid).With("mod", m.Name).
			Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return oops.Code(CodeInvalid).With("mod", m.Name).
			Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}
	if m.Version == "" {
		return oops.Code(CodeInvalid).With("mod", m.Name).Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return oops.Code(CodeInvalid).With("mod", m.Name).With("version", m.Version).Wrapf(err, "invalid mod version")
	}
	if m.Engine != "" {
		if _, err := semver.NewConstraint(m.Engine); err != nil {
			return oops.Code(CodeInvalid).With("mod", m.Name).With("engine", m.Engine).Wrapf(err, "invalid engine constraint")
		}
	}
	return nil
}

// CheckEngine reports whether the mod accepts the given engine version.
// A mod without an engine constraint accepts any version.
func (m *Mod) CheckEngine(version string) error {
	if m.Engine == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return oops.Code(CodeIncompatible).With("engine_version", version).Wrapf(err, "invalid engine version")
	}
	c, err := semver.NewConstraint(m.Engine)
	if err != nil {
		return oops.Code(CodeInvalid).With("mod", m.Name).With("engine", m.Engine).Wrapf(err, "invalid engine constraint")
	}
	if ok, reasons := c.Validate(v); !ok {
		return oops.Code(CodeIncompatible).
			With("mod", m.Name).
			With("engine", m.Engine).
			With("engine_version", version).
			Hint("upgrade the engine or use a mod release built for it").
			Errorf("mod %s requires engine %s, have %s: %v", m.Name, m.Engine, version, errors.Join(reasons...))
	}
	return nil
}

// Ruleset builds the finalized ruleset of the mod. Rule errors carry the
// ability package's codes and the mod and rule index as context.
func (m *Mod) Ruleset(logger *slog.Logger) (*ability.Ruleset, error) {
	b := ability.NewRulesetBuilder()
	if logger != nil {
		b.WithLogger(logger)
	}
	for i, doc := range m.AbilityRules {
		rule, err := doc.Rule()
		if err != nil {
			return nil, oops.With("mod", m.Name).With("rule_index", i).Wrap(err)
		}
		if err := b.Add(rule); err != nil {
			return nil, oops.With("mod", m.Name).With("rule_index", i).Wrap(err)
		}
	}
	rs, err := b.Finalize()
	if err != nil {
		return nil, oops.With("mod", m.Name).Wrap(err)
	}
	return rs, nil
}

// Rule converts the document into an ability rule. Empty grouping and
// stacking mean do_not_group and do_not_stack.
func (d RuleDocument) Rule() (ability.Rule, error) {
	targets, err := ability.ParseTargets(d.Targets)
	if err != nil {
		return ability.Rule{}, oops.With("rule", d.Name).Wrap(err)
	}
	rule := ability.Rule{
		Name:        d.Name,
		Aliases:     d.Aliases,
		Description: d.Description,
		Targets:     targets,
	}
	if d.Grouping != "" {
		if rule.Grouping, err = ability.ParseGroupingRule(d.Grouping); err != nil {
			return ability.Rule{}, oops.With("rule", d.Name).Wrap(err)
		}
	}
	if d.Stacking != "" {
		if rule.Stacking, err = ability.ParseStackingRule(d.Stacking); err != nil {
			return ability.Rule{}, oops.With("rule", d.Name).Wrap(err)
		}
	}
	return rule, nil
}
