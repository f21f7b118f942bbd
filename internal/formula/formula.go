// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package formula

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// ScriptPrefix marks formula text that should be evaluated as a script.
const ScriptPrefix = "="

// Formula produces a value on demand.
type Formula interface {
	// Text is the source text: the literal itself, or the script.
	Text() string
	// IsLiteral reports whether Value can never fail.
	IsLiteral() bool
	// Value returns the current value.
	Value(ctx context.Context) (string, error)
}

// Literal is a constant formula.
type Literal string

// Text returns the literal.
func (l Literal) Text() string { return string(l) }

// IsLiteral is always true.
func (l Literal) IsLiteral() bool { return true }

// Value returns the literal.
func (l Literal) Value(context.Context) (string, error) { return string(l), nil }

// Number returns a literal holding n.
func NumberLiteral(n float64) Literal { return Literal(FormatNumber(n)) }

// Script is a formula backed by a Lua expression. The first evaluation's
// outcome, value or error, is kept for the lifetime of the Script.
type Script struct {
	engine *Engine
	text   string
	vars   map[string]any

	done  bool
	value string
	err   error
}

// NewScript creates a script formula. vars are bound as globals on evaluation.
func NewScript(engine *Engine, text string, vars map[string]any) *Script {
	return &Script{engine: engine, text: text, vars: vars}
}

// Text returns the script source.
func (s *Script) Text() string { return s.text }

// IsLiteral is always false.
func (s *Script) IsLiteral() bool { return false }

// Value evaluates the script once and returns the memoised outcome after that.
func (s *Script) Value(ctx context.Context) (string, error) {
	if !s.done {
		s.value, s.err = s.engine.Evaluate(ctx, s.text, s.vars)
		s.done = true
	}
	return s.value, s.err
}

// Parse builds a formula from mod or scenario text. Text starting with "="
// is a script; anything else is a literal.
func Parse(engine *Engine, text string, vars map[string]any) Formula {
	if engine != nil && strings.HasPrefix(text, ScriptPrefix) {
		return NewScript(engine, strings.TrimSpace(strings.TrimPrefix(text, ScriptPrefix)), vars)
	}
	return Literal(text)
}

// Number parses a numeric ability value.
func Number(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// FormatNumber renders n in its shortest round-trip form, without a
// trailing ".0" for integers.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
