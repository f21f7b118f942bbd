// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/freee/freee/internal/ability"
)

var (
	colorAccent  = lipgloss.Color("#2CD7C7")
	colorMuted   = lipgloss.Color("#6C7A89")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorError   = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title  lipgloss.Style
	Muted  lipgloss.Style
	OK     lipgloss.Style
	Failed lipgloss.Style
}{
	Title:  lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Muted:  lipgloss.NewStyle().Foreground(colorMuted),
	OK:     lipgloss.NewStyle().Foreground(colorSuccess),
	Failed: lipgloss.NewStyle().Foreground(colorError),
}

// abilityView is the rendered form of one ability and, in tree mode, the
// abilities stacked into it.
type abilityView struct {
	Name    string        `yaml:"name"`
	Values  []string      `yaml:"values,omitempty"`
	From    string        `yaml:"from,omitempty"`
	Members []abilityView `yaml:"members,omitempty"`
}

// objectView is the rendered ability set of one object.
type objectView struct {
	Object    string        `yaml:"object"`
	Observer  string        `yaml:"observer,omitempty"`
	Abilities []abilityView `yaml:"abilities"`
}

type named interface{ Name() string }

func viewOf(ctx context.Context, a *ability.Ability) (abilityView, error) {
	v := abilityView{Name: a.Name}
	for _, f := range a.Values {
		s, err := f.Value(ctx)
		if err != nil {
			return abilityView{}, err
		}
		v.Values = append(v.Values, s)
	}
	if n, ok := a.Container.(named); ok {
		v.From = n.Name()
	}
	return v, nil
}

func viewsOf(ctx context.Context, abils []*ability.Ability) ([]abilityView, error) {
	out := make([]abilityView, 0, len(abils))
	for _, a := range abils {
		v, err := viewOf(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func treeViews(ctx context.Context, t *ability.Tree) ([]abilityView, error) {
	out := make([]abilityView, 0, t.Len())
	for _, key := range t.Keys() {
		v, err := viewOf(ctx, key)
		if err != nil {
			return nil, err
		}
		// The stacked ability belongs to the queried object.
		v.From = ""
		if v.Members, err = viewsOf(ctx, t.Members(key)); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func renderText(w io.Writer, views []objectView) {
	for i, ov := range views {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := styles.Title.Render(ov.Object)
		if ov.Observer != "" {
			title += " " + styles.Muted.Render("as seen by "+ov.Observer)
		}
		fmt.Fprintln(w, title)
		if len(ov.Abilities) == 0 {
			fmt.Fprintln(w, "  "+styles.Muted.Render("no abilities"))
			continue
		}
		for _, a := range ov.Abilities {
			renderAbility(w, a, 1)
		}
	}
}

func renderAbility(w io.Writer, a abilityView, depth int) {
	line := strings.Repeat("  ", depth) + a.Name
	if len(a.Values) > 0 {
		line += ": " + strings.Join(a.Values, ", ")
	}
	if a.From != "" {
		line += " " + styles.Muted.Render("(from "+a.From+")")
	}
	fmt.Fprintln(w, line)
	for _, m := range a.Members {
		renderAbility(w, m, depth+1)
	}
}

func renderYAML(w io.Writer, views []objectView) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(views); err != nil {
		return err
	}
	return enc.Close()
}
