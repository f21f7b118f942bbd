// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/freee/freee/internal/ability"
	"github.com/freee/freee/internal/formula"
	"github.com/freee/freee/internal/galaxy"
	"github.com/freee/freee/internal/logging"
	"github.com/freee/freee/internal/mod"
)

// Error codes of the command line tool.
const (
	CodeUnknownObject = "CLI_OBJECT_UNKNOWN"
	CodeInvalidFlags  = "CLI_FLAGS_INVALID"
)

var tracer = otel.Tracer("freee/cmd")

type abilitiesOptions struct {
	scenario string
	observer string
	as       string
	output   string
	local    bool
	tree     bool
}

func newAbilitiesCmd(e *env) *cobra.Command {
	opts := &abilitiesOptions{}
	cmd := &cobra.Command{
		Use:   "abilities <object>...",
		Short: "Show the effective abilities of objects in a galaxy snapshot",
		Long: `Loads the ability rules of the configured mod and a galaxy snapshot, then
prints the stacked abilities of each named object.

Objects are looked up by name; the galaxy's own name selects the galaxy.
With --as, star systems and the galaxy show the abilities they aggregate
for that empire instead of their own.

  freee abilities --scenario scenarios/demo.yaml --observer Terrans Enterprise`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAbilities(cmd, e, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "galaxy snapshot to load (required)")
	cmd.Flags().StringVar(&opts.observer, "observer", "", "empire viewing the snapshot; enables caching")
	cmd.Flags().StringVar(&opts.as, "as", "", "show aggregate abilities of systems and the galaxy for this empire")
	cmd.Flags().StringVar(&opts.output, "output", "text", "output format (text or yaml)")
	cmd.Flags().BoolVar(&opts.local, "local", false, "ignore abilities shared by treaties")
	cmd.Flags().BoolVar(&opts.tree, "tree", false, "show the abilities stacked into each result")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func runAbilities(cmd *cobra.Command, e *env, opts *abilitiesOptions, names []string) error {
	if opts.output != "text" && opts.output != "yaml" {
		return oops.Code(CodeInvalidFlags).
			With("output", opts.output).
			Hint("use --output text or --output yaml").
			Errorf("unknown output format %q", opts.output)
	}

	if opts.local && opts.tree {
		return oops.Code(CodeInvalidFlags).
			Hint("drop --local to see shared contributors in the tree").
			Errorf("--local cannot be combined with --tree")
	}

	ctx, span := tracer.Start(cmd.Context(), "cli.abilities")
	defer span.End()
	ctx = logging.With(ctx, slog.String("scenario", opts.scenario), slog.String("mod", e.cfg.Mods.Path))

	g, err := loadGalaxy(ctx, e, opts.scenario)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "loading galaxy")
		return err
	}

	var observer *galaxy.Empire
	if opts.observer != "" {
		if observer, err = findEmpire(g, opts.observer); err != nil {
			return err
		}
	}
	var as *galaxy.Empire
	if opts.as != "" {
		if as, err = findEmpire(g, opts.as); err != nil {
			return err
		}
		if observer == nil {
			observer = as
		}
	}

	engine := g.Engine(observer)
	views := make([]objectView, 0, len(names))
	for _, name := range names {
		view, err := abilitiesOf(ctx, engine, g, name, as, opts)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "computing abilities")
			return err
		}
		views = append(views, view)
	}
	span.SetAttributes(attribute.Int("objects", len(views)))

	stats := g.Cache().Stats()
	e.logger.DebugContext(ctx, "ability cache",
		slog.Uint64("hits", stats.Hits),
		slog.Uint64("misses", stats.Misses),
		slog.Int("entries", stats.Entries),
	)

	if opts.output == "yaml" {
		return renderYAML(cmd.OutOrStdout(), views)
	}
	renderText(cmd.OutOrStdout(), views)
	return nil
}

func loadGalaxy(ctx context.Context, e *env, scenario string) (*galaxy.Galaxy, error) {
	m, err := mod.Load(e.cfg.Mods.Path)
	if err != nil {
		return nil, err
	}
	if err := m.CheckEngine(mod.EngineVersion); err != nil {
		return nil, err
	}
	rules, err := m.Ruleset(e.logger)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(scenario) //nolint:gosec // path comes from the user
	if err != nil {
		return nil, oops.Code(galaxy.CodeInvalidScenario).
			With("path", scenario).
			Hint("check that the scenario file exists").
			Wrapf(err, "reading scenario")
	}
	g, err := galaxy.LoadScenario(ctx, data, rules, formula.NewEngine(), galaxy.WithLogger(e.logger))
	if err != nil {
		return nil, oops.With("path", scenario).Wrap(err)
	}
	e.logger.InfoContext(ctx, "galaxy loaded",
		slog.String("galaxy", g.Name()),
		slog.Int("turn", g.Turn()),
		slog.Int("objects", len(g.Objects())),
		slog.Int("rules", rules.Len()),
	)
	return g, nil
}

func findEntity(g *galaxy.Galaxy, name string) (galaxy.Holder, error) {
	if name == g.Name() {
		return g, nil
	}
	if obj, ok := g.Find(name); ok {
		return obj, nil
	}
	return nil, oops.Code(CodeUnknownObject).
		With("object", name).
		Hint("objects are looked up by their exact name").
		Errorf("no object named %q", name)
}

func findEmpire(g *galaxy.Galaxy, name string) (*galaxy.Empire, error) {
	obj, err := findEntity(g, name)
	if err != nil {
		return nil, err
	}
	emp, ok := obj.(*galaxy.Empire)
	if !ok {
		return nil, oops.Code(CodeUnknownObject).
			With("object", name).
			Errorf("%q is not an empire", name)
	}
	return emp, nil
}

func abilitiesOf(ctx context.Context, engine *ability.Engine, g *galaxy.Galaxy, name string, as *galaxy.Empire, opts *abilitiesOptions) (objectView, error) {
	obj, err := findEntity(g, name)
	if err != nil {
		return objectView{}, err
	}
	view := objectView{Object: obj.Name()}

	if common, ok := obj.(ability.CommonObject); ok && as != nil {
		view.Observer = as.Name()
		abils, err := engine.CommonAbilities(ctx, common, as, nil)
		if err != nil {
			return objectView{}, err
		}
		view.Abilities, err = viewsOf(ctx, abils)
		return view, err
	}

	if opts.tree {
		t, err := engine.AbilityTree(ctx, obj, nil)
		if err != nil {
			return objectView{}, err
		}
		view.Abilities, err = treeViews(ctx, t)
		return view, err
	}

	var abils []*ability.Ability
	if opts.local {
		abils, err = engine.LocalAbilities(ctx, obj, nil)
	} else {
		abils, err = engine.Abilities(ctx, obj, nil)
	}
	if err != nil {
		return objectView{}, err
	}
	if view.Abilities, err = viewsOf(ctx, abils); err != nil {
		return objectView{}, err
	}
	// Stacked results belong to the object itself.
	for i := range view.Abilities {
		if view.Abilities[i].From == obj.Name() {
			view.Abilities[i].From = ""
		}
	}
	return view, nil
}
