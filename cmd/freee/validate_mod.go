// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package main

import (
	"fmt"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/freee/freee/internal/mod"
)

func newValidateModCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-mod [path]...",
		Short: "Check mod documents without loading a galaxy",
		Long: `Checks each mod document against the mod schema, the engine version
constraint and the ability rule conflict rules. Without arguments the
configured mod is checked. Exits non-zero if any document fails.

Useful in CI pipelines to catch rule errors early:
  freee validate-mod mods/*/mod.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = []string{e.cfg.Mods.Path}
			}
			return runValidateMod(cmd, e, paths)
		},
	}
}

func runValidateMod(cmd *cobra.Command, e *env, paths []string) error {
	reports, err := mod.CheckAll(cmd.Context(), paths, e.cfg.Mods.Workers, e.logger)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	failed := 0
	for _, r := range reports {
		if r.OK() {
			fmt.Fprintf(w, "%s %s %s\n", styles.OK.Render("✓"), r.Path,
				styles.Muted.Render(fmt.Sprintf("(%s %s, %d rules)", r.Mod.Name, r.Mod.Version, r.Rules)))
			continue
		}
		failed++
		fmt.Fprintf(w, "%s %s: %v\n", styles.Failed.Render("✗"), r.Path, r.Err)
	}

	if failed > 0 {
		return oops.Code(mod.CodeInvalid).
			With("failed", failed).
			With("checked", len(reports)).
			Errorf("validation failed: %d of %d mods invalid", failed, len(reports))
	}
	e.logger.InfoContext(cmd.Context(), "all mods valid", slog.Int("count", len(reports)))
	return nil
}
