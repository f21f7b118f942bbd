// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package mod

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

// Report is the outcome of checking one mod document.
type Report struct {
	Path string
	// Mod is nil when the document could not be loaded.
	Mod   *Mod
	Rules int
	Err   error
}

// OK reports whether the document passed every check.
func (r Report) OK() bool { return r.Err == nil }

// Check loads the mod at path, checks its engine constraint against
// EngineVersion and builds its ruleset.
func Check(path string, logger *slog.Logger) Report {
	r := Report{Path: path}
	m, err := Load(path)
	if err != nil {
		r.Err = err
		return r
	}
	r.Mod = m
	if err := m.CheckEngine(EngineVersion); err != nil {
		r.Err = oops.With("path", path).Wrap(err)
		return r
	}
	rs, err := m.Ruleset(logger)
	if err != nil {
		r.Err = oops.With("path", path).Wrap(err)
		return r
	}
	r.Rules = rs.Len()
	return r
}

// CheckAll checks every path, at most workers at a time, and returns the
// reports in the order of paths. A failing document does not stop the
// others; a cancelled ctx does, and its error is returned.
func CheckAll(ctx context.Context, paths []string, workers int, logger *slog.Logger) ([]Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reports := make([]Report, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				reports[i] = Report{Path: path, Err: err}
				return err
			}
			reports[i] = Check(path, logger)
			logger.DebugContext(gCtx, "mod checked",
				slog.String("path", path),
				slog.Bool("ok", reports[i].OK()),
				slog.Int("rules", reports[i].Rules),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, oops.Code(CodeInvalid).Wrapf(err, "mod check cancelled")
	}
	return reports, nil
}
