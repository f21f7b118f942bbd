// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

// Package errutil bridges oops errors to logs and tests.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops code carried by err, if any.
func Code(err error) (string, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "", false
	}
	code, ok := oopsErr.Code().(string)
	return code, ok && code != ""
}

// Attrs returns the structured attributes describing err: its message and,
// for oops errors, its code, hint and context.
func Attrs(err error) []slog.Attr {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []slog.Attr{slog.String("error", err.Error())}
	}
	attrs := []slog.Attr{slog.String("error", oopsErr.Error())}
	if code, ok := Code(err); ok {
		attrs = append(attrs, slog.String("code", code))
	}
	if hint := oopsErr.Hint(); hint != "" {
		attrs = append(attrs, slog.String("hint", hint))
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, slog.Any("context", ctx))
	}
	return attrs
}

// LogError logs err at error level with its structured attributes.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	logger.LogAttrs(ctx, slog.LevelError, msg, Attrs(err)...)
}
