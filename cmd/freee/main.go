// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

// Package main is the freee command line tool for inspecting mods and the
// effective abilities of objects in a galaxy snapshot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.ExecuteContext(ctx); err != nil {
		reportError(cmd.ErrOrStderr(), err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}
