// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/freee/freee/internal/config"
	"github.com/freee/freee/internal/logging"
	"github.com/freee/freee/internal/xdg"
	"github.com/freee/freee/pkg/errutil"
)

// env is the state shared by every subcommand once flags are parsed.
type env struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCmd creates the root command for the freee CLI.
func NewRootCmd() *cobra.Command {
	e := &env{}
	cmd := &cobra.Command{
		Use:   "freee",
		Short: "FrEee ability engine tools",
		Long: `freee inspects FrEee mods and galaxy snapshots: it checks mod
documents and shows how abilities gather and stack on any object.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&e.configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/freee/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newAbilitiesCmd(e))
	cmd.AddCommand(newValidateModCmd(e))
	return cmd
}

func (e *env) setup(cmd *cobra.Command) error {
	path := e.configFile
	if path == "" {
		path = xdg.ExistingConfigFile()
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.Setup(logging.Options{
		Service: "freee",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = logger
	return nil
}

// reportError prints err with its code and hint, if any.
func reportError(w io.Writer, err error) {
	code, hasCode := errutil.Code(err)
	if hasCode {
		fmt.Fprintf(w, "Error [%s]: %v\n", code, err)
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Hint() != "" {
		fmt.Fprintf(w, "Hint: %s\n", oopsErr.Hint())
	}
}
