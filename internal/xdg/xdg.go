// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

// Package xdg provides XDG Base Directory paths for FrEee.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const appName = "freee"

// ConfigDir returns the XDG config directory for freee.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the path of the user's config file, whether or not it exists.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ExistingConfigFile returns ConfigFile if it is a regular file, else "".
func ExistingConfigFile() string {
	path := ConfigFile()
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return path // let the loader report why it cannot be read
		}
		return ""
	}
	if !info.Mode().IsRegular() {
		return ""
	}
	return path
}
