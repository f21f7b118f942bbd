// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

// Package config loads settings for the freee command line tools. Values
// come from built-in defaults, then an optional YAML file, then flags.
package config

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// CodeInvalid marks a configuration that cannot be loaded or fails validation.
const CodeInvalid = "CONFIG_INVALID"

// Config is the complete tool configuration.
type Config struct {
	Log  LogConfig  `koanf:"log"`
	Mods ModsConfig `koanf:"mods"`
}

// LogConfig controls logging.
type LogConfig struct {
	Format string `koanf:"format" validate:"oneof=json text"`
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
}

// ModsConfig controls where mods are found and how they are checked.
type ModsConfig struct {
	// Path is the mod document used when no --mod flag is given.
	Path string `koanf:"path" validate:"required"`
	// Workers bounds concurrent validation of mod documents.
	Workers int `koanf:"workers" validate:"min=1,max=64"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Log:  LogConfig{Format: "text", Level: "info"},
		Mods: ModsConfig{Path: "mods/stock/mod.yaml", Workers: 4},
	}
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"log-format":  "log.format",
	"log-level":   "log.level",
	"mod":         "mods.path",
	"mod-workers": "mods.workers",
}

// RegisterFlags adds the flags Load understands to fs, with the built-in
// defaults as their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn or error)")
	fs.String("mod", d.Mods.Path, "mod document defining the ability rules")
	fs.Int("mod-workers", d.Mods.Workers, "mod documents validated concurrently")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load builds the configuration. path may be empty, in which case no file is
// read. fs may be nil; only flags the user set override the file.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	d := Defaults()
	for key, val := range map[string]any{
		"log.format":   d.Log.Format,
		"log.level":    d.Log.Level,
		"mods.path":    d.Mods.Path,
		"mods.workers": d.Mods.Workers,
	} {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code(CodeInvalid).With("key", key).Wrapf(err, "setting default")
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeInvalid).
				With("path", path).
				Hint("check that the config file exists and is valid YAML").
				Wrapf(err, "loading config file")
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalid).Wrapf(err, "loading flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeInvalid).With("path", path).Wrapf(err, "decoding config")
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return &cfg, nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fields []string
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
			}
		}
		return oops.Code(CodeInvalid).
			With("fields", fields).
			Wrapf(err, "invalid configuration")
	}
	return nil
}
