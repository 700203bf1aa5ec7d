// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented ragchat commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/ragchat-tui/internal/config"
)

// ShowConfig prints the effective configuration as TOML, or as JSON.
func ShowConfig(cfg *config.Config, out io.Writer, jsonMode bool) error {
	if jsonMode {
		return NewJSONResponse("config show", cfg).Write(out)
	}
	return toml.NewEncoder(out).Encode(cfg)
}

// GetConfig prints the value at key.
func GetConfig(cfg *config.Config, out io.Writer, key string) error {
	v, err := cfg.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, v)
	return nil
}

// SetConfig changes key and writes the configuration to path.
func SetConfig(cfg *config.Config, out io.Writer, path, key, value string) error {
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s = %s\n", key, value)
	return nil
}

// InitConfig writes the default configuration to path. An existing file is
// kept unless force is set.
func InitConfig(out io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

// ListConfigKeys prints every settable key.
func ListConfigKeys(out io.Writer) {
	for _, k := range config.Keys() {
		fmt.Fprintln(out, k)
	}
}
