// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmd defines the ragchat command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/ragchat-tui/internal/app"
	"github.com/jeranaias/ragchat-tui/internal/config"
	"github.com/jeranaias/ragchat-tui/internal/logging"
)

var (
	cfgFile    string
	jsonOutput bool
	verbose    bool

	cfg     *config.Config
	cfgPath string
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "ragchat - terminal client for a retrieval-augmented chat service",
	Long: `ragchat talks to a RAG chat backend: stream answers, browse and delete
conversations, and feed documents or Git repositories into the knowledge base.

Run without a subcommand to open the full-screen interface.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute runs the root command. SIGTERM cancels the command context;
// Ctrl+C is left to the commands so it can cancel a reply without exiting.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.ragchat/config.toml)")
	flags.BoolVar(&jsonOutput, "json", false, "print machine-readable JSON where supported")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}

func initConfig() {
	cfgPath = cfgFile
	if cfgPath == "" {
		cfgPath, cfgErr = config.ConfigPath()
		if cfgErr != nil {
			return
		}
	}
	cfg, cfgErr = config.LoadFromPath(cfgPath)
}

// loadedConfig returns the configuration or the error that prevented
// loading it.
func loadedConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// cliLogger logs to stderr. Only warnings show unless --verbose is set.
func cliLogger(c *config.Config) *zap.Logger {
	opts := logging.FromConfig(c, logging.Stderr)
	opts.Encoding = "console"
	opts.Level = "warn"
	if verbose {
		opts.Level = "debug"
	}
	logger, err := logging.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return logging.Nop()
	}
	return logger
}

// newApp builds the application for a line-oriented command. Controller
// notifications go to stderr so stdout stays clean for --json.
func newApp() (*app.App, error) {
	c, err := loadedConfig()
	if err != nil {
		return nil, err
	}
	return app.New(c, cliLogger(c), app.Options{
		Notifier: app.NewWriterNotifier(os.Stderr),
	})
}

// withApp runs fn with a fresh application and releases it afterwards.
func withApp(fn func(a *app.App) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.Logger.Sync()
	return fn(a)
}
