// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the pdf-toolbox CLI.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pdf-toolbox/internal/config"
	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/toolbox"
)

// app holds what PersistentPreRunE prepared for the subcommands
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	observer *observability.StandardObserver
}

var (
	state = &app{}

	configFile string
	envFile    string
	logLevel   string
	noColor    bool
)

// rootCmd is the base command for the pdf-toolbox CLI.
var rootCmd = &cobra.Command{
	Use:   "pdf-toolbox",
	Short: "Split, merge, inspect, OCR, summarize and export PDF documents",
	Long: `pdf-toolbox bundles PDF utilities behind a browser UI, a command line
and an MCP server. Page operations, image and table extraction, OCR,
LLM summaries, question answering and document export are all exposed
as tools; run 'pdf-toolbox tools' to list them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !isTerminal(os.Stdout) {
			color.NoColor = true
		}

		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}

		cfg, err := config.LoadConfigOrDefault(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading config file: %v\n", err)
			fmt.Fprintf(os.Stderr, "Using default configuration\n")
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		// Logs go to stderr; stdout carries results and the MCP stream.
		logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		if err != nil {
			return err
		}

		state.cfg = cfg
		state.logger = logger
		state.observer = observability.NewStandardObserver(observability.LevelFor(logger), logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./pdf-toolbox.yaml or ~/.pdf-toolbox/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API keys")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides the config file)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// services builds the shared tool services and registry
func (a *app) services() (*toolbox.Services, *toolbox.Registry) {
	svc := toolbox.NewServices(a.cfg, a.observer)
	return svc, toolbox.NewDefaultRegistry(svc)
}

// isTerminal checks if the file descriptor is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
