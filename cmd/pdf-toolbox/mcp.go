// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"pdf-toolbox/internal/mcpserver"
)

var mcpOutputDir string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve every tool over MCP on stdin/stdout",
	Long: `Mcp exposes each tool as pdf_<tool>. Calls take comma-separated PDF paths
in file_paths, the tool parameters as strings and an optional output_dir
for produced files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, registry := state.services()
		defer svc.Close()

		outputDir := state.cfg.Output.Dir
		if mcpOutputDir != "" {
			outputDir = mcpOutputDir
		}
		return mcpserver.New(registry, outputDir, state.observer).ServeStdio()
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpOutputDir, "output-dir", "", "default directory for produced files")
	rootCmd.AddCommand(mcpCmd)
}
