// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pdf-toolbox/internal/artifact"
	"pdf-toolbox/internal/formatters"
	_ "pdf-toolbox/internal/formatters/json"
	_ "pdf-toolbox/internal/formatters/text"
	_ "pdf-toolbox/internal/formatters/yaml"
	"pdf-toolbox/internal/paths"
	"pdf-toolbox/internal/toolbox"
)

var (
	runParams    []string
	runOutputDir string
	runFormat    string
)

var runCmd = &cobra.Command{
	Use:   "run <tool> <file.pdf>...",
	Short: "Run one tool on local PDF files",
	Long: `Run executes a tool without the web UI. Tool parameters are passed as
--param name=value; produced files are written to the output directory.`,
	Example: `  pdf-toolbox run merge -o out/ a.pdf b.pdf
  pdf-toolbox run rotate --param angle=180 report.pdf
  pdf-toolbox run ask --param question="Who signed it?" contract.pdf`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := formatters.Get(runFormat); !ok {
			return fmt.Errorf("unsupported format %q (available: %s)", runFormat, strings.Join(formatters.List(), ", "))
		}
		params, err := parseParams(runParams)
		if err != nil {
			return err
		}
		files, err := loadFiles(args[1:])
		if err != nil {
			return err
		}

		svc, registry := state.services()
		defer svc.Close()

		res, err := registry.Run(cmd.Context(), args[0], toolbox.NewRequest(files, params))
		if err != nil {
			return err
		}

		outputDir := state.cfg.Output.Dir
		if runOutputDir != "" {
			outputDir = runOutputDir
		}
		return printResult(cmd.OutOrStdout(), args[0], res, outputDir, runFormat)
	},
}

func init() {
	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "tool parameter as name=value (repeatable)")
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "directory for produced files (default: output.dir from the config)")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "text", "output format: "+strings.Join(formatters.List(), ", "))
	rootCmd.AddCommand(runCmd)
}

// parseParams splits name=value pairs
func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q, expected name=value", pair)
		}
		params[name] = value
	}
	return params, nil
}

func loadFiles(names []string) ([]toolbox.File, error) {
	files := make([]toolbox.File, 0, len(names))
	for _, name := range names {
		if err := paths.ValidatePath(name); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Clean(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		base := filepath.Base(name)
		if err := toolbox.CheckPDF(base, data); err != nil {
			return nil, err
		}
		files = append(files, toolbox.File{Name: base, Data: data})
	}
	return files, nil
}

// printResult writes the produced files and then renders the result
func printResult(w io.Writer, tool string, res *toolbox.Result, outputDir, format string) error {
	written, err := saveAll(res.Artifacts, outputDir)
	if err != nil {
		return err
	}
	out, err := formatters.Export(format, formatters.Output{
		Tool:  tool,
		Text:  res.Text,
		Data:  res.Data,
		Files: written,
	}, formatters.FormatterOptions{NoColor: noColor})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func saveAll(as []artifact.Artifact, dir string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	var written []string
	for _, a := range as {
		path, err := a.Save(dir)
		if err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}
