// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"pdf-toolbox/internal/formatters"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green": color.New(color.FgGreen),
			"cyan":  color.New(color.FgCyan),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text: the tool message, then structured data, then written files"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

// Format prints the message first. Structured data is shown as indented JSON
// only when the tool wrote no files, since file-producing tools summarize
// their data in the message.
func (f *Formatter) Format(out formatters.Output, options formatters.FormatterOptions) (string, error) {
	// Disable colors if requested
	if options.NoColor {
		color.NoColor = true
	}

	var b strings.Builder
	if text := strings.TrimRight(out.Text, "\n"); text != "" {
		b.WriteString(text)
		b.WriteString("\n")
	}

	if out.Data != nil && len(out.Files) == 0 {
		data, err := json.MarshalIndent(out.Data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode result: %w", err)
		}
		b.Write(data)
		b.WriteString("\n")
	}

	for _, path := range out.Files {
		b.WriteString(f.colors["green"].Sprint("Wrote "))
		b.WriteString(f.colors["cyan"].Sprint(path))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func init() {
	formatters.Register(NewFormatter())
}
