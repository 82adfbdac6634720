// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package help renders the tool catalogue for the command line.
package help

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"pdf-toolbox/internal/toolbox"
)

// System prints help for the registered tools
type System struct {
	out     io.Writer
	noColor bool
	colors  map[string]*color.Color
}

// NewSystem creates a help system writing to out
func NewSystem(out io.Writer, noColor bool) *System {
	// Disable colors if requested
	if noColor {
		color.NoColor = true
	}

	return &System{
		out:     out,
		noColor: noColor,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"item":     color.New(color.FgCyan),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"negative": color.New(color.FgRed),
			"muted":    color.New(color.FgHiBlack),
			"example":  color.New(color.FgMagenta),
		},
	}
}

// ShowToolsHelp lists every tool grouped by category
func (h *System) ShowToolsHelp(categories []toolbox.Category) {
	h.colors["title"].Fprintln(h.out, "PDF Toolbox - Available Tools")
	fmt.Fprintln(h.out, "=============================")

	for _, c := range categories {
		fmt.Fprintln(h.out)
		h.colors["header"].Fprintf(h.out, "%s:\n", strings.ToUpper(c.Name))

		w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
		for _, t := range c.Tools {
			fmt.Fprintf(w, "  %s\t%s\n", h.colors["emphasis"].Sprint(t.Name), t.Description)
		}
		w.Flush()
	}

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "For the parameters of a specific tool, use:")
	h.colors["example"].Fprintln(h.out, "  pdf-toolbox tools <tool>")
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "Example:")
	h.colors["example"].Fprintln(h.out, "  pdf-toolbox run split --param mode=range --param start=2 --param end=4 -o out/ report.pdf")
}

// ShowToolHelp prints the parameters of one tool. It reports false when the
// tool is nil.
func (h *System) ShowToolHelp(name string, t *toolbox.Tool) bool {
	if t == nil {
		h.colors["negative"].Fprintf(h.out, "Error: Tool '%s' not found.\n", name)
		fmt.Fprintln(h.out, "Use 'pdf-toolbox tools' to see a list of available tools.")
		return false
	}

	h.colors["title"].Fprintf(h.out, "%s (%s)\n", t.Title, t.Name)
	fmt.Fprintln(h.out, strings.Repeat("=", len(t.Title)+len(t.Name)+3))
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, t.Description)
	fmt.Fprintln(h.out)

	h.colors["header"].Fprintln(h.out, "INPUT:")
	if t.MultiFile {
		fmt.Fprintln(h.out, "  One or more PDF files, processed in the order given")
	} else {
		fmt.Fprintln(h.out, "  One PDF file")
	}
	fmt.Fprintln(h.out)

	if len(t.Params) > 0 {
		h.colors["header"].Fprintln(h.out, "PARAMETERS:")
		w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
		for _, p := range t.Params {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", h.colors["item"].Sprint(p.Name), p.Kind, describeParam(p))
		}
		w.Flush()
		fmt.Fprintln(h.out)
	}

	h.colors["header"].Fprintln(h.out, "EXAMPLE:")
	h.colors["example"].Fprintf(h.out, "  %s\n", exampleCommand(t))
	return true
}

func describeParam(p toolbox.Param) string {
	parts := []string{p.Label}
	if len(p.Options) > 0 {
		values := make([]string, len(p.Options))
		for i, o := range p.Options {
			values[i] = o.Value
		}
		parts = append(parts, "one of "+strings.Join(values, ", "))
	}
	if p.Default != "" {
		parts = append(parts, "default "+p.Default)
	}
	if p.ShowIf != "" {
		parts = append(parts, "used when "+p.ShowIf)
	}
	if p.Help != "" {
		parts = append(parts, p.Help)
	}
	return strings.Join(parts, "; ")
}

func exampleCommand(t *toolbox.Tool) string {
	var b strings.Builder
	b.WriteString("pdf-toolbox run ")
	b.WriteString(t.Name)
	for _, p := range t.Params {
		if p.ShowIf != "" {
			continue
		}
		switch {
		case p.Default != "":
			fmt.Fprintf(&b, " --param %s=%s", p.Name, p.Default)
		case p.Kind == toolbox.KindCheckbox:
			fmt.Fprintf(&b, " --param %s=true", p.Name)
		}
	}
	b.WriteString(" -o out/")
	if t.MultiFile {
		b.WriteString(" first.pdf second.pdf")
	} else {
		b.WriteString(" document.pdf")
	}
	return b.String()
}
