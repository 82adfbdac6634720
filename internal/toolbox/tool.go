// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package toolbox defines the tools offered by the UI, the CLI and the MCP
// server, and the registry that runs them.
package toolbox

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"pdf-toolbox/internal/artifact"
	"pdf-toolbox/internal/resilience"
)

// Categories, in display order
const (
	CategoryProcessing = "PDF Processing"
	CategoryAdvanced   = "Advanced Processing"
	CategoryAnalysis   = "Analysis"
	CategoryExport     = "Export"
)

var categoryOrder = []string{CategoryProcessing, CategoryAdvanced, CategoryAnalysis, CategoryExport}

// ParamKind selects the form control used for a parameter
type ParamKind string

const (
	KindText     ParamKind = "text"
	KindNumber   ParamKind = "number"
	KindCheckbox ParamKind = "checkbox"
	KindSelect   ParamKind = "select"
)

// Option is one choice of a select parameter
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Param describes one tool input besides the uploaded files
type Param struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Kind        ParamKind `json:"kind"`
	Default     string    `json:"default,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Help        string    `json:"help,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Min         *int      `json:"min,omitempty"`
	Max         *int      `json:"max,omitempty"`
	Step        int       `json:"step,omitempty"`
	// ShowIf is "param=value"; the control is only shown when it holds
	ShowIf string `json:"show_if,omitempty"`
}

// RunFunc executes a tool
type RunFunc func(ctx context.Context, req *Request) (*Result, error)

// Tool is a single action the user can run
type Tool struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	MultiFile   bool    `json:"multi_file"`
	// View hints how the UI renders the result
	View string  `json:"view"`
	Run  RunFunc `json:"-"`
}

// Result views
const (
	ViewText   = "text"
	ViewJSON   = "json"
	ViewTables = "tables"
	ViewImages = "images"
	ViewAnswer = "answer"
	ViewFiles  = "files"
)

// File is an uploaded document
type File struct {
	Name string
	Data []byte
}

// Request carries the inputs of one run
type Request struct {
	Files  []File
	Params map[string]string
}

// CheckPDF rejects files that are not named .pdf or do not start with the
// PDF header
func CheckPDF(name string, data []byte) error {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return resilience.NewInvalidInputError("%s: file type not supported, only .pdf files are accepted", name)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return resilience.NewInvalidInputError("%s is not a PDF file", name)
	}
	return nil
}

// NewRequest builds a request
func NewRequest(files []File, params map[string]string) *Request {
	if params == nil {
		params = make(map[string]string)
	}
	return &Request{Files: files, Params: params}
}

// File returns the first uploaded file
func (r *Request) File() (File, error) {
	if len(r.Files) == 0 || len(r.Files[0].Data) == 0 {
		return File{}, resilience.NewInvalidInputError("please upload a PDF file")
	}
	return r.Files[0], nil
}

// String returns a trimmed parameter value
func (r *Request) String(name string) string {
	return strings.TrimSpace(r.Params[name])
}

// Int parses an integer parameter. An empty value yields def.
func (r *Request) Int(name string, def int) (int, error) {
	v := r.String(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, resilience.NewInvalidInputError("%s must be a whole number, got %q", name, v)
	}
	return n, nil
}

// Bool reports whether a checkbox parameter is set
func (r *Request) Bool(name string) bool {
	switch strings.ToLower(r.String(name)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// IntList parses a comma-separated list of non-negative integers. Entries
// that are not all digits are skipped.
func (r *Request) IntList(name string) []int {
	var out []int
	for _, part := range strings.Split(r.Params[name], ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Result is what a run produced
type Result struct {
	Text      string              `json:"text,omitempty"`
	Data      interface{}         `json:"data,omitempty"`
	Artifacts []artifact.Artifact `json:"artifacts,omitempty"`
}

func intPtr(n int) *int { return &n }
