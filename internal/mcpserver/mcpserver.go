// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes the toolbox over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/paths"
	"pdf-toolbox/internal/toolbox"
	"pdf-toolbox/internal/version"
)

// ToolPrefix is prepended to every tool name
const ToolPrefix = "pdf_"

// Server wraps an MCP server with one MCP tool per toolbox tool
type Server struct {
	registry  *toolbox.Registry
	mcp       *server.MCPServer
	outputDir string
	observer  *observability.StandardObserver
}

// New registers every tool in registry. outputDir is used when a call does
// not name one.
func New(registry *toolbox.Registry, outputDir string, observer *observability.StandardObserver) *Server {
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, nil)
	}
	s := &Server{
		registry:  registry,
		outputDir: outputDir,
		observer:  observer,
		mcp: server.NewMCPServer(
			"pdf-toolbox",
			version.Version,
			server.WithLogging(),
			server.WithRecovery(),
		),
	}
	for _, t := range registry.List() {
		s.mcp.AddTool(Definition(t), s.handler(t))
	}
	return s
}

// ServeStdio serves requests on stdin/stdout until the input closes
func (s *Server) ServeStdio() error {
	s.observer.Logger().Info("Starting pdf-toolbox MCP server on stdio")
	return server.ServeStdio(s.mcp)
}

// Definition describes t as an MCP tool. Every parameter is passed as a
// string, the same way the web form submits it.
func Definition(t *toolbox.Tool) mcp.Tool {
	fileDesc := "Absolute path to the PDF file"
	if t.MultiFile {
		fileDesc = "Comma-separated absolute paths to the PDF files, in order"
	}
	opts := []mcp.ToolOption{
		mcp.WithDescription(t.Description),
		mcp.WithString("file_paths", mcp.Required(), mcp.Description(fileDesc)),
	}

	for _, p := range t.Params {
		popts := []mcp.PropertyOption{mcp.Description(paramDescription(p))}
		if p.Default != "" {
			popts = append(popts, mcp.DefaultString(p.Default))
		}
		if p.Kind == toolbox.KindSelect {
			values := make([]string, len(p.Options))
			for i, o := range p.Options {
				values[i] = o.Value
			}
			popts = append(popts, mcp.Enum(values...))
		}
		opts = append(opts, mcp.WithString(p.Name, popts...))
	}

	opts = append(opts, mcp.WithString("output_dir",
		mcp.Description("Directory for produced files (defaults to the configured output directory)")))
	return mcp.NewTool(ToolPrefix+t.Name, opts...)
}

func paramDescription(p toolbox.Param) string {
	desc := p.Label
	switch p.Kind {
	case toolbox.KindNumber:
		desc += " (integer)"
	case toolbox.KindCheckbox:
		desc += " (true or false)"
	}
	if p.Help != "" {
		desc += ". " + p.Help
	}
	if p.ShowIf != "" {
		desc += fmt.Sprintf(". Used when %s", p.ShowIf)
	}
	return desc
}

func (s *Server) handler(t *toolbox.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := s.call(ctx, t, request.Params.Arguments)
		if err != nil {
			s.observer.Logger().WithFields(logrus.Fields{"tool": t.Name}).WithError(err).Warn("MCP tool call failed")
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// call runs the tool and renders its result as text
func (s *Server) call(ctx context.Context, t *toolbox.Tool, args map[string]interface{}) (string, error) {
	files, err := readFiles(argString(args, "file_paths"))
	if err != nil {
		return "", err
	}

	params := make(map[string]string)
	for _, p := range t.Params {
		if v, ok := args[p.Name]; ok && v != nil {
			params[p.Name] = argValue(v)
		}
	}

	res, err := s.registry.Run(ctx, t.Name, toolbox.NewRequest(files, params))
	if err != nil {
		return "", err
	}

	outputDir := argString(args, "output_dir")
	if outputDir == "" {
		outputDir = s.outputDir
	}

	var b strings.Builder
	if res.Text != "" {
		b.WriteString(res.Text)
		b.WriteString("\n")
	}
	if res.Data != nil {
		data, err := json.MarshalIndent(res.Data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode result: %w", err)
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.Write(data)
		b.WriteString("\n")
	}
	if len(res.Artifacts) > 0 {
		if outputDir == "" {
			outputDir = "."
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Files written:\n")
		for _, a := range res.Artifacts {
			written, err := a.Save(outputDir)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "- %s (%d bytes)\n", written, a.Size())
		}
	}
	if b.Len() == 0 {
		return "Done.", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// readFiles loads each comma-separated path
func readFiles(list string) ([]toolbox.File, error) {
	var files []toolbox.File
	for _, path := range strings.Split(list, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if err := paths.ValidatePath(path); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Clean(paths.NormalizePath(path)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := toolbox.CheckPDF(filepath.Base(path), data); err != nil {
			return nil, err
		}
		files = append(files, toolbox.File{Name: filepath.Base(path), Data: data})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("file_paths must name at least one PDF file")
	}
	return files, nil
}

func argString(args map[string]interface{}, name string) string {
	if v, ok := args[name]; ok && v != nil {
		return argValue(v)
	}
	return ""
}

// argValue turns a JSON argument into the string form tools expect
func argValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprint(x)
	default:
		return fmt.Sprint(x)
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: "Error: " + err.Error()},
		},
		IsError: true,
	}
}
