// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-toolbox/internal/config"
	"pdf-toolbox/internal/testpdf"
	"pdf-toolbox/internal/toolbox"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	t.Setenv("PDF_TOOLBOX_TEMP_DIR", t.TempDir())
	cfg := config.Default()
	cfg.Embeddings.CachePath = filepath.Join(t.TempDir(), "embeddings.db")
	svc := toolbox.NewServices(cfg, nil)
	t.Cleanup(func() { svc.Close() })

	out := t.TempDir()
	return New(toolbox.NewDefaultRegistry(svc), out, nil), out
}

func writePDF(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func call(t *testing.T, s *Server, tool string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	tl, ok := s.registry.Get(tool)
	require.True(t, ok, tool)

	req := mcp.CallToolRequest{}
	req.Params.Name = ToolPrefix + tool
	req.Params.Arguments = args
	res, err := s.handler(tl)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func TestDefinition(t *testing.T) {
	s, _ := newTestServer(t)
	split, _ := s.registry.Get("split")

	def := Definition(split)
	assert.Equal(t, "pdf_split", def.Name)
	assert.Equal(t, split.Description, def.Description)
	assert.Contains(t, def.InputSchema.Required, "file_paths")
	assert.Contains(t, def.InputSchema.Properties, "output_dir")

	mode, ok := def.InputSchema.Properties["mode"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "string", mode["type"])
	assert.Equal(t, "all", mode["default"])
	assert.ElementsMatch(t, []string{"all", "range", "single"}, mode["enum"])
}

func TestParamDescription(t *testing.T) {
	p := toolbox.Param{Name: "page", Label: "Page", Kind: toolbox.KindNumber, ShowIf: "mode=single"}
	assert.Equal(t, "Page (integer). Used when mode=single", paramDescription(p))
}

func TestCallWritesArtifacts(t *testing.T) {
	s, out := newTestServer(t)
	in := writePDF(t, t.TempDir(), "doc.pdf", testpdf.TextPDF("a", "b", "c"))

	res := call(t, s, "extract_range", map[string]interface{}{
		"file_paths": in,
		"start":      float64(2),
		"end":        "3",
	})
	assert.False(t, res.IsError, resultText(t, res))
	text := resultText(t, res)
	assert.Contains(t, text, "Files written:")

	written := filepath.Join(out, "extracted_range.pdf")
	assert.Contains(t, text, written)
	data, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.True(t, len(data) > 5 && string(data[:5]) == "%PDF-")
}

func TestCallOutputDirOverride(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf", testpdf.TextPDF("one"))
	b := writePDF(t, dir, "b.pdf", testpdf.TextPDF("two"))
	target := filepath.Join(t.TempDir(), "merged")

	res := call(t, s, "merge", map[string]interface{}{
		"file_paths": a + ", " + b,
		"output_dir": target,
	})
	require.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, resultText(t, res), "Merged 2 files.")
	assert.FileExists(t, filepath.Join(target, "merged.pdf"))
}

func TestCallTextTool(t *testing.T) {
	s, _ := newTestServer(t)
	in := writePDF(t, t.TempDir(), "doc.pdf", testpdf.TextPDF("Hello MCP"))

	res := call(t, s, "extract_text", map[string]interface{}{"file_paths": in})
	require.False(t, res.IsError)
	assert.Equal(t, "Hello MCP", resultText(t, res))
}

func TestCallErrors(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()
	txt := writePDF(t, dir, "notes.txt", []byte("%PDF-1.4"))
	fake := writePDF(t, dir, "fake.pdf", []byte("hello"))

	tests := []struct {
		name string
		args map[string]interface{}
		msg  string
	}{
		{"missing paths", map[string]interface{}{}, "file_paths must name at least one PDF file"},
		{"missing file", map[string]interface{}{"file_paths": filepath.Join(dir, "nope.pdf")}, "failed to read"},
		{"wrong extension", map[string]interface{}{"file_paths": txt}, "only .pdf files"},
		{"not a pdf", map[string]interface{}{"file_paths": fake}, "is not a PDF file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, s, "split", tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.msg)
		})
	}
}

func TestArgValue(t *testing.T) {
	assert.Equal(t, "3", argValue(float64(3)))
	assert.Equal(t, "2.5", argValue(2.5))
	assert.Equal(t, "true", argValue(true))
	assert.Equal(t, "x", argValue(" x "))
}
