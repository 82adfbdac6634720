// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-toolbox/internal/artifact"
	"pdf-toolbox/internal/testpdf"
	"pdf-toolbox/internal/toolbox"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"start=2", "question=a=b?", "keyword="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"start": "2", "question": "a=b?", "keyword": ""}, params)

	_, err = parseParams([]string{"oops"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=1"})
	assert.Error(t, err)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(good, testpdf.TextPDF("x"), 0o644))
	bad := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(bad, []byte("text"), 0o644))

	files, err := loadFiles([]string{good})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.pdf", files[0].Name)

	_, err = loadFiles([]string{bad})
	assert.Error(t, err)
	_, err = loadFiles([]string{filepath.Join(dir, "missing.pdf")})
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	res := &toolbox.Result{
		Text:      "Merged 2 files.",
		Artifacts: []artifact.Artifact{artifact.New("merged.pdf", artifact.MIMEPDF, []byte("%PDF-1.4"))},
	}

	var out bytes.Buffer
	require.NoError(t, printResult(&out, "merge", res, dir, "text"))
	assert.Equal(t, "Merged 2 files.\nWrote "+filepath.Join(dir, "merged.pdf")+"\n", out.String())
	assert.FileExists(t, filepath.Join(dir, "merged.pdf"))
}

func TestPrintResultJSON(t *testing.T) {
	var out bytes.Buffer
	res := &toolbox.Result{Data: map[string]int{"pages": 3}}
	require.NoError(t, printResult(&out, "metadata", res, t.TempDir(), "json"))
	assert.JSONEq(t, `{"tool":"metadata","data":{"pages":3}}`, out.String())
}

func TestRunCommand(t *testing.T) {
	t.Setenv("PDF_TOOLBOX_TEMP_DIR", t.TempDir())
	t.Setenv("PDF_TOOLBOX_CONFIG_DIR", t.TempDir())
	dir := t.TempDir()
	in := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(in, testpdf.TextPDF("one", "two"), 0o644))
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "remove_pages", "--no-color", "--env-file", "", "-p", "first=true", "-o", outDir, in})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Wrote")
	assert.FileExists(t, filepath.Join(outDir, "modified.pdf"))
}
