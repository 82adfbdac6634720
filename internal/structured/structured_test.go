// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package structured

import (
	"os"
	"path/filepath"
	"testing"

	"pdf-toolbox/internal/testpdf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown_ContainsText(t *testing.T) {
	t.Setenv("PDF_TOOLBOX_TEMP_DIR", t.TempDir())
	data := testpdf.TextPDF("Quarterly report", "Revenue grew in every region")

	md, err := Markdown(data)
	require.NoError(t, err)
	assert.Contains(t, md, "Revenue")
}

func TestChunks_CoverDocument(t *testing.T) {
	t.Setenv("PDF_TOOLBOX_TEMP_DIR", t.TempDir())
	data := testpdf.TextPDF("The first page talks about apples", "The second page talks about pears")

	chunks, err := Chunks(data, 800, 100)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var all string
	for _, c := range chunks {
		assert.NotEmpty(t, c.Text)
		all += c.Text + " "
	}
	assert.Contains(t, all, "apples")
	assert.Contains(t, all, "pears")
}

func TestGarbageInput_ReturnsErrorAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PDF_TOOLBOX_TEMP_DIR", dir)

	_, err := Markdown([]byte("definitely not a pdf"))
	assert.Error(t, err)

	left, _ := filepath.Glob(filepath.Join(dir, "pdf-toolbox-*.pdf"))
	assert.Empty(t, left)
	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr)
}
