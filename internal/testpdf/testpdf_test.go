// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package testpdf

import (
	"bytes"
	"fmt"
	"image/color"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes_XRefOffsetsPointAtObjects(t *testing.T) {
	data := New().SetInfo("Title", "T (1)").AddTextPage("hello").AddPage(Page{
		Image: &Image{JPEG: SolidJPEG(4, 4, color.White), Width: 4, Height: 4, X: 10, Y: 10, W: 40, H: 40},
	}).Bytes()

	require.True(t, bytes.HasPrefix(data, []byte("%PDF-1.4")))
	require.True(t, bytes.HasSuffix(data, []byte("%%EOF\n")))

	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindSubmatch(data)
	require.NotNil(t, m)
	xref, err := strconv.Atoi(string(m[1]))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data[xref:], []byte("xref\n0 10\n")))

	entries := regexp.MustCompile(`(\d{10}) 00000 n \n`).FindAllSubmatch(data[xref:], -1)
	require.Len(t, entries, 9)
	for i, e := range entries {
		off, _ := strconv.Atoi(string(e[1]))
		assert.True(t, bytes.HasPrefix(data[off:], []byte(fmt.Sprintf("%d 0 obj", i+1))), "object %d", i+1)
	}
}

func TestTextWidth(t *testing.T) {
	assert.InDelta(t, 6.672, TextWidth(" ", 24), 0.001)
	assert.Zero(t, TextWidth("", 12))
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\(b\)\\`, escape(`a(b)\`))
}

func TestTJArray(t *testing.T) {
	assert.Equal(t, "(Hello) -3000 (wor\\(ld\\))", tjArray([]string{"Hello", "wor(ld)"}, 3000))
	assert.Equal(t, "(a) (b)", tjArray([]string{"a", "b"}, 0))
}

func TestPageSizeAndLines(t *testing.T) {
	data := New().AddPage(Page{
		Width: 595, Height: 842,
		Lines: []Line{{X1: 50, Y1: 700, X2: 300, Y2: 700}},
		Texts: []Text{{X: 72, Y: 720, Parts: []string{"a", "b"}, Kern: 500}},
	}).Bytes()

	assert.Contains(t, string(data), "/MediaBox [0 0 595 842]")
	assert.Contains(t, string(data), "50 700 250 0.5 re f")
	assert.Contains(t, string(data), "[(a) -500 (b)] TJ")
}
