// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tables

import (
	"strings"
	"testing"

	"github.com/tsawler/tabula/model"

	"pdf-toolbox/internal/artifact"
	"pdf-toolbox/internal/pdftext"
	"pdf-toolbox/internal/testpdf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridPDF() []byte {
	var page testpdf.Page
	cells := [][]string{
		{"Item", "Qty", "Price"},
		{"Apple", "3", "1.20"},
		{"Pear", "5", "0.80"},
	}
	for r, row := range cells {
		for c, s := range row {
			page.Texts = append(page.Texts, testpdf.Text{X: 100 + float64(c)*120, Y: 700 - float64(r)*20, Size: 12, S: s})
		}
	}
	return testpdf.New().AddPage(page).Bytes()
}

func TestDetect_RunsOverPositionedWords(t *testing.T) {
	doc, err := pdftext.Open(gridPDF())
	require.NoError(t, err)

	found, err := NewDetector().Detect(doc)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 1, found[0].Page)
	assert.Equal(t, [][]string{
		{"Item", "Qty", "Price"},
		{"Apple", "3", "1.20"},
		{"Pear", "5", "0.80"},
	}, found[0].Rows)
	assert.Greater(t, found[0].Confidence, 0.5)
}

func textGrid(x []float64, top, pitch float64, cells [][]string) []testpdf.Text {
	var out []testpdf.Text
	for r, row := range cells {
		for c, s := range row {
			out = append(out, testpdf.Text{X: x[c], Y: top - float64(r)*pitch, Size: 12, S: s})
		}
	}
	return out
}

func TestDetect_PlainTwoColumnGrid(t *testing.T) {
	cells := [][]string{{"Name", "Qty"}, {"Apple", "3"}, {"Pear", "5"}, {"Plum", "7"}}
	page := testpdf.Page{Texts: textGrid([]float64{72, 200}, 700, 20, cells)}
	page.Texts = append(page.Texts, testpdf.Text{X: 72, Y: 760, Size: 16, S: "Fruit inventory"})
	doc, err := pdftext.Open(testpdf.New().AddPage(page).Bytes())
	require.NoError(t, err)

	found, err := NewDetector().Detect(doc)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, cells, found[0].Rows)
	assert.Equal(t, 1.0, found[0].Confidence)
}

func TestDetect_A4PageWithRightAlignedNumbers(t *testing.T) {
	var page testpdf.Page
	page.Width, page.Height = 595, 842
	rows := [][]string{{"Region", "Units"}, {"North", "1200"}, {"South", "85"}}
	for r, row := range rows {
		y := 780 - float64(r)*18
		page.Texts = append(page.Texts, testpdf.Text{X: 60, Y: y, Size: 12, S: row[0]})
		// right edge at 400
		page.Texts = append(page.Texts, testpdf.Text{X: 400 - testpdf.TextWidth(row[1], 12), Y: y, Size: 12, S: row[1]})
	}
	doc, err := pdftext.Open(testpdf.New().AddPage(page).Bytes())
	require.NoError(t, err)

	found, err := NewDetector().Detect(doc)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, rows, found[0].Rows)
	assert.Equal(t, 1.0, found[0].Confidence)
}

func TestDetect_ProseIsNotATable(t *testing.T) {
	doc, err := pdftext.Open(testpdf.TextPDF(
		"The quarterly report covers revenue and costs.",
		"Growth was steady across every region.",
	))
	require.NoError(t, err)

	found, err := NewDetector().Detect(doc)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestAligned_ProseColumnsRejected(t *testing.T) {
	left := "Revenue grew steadily through the first half of the year while"
	right := "Costs held flat as the company renegotiated its supplier contracts"
	var words []pdftext.Word
	for r := 0; r < 3; r++ {
		x := 72.0
		for _, w := range strings.Fields(left) {
			words = append(words, word(w, x, 700-float64(r)*14, r))
			x += float64(len(w))*5 + 3
		}
		x = 400
		for _, w := range strings.Fields(right) {
			words = append(words, word(w, x, 700-float64(r)*14, r))
			x += float64(len(w))*5 + 3
		}
	}
	assert.Empty(t, aligned(1, words))
}

func TestLines_SplitsCellsOnWideGaps(t *testing.T) {
	words := []pdftext.Word{
		word("Unit", 72, 700, 0), word("price", 97, 700, 0), word("9.99", 200, 700, 0),
		word("Total", 72, 680, 1),
	}
	ls := lines(words)
	require.Len(t, ls, 2)
	require.Len(t, ls[0].cells, 2)
	assert.Equal(t, "Unit price", ls[0].cells[0].text)
	assert.Equal(t, "9.99", ls[0].cells[1].text)
	assert.Len(t, ls[1].cells, 1)
}

func word(text string, x, y float64, row int) pdftext.Word {
	w := float64(len(text)) * 5
	return pdftext.Word{Text: text, Box: pdftext.Rect{X: x, Y: y - 2, W: w, H: 10}, FontSize: 10, Row: row}
}

func TestToPage(t *testing.T) {
	size := pdftext.Rect{X: 10, Y: 20, W: 595, H: 842}
	words := []pdftext.Word{{Text: "x", Box: pdftext.Rect{X: 30, Y: 40, W: 5, H: 12}, FontSize: 12}}
	rules := []pdftext.Rect{
		{X: 60, Y: 120, W: 200, H: 0.5},
		{X: 60, Y: 120, W: 1, H: 100},
		{X: 10, Y: 20, W: 50, H: 30},
	}
	page := toPage(2, size, 90, words, rules)

	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 595.0, page.Width)
	assert.Equal(t, 842.0, page.Height)
	assert.Equal(t, 90, page.Rotation)
	require.Len(t, page.RawText, 1)
	assert.Equal(t, 20.0, page.RawText[0].BBox.X)
	assert.Equal(t, 20.0, page.RawText[0].BBox.Y)
	assert.Equal(t, 12.0, page.RawText[0].BBox.Height)

	require.Len(t, page.RawLines, 6)
	h := page.RawLines[0]
	assert.Equal(t, model.Point{X: 50, Y: 100.25}, h.Start)
	assert.Equal(t, model.Point{X: 250, Y: 100.25}, h.End)
	v := page.RawLines[1]
	assert.Equal(t, v.Start.X, v.End.X)
	assert.Equal(t, 100.0, v.End.Y-v.Start.Y)
	for _, l := range page.RawLines[2:] {
		assert.True(t, l.IsRect)
	}
}

func TestDetect_RuledPageWithoutGrid(t *testing.T) {
	// one cell per row, so only the geometric pass runs
	page := testpdf.Page{
		Width: 595, Height: 842,
		Lines: []testpdf.Line{{X1: 50, Y1: 720, X2: 300, Y2: 720}},
		Texts: []testpdf.Text{{X: 72, Y: 700, S: "only"}},
	}
	doc, err := pdftext.Open(testpdf.New().AddPage(page).Bytes())
	require.NoError(t, err)

	found, err := NewDetector().Detect(doc)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCompactDropsGutters(t *testing.T) {
	m := model.NewTable(4, 4)
	m.Rows[0][0].Text, m.Rows[0][2].Text = "Name", "Age"
	m.Rows[2][0].Text, m.Rows[2][2].Text = "Ann", "31"
	m.Rows[3][0].Text = "Bob"

	rows := compact(m)
	assert.Equal(t, [][]string{{"Name", "Age"}, {"Ann", "31"}, {"Bob", ""}}, rows)
}

func TestCSVAndMarkdown(t *testing.T) {
	tbl := Table{Page: 1, Rows: [][]string{{"a", "b,c"}, {"1", "2"}}}

	assert.Equal(t, "a,\"b,c\"\n1,2\n", tbl.CSV())
	md := tbl.Markdown()
	assert.Contains(t, md, "| a | b,c |")
	assert.Contains(t, md, "|---|---|")
}

func TestBundle(t *testing.T) {
	z, err := Bundle([]Table{
		{Rows: [][]string{{"a", "b"}, {"c", "d"}}},
		{Rows: [][]string{{"e", "f"}, {"g", "h"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "tables.zip", z.Name)

	files, err := artifact.Unzip(z.Data)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "table_2.csv", files[1].Name)
	assert.Equal(t, "e,f\ng,h\n", string(files[1].Data))
}
