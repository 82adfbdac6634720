// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tables finds tabular layouts in positioned PDF text.
package tables

import (
	"fmt"
	"math"
	"strings"

	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/tables"

	"pdf-toolbox/internal/artifact"
	"pdf-toolbox/internal/pdftext"
)

// Table is a detected table with its cell text
type Table struct {
	Page       int        `json:"page"`
	Rows       [][]string `json:"rows"`
	Confidence float64    `json:"confidence"`
}

// Detector finds tables page by page. Rows whose cells line up in columns
// are taken first; pages without such a block go to tabula's geometric
// detector together with their ruling lines.
type Detector struct {
	geometric *tables.GeometricDetector
}

// NewDetector returns a detector with the library defaults
func NewDetector() *Detector {
	return &Detector{geometric: tables.NewGeometricDetector()}
}

// Detect returns every table found in doc, in page order
func (d *Detector) Detect(doc *pdftext.Document) ([]Table, error) {
	var out []Table
	for i := 1; i <= doc.NumPages(); i++ {
		words, err := doc.Words(i)
		if err != nil {
			return nil, err
		}

		found := aligned(i, words)
		if len(found) == 0 {
			found, err = d.detectGeometric(doc, i, words)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, found...)
	}
	return out, nil
}

func (d *Detector) detectGeometric(doc *pdftext.Document, i int, words []pdftext.Word) ([]Table, error) {
	size, err := doc.PageSize(i)
	if err != nil {
		return nil, err
	}
	rules, err := doc.Rules(i)
	if err != nil {
		return nil, err
	}
	page := toPage(i, size, doc.Rotation(i), words, rules)

	found, err := d.geometric.Detect(page)
	if err != nil {
		return nil, fmt.Errorf("table detection failed on page %d: %w", i, err)
	}
	var out []Table
	for _, t := range found {
		rows := compact(t)
		if len(rows) < 2 || len(rows[0]) < 2 {
			continue
		}
		out = append(out, Table{Page: i, Rows: rows, Confidence: t.Confidence})
	}
	return out, nil
}

// toPage builds the detector's page model in media box coordinates. Ruling
// rectangles thinner than ruleWidth become single lines; others contribute
// their four edges.
func toPage(number int, size pdftext.Rect, rotation int, words []pdftext.Word, rules []pdftext.Rect) *model.Page {
	page := model.NewPage(size.W, size.H)
	page.Number = number
	page.Rotation = rotation
	for _, w := range words {
		page.RawText = append(page.RawText, model.TextFragment{
			Text:     w.Text,
			BBox:     model.NewBBox(w.Box.X-size.X, w.Box.Y-size.Y, w.Box.W, w.Box.H),
			FontSize: w.FontSize,
		})
	}

	for _, r := range rules {
		x0, y0 := r.X-size.X, r.Y-size.Y
		x1, y1 := x0+r.W, y0+r.H
		switch {
		case r.H <= ruleWidth:
			mid := y0 + r.H/2
			page.RawLines = append(page.RawLines, model.Line{Start: model.Point{X: x0, Y: mid}, End: model.Point{X: x1, Y: mid}, Width: r.H})
		case r.W <= ruleWidth:
			mid := x0 + r.W/2
			page.RawLines = append(page.RawLines, model.Line{Start: model.Point{X: mid, Y: y0}, End: model.Point{X: mid, Y: y1}, Width: r.W})
		default:
			corners := []model.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
			for k := range corners {
				page.RawLines = append(page.RawLines, model.Line{Start: corners[k], End: corners[(k+1)%4], IsRect: true})
			}
		}
	}
	return page
}

const (
	ruleWidth = 2.0
	// cell break, in ems of horizontal gap between words
	cellGap = 1.0
	// rows further apart than this many ems end a table
	rowGap = 2.5
	// average cell length above which a block reads as prose columns
	proseCell = 40
)

type cell struct {
	text   string
	x0, x1 float64
}

type line struct {
	top, size float64
	cells     []cell
}

// lines groups words back into their rows and splits each row into cells
// wherever the gap between words is at least cellGap ems
func lines(words []pdftext.Word) []line {
	var out []line
	for k, w := range words {
		if k == 0 || w.Row != words[k-1].Row {
			out = append(out, line{top: w.Box.Y + w.Box.H, size: w.FontSize})
		}
		l := &out[len(out)-1]
		l.size = max(l.size, w.FontSize)
		l.top = max(l.top, w.Box.Y+w.Box.H)

		if n := len(l.cells); n > 0 && w.Box.X-l.cells[n-1].x1 < cellGap*max(w.FontSize, 1) {
			c := &l.cells[n-1]
			c.text += " " + w.Text
			c.x1 = max(c.x1, w.Box.X+w.Box.W)
			continue
		}
		l.cells = append(l.cells, cell{text: w.Text, x0: w.Box.X, x1: w.Box.X + w.Box.W})
	}
	return out
}

// aligned finds runs of consecutive rows with the same number of cells (at
// least two) where every cell overlaps the horizontal extent of its column
func aligned(page int, words []pdftext.Word) []Table {
	var out []Table
	var block []line
	var cols []cell

	flush := func() {
		if len(block) >= 2 {
			if t, ok := blockTable(page, block); ok {
				out = append(out, t)
			}
		}
		block, cols = nil, nil
	}

	for _, l := range lines(words) {
		if len(l.cells) < 2 {
			flush()
			continue
		}
		if len(block) > 0 {
			prev := block[len(block)-1]
			if len(l.cells) != len(cols) || prev.top-l.top > rowGap*max(prev.size, l.size) || !fits(l.cells, cols) {
				flush()
			}
		}
		if len(block) == 0 {
			cols = append([]cell(nil), l.cells...)
		}
		for j, c := range l.cells {
			cols[j].x0 = min(cols[j].x0, c.x0)
			cols[j].x1 = max(cols[j].x1, c.x1)
		}
		block = append(block, l)
	}
	flush()
	return out
}

func fits(cells, cols []cell) bool {
	for j, c := range cells {
		if c.x0 > cols[j].x1 || c.x1 < cols[j].x0 {
			return false
		}
		if j+1 < len(cols) && c.x1 >= cols[j+1].x0 {
			return false
		}
	}
	return true
}

// blockTable turns a run of rows into a table. Confidence is the share of
// cells whose left or right edge lines up with the header cell above it.
func blockTable(page int, block []line) (Table, bool) {
	var chars, cells, edged int
	rows := make([][]string, len(block))
	head := block[0].cells
	for i, l := range block {
		rows[i] = make([]string, len(l.cells))
		tol := 0.5 * l.size
		for j, c := range l.cells {
			rows[i][j] = c.text
			chars += len([]rune(c.text))
			cells++
			if math.Abs(c.x0-head[j].x0) <= tol || math.Abs(c.x1-head[j].x1) <= tol {
				edged++
			}
		}
	}
	if chars/cells > proseCell {
		return Table{}, false
	}
	return Table{Page: page, Rows: rows, Confidence: float64(edged) / float64(cells)}, true
}

// compact copies cell text and drops rows and columns that are entirely
// empty. The grid is built from fragment edges, so gutters between cells
// show up as blank columns.
func compact(t *model.Table) [][]string {
	if t.RowCount() == 0 {
		return nil
	}
	cols := t.ColCount()
	keepCol := make([]bool, cols)
	var rows [][]string

	for _, r := range t.Rows {
		empty := true
		for j := 0; j < cols && j < len(r); j++ {
			if strings.TrimSpace(r[j].Text) != "" {
				keepCol[j] = true
				empty = false
			}
		}
		if empty {
			continue
		}
		row := make([]string, cols)
		for j := 0; j < cols && j < len(r); j++ {
			row[j] = strings.TrimSpace(r[j].Text)
		}
		rows = append(rows, row)
	}

	for i, r := range rows {
		kept := r[:0]
		for j, cell := range r {
			if keepCol[j] {
				kept = append(kept, cell)
			}
		}
		rows[i] = kept
	}
	return rows
}

func toModel(t Table) *model.Table {
	cols := 0
	for _, r := range t.Rows {
		cols = max(cols, len(r))
	}
	m := model.NewTable(len(t.Rows), cols)
	for i, r := range t.Rows {
		for j, cell := range r {
			m.Rows[i][j].Text = cell
		}
	}
	return m
}

// CSV renders t as comma-separated values
func (t Table) CSV() string {
	return toModel(t).ToCSV()
}

// Markdown renders t as a pipe table with the first row as header
func (t Table) Markdown() string {
	return toModel(t).ToMarkdown()
}

// Bundle packs every table into tables.zip as table_<n>.csv
func Bundle(ts []Table) (artifact.Artifact, error) {
	files := make([]artifact.Artifact, len(ts))
	for i, t := range ts {
		files[i] = artifact.New(fmt.Sprintf("table_%d.csv", i+1), artifact.MIMECSV, []byte(t.CSV()))
	}
	return artifact.Zip("tables.zip", files)
}
