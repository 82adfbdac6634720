// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pdftext reads selectable text from PDF documents together with the
// position of every glyph, so callers can rebuild reading order, search for
// keywords and locate words on the page.
package pdftext

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// Glyph is one positioned run as reported by the content stream parser
type Glyph struct {
	S        string
	X, Y     float64
	W        float64
	FontSize float64
}

// Rect is an axis-aligned box in PDF user space (origin bottom left)
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Row is a line of text at a common baseline, glyphs sorted left to right
type Row struct {
	Y      float64
	Glyphs []Glyph
	Text   string
	// spans maps every rune of Text to the box it covers
	spans []Rect
}

// Word is a whitespace-delimited token with its bounding box. Row is the
// index of the word's row on the page, top to bottom.
type Word struct {
	Text     string
	Box      Rect
	FontSize float64
	Row      int
}

// Match is one keyword occurrence
type Match struct {
	Page int  `json:"page"` // 1-indexed
	Box  Rect `json:"box"`
}

// Document wraps a parsed PDF
type Document struct {
	r *pdf.Reader
}

// Open parses a PDF held in memory
func Open(data []byte) (doc *Document, err error) {
	// The parser panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("failed to parse PDF: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &Document{r: r}, nil
}

// NumPages returns the page count
func (d *Document) NumPages() int {
	return d.r.NumPage()
}

// Info returns the string entries of the document Info dictionary
func (d *Document) Info() map[string]string {
	info := d.r.Trailer().Key("Info")
	out := make(map[string]string)
	if info.IsNull() || info.Kind() != pdf.Dict {
		return out
	}
	for _, key := range info.Keys() {
		v := info.Key(key)
		if v.Kind() == pdf.String {
			if s := strings.TrimSpace(v.Text()); s != "" {
				out[key] = s
			}
		}
	}
	return out
}

const (
	defaultFontSize = 12
	// advance assumed for fonts without a Widths array, in ems
	fallbackAdvance = 0.5
)

func (d *Document) page(i int) (pdf.Page, error) {
	if i < 1 || i > d.NumPages() {
		return pdf.Page{}, fmt.Errorf("page %d out of range 1-%d", i, d.NumPages())
	}
	return d.r.Page(i), nil
}

// content runs the page's content stream through the text state machine.
// A page without content yields an empty result.
func (d *Document) content(i int) (c pdf.Content, err error) {
	p, err := d.page(i)
	if err != nil {
		return pdf.Content{}, err
	}
	if p.V.IsNull() {
		return pdf.Content{}, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			c, err = pdf.Content{}, fmt.Errorf("failed to read page %d: %v", i, rec)
		}
	}()
	return p.Content(), nil
}

// Rows returns the text rows of page i (1-indexed), top to bottom
func (d *Document) Rows(i int) ([]Row, error) {
	c, err := d.content(i)
	if err != nil {
		return nil, err
	}
	return buildRows(glyphsFrom(c.Text)), nil
}

// glyphsFrom converts shown characters to glyphs. Line break markers are
// dropped. Characters from fonts without widths get an estimated advance,
// and runs that the parser left stacked at one origin are laid out from it.
func glyphsFrom(texts []pdf.Text) []Glyph {
	glyphs := make([]Glyph, 0, len(texts))
	var prev pdf.Text
	var cursor float64
	estimating := false

	for _, t := range texts {
		if t.S == "" || strings.TrimFunc(t.S, unicode.IsControl) == "" {
			continue
		}
		g := Glyph{S: t.S, X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize}
		if g.FontSize <= 0 {
			g.FontSize = defaultFontSize
		}

		if g.W <= 0 {
			g.W = g.FontSize * fallbackAdvance * float64(utf8.RuneCountInString(t.S))
			if estimating && math.Abs(t.Y-prev.Y) < 0.01 && t.X-prev.X < g.W/2 {
				g.X = cursor + (t.X - prev.X)
			}
			estimating = true
		} else {
			estimating = false
		}
		cursor = g.X + g.W
		prev = t
		glyphs = append(glyphs, g)
	}
	return glyphs
}

// buildRows groups glyphs whose baselines lie within half a font size of the
// row's first glyph, then orders each row left to right.
func buildRows(glyphs []Glyph) []Row {
	if len(glyphs) == 0 {
		return nil
	}
	order := make([]Glyph, len(glyphs))
	copy(order, glyphs)
	// PDF y grows upward
	sort.SliceStable(order, func(a, b int) bool { return order[a].Y > order[b].Y })

	var rows []Row
	var cur []Glyph
	var top, tol float64
	flush := func() {
		if len(cur) == 0 {
			return
		}
		sort.SliceStable(cur, func(a, b int) bool { return cur[a].X < cur[b].X })
		var sumY float64
		for _, g := range cur {
			sumY += g.Y
		}
		row := Row{Y: sumY / float64(len(cur)), Glyphs: cur}
		row.Text, row.spans = assemble(cur)
		if strings.TrimSpace(row.Text) != "" {
			rows = append(rows, row)
		}
		cur = nil
	}

	for _, g := range order {
		if len(cur) > 0 && top-g.Y <= tol {
			cur = append(cur, g)
			continue
		}
		flush()
		cur = []Glyph{g}
		top, tol = g.Y, g.FontSize*0.5
	}
	flush()
	return rows
}

// assemble joins glyphs into a line, inserting a space wherever the gap to the
// next glyph exceeds a fifth of the font size. Runs of whitespace collapse.
func assemble(glyphs []Glyph) (string, []Rect) {
	var b strings.Builder
	var spans []Rect
	lastSpace := true

	put := func(r rune, box Rect) {
		if unicode.IsSpace(r) {
			if lastSpace {
				return
			}
			r = ' '
			lastSpace = true
		} else {
			lastSpace = false
		}
		b.WriteRune(r)
		spans = append(spans, box)
	}

	for i, g := range glyphs {
		size := g.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		runes := []rune(g.S)
		for j, r := range runes {
			// Split the glyph run evenly across its runes
			w := g.W / float64(len(runes))
			put(r, Rect{X: g.X + w*float64(j), Y: g.Y - size*0.2, W: w, H: size})
		}

		if i < len(glyphs)-1 {
			next := glyphs[i+1]
			gap := next.X - (g.X + g.W)
			if gap > size*0.2 {
				put(' ', Rect{X: g.X + g.W, Y: g.Y - size*0.2, W: gap, H: size})
			}
		}
	}

	text := b.String()
	if strings.HasSuffix(text, " ") {
		text = text[:len(text)-1]
		spans = spans[:len(spans)-1]
	}
	return text, spans
}

// PageSize returns the media box of page i. Pages without one report US
// Letter.
func (d *Document) PageSize(i int) (Rect, error) {
	p, err := d.page(i)
	if err != nil {
		return Rect{}, err
	}
	box := p.MediaBox()
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return Rect{W: 612, H: 792}, nil
	}
	x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	return Rect{X: min(x0, x1), Y: min(y0, y1), W: math.Abs(x1 - x0), H: math.Abs(y1 - y0)}, nil
}

// Rules returns the rectangles painted on page i with the re operator, which
// is how most generators draw table borders and cell shading.
func (d *Document) Rules(i int) ([]Rect, error) {
	c, err := d.content(i)
	if err != nil {
		return nil, err
	}
	out := make([]Rect, 0, len(c.Rect))
	for _, r := range c.Rect {
		out = append(out, Rect{
			X: min(r.Min.X, r.Max.X),
			Y: min(r.Min.Y, r.Max.Y),
			W: math.Abs(r.Max.X - r.Min.X),
			H: math.Abs(r.Max.Y - r.Min.Y),
		})
	}
	return out, nil
}

// plainText is the unpositioned fallback for pages the text state machine
// cannot walk
func (d *Document) plainText(i int) (text string, err error) {
	p, err := d.page(i)
	if err != nil {
		return "", err
	}
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("failed to read page %d: %v", i, rec)
		}
	}()
	return p.GetPlainText(nil)
}

// PageText returns page i as rows joined by newlines, with a trailing newline.
// Pages whose rows cannot be built fall back to the library's plain text.
func (d *Document) PageText(i int) (string, error) {
	rows, err := d.Rows(i)
	if err != nil {
		plain, perr := d.plainText(i)
		if perr != nil || strings.TrimSpace(plain) == "" {
			return "", err
		}
		plain = strings.TrimRight(plain, "\n") + "\n"
		return norm.NFC.String(plain), nil
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(r.Text)
		b.WriteByte('\n')
	}
	return norm.NFC.String(b.String()), nil
}

// Text returns the text of every page in order. Pages that fail to parse are
// skipped.
func (d *Document) Text() string {
	var b strings.Builder
	for i := 1; i <= d.NumPages(); i++ {
		t, err := d.PageText(i)
		if err != nil {
			continue
		}
		b.WriteString(t)
	}
	return b.String()
}

// Pages returns the text of each page separately
func (d *Document) Pages() []string {
	out := make([]string, 0, d.NumPages())
	for i := 1; i <= d.NumPages(); i++ {
		t, _ := d.PageText(i)
		out = append(out, t)
	}
	return out
}

// Words returns the words on page i with their boxes
func (d *Document) Words(i int) ([]Word, error) {
	rows, err := d.Rows(i)
	if err != nil {
		return nil, err
	}

	var words []Word
	for ri, row := range rows {
		runes := []rune(row.Text)
		start := -1
		flush := func(end int) {
			if start < 0 {
				return
			}
			box := union(row.spans[start:end])
			words = append(words, Word{Text: string(runes[start:end]), Box: box, FontSize: box.H, Row: ri})
			start = -1
		}
		for k, r := range runes {
			if r == ' ' {
				flush(k)
				continue
			}
			if start < 0 {
				start = k
			}
		}
		flush(len(runes))
	}
	return words, nil
}

// Find locates every case-insensitive occurrence of keyword. Whitespace in
// the keyword matches a single space, since rows collapse whitespace runs.
// Matches do not span rows, and pages that fail to parse are skipped.
func (d *Document) Find(keyword string) ([]Match, error) {
	needle := foldRunes(strings.Join(strings.Fields(keyword), " "))
	if len(needle) == 0 {
		return nil, fmt.Errorf("empty keyword")
	}

	var matches []Match
	for i := 1; i <= d.NumPages(); i++ {
		rows, err := d.Rows(i)
		if err != nil {
			continue
		}
		for _, row := range rows {
			hay := foldRunes(row.Text)
			for k := 0; k+len(needle) <= len(hay); k++ {
				if runesEqual(hay[k:k+len(needle)], needle) {
					matches = append(matches, Match{Page: i, Box: union(row.spans[k : k+len(needle)])})
					k += len(needle) - 1
				}
			}
		}
	}
	return matches, nil
}

// foldRunes lowercases rune by rune so indexes line up with the source
func foldRunes(s string) []rune {
	out := []rune(s)
	for k, r := range out {
		out[k] = unicode.ToLower(r)
	}
	return out
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func union(boxes []Rect) Rect {
	if len(boxes) == 0 {
		return Rect{}
	}
	minX, minY := boxes[0].X, boxes[0].Y
	maxX, maxY := boxes[0].X+boxes[0].W, boxes[0].Y+boxes[0].H
	for _, b := range boxes[1:] {
		minX = min(minX, b.X)
		minY = min(minY, b.Y)
		maxX = max(maxX, b.X+b.W)
		maxY = max(maxY, b.Y+b.H)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Rotation returns the /Rotate value set directly on page i
func (d *Document) Rotation(i int) int {
	if i < 1 || i > d.NumPages() {
		return 0
	}
	return int(d.r.Page(i).V.Key("Rotate").Int64())
}
