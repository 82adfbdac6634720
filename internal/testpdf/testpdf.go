// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package testpdf builds small, valid PDF documents for tests. Pages carry
// Helvetica text runs and optionally one embedded JPEG image.
package testpdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sort"
	"strings"
)

// Letter page size in points
const (
	PageWidth  = 612
	PageHeight = 792
)

// Text is a single run of text drawn at (X, Y) in points from the bottom left.
// When Parts is set the run is shown with one TJ array instead, with Kern
// thousandths of an em inserted between consecutive parts.
type Text struct {
	X, Y  float64
	Size  float64
	S     string
	Parts []string
	Kern  float64
}

// Line is a stroke from (X1, Y1) to (X2, Y2), drawn as a thin filled rectangle
type Line struct {
	X1, Y1, X2, Y2 float64
}

// Image is a JPEG drawn at (X, Y) scaled to W x H points.
type Image struct {
	JPEG          []byte
	Width, Height int // pixel size
	X, Y, W, H    float64
}

// Page describes one page. A zero Width or Height means US Letter.
type Page struct {
	Texts         []Text
	Lines         []Line
	Image         *Image
	Width, Height float64
}

// Document is a PDF under construction
type Document struct {
	Pages []Page
	Info  map[string]string
}

// New returns an empty document
func New() *Document {
	return &Document{Info: map[string]string{}}
}

// AddTextPage appends a page with one line of 24pt text per argument, top down.
func (d *Document) AddTextPage(lines ...string) *Document {
	var p Page
	y := 700.0
	for _, l := range lines {
		p.Texts = append(p.Texts, Text{X: 72, Y: y, Size: 24, S: l})
		y -= 36
	}
	d.Pages = append(d.Pages, p)
	return d
}

// AddPage appends a fully described page
func (d *Document) AddPage(p Page) *Document {
	d.Pages = append(d.Pages, p)
	return d
}

// SetInfo sets an Info dictionary entry such as Title or Author
func (d *Document) SetInfo(key, value string) *Document {
	d.Info[key] = value
	return d
}

// TextPDF is shorthand for a document with one text line per page.
func TextPDF(pages ...string) []byte {
	d := New()
	for _, p := range pages {
		d.AddTextPage(p)
	}
	return d.Bytes()
}

// SolidJPEG encodes a w x h JPEG filled with c
func SolidJPEG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Bytes renders the document
func (d *Document) Bytes() []byte {
	w := &writer{}
	w.buf.WriteString("%PDF-1.4\n%\xE2\xE3\xCF\xD3\n")

	// Fixed object numbers: 1 catalog, 2 pages, 3 font, 4 info. Pages follow.
	next := 5
	type pageObjs struct{ page, content, image int }
	objs := make([]pageObjs, len(d.Pages))
	for i, p := range d.Pages {
		objs[i].page = next
		objs[i].content = next + 1
		next += 2
		if p.Image != nil {
			objs[i].image = next
			next++
		}
	}

	w.object(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(objs))
	for i, o := range objs {
		kids[i] = fmt.Sprintf("%d 0 R", o.page)
	}
	w.object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(objs)))

	w.object(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding"+
		" /FirstChar 32 /LastChar 126 /Widths ["+helveticaWidths()+"] >>")

	w.object(4, infoDict(d.Info))

	for i, p := range d.Pages {
		o := objs[i]
		resources := "/Font << /F1 3 0 R >>"
		if o.image != 0 {
			resources += fmt.Sprintf(" /XObject << /Im1 %d 0 R >>", o.image)
		}
		width, height := p.Width, p.Height
		if width == 0 || height == 0 {
			width, height = PageWidth, PageHeight
		}
		w.object(o.page, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << %s >> /Contents %d 0 R >>",
			width, height, resources, o.content))

		var content bytes.Buffer
		if p.Image != nil {
			fmt.Fprintf(&content, "q %g 0 0 %g %g %g cm /Im1 Do Q\n", p.Image.W, p.Image.H, p.Image.X, p.Image.Y)
		}
		for _, l := range p.Lines {
			x, y := min(l.X1, l.X2), min(l.Y1, l.Y2)
			fmt.Fprintf(&content, "%g %g %g %g re f\n", x, y, max(l.X2-l.X1, l.X1-l.X2, 0.5), max(l.Y2-l.Y1, l.Y1-l.Y2, 0.5))
		}
		for _, t := range p.Texts {
			size := t.Size
			if size == 0 {
				size = 12
			}
			if len(t.Parts) > 0 {
				fmt.Fprintf(&content, "BT /F1 %g Tf %g %g Td [%s] TJ ET\n", size, t.X, t.Y, tjArray(t.Parts, t.Kern))
				continue
			}
			fmt.Fprintf(&content, "BT /F1 %g Tf %g %g Td (%s) Tj ET\n", size, t.X, t.Y, escape(t.S))
		}
		w.stream(o.content, "", content.Bytes())

		if p.Image != nil {
			dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode",
				p.Image.Width, p.Image.Height)
			w.stream(o.image, dict, p.Image.JPEG)
		}
	}

	return w.finish(next)
}

type writer struct {
	buf     bytes.Buffer
	offsets map[int]int
}

func (w *writer) object(num int, body string) {
	w.mark(num)
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

func (w *writer) stream(num int, dict string, data []byte) {
	w.mark(num)
	fmt.Fprintf(&w.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", num, dict, len(data))
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
}

func (w *writer) mark(num int) {
	if w.offsets == nil {
		w.offsets = map[int]int{}
	}
	w.offsets[num] = w.buf.Len()
}

func (w *writer) finish(size int) []byte {
	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", size)
	w.buf.WriteString("0000000000 65535 f \n")
	for n := 1; n < size; n++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", w.offsets[n])
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xref)
	return w.buf.Bytes()
}

func infoDict(info map[string]string) string {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<<")
	for _, k := range keys {
		fmt.Fprintf(&b, " /%s (%s)", k, escape(info[k]))
	}
	b.WriteString(" >>")
	return b.String()
}

func tjArray(parts []string, kern float64) string {
	items := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 && kern != 0 {
			items = append(items, fmt.Sprintf("%g", -kern))
		}
		items = append(items, "("+escape(p)+")")
	}
	return strings.Join(items, " ")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Standard Helvetica advance widths for codes 32..126
var helvetica = []int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

func helveticaWidths() string {
	parts := make([]string, len(helvetica))
	for i, w := range helvetica {
		parts[i] = fmt.Sprint(w)
	}
	return strings.Join(parts, " ")
}

// TextWidth returns the width in points of s set in Helvetica at size
func TextWidth(s string, size float64) float64 {
	total := 0
	for _, r := range s {
		if r >= 32 && r <= 126 {
			total += helvetica[r-32]
		}
	}
	return float64(total) * size / 1000
}
