// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package processing

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-toolbox/internal/artifact"
	"pdf-toolbox/internal/pdftext"
	"pdf-toolbox/internal/resilience"
)

// DefaultWatermark is used when no watermark text is given
const DefaultWatermark = "CONFIDENTIAL"

const (
	watermarkPoints = 30
	watermarkColor  = "#969696" // 0.59 gray
	highlightColor  = "#FFFF00"
)

// watermarkDescription places unrotated text with its baseline origin at a
// quarter of the page width and half its height.
func watermarkDescription(dim types.Dim) string {
	return fmt.Sprintf("fontname:Helvetica, points:%d, position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:0, fillcolor:%s, opacity:1",
		watermarkPoints, dim.Width*0.25, dim.Height*0.5, watermarkColor)
}

// AddWatermark draws text on every page
func (e *Engine) AddWatermark(data []byte, text string) (artifact.Artifact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = DefaultWatermark
	}
	text = strings.ReplaceAll(text, "\n", " ")

	if err := e.Validate(data); err != nil {
		return artifact.Artifact{}, err
	}
	dims, err := api.PageDims(bytes.NewReader(data), e.conf())
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to read page sizes: %w", err)
	}

	stamps := make(map[int][]*model.Watermark, len(dims))
	for i, dim := range dims {
		wm, err := api.TextWatermark(text, watermarkDescription(dim), true, false, types.POINTS)
		if err != nil {
			return artifact.Artifact{}, fmt.Errorf("failed to build watermark: %w", err)
		}
		stamps[i+1] = []*model.Watermark{wm}
	}

	out, err := e.run("watermark", data, func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.AddWatermarksSliceMap(rs, w, stamps, conf)
	})
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.New("watermarked.pdf", artifact.MIMEPDF, out), nil
}

// HighlightResult reports where a keyword was found
type HighlightResult struct {
	Artifact       artifact.Artifact `json:"-"`
	Total          int               `json:"total"`
	MatchesPerPage map[int]int       `json:"matches_per_page"`
	Matches        []pdftext.Match   `json:"matches"`
}

// highlightDescription covers a match box with a translucent yellow stamp
func highlightDescription(box pdftext.Rect) string {
	points := int(math.Max(1, math.Round(box.H*0.8)))
	return fmt.Sprintf("fontname:Helvetica, points:%d, position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:0, fillcolor:%s, backgroundcolor:%s, opacity:0.35",
		points, box.X, box.Y, highlightColor, highlightColor)
}

// HighlightKeyword marks every case-insensitive occurrence of keyword. A
// document without matches is returned re-written with a zero count.
func (e *Engine) HighlightKeyword(data []byte, keyword string) (*HighlightResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, resilience.NewInvalidInputError("keyword must not be empty")
	}
	if err := e.Validate(data); err != nil {
		return nil, err
	}

	doc, err := pdftext.Open(data)
	if err != nil {
		return nil, resilience.NewInvalidInputError("could not read text: %v", err)
	}
	matches, err := doc.Find(keyword)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	result := &HighlightResult{MatchesPerPage: map[int]int{}, Total: len(matches), Matches: matches}
	stamps := make(map[int][]*model.Watermark)
	for _, m := range matches {
		if m.Box.W <= 0 || m.Box.H <= 0 {
			return nil, fmt.Errorf("could not locate match on page %d: empty text box", m.Page)
		}
		// The stamp repeats the keyword so the yellow box sizes to it
		wm, err := api.TextWatermark(keyword, highlightDescription(m.Box), true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("failed to build highlight: %w", err)
		}
		stamps[m.Page] = append(stamps[m.Page], wm)
		result.MatchesPerPage[m.Page]++
	}

	var out []byte
	if len(stamps) == 0 {
		count, err := e.PageCount(data)
		if err != nil {
			return nil, err
		}
		out, err = e.run("highlight", data, func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
			return api.Trim(rs, w, []string{fmt.Sprintf("1-%d", count)}, conf)
		})
		if err != nil {
			return nil, err
		}
	} else {
		out, err = e.run("highlight", data, func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
			return api.AddWatermarksSliceMap(rs, w, stamps, conf)
		})
		if err != nil {
			return nil, err
		}
	}

	result.Artifact = artifact.New("highlighted.pdf", artifact.MIMEPDF, out)
	return result, nil
}
