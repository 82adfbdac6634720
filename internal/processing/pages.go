// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package processing

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdf-toolbox/internal/artifact"
	"pdf-toolbox/internal/resilience"
)

// checkRange validates a 1-indexed inclusive page range against count
func checkRange(start, end, count int) error {
	switch {
	case start < 1:
		return resilience.NewInvalidInputError("start page must be at least 1, got %d", start)
	case end > count:
		return resilience.NewInvalidInputError("end page %d exceeds page count %d", end, count)
	case start > end:
		return resilience.NewInvalidInputError("start page %d is after end page %d", start, end)
	}
	return nil
}

// selectPages keeps the given 1-indexed pages, in the given order
func (e *Engine) selectPages(op string, data []byte, pages []int) ([]byte, error) {
	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p)
	}
	return e.run(op, data, func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.Collect(rs, w, sel, conf)
	})
}

// SplitPages writes pages start..end (1-indexed, inclusive) as separate
// single-page PDFs bundled into split_pages.zip.
func (e *Engine) SplitPages(data []byte, start, end int) (artifact.Artifact, error) {
	count, err := e.PageCount(data)
	if err != nil {
		return artifact.Artifact{}, err
	}
	if err := checkRange(start, end, count); err != nil {
		return artifact.Artifact{}, err
	}

	files := make([]artifact.Artifact, 0, end-start+1)
	for n := start; n <= end; n++ {
		page, err := e.run("split", data, func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
			return api.Trim(rs, w, []string{strconv.Itoa(n)}, conf)
		})
		if err != nil {
			return artifact.Artifact{}, err
		}
		files = append(files, artifact.New(fmt.Sprintf("page_%d.pdf", n), artifact.MIMEPDF, page))
	}
	return artifact.Zip("split_pages.zip", files)
}

// MergePDFs concatenates documents in the order given
func (e *Engine) MergePDFs(docs ...[]byte) (artifact.Artifact, error) {
	if len(docs) == 0 {
		return artifact.Artifact{}, resilience.NewInvalidInputError("merge needs at least one PDF")
	}
	for i, d := range docs {
		if err := e.Validate(d); err != nil {
			return artifact.Artifact{}, fmt.Errorf("file %d: %w", i+1, err)
		}
	}

	finish := e.observer.StartTiming("processing", "merge", "")
	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d)
	}
	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, e.conf()); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return artifact.Artifact{}, fmt.Errorf("merge failed: %w", err)
	}
	finish(true, map[string]interface{}{"documents": len(docs)})

	return artifact.New("merged.pdf", artifact.MIMEPDF, out.Bytes()), nil
}

// ExtractPageRange keeps pages start..end (1-indexed, inclusive)
func (e *Engine) ExtractPageRange(data []byte, start, end int) (artifact.Artifact, error) {
	count, err := e.PageCount(data)
	if err != nil {
		return artifact.Artifact{}, err
	}
	if err := checkRange(start, end, count); err != nil {
		return artifact.Artifact{}, err
	}

	out, err := e.run("extract_range", data, func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.Trim(rs, w, []string{fmt.Sprintf("%d-%d", start, end)}, conf)
	})
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.New("extracted_range.pdf", artifact.MIMEPDF, out), nil
}

// RemoveFirstLastPages drops the first and/or last page
func (e *Engine) RemoveFirstLastPages(data []byte, first, last bool) (artifact.Artifact, error) {
	count, err := e.PageCount(data)
	if err != nil {
		return artifact.Artifact{}, err
	}

	from, to := 1, count
	if first {
		from++
	}
	if last {
		to--
	}
	if from > to {
		return artifact.Artifact{}, resilience.NewInvalidInputError("removing the requested pages would leave an empty document")
	}

	out, err := e.run("remove_pages", data, func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.Trim(rs, w, []string{fmt.Sprintf("%d-%d", from, to)}, conf)
	})
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.New("modified.pdf", artifact.MIMEPDF, out), nil
}

// ReorderPages builds a document from 0-indexed page positions. Pages may be
// omitted or repeated.
func (e *Engine) ReorderPages(data []byte, order []int) (artifact.Artifact, error) {
	if len(order) == 0 {
		return artifact.Artifact{}, resilience.NewInvalidInputError("page order is empty")
	}
	count, err := e.PageCount(data)
	if err != nil {
		return artifact.Artifact{}, err
	}

	pages := make([]int, len(order))
	for i, p := range order {
		if p < 0 || p >= count {
			return artifact.Artifact{}, resilience.NewInvalidInputError("page index %d out of range 0-%d", p, count-1)
		}
		pages[i] = p + 1
	}

	out, err := e.selectPages("reorder", data, pages)
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.New("reordered.pdf", artifact.MIMEPDF, out), nil
}

// RotatePages rotates the given 0-indexed pages clockwise by angle degrees.
func (e *Engine) RotatePages(data []byte, pages []int, angle int) (artifact.Artifact, error) {
	if angle < 0 || angle > 360 || angle%90 != 0 {
		return artifact.Artifact{}, resilience.NewInvalidInputError("angle must be a multiple of 90 between 0 and 360, got %d", angle)
	}
	if len(pages) == 0 {
		return artifact.Artifact{}, resilience.NewInvalidInputError("no pages selected for rotation")
	}
	count, err := e.PageCount(data)
	if err != nil {
		return artifact.Artifact{}, err
	}

	sel := make([]string, 0, len(pages))
	for _, p := range pages {
		if p < 0 || p >= count {
			return artifact.Artifact{}, resilience.NewInvalidInputError("page index %d out of range 0-%d", p, count-1)
		}
		sel = append(sel, strconv.Itoa(p+1))
	}

	rotation := angle % 360
	out, err := e.run("rotate", data, func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		if rotation == 0 {
			return api.Trim(rs, w, []string{fmt.Sprintf("1-%d", count)}, conf)
		}
		return api.Rotate(rs, w, rotation, sel, conf)
	})
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.New("rotated.pdf", artifact.MIMEPDF, out), nil
}
