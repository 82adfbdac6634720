// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package structured runs tabula's layout analysis (headings, lists,
// paragraphs, tables) over an in-memory PDF.
package structured

import (
	"fmt"
	"os"
	"strings"

	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/rag"

	"pdf-toolbox/internal/paths"
)

// Chunk is a retrieval unit produced by the layout-aware chunker
type Chunk struct {
	Text      string `json:"text"`
	Section   string `json:"section,omitempty"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
}

// withExtractor spills data to a temporary file, since tabula reads from
// disk, and hands an extractor over it to fn.
func withExtractor(data []byte, fn func(*tabula.Extractor) error) (err error) {
	tmp, err := os.CreateTemp(paths.GetTempDir(), "pdf-toolbox-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("layout analysis failed: %v", r)
		}
	}()

	ext := tabula.Open(tmp.Name())
	defer ext.Close()
	return fn(ext)
}

// Markdown renders the document as markdown with detected headings, lists
// and tables.
func Markdown(data []byte) (string, error) {
	var md string
	err := withExtractor(data, func(ext *tabula.Extractor) error {
		out, _, err := ext.ToMarkdown()
		md = out
		return err
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}

// Chunks splits the document into retrieval chunks of roughly size
// characters, with overlap characters carried between neighbors.
func Chunks(data []byte, size, overlap int) ([]Chunk, error) {
	cfg := rag.DefaultChunkerConfig()
	cfg.TargetChunkSize = size
	cfg.MaxChunkSize = 2 * size
	cfg.MinChunkSize = size / 8
	cfg.OverlapSize = overlap

	sizes := rag.DefaultSizeConfig()
	sizes.Target.Value = size
	sizes.Max.Value = 2 * size
	sizes.Min.Value = size / 8

	var out []Chunk
	err := withExtractor(data, func(ext *tabula.Extractor) error {
		coll, _, err := ext.ChunksWithConfig(cfg, sizes)
		if err != nil {
			return err
		}
		for _, c := range coll.Chunks {
			text := strings.TrimSpace(c.Text)
			if text == "" {
				continue
			}
			out = append(out, Chunk{
				Text:      text,
				Section:   c.Metadata.SectionTitle,
				PageStart: c.Metadata.PageStart,
				PageEnd:   c.Metadata.PageEnd,
			})
		}
		return nil
	})
	return out, err
}
