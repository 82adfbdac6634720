// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ocr recognizes text in the images embedded in scanned PDFs using
// Tesseract. Recognition is compiled in only with the "ocr" build tag:
//
//	go build -tags ocr ./...
//
// which requires the Tesseract development libraries (tesseract-ocr and
// libtesseract-dev on Debian/Ubuntu, "brew install tesseract" on macOS).
package ocr

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/parallel"
	"pdf-toolbox/internal/processing"
	"pdf-toolbox/internal/resilience"
)

// Recognizer turns one image into text
type Recognizer interface {
	Recognize(image []byte) (string, error)
	Close() error
}

// Language is a Tesseract language code with a readable name
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DisplayName returns the English name of a Tesseract language code, or the
// code itself when it is not a known language.
func DisplayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// Languages pairs each code with its display name, keeping order
func Languages(codes []string) []Language {
	out := make([]Language, len(codes))
	for i, c := range codes {
		out[i] = Language{Code: c, Name: DisplayName(c)}
	}
	return out
}

// Options controls a recognition run
type Options struct {
	Language    string
	Allowed     []string // permitted language codes
	PageSegMode int
	// Workers is the number of images recognized at once, each worker with
	// its own Tesseract instance. Values below 1 mean one.
	Workers int
}

// Scanner OCRs documents page by page
type Scanner struct {
	engine    *processing.Engine
	observer  *observability.StandardObserver
	newReader func(lang string, psm int) (Recognizer, error)
}

// NewScanner returns a scanner backed by Tesseract
func NewScanner(engine *processing.Engine, observer *observability.StandardObserver) *Scanner {
	return &Scanner{engine: engine, observer: observer, newReader: NewTesseract}
}

// Available reports whether this binary was built with OCR support
func Available() bool {
	r, err := NewTesseract("eng", 6)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

// Scan recognizes the images on every page and returns the text, one block
// per page each followed by a newline.
func (s *Scanner) Scan(ctx context.Context, data []byte, opts Options) (string, error) {
	lang := strings.TrimSpace(opts.Language)
	if lang == "" {
		lang = "eng"
	}
	if len(opts.Allowed) > 0 && !contains(opts.Allowed, lang) {
		return "", resilience.NewInvalidInputError("unsupported OCR language %q (choose one of %s)", lang, strings.Join(opts.Allowed, ", "))
	}

	count, err := s.engine.PageCount(data)
	if err != nil {
		return "", err
	}
	imgs, err := s.engine.ExtractImages(data)
	if err != nil {
		return "", err
	}

	workers := opts.Workers
	if workers > len(imgs) {
		workers = len(imgs)
	}
	if workers < 1 {
		workers = 1
	}
	readers := make([]Recognizer, 0, workers)
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for i := 0; i < workers; i++ {
		r, err := s.newReader(lang, opts.PageSegMode)
		if err != nil {
			return "", err
		}
		readers = append(readers, r)
	}
	if len(imgs) == 0 {
		return strings.Repeat("\n", count), nil
	}

	texts, err := parallel.Process(ctx, "ocr", workers, imgs, func(ctx context.Context, worker int, img processing.RawImage) (string, error) {
		text, err := readers[worker].Recognize(img.Data)
		if err != nil {
			return "", fmt.Errorf("OCR failed on %s: %w", img.Name(), err)
		}
		return strings.TrimSpace(text), nil
	}, s.observer)
	if err != nil {
		return "", err
	}

	byPage := make(map[int][]string)
	for i, img := range imgs {
		if texts[i] != "" {
			byPage[img.Page] = append(byPage[img.Page], texts[i])
		}
	}

	var b strings.Builder
	for p := 1; p <= count; p++ {
		b.WriteString(strings.Join(byPage[p], "\n"))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
