// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"

	"pdf-toolbox/internal/processing"
	"pdf-toolbox/internal/resilience"
	"pdf-toolbox/internal/testpdf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	mu     sync.Mutex
	calls  int
	closed bool
	err    error
}

func (f *fakeRecognizer) Recognize(image []byte) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "  scanned words  ", nil
}

func (f *fakeRecognizer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func scannedPDF() []byte {
	jpg := testpdf.SolidJPEG(10, 10, color.White)
	img := &testpdf.Image{JPEG: jpg, Width: 10, Height: 10, X: 0, Y: 0, W: 612, H: 792}
	return testpdf.New().
		AddPage(testpdf.Page{Image: img}).
		AddTextPage("plain text page").
		AddPage(testpdf.Page{Image: img}).
		Bytes()
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "English", DisplayName("eng"))
	assert.Equal(t, "Hindi", DisplayName("hin"))
	assert.Equal(t, "German", DisplayName("deu"))
	assert.Equal(t, "Japanese", DisplayName("jpn"))
	assert.Equal(t, "not-a-lang!", DisplayName("not-a-lang!"))

	langs := Languages([]string{"fra", "kor"})
	assert.Equal(t, []Language{{Code: "fra", Name: "French"}, {Code: "kor", Name: "Korean"}}, langs)
}

func TestScan_PerPageText(t *testing.T) {
	fake := &fakeRecognizer{}
	var gotLang string
	var gotPSM int
	s := &Scanner{engine: processing.NewEngine(nil), newReader: func(lang string, psm int) (Recognizer, error) {
		gotLang, gotPSM = lang, psm
		return fake, nil
	}}

	text, err := s.Scan(context.Background(), scannedPDF(), Options{Language: "fra", Allowed: []string{"eng", "fra"}, PageSegMode: 6})
	require.NoError(t, err)
	assert.Equal(t, "scanned words\n\nscanned words\n", text)
	assert.Equal(t, "fra", gotLang)
	assert.Equal(t, 6, gotPSM)
	assert.Equal(t, 2, fake.calls)
	assert.True(t, fake.closed)
}

func TestScan_RejectsUnknownLanguage(t *testing.T) {
	s := &Scanner{engine: processing.NewEngine(nil), newReader: func(string, int) (Recognizer, error) {
		t.Fatal("recognizer should not be created")
		return nil, nil
	}}

	_, err := s.Scan(context.Background(), scannedPDF(), Options{Language: "xx", Allowed: []string{"eng"}})
	assert.True(t, resilience.IsInvalidInput(err))
}

func TestScan_RecognizerError(t *testing.T) {
	fake := &fakeRecognizer{err: errors.New("tesseract exploded")}
	s := &Scanner{engine: processing.NewEngine(nil), newReader: func(string, int) (Recognizer, error) { return fake, nil }}

	_, err := s.Scan(context.Background(), scannedPDF(), Options{})
	require.Error(t, err)
	assert.Regexp(t, `OCR failed on page_\d_img_1\.jpg: tesseract exploded`, err.Error())
}

func TestScan_OneRecognizerPerWorker(t *testing.T) {
	var mu sync.Mutex
	var created []*fakeRecognizer
	s := &Scanner{engine: processing.NewEngine(nil), newReader: func(string, int) (Recognizer, error) {
		mu.Lock()
		defer mu.Unlock()
		f := &fakeRecognizer{}
		created = append(created, f)
		return f, nil
	}}

	text, err := s.Scan(context.Background(), scannedPDF(), Options{Workers: 8})
	require.NoError(t, err)
	assert.Equal(t, "scanned words\n\nscanned words\n", text)

	// two images, so two workers
	require.Len(t, created, 2)
	calls := 0
	for _, f := range created {
		calls += f.calls
		assert.True(t, f.closed)
	}
	assert.Equal(t, 2, calls)
}

func TestScan_NoImages(t *testing.T) {
	fake := &fakeRecognizer{}
	s := &Scanner{engine: processing.NewEngine(nil), newReader: func(string, int) (Recognizer, error) { return fake, nil }}

	text, err := s.Scan(context.Background(), testpdf.TextPDF("a", "b"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "\n\n", text)
	assert.Zero(t, fake.calls)
	assert.True(t, fake.closed)
}
