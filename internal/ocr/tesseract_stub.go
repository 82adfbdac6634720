// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !ocr

package ocr

import "errors"

// ErrOCRNotEnabled is returned when OCR support was not compiled in
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr (requires Tesseract)")

// NewTesseract always fails in builds without the ocr tag
func NewTesseract(lang string, psm int) (Recognizer, error) {
	return nil, ErrOCRNotEnabled
}
