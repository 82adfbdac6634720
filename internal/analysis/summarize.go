// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package analysis summarizes documents and answers questions about them
// with a remote language model.
package analysis

import (
	"context"
	"strings"

	"pdf-toolbox/internal/llm"
	"pdf-toolbox/internal/resilience"
)

const summaryPrompt = "You are a concise technical summarizer. Summarize the following document in 6-10 bullet points, preserving key facts, numbers, and definitions. Text:\n\n"

// Summarizer produces bullet-point summaries
type Summarizer struct {
	llm       llm.Completer
	maxTokens int
}

// NewSummarizer returns a summarizer limited to maxTokens of output
func NewSummarizer(completer llm.Completer, maxTokens int) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = 400
	}
	return &Summarizer{llm: completer, maxTokens: maxTokens}
}

// SummarizeText summarizes already extracted text
func (s *Summarizer) SummarizeText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", resilience.NewInvalidInputError("no text to summarize; the PDF may be scanned, try OCR first")
	}
	out, err := s.llm.Complete(ctx, summaryPrompt+text, s.maxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
