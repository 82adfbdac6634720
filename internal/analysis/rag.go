// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"pdf-toolbox/internal/llm"
	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/pdftext"
	"pdf-toolbox/internal/resilience"
	"pdf-toolbox/internal/structured"
)

const stuffPrompt = "Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n%s\n\nQuestion: %s\nHelpful Answer:"

// RAGOptions tunes chunking, retrieval and generation
type RAGOptions struct {
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	MaxTokens      int
	EmbeddingModel string
}

// Answer is a generated answer and the chunks it was grounded on
type Answer struct {
	Answer  string        `json:"answer"`
	Sources []ScoredChunk `json:"sources"`
}

// Answerer answers questions about a document by retrieval-augmented generation
type Answerer struct {
	llm      llm.Completer
	embedder llm.Embedder
	store    VectorStore
	opts     RAGOptions
	observer *observability.StandardObserver
}

// NewAnswerer wires the pieces of the question answering pipeline
func NewAnswerer(completer llm.Completer, embedder llm.Embedder, store VectorStore, opts RAGOptions, observer *observability.StandardObserver) *Answerer {
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, nil)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 800
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	return &Answerer{llm: completer, embedder: embedder, store: store, opts: opts, observer: observer}
}

// DocumentID identifies a document by the sha256 of its bytes
func DocumentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChunkDocument splits a PDF into retrieval chunks. Layout-aware chunks are
// preferred; plain text split page by page is used when layout analysis
// fails or finds nothing.
func ChunkDocument(data []byte, size, overlap int) ([]structured.Chunk, error) {
	if chunks, err := structured.Chunks(data, size, overlap); err == nil && len(chunks) > 0 {
		return chunks, nil
	}

	doc, err := pdftext.Open(data)
	if err != nil {
		return nil, resilience.NewInvalidInputError("could not read PDF: %v", err)
	}
	return SplitPages(doc.Pages(), size, overlap), nil
}

// SplitPages chunks page texts with the recursive splitter, keeping page numbers
func SplitPages(pages []string, size, overlap int) []structured.Chunk {
	splitter := NewSplitter(size, overlap)
	var out []structured.Chunk
	for i, text := range pages {
		for _, piece := range splitter.Split(text) {
			out = append(out, structured.Chunk{Text: piece, PageStart: i + 1, PageEnd: i + 1})
		}
	}
	return out
}

// Index chunks and embeds a document into the store under its DocumentID
func (a *Answerer) Index(ctx context.Context, data []byte) (string, int, error) {
	docID := DocumentID(data)
	chunks, err := ChunkDocument(data, a.opts.ChunkSize, a.opts.ChunkOverlap)
	if err != nil {
		return "", 0, err
	}
	if len(chunks) == 0 {
		return "", 0, resilience.NewInvalidInputError("no extractable text in PDF; the PDF may be scanned, try OCR first")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := a.embedder.Embed(ctx, a.opts.EmbeddingModel, texts)
	if err != nil {
		return "", 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if err := a.store.Upsert(ctx, docID, chunks, vecs); err != nil {
		return "", 0, err
	}
	return docID, len(chunks), nil
}

// Ask answers question from the content of the PDF in data
func (a *Answerer) Ask(ctx context.Context, data []byte, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, resilience.NewInvalidInputError("please enter a question")
	}
	finish := a.observer.StartTiming("analysis", "ask", "")

	docID, n, err := a.Index(ctx, data)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	qvec, err := a.embedder.Embed(ctx, a.opts.EmbeddingModel, []string{question})
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	sources, err := a.store.Search(ctx, docID, qvec[0], a.opts.TopK)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	answer, err := a.llm.Complete(ctx, BuildPrompt(sources, question), a.opts.MaxTokens)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	finish(true, map[string]interface{}{"chunks": n, "sources": len(sources)})
	return &Answer{Answer: strings.TrimSpace(answer), Sources: sources}, nil
}

// BuildPrompt stuffs the retrieved chunks into the answering prompt
func BuildPrompt(sources []ScoredChunk, question string) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = s.Text
	}
	return fmt.Sprintf(stuffPrompt, strings.Join(parts, "\n\n"), question)
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
