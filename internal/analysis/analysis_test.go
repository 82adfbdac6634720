// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"pdf-toolbox/internal/resilience"
	"pdf-toolbox/internal/structured"
	"pdf-toolbox/internal/testpdf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	prompts   []string
	maxTokens []int
	reply     string
	err       error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, maxTokens int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.maxTokens = append(f.maxTokens, maxTokens)
	return f.reply, f.err
}

// keywordEmbedder maps text onto counts of a few fruit words
type keywordEmbedder struct {
	calls  int
	inputs int
}

var fruit = []string{"apple", "pear", "plum"}

func (k *keywordEmbedder) Embed(_ context.Context, _ string, inputs []string) ([][]float32, error) {
	k.calls++
	k.inputs += len(inputs)
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		vec := make([]float32, len(fruit))
		lower := strings.ToLower(in)
		for j, f := range fruit {
			vec[j] = float32(strings.Count(lower, f))
		}
		out[i] = vec
	}
	return out, nil
}

func TestSummarizeText(t *testing.T) {
	fc := &fakeCompleter{reply: "\n- one\n- two\n"}
	s := NewSummarizer(fc, 400)

	out, err := s.SummarizeText(context.Background(), "The document body")
	require.NoError(t, err)
	assert.Equal(t, "- one\n- two", out)
	require.Len(t, fc.prompts, 1)
	assert.Equal(t, "You are a concise technical summarizer. Summarize the following document in 6-10 bullet points, preserving key facts, numbers, and definitions. Text:\n\nThe document body", fc.prompts[0])
	assert.Equal(t, []int{400}, fc.maxTokens)
}

func TestSummarizeText_Empty(t *testing.T) {
	_, err := NewSummarizer(&fakeCompleter{}, 0).SummarizeText(context.Background(), "  \n ")
	assert.True(t, resilience.IsInvalidInput(err))
}

func TestSplitter(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		text    string
		want    []string
	}{
		{"fits", 100, 10, "short text", []string{"short text"}},
		{"words with overlap", 9, 4, "aaaa bbbb cccc dddd", []string{"aaaa bbbb", "bbbb cccc", "cccc dddd"}},
		{"paragraphs first", 12, 0, "para one.\n\npara two.", []string{"para one.", "para two."}},
		{"characters last", 4, 0, "abcdefghij", []string{"abcd", "efgh", "ij"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSplitter(tt.size, tt.overlap).Split(tt.text))
		})
	}
}

func TestSplitter_RespectsSize(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 80) + "\n\n" +
		strings.Repeat("Pack my box with five dozen liquor jugs.\n", 40)

	chunks := NewSplitter(800, 100).Split(text)
	require.Greater(t, len(chunks), 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, runeLen(c), 800)
		assert.NotEmpty(t, c)
	}
}

func TestSplitPages_KeepsPageNumbers(t *testing.T) {
	chunks := SplitPages([]string{"first page\n", "", "third page\n"}, 800, 100)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 3, chunks[1].PageStart)
	assert.Equal(t, "third page", chunks[1].Text)
}

func TestEmbeddingCache(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenEmbeddingCache(filepath.Join(t.TempDir(), "sub", "embeddings.db"))
	require.NoError(t, err)
	defer cache.Close()

	vec, err := cache.Get(ctx, "m", "hello")
	require.NoError(t, err)
	assert.Nil(t, vec)

	require.NoError(t, cache.Put(ctx, "m", "hello", []float32{0.5, -1.25, 3}))
	vec, err = cache.Get(ctx, "m", "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1.25, 3}, vec)

	other, err := cache.Get(ctx, "other-model", "hello")
	require.NoError(t, err)
	assert.Nil(t, other)

	assert.NotEqual(t, CacheKey("ab", "c"), CacheKey("a", "bc"))
}

func TestCachedEmbedder_OnlyEmbedsMisses(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenEmbeddingCache(filepath.Join(t.TempDir(), "embeddings.db"))
	require.NoError(t, err)
	defer cache.Close()

	inner := &keywordEmbedder{}
	e := NewCachedEmbedder(inner, cache)

	first, err := e.Embed(ctx, "m", []string{"apple", "pear pear"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.inputs)

	second, err := e.Embed(ctx, "m", []string{"pear pear", "plum", "apple"})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.inputs)
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, []float32{0, 0, 1}, second[1])
	assert.Equal(t, first[0], second[2])

	n, err := cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCachedEmbedder_Batches(t *testing.T) {
	inner := &keywordEmbedder{}
	inputs := make([]string, 70)
	for i := range inputs {
		inputs[i] = strings.Repeat("apple ", i)
	}

	out, err := NewCachedEmbedder(inner, nil).Embed(context.Background(), "m", inputs)
	require.NoError(t, err)
	assert.Len(t, out, 70)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, float32(69), out[69][0])
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	chunks := []structured.Chunk{{Text: "apples"}, {Text: "pears"}, {Text: "plums"}}
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0.7, 0.7, 0}}

	require.NoError(t, s.Upsert(ctx, "doc", chunks, vecs))
	assert.Error(t, s.Upsert(ctx, "doc", chunks, vecs[:1]))

	got, err := s.Search(ctx, "doc", []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "apples", got[0].Text)
	assert.Equal(t, "plums", got[1].Text)
	assert.InDelta(t, 0.995, got[0].Score, 0.01)

	none, err := s.Search(ctx, "other", []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt([]ScoredChunk{{Chunk: structured.Chunk{Text: "A"}}, {Chunk: structured.Chunk{Text: "B"}}}, "why?")
	assert.Equal(t, "Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\nA\n\nB\n\nQuestion: why?\nHelpful Answer:", p)
}

func TestAsk(t *testing.T) {
	t.Setenv("PDF_TOOLBOX_TEMP_DIR", t.TempDir())
	data := testpdf.TextPDF("Every apple here is red", "The pear orchard is north")
	fc := &fakeCompleter{reply: " They are red. "}
	a := NewAnswerer(fc, &keywordEmbedder{}, NewMemoryStore(), RAGOptions{EmbeddingModel: "m"}, nil)

	ans, err := a.Ask(context.Background(), data, "What colour is the apple?")
	require.NoError(t, err)
	assert.Equal(t, "They are red.", ans.Answer)
	require.NotEmpty(t, ans.Sources)
	assert.LessOrEqual(t, len(ans.Sources), 3)
	assert.Contains(t, ans.Sources[0].Text, "apple")

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "Question: What colour is the apple?\nHelpful Answer:")
	assert.Equal(t, []int{512}, fc.maxTokens)
}

func TestAsk_Errors(t *testing.T) {
	a := NewAnswerer(&fakeCompleter{}, &keywordEmbedder{}, NewMemoryStore(), RAGOptions{}, nil)
	_, err := a.Ask(context.Background(), testpdf.TextPDF("x"), "   ")
	assert.True(t, resilience.IsInvalidInput(err))

	fail := NewAnswerer(&fakeCompleter{err: errors.New("boom")}, &keywordEmbedder{}, NewMemoryStore(), RAGOptions{}, nil)
	t.Setenv("PDF_TOOLBOX_TEMP_DIR", t.TempDir())
	_, err = fail.Ask(context.Background(), testpdf.TextPDF("apple"), "apple?")
	assert.EqualError(t, err, "boom")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 800))
}

func TestDocumentID(t *testing.T) {
	assert.Len(t, DocumentID([]byte("x")), 64)
	assert.NotEqual(t, DocumentID([]byte("x")), DocumentID([]byte("y")))
}
