// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package toolbox

import (
	"context"
	"io"
	"sync"

	"pdf-toolbox/internal/analysis"
	"pdf-toolbox/internal/config"
	"pdf-toolbox/internal/export"
	"pdf-toolbox/internal/llm"
	"pdf-toolbox/internal/observability"
	"pdf-toolbox/internal/ocr"
	"pdf-toolbox/internal/processing"
	"pdf-toolbox/internal/tables"
)

// Services are the shared back ends the tools delegate to
type Services struct {
	Config   *config.Config
	Observer *observability.StandardObserver
	Engine   *processing.Engine
	Tables   *tables.Detector
	OCR      *ocr.Scanner
	Exporter *export.Exporter
	LLM      llm.Completer
	Embedder llm.Embedder

	mu       sync.Mutex
	cache    *analysis.EmbeddingCache
	cacheErr error
	pg       *analysis.PostgresStore
}

// NewServices builds the back ends from configuration
func NewServices(cfg *config.Config, observer *observability.StandardObserver) *Services {
	if cfg == nil {
		cfg = config.Default()
	}
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityOff, nil)
	}
	engine := processing.NewEngine(observer)
	client := llm.NewClient(cfg.LLM, observer)

	return &Services{
		Config:   cfg,
		Observer: observer,
		Engine:   engine,
		Tables:   tables.NewDetector(),
		OCR:      ocr.NewScanner(engine, observer),
		Exporter: export.NewExporter(cfg.Output.Dir, observer),
		LLM:      client,
		Embedder: client,
	}
}

// embedder returns the remote embedder behind the SQLite cache. A cache that
// fails to open is logged once and skipped.
func (s *Services) embedder() llm.Embedder {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil && s.cacheErr == nil && s.Config.Embeddings.CachePath != "" {
		s.cache, s.cacheErr = analysis.OpenEmbeddingCache(s.Config.Embeddings.CachePath)
		if s.cacheErr != nil {
			s.Observer.Logger().WithError(s.cacheErr).Warn("embedding cache unavailable, continuing without it")
		}
	}
	return analysis.NewCachedEmbedder(s.Embedder, s.cache)
}

// vectorStore returns the store for one question. The in-memory store is
// per request; Postgres is connected on first use and shared.
func (s *Services) vectorStore(ctx context.Context) (analysis.VectorStore, error) {
	if s.Config.RAG.Store != config.StorePostgres {
		return analysis.NewMemoryStore(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pg == nil {
		pg, err := analysis.NewPostgresStore(ctx, s.Config.RAG.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.pg = pg
	}
	return s.pg, nil
}

// Answerer assembles the question answering pipeline for one request
func (s *Services) Answerer(ctx context.Context) (*analysis.Answerer, error) {
	store, err := s.vectorStore(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.NewAnswerer(s.LLM, s.embedder(), store, analysis.RAGOptions{
		ChunkSize:      s.Config.RAG.ChunkSize,
		ChunkOverlap:   s.Config.RAG.ChunkOverlap,
		TopK:           s.Config.RAG.TopK,
		MaxTokens:      s.Config.LLM.MaxTokens,
		EmbeddingModel: s.Config.Embeddings.Model,
	}, s.Observer), nil
}

// Summarizer returns a summarizer with the configured output budget
func (s *Services) Summarizer() *analysis.Summarizer {
	return analysis.NewSummarizer(s.LLM, s.Config.LLM.SummaryMaxTokens)
}

// Close releases database handles
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.cache != nil {
		firstErr = s.cache.Close()
		s.cache = nil
	}
	if s.pg != nil {
		if err := s.pg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.pg = nil
	}
	if c, ok := s.LLM.(io.Closer); ok {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
