// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"os"
	"testing"

	"pdf-toolbox/internal/structured"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database when PDF_TOOLBOX_TEST_POSTGRES_DSN points at
// one with the pgvector extension available.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PDF_TOOLBOX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PDF_TOOLBOX_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	chunks := []structured.Chunk{{Text: "apples", PageStart: 1, PageEnd: 1}, {Text: "pears", PageStart: 2, PageEnd: 2}}
	require.NoError(t, s.Upsert(ctx, "test-doc", chunks, [][]float32{{1, 0, 0}, {0, 1, 0}}))

	got, err := s.Search(ctx, "test-doc", []float32{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "apples", got[0].Text)
	assert.Equal(t, 1, got[0].PageStart)
}
