// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"pdf-toolbox/internal/structured"
)

// PostgresStore keeps chunk embeddings in a pgvector column
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn and creates the chunk table if needed
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS pdf_chunks (
			doc_id      TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			section     TEXT NOT NULL DEFAULT '',
			page_start  INTEGER NOT NULL DEFAULT 0,
			page_end    INTEGER NOT NULL DEFAULT 0,
			body        TEXT NOT NULL,
			embedding   vector NOT NULL,
			PRIMARY KEY (doc_id, chunk_index)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to prepare schema: %w", err)
		}
	}
	return &PostgresStore{db: db}, nil
}

// Upsert replaces the chunks stored for docID
func (p *PostgresStore) Upsert(ctx context.Context, docID string, chunks []structured.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pdf_chunks WHERE doc_id = $1`, docID); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	for i, c := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO pdf_chunks (doc_id, chunk_index, section, page_start, page_end, body, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			docID, i, c.Section, c.PageStart, c.PageEnd, c.Text, pgvector.NewVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Search orders docID's chunks by cosine distance to query
func (p *PostgresStore) Search(ctx context.Context, docID string, query []float32, k int) ([]ScoredChunk, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT section, page_start, page_end, body, 1 - (embedding <=> $2) AS score
		 FROM pdf_chunks
		 WHERE doc_id = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		docID, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}
	defer rows.Close()

	var out []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		if err := rows.Scan(&sc.Section, &sc.PageStart, &sc.PageEnd, &sc.Text, &sc.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Close closes the connection pool
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
