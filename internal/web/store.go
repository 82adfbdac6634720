// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"pdf-toolbox/internal/artifact"
)

// ArtifactStore keeps produced files in memory until they expire
type ArtifactStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]storedArtifact
}

type storedArtifact struct {
	artifact.Artifact
	expires time.Time
}

// NewArtifactStore returns a store whose entries live for ttl
func NewArtifactStore(ttl time.Duration) *ArtifactStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ArtifactStore{ttl: ttl, now: time.Now, entries: make(map[string]storedArtifact)}
}

// Put stores a and returns its download id
func (s *ArtifactStore) Put(a artifact.Artifact) string {
	id := newID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.entries[id] = storedArtifact{Artifact: a, expires: s.now().Add(s.ttl)}
	return id
}

// Get returns a live artifact
func (s *ArtifactStore) Get(id string) (artifact.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	e, ok := s.entries[id]
	return e.Artifact, ok
}

// Len returns the number of live artifacts
func (s *ArtifactStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.entries)
}

func (s *ArtifactStore) sweepLocked() {
	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, id)
		}
	}
}

func newID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
