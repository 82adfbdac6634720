// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package security holds credentials in memory in a form that can be wiped.
package security

import (
	"strings"
	"sync"
)

// SecureString wraps an API key or other secret with best-effort memory
// scrubbing on Clear. It is safe for concurrent use.
//
// Go's garbage collector may copy memory, and String() returns an immutable
// copy, so Clear narrows the exposure window without guaranteeing that no
// copy survives elsewhere in the heap.
type SecureString struct {
	mu   sync.RWMutex
	data []byte
}

// NewSecureString copies s into a mutable byte slice
func NewSecureString(s string) *SecureString {
	data := make([]byte, len(s))
	copy(data, s)
	return &SecureString{data: data}
}

// String returns the secret. Each call creates a copy that Clear cannot zero.
func (ss *SecureString) String() string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return string(ss.data)
}

// IsEmpty reports whether there is no secret, either because none was set
// or because it has been cleared.
func (ss *SecureString) IsEmpty() bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.data) == 0
}

// Redacted returns a form of the secret that is safe to log
func (ss *SecureString) Redacted() string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	switch n := len(ss.data); {
	case n == 0:
		return "(not set)"
	case n <= 8:
		return strings.Repeat("*", n)
	default:
		return string(ss.data[:4]) + strings.Repeat("*", n-4)
	}
}

// Clear overwrites the secret with zeros and releases it
func (ss *SecureString) Clear() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for i := range ss.data {
		ss.data[i] = 0
	}
	ss.data = nil
}
