// Package content stores the documents that name entries point at.
//
// The registry only ever sees the opaque reference a Store returns from Put.
package content

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/sha3"
)

// ErrNotFound is returned by Get for references the store does not hold.
var ErrNotFound = errors.New("content not found")

// Store is a content-addressed document store.
type Store interface {
	// Put stores data and returns its content reference.
	Put(ctx context.Context, data []byte) (string, error)
	// Get returns the data stored under ref.
	Get(ctx context.Context, ref string) ([]byte, error)
}

// MemoryStore is an in-memory Store addressed by the hex SHA3-256 digest.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

// Ref returns the reference MemoryStore assigns to data.
func Ref(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores a copy of data under its content reference and returns the ref.
func (s *MemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := Ref(data)
	doc := make([]byte, len(data))
	copy(doc, data)

	s.mu.Lock()
	s.docs[ref] = doc
	s.mu.Unlock()
	return ref, nil
}

// Get returns a copy of the document stored under ref, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	doc, ok := s.docs[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
