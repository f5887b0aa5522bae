// Package keyedstore implements an insertion-ordered map with stable
// pagination. Overwriting an existing key keeps its original position, so page
// boundaries never shift as records are updated.
package keyedstore

import (
	"math"
	"sync"
)

// Entry is one key/value pair in insertion order.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Store is safe for concurrent use. Inserts are O(1) amortized; pagination is
// a slice of the ordered entries.
type Store[K comparable, V any] struct {
	mu      sync.RWMutex
	index   map[K]int
	entries []Entry[K, V]
}

// New returns an empty store.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{index: make(map[K]int)}
}

// Insert writes the value unconditionally. An existing key is overwritten in
// place; no history is retained.
func (s *Store[K, V]) Insert(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[key]; ok {
		s.entries[i].Value = value
		return
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, Entry[K, V]{Key: key, Value: value})
}

// Get returns the value for key, reporting presence via the second return.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[key]; ok {
		return s.entries[i].Value, true
	}
	var zero V
	return zero, false
}

// Contains reports whether key is present.
func (s *Store[K, V]) Contains(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[key]
	return ok
}

// Len returns the number of stored entries.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Page returns the page-th slice of size entries in insertion order.
// Out-of-range pages and non-positive sizes yield an empty slice, not an
// error.
func (s *Store[K, V]) Page(page, size int) []Entry[K, V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if page < 0 || size <= 0 {
		return []Entry[K, V]{}
	}
	// page*size past any possible length is out of range; the bound check also
	// keeps the multiplication from overflowing.
	if page > (math.MaxInt-1)/size {
		return []Entry[K, V]{}
	}
	start := page * size
	if start >= len(s.entries) {
		return []Entry[K, V]{}
	}
	end := start + size
	if end > len(s.entries) {
		end = len(s.entries)
	}
	out := make([]Entry[K, V], end-start)
	copy(out, s.entries[start:end])
	return out
}
