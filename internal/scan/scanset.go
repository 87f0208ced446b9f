package scan

import (
	"sort"
	"sync"

	"tarmac/internal/manifest"
)

// ScannedSet is the set of match keys accounted for during one flight
// session. It only grows; it is cleared solely when a new manifest snapshot
// replaces the session.
type ScannedSet struct {
	mu   sync.Mutex
	keys map[manifest.Key]struct{}
}

// NewScannedSet returns an empty set.
func NewScannedSet() *ScannedSet {
	return &ScannedSet{keys: make(map[manifest.Key]struct{})}
}

// Insert adds the key and reports whether it was newly added. Inserting a
// present key is a no-op, so a passenger scanned twice counts once.
func (s *ScannedSet) Insert(key manifest.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Has reports whether the key has been accounted for.
func (s *ScannedSet) Has(key manifest.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// Len returns the number of distinct keys.
func (s *ScannedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Keys returns the accounted keys in sorted order.
func (s *ScannedSet) Keys() []manifest.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]manifest.Key, 0, len(s.keys))
	for key := range s.keys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clear empties the set. Called only on session replacement.
func (s *ScannedSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[manifest.Key]struct{})
}
