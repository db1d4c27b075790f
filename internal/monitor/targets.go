package monitor

import (
	"sort"
	"strings"
	"sync"
)

// CanonicalName is the form process names are compared in.
func CanonicalName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// TargetSet is the mutable, case-insensitive set of target process names.
type TargetSet struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

func NewTargetSet(names ...string) *TargetSet {
	s := &TargetSet{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		s.Add(name)
	}
	return s
}

// Add inserts name and reports whether it was new. Blank names are ignored.
func (s *TargetSet) Add(name string) bool {
	canonical := CanonicalName(name)
	if canonical == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[canonical]; ok {
		return false
	}
	s.names[canonical] = struct{}{}
	return true
}

// Remove deletes name and reports whether it was present.
func (s *TargetSet) Remove(name string) bool {
	canonical := CanonicalName(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[canonical]; !ok {
		return false
	}
	delete(s.names, canonical)
	return true
}

func (s *TargetSet) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[CanonicalName(name)]
	return ok
}

func (s *TargetSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Names returns the canonical names in sorted order.
func (s *TargetSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedNames(s.names)
}

// Snapshot returns a copy that later mutations of s do not affect.
func (s *TargetSet) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[string]struct{}, len(s.names))
	for name := range s.names {
		names[name] = struct{}{}
	}
	return Snapshot{names: names}
}

// Snapshot is an immutable copy of a TargetSet.
type Snapshot struct {
	names map[string]struct{}
}

// NewSnapshot canonicalizes names into a Snapshot.
func NewSnapshot(names []string) Snapshot {
	return NewTargetSet(names...).Snapshot()
}

func (s Snapshot) Contains(canonical string) bool {
	_, ok := s.names[canonical]
	return ok
}

func (s Snapshot) Len() int {
	return len(s.names)
}

func (s Snapshot) Names() []string {
	return sortedNames(s.names)
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
