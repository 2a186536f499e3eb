// Package prefixmap implements an ordered lookup structure from binary
// Prefix to the item that owns it (spec §4.1). It backs the node's view of
// the rest of the network (package netmap).
package prefixmap

import (
	"sort"
	"sync"

	"github.com/luxfi/overlay/address"
)

// Item is anything that can be stored in a Map, keyed by its Prefix.
type Item interface {
	Prefix() address.Prefix
}

// Map holds a set of Items whose prefixes are pairwise non-overlapping.
// Safe for concurrent use.
type Map[T Item] struct {
	mu    sync.RWMutex
	items map[string]T
}

// New returns an empty Map.
func New[T Item]() *Map[T] {
	return &Map[T]{items: make(map[string]T)}
}

// Insert replaces the entry whose prefix equals item's, and removes any
// entries strictly contained by it (the coarser entry absorbs its former
// children, as happens when two sibling sections merge). It rejects an
// item whose prefix is strictly contained by an existing, still-present
// entry: splitting that coarser entry into children is the caller's
// responsibility (Remove it, then Insert both children) (spec §4.1).
func (m *Map[T]) Insert(item T) bool {
	p := item.Prefix()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.items {
		ep := existing.Prefix()
		if ep.Equal(p) || ep.IsExtensionOf(p) {
			continue // replaced or absorbed below
		}
		if p.IsExtensionOf(ep) {
			return false // ep is a coarser entry still present
		}
	}

	for key, existing := range m.items {
		if existing.Prefix().IsExtensionOf(p) {
			delete(m.items, key)
		}
	}
	m.items[p.String()] = item
	return true
}

// GetMatching returns the unique item whose prefix is the longest
// predecessor of addr.
func (m *Map[T]) GetMatching(addr address.XorName) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best T
	var bestLen = -1
	found := false
	for _, item := range m.items {
		p := item.Prefix()
		if p.Matches(addr) && int(p.Len()) > bestLen {
			best = item
			bestLen = int(p.Len())
			found = true
		}
	}
	return best, found
}

// Remove deletes the entry with exactly this prefix, if any.
func (m *Map[T]) Remove(p address.Prefix) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, p.String())
}

// Len returns the number of entries.
func (m *Map[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// All returns every item in binary-tree traversal order (lexicographic
// over the prefix's bit string, not insertion order).
func (m *Map[T]) All() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.items[k])
	}
	return out
}

// IsDisjoint reports whether every pair of entries has non-overlapping
// prefixes — the invariant Insert is required to maintain (spec §8
// property 1). Exposed for property tests.
func (m *Map[T]) IsDisjoint() bool {
	all := m.All()
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			pi, pj := all[i].Prefix(), all[j].Prefix()
			if pi.Equal(pj) {
				return false
			}
			if pi.IsCompatible(pj) {
				return false
			}
		}
	}
	return true
}
