// Package netmap holds a node's view of the rest of the network: a
// prefix-disjoint map from section prefix to that section's authority,
// used to decide where a message should be relayed (spec §3 "Network
// view").
package netmap

import (
	"github.com/luxfi/crypto/bls"

	"github.com/luxfi/overlay/address"
	"github.com/luxfi/overlay/prefixmap"
)

// OtherSection is what a node knows about a section that isn't its own:
// the section's current authority key, and optionally a signature proving
// that key's provenance from a key the node already trusts.
type OtherSection struct {
	SectionPrefix address.Prefix
	AuthorityKey  *bls.PublicKey
	KeyProof      *bls.Signature
}

// Prefix implements prefixmap.Item.
func (o OtherSection) Prefix() address.Prefix { return o.SectionPrefix }

// Map is a node's view of the network beyond its own section: a
// prefix-disjoint collection of OtherSection entries.
type Map struct {
	sections *prefixmap.Map[OtherSection]
}

// New returns an empty network view.
func New() *Map {
	return &Map{sections: prefixmap.New[OtherSection]()}
}

// Insert records or replaces knowledge of a section, maintaining the
// disjointness invariant. Returns false if the entry would overlap an
// existing one without containing it.
func (m *Map) Insert(entry OtherSection) bool {
	return m.sections.Insert(entry)
}

// SectionFor returns the section believed to own addr, i.e. the longest
// matching prefix in the view.
func (m *Map) SectionFor(addr address.XorName) (OtherSection, bool) {
	return m.sections.GetMatching(addr)
}

// Remove drops knowledge of the section at prefix, if any.
func (m *Map) Remove(prefix address.Prefix) {
	m.sections.Remove(prefix)
}

// All returns every known section in binary-tree order.
func (m *Map) All() []OtherSection {
	return m.sections.All()
}

// IsDisjoint reports whether the view's prefixes are pairwise
// non-overlapping, the invariant Insert is required to maintain.
func (m *Map) IsDisjoint() bool {
	return m.sections.IsDisjoint()
}

// IsComplete reports whether the known prefixes, taken together, cover the
// entire address space with no gaps — i.e. every possible address matches
// exactly one known section. Completeness is checked by recursively
// verifying that for every internal node of the implied trie, both
// children are covered either by a stored prefix or by being covered
// themselves.
func (m *Map) IsComplete() bool {
	all := m.sections.All()
	if len(all) == 0 {
		return false
	}
	prefixes := make([]address.Prefix, 0, len(all))
	for _, s := range all {
		prefixes = append(prefixes, s.SectionPrefix)
	}
	return coversFully(address.EmptyPrefix, prefixes)
}

// coversFully reports whether prefixes fully cover the subtree rooted at
// root: either root itself is present, or some known prefix extends root
// (meaning it was split further) and both of the resulting children are
// themselves recursively covered. A root with no exact match and no
// extension in the list is a gap. Depth is bounded by the deepest prefix
// actually present, never by address.MaxBits.
func coversFully(root address.Prefix, prefixes []address.Prefix) bool {
	for _, p := range prefixes {
		if p.Equal(root) {
			return true
		}
	}
	extended := false
	for _, p := range prefixes {
		if p.IsExtensionOf(root) {
			extended = true
			break
		}
	}
	if !extended {
		return false
	}
	zero := root.PushBit(false)
	one := root.PushBit(true)
	return coversFully(zero, prefixes) && coversFully(one, prefixes)
}
