// Package keychain implements the secured chain of BLS public keys a node
// uses to prove authority back to a genesis key (spec §4.2). The
// signature-share aggregator lives in package aggregate.
package keychain

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/luxfi/crypto/bls"
)

// ErrBadProof is returned by Extend when proof does not verify against the
// current tail key.
var ErrBadProof = errors.New("keychain: proof does not verify against tail key")

// link is one entry in the chain: a public key and the signature over it
// produced by the previous key in the chain (nil for the genesis link).
type link struct {
	key   *bls.PublicKey
	proof *bls.Signature
}

// Chain is an append-only sequence of BLS public keys, each vouched for by
// the previous one's signature. It lets a node holding only the genesis (or
// any intermediate) key verify messages signed by a much later key.
type Chain struct {
	mu    sync.RWMutex
	links []link

	// index holds every link's compressed key bytes in sorted order, so
	// IsKnown can binary-search it instead of scanning links (spec §4.2:
	// is_known must be O(log n)). Extend keeps it sorted on insert.
	index [][]byte
}

// NewChain starts a chain rooted at genesis, the first section key the node
// ever learned.
func NewChain(genesis *bls.PublicKey) *Chain {
	genesisBytes := bls.PublicKeyToCompressedBytes(genesis)
	return &Chain{
		links: []link{{key: genesis}},
		index: [][]byte{genesisBytes},
	}
}

// Tail returns the most recent (highest-generation) key in the chain.
func (c *Chain) Tail() *bls.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.links[len(c.links)-1].key
}

// Len reports the number of keys in the chain, including genesis.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.links)
}

// Extend appends newKey to the chain. proof must be a valid signature by
// the current tail over newKey's serialized bytes; otherwise Extend fails
// and the chain is left unchanged (spec §4.2).
func (c *Chain) Extend(newKey *bls.PublicKey, proof *bls.Signature) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tail := c.links[len(c.links)-1].key
	if !bls.Verify(tail, proof, bls.PublicKeyToCompressedBytes(newKey)) {
		return ErrBadProof
	}
	c.links = append(c.links, link{key: newKey, proof: proof})
	c.indexInsert(bls.PublicKeyToCompressedBytes(newKey))
	return nil
}

// indexInsert inserts keyBytes into the sorted index, preserving order.
func (c *Chain) indexInsert(keyBytes []byte) {
	i := sort.Search(len(c.index), func(i int) bool {
		return bytes.Compare(c.index[i], keyBytes) >= 0
	})
	c.index = append(c.index, nil)
	copy(c.index[i+1:], c.index[i:])
	c.index[i] = keyBytes
}

// IsKnown reports whether key appears anywhere in the chain, via a binary
// search over the sorted index Extend maintains (spec §4.2: O(log n)).
func (c *Chain) IsKnown(key *bls.PublicKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	target := bls.PublicKeyToCompressedBytes(key)
	i := sort.Search(len(c.index), func(i int) bool {
		return bytes.Compare(c.index[i], target) >= 0
	})
	return i < len(c.index) && bytesEqual(c.index[i], target)
}

// MinimizeTo returns the shortest sub-chain that still lets a peer who only
// knows key verify the current tail: every link from key (inclusive) to the
// tail. Returns false if key is not present in the chain.
func (c *Chain) MinimizeTo(key *bls.PublicKey) (*Chain, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	target := bls.PublicKeyToCompressedBytes(key)
	idx := -1
	for i, l := range c.links {
		if bytesEqual(bls.PublicKeyToCompressedBytes(l.key), target) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	sub := make([]link, len(c.links)-idx)
	copy(sub, c.links[idx:])
	sub[0].proof = nil // the minimized chain's genesis needs no proof

	subIndex := make([][]byte, len(sub))
	for i, l := range sub {
		subIndex[i] = bls.PublicKeyToCompressedBytes(l.key)
	}
	sort.Slice(subIndex, func(i, j int) bool { return bytes.Compare(subIndex[i], subIndex[j]) < 0 })
	return &Chain{links: sub, index: subIndex}, true
}

// VerifyTailSignature reports whether sig is a valid signature by the
// chain's tail key over msg — the check routing applies to Section
// envelopes (spec §4.5).
func (c *Chain) VerifyTailSignature(sig *bls.Signature, msg []byte) bool {
	return bls.Verify(c.Tail(), sig, msg)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
