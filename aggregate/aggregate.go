// Package aggregate implements the signature-share aggregator that turns a
// threshold of per-elder BLS shares into one combined section signature
// (spec §4.2). Entries are indexed by (payload hash, key generation) so that
// shares produced under different elder key sets never mix, and are evicted
// after a bounded wall-clock window to bound memory.
package aggregate

import (
	"sync"
	"time"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
)

// DefaultTTL bounds how long an incomplete session is retained before it is
// evicted as stale.
const DefaultTTL = 10 * time.Minute

// sessionKey identifies one aggregation session: a payload hash signed under
// a particular elder key generation.
type sessionKey struct {
	payloadHash [32]byte
	keyIndex    uint64
}

type session struct {
	threshold int
	shares    map[ids.NodeID]*bls.Signature
	deadline  time.Time
}

// Aggregator accumulates signature shares per (payloadHash, keyIndex) session
// and reports a combined signature once threshold-many distinct signers have
// contributed. Safe for concurrent use.
type Aggregator struct {
	mu       sync.Mutex
	sessions map[sessionKey]*session
	now      func() time.Time
	ttl      time.Duration
}

// New returns an Aggregator whose sessions expire after ttl of inactivity.
// A ttl of zero uses DefaultTTL.
func New(ttl time.Duration) *Aggregator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Aggregator{
		sessions: make(map[sessionKey]*session),
		now:      time.Now,
		ttl:      ttl,
	}
}

// AddShare records a share from signerID over payloadHash under key
// generation keyIndex, with a fixed per-session threshold. It returns the
// combined signature once threshold distinct signers have contributed; a
// duplicate submission from a signer already recorded leaves the session
// unchanged and returns (nil, false) without error, matching the spec's
// "keep the prior share" rule.
func (a *Aggregator) AddShare(payloadHash [32]byte, keyIndex uint64, threshold int, signerID ids.NodeID, share *bls.Signature) (*bls.Signature, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.evictLocked()

	key := sessionKey{payloadHash: payloadHash, keyIndex: keyIndex}
	s, ok := a.sessions[key]
	if !ok {
		s = &session{
			threshold: threshold,
			shares:    make(map[ids.NodeID]*bls.Signature),
		}
		a.sessions[key] = s
	}
	s.deadline = a.now().Add(a.ttl)

	if _, dup := s.shares[signerID]; dup {
		return nil, false, nil
	}
	s.shares[signerID] = share

	if len(s.shares) < s.threshold {
		return nil, false, nil
	}

	sigs := make([]*bls.Signature, 0, len(s.shares))
	for _, sh := range s.shares {
		sigs = append(sigs, sh)
	}
	combined, err := bls.AggregateSignatures(sigs)
	if err != nil {
		return nil, false, err
	}
	delete(a.sessions, key)
	return combined, true, nil
}

// Pending reports how many distinct shares a session currently holds.
func (a *Aggregator) Pending(payloadHash [32]byte, keyIndex uint64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evictLocked()
	s, ok := a.sessions[sessionKey{payloadHash: payloadHash, keyIndex: keyIndex}]
	if !ok {
		return 0
	}
	return len(s.shares)
}

// evictLocked drops sessions past their deadline. Called with a.mu held.
func (a *Aggregator) evictLocked() {
	now := a.now()
	for k, s := range a.sessions {
		if now.After(s.deadline) {
			delete(a.sessions, k)
		}
	}
}
