// Package dkg drives the per-generation distributed key generation session
// elder candidates run to produce (or fail to produce) a new section public
// key (spec §4.4). The actual DKG message exchange is opaque to this
// package; it only tracks session phase and failure agreement.
package dkg

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
	"github.com/zeebo/blake3"

	"github.com/luxfi/overlay/address"
)

// Phase is the state a DKG session is in.
type Phase int

const (
	// Idle means no session exists yet for a given key.
	Idle Phase = iota
	// Running means candidates are currently exchanging DKG messages.
	Running
	// Succeeded means the session produced a public key, delivered exactly
	// once to the caller.
	Succeeded
	// Failed means the session was abandoned, either by failure-observation
	// agreement or by timing out.
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultTimeout bounds how long a session may run before it is declared
// Failed even without an explicit failure agreement.
const DefaultTimeout = 2 * time.Minute

// Key identifies one DKG session: hash(prefix, generation, candidate_set).
type Key [32]byte

// KeyFor derives the session key for a candidate set electing the elders of
// prefix at generation.
func KeyFor(prefix address.Prefix, generation uint64, candidates []ids.NodeID) Key {
	sorted := make([]ids.NodeID, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i][:]) < string(sorted[j][:])
	})

	h := blake3.New()
	h.Write([]byte(prefix.String()))
	_, _ = fmt.Fprintf(h, "%d", generation)
	for _, id := range sorted {
		h.Write(id[:])
	}

	var key Key
	copy(key[:], h.Sum(nil))
	return key
}

// FailureObservation is one elder's signed report that the session failed,
// naming which participants it believes are responsible.
type FailureObservation struct {
	Observer           ids.NodeID
	ShareSig           *bls.Signature
	FailedParticipants []ids.NodeID
}

type session struct {
	candidates   []ids.NodeID
	majority     int
	phase        Phase
	observations map[ids.NodeID]FailureObservation
	result       *bls.PublicKey
	delivered    bool
	deadline     time.Time
}

// Driver tracks concurrently running DKG sessions. Safe for concurrent use.
type Driver struct {
	mu       sync.Mutex
	sessions map[Key]*session
	now      func() time.Time
	timeout  time.Duration
}

// New returns a Driver whose sessions fail once timeout has elapsed since
// Start; later calls do not extend the deadline. A timeout of zero uses
// DefaultTimeout.
func New(timeout time.Duration) *Driver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Driver{
		sessions: make(map[Key]*session),
		now:      time.Now,
		timeout:  timeout,
	}
}

// Start begins a session owned by candidates, keyed by KeyFor(prefix,
// generation, candidates). Starting an already-running session is a no-op
// and returns the existing key.
func (d *Driver) Start(prefix address.Prefix, generation uint64, candidates []ids.NodeID) Key {
	key := KeyFor(prefix, generation, candidates)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[key]; ok {
		return key
	}

	majority := len(candidates)/2 + 1
	d.sessions[key] = &session{
		candidates:   candidates,
		majority:     majority,
		phase:        Running,
		observations: make(map[ids.NodeID]FailureObservation),
		deadline:     d.now().Add(d.timeout),
	}
	return key
}

// Phase reports the current phase of the session at key, Idle if none
// exists.
func (d *Driver) Phase(key Key) Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expireLocked(key)
	s, ok := d.sessions[key]
	if !ok {
		return Idle
	}
	return s.phase
}

// ObserveFailure records a failure observation for the session at key. Once
// observations from a majority (len(candidates)/2 + 1) of distinct
// observers are recorded, the session escalates to Failed and
// ObserveFailure returns true. ShareSig is not verified and Observer is not
// checked against the candidate set: every distinct Observer counts.
func (d *Driver) ObserveFailure(key Key, obs FailureObservation) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expireLocked(key)
	s, ok := d.sessions[key]
	if !ok || s.phase != Running {
		return false
	}

	s.observations[obs.Observer] = obs
	if len(s.observations) < s.majority {
		return false
	}

	s.phase = Failed
	return true
}

// Succeed delivers the session's resulting public key exactly once. A
// second call for the same key (or a call after the session already failed)
// is dropped and returns false, matching the "duplicate deliveries are
// dropped" rule.
func (d *Driver) Succeed(key Key, publicKey *bls.PublicKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expireLocked(key)
	s, ok := d.sessions[key]
	if !ok || s.phase != Running || s.delivered {
		return false
	}

	s.phase = Succeeded
	s.result = publicKey
	s.delivered = true
	return true
}

// Result returns the delivered public key for a Succeeded session.
func (d *Driver) Result(key Key) (*bls.PublicKey, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[key]
	if !ok || s.phase != Succeeded {
		return nil, false
	}
	return s.result, true
}

// expireLocked moves a still-Running session past its deadline to Failed,
// matching "timeout without observation count ≥ majority is itself a Failed
// outcome". Called with d.mu held.
func (d *Driver) expireLocked(key Key) {
	s, ok := d.sessions[key]
	if !ok || s.phase != Running {
		return
	}
	if d.now().After(s.deadline) {
		s.phase = Failed
	}
}
