// Package section implements the authoritative list of members and elders
// for one address-space section: join/relocate/split/promote-demote and the
// elder-selection rule that backs authority aggregation (spec §4.3).
package section

import (
	"errors"
	"sort"
	"sync"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"

	"github.com/luxfi/overlay/address"
)

var (
	// ErrJoinsDisallowed is returned by Join when the section is not
	// currently accepting new members.
	ErrJoinsDisallowed = errors.New("section: joins are disallowed")
	// ErrOutsidePrefix is returned by Join when the candidate address does
	// not fall within this section's prefix.
	ErrOutsidePrefix = errors.New("section: address is outside our prefix")
	// ErrBadResourceProof is returned by Join when the submitted proof does
	// not validate.
	ErrBadResourceProof = errors.New("section: resource proof did not validate")
	// ErrUnknownMember is returned by Relocate when the address is not a
	// current member.
	ErrUnknownMember = errors.New("section: no member at that address")
	// ErrBadAuthorityProof is returned by PromoteDemote when the signature
	// over the new authority key does not verify against the outgoing key.
	ErrBadAuthorityProof = errors.New("section: authority swap proof does not verify")
	// ErrNotEnoughToSplit is returned by Split when membership does not yet
	// exceed the split threshold on both extending bits.
	ErrNotEnoughToSplit = errors.New("section: not enough balanced membership to split")
	// ErrBadRelocateProof is returned by FinishRelocation when the
	// promise's signature does not verify against the section's current
	// authority key.
	ErrBadRelocateProof = errors.New("section: relocate promise does not verify")
	// ErrRelocatePromiseReplayed is returned by FinishRelocation when the
	// same promise has already been consumed once (spec §8 property 10).
	ErrRelocatePromiseReplayed = errors.New("section: relocate promise already consumed")
)

// Section holds authoritative membership and elder state for one prefix of
// the address space. The zero value is not usable; construct with New.
type Section struct {
	mu sync.RWMutex

	prefix         address.Prefix
	elderCount     int
	splitThreshold int
	joinsAllowed   bool

	members      map[ids.NodeID]*Member
	authorityKey *bls.PublicKey
	fresh        FreshnessChecker

	// usedPromises records the signature bytes of every RelocatePromise
	// FinishRelocation has already consumed, rejecting replays (spec §8
	// property 10).
	usedPromises map[string]bool
}

// New constructs a Section rooted at prefix, electing up to elderCount
// elders and splitting once membership exceeds splitThreshold, starting from
// genesisKey as the current authority. fresh reports whether a member is
// reachable; it gates elder eligibility (spec §4.3 invariant).
func New(prefix address.Prefix, elderCount, splitThreshold int, genesisKey *bls.PublicKey, fresh FreshnessChecker) *Section {
	return &Section{
		prefix:         prefix,
		elderCount:     elderCount,
		splitThreshold: splitThreshold,
		joinsAllowed:   true,
		members:        make(map[ids.NodeID]*Member),
		authorityKey:   genesisKey,
		fresh:          fresh,
		usedPromises:   make(map[string]bool),
	}
}

// Prefix returns the section's address-space prefix.
func (s *Section) Prefix() address.Prefix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefix
}

// AuthorityKey returns the current section public key.
func (s *Section) AuthorityKey() *bls.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authorityKey
}

// SetJoinsAllowed toggles whether Join will accept new candidates.
func (s *Section) SetJoinsAllowed(allowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinsAllowed = allowed
}

// JoinsAllowed reports whether the section currently accepts new members.
func (s *Section) JoinsAllowed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joinsAllowed
}

// Join admits candidate into the section, provided joins are currently
// allowed, its address falls within our prefix, and its resource proof
// validates (spec §4.3).
func (s *Section) Join(candidate ids.NodeID, addr address.XorName, age uint8, proof []byte, validate ResourceProofValidator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.joinsAllowed {
		return ErrJoinsDisallowed
	}
	if !s.prefix.Matches(addr) {
		return ErrOutsidePrefix
	}
	if validate != nil && !validate(candidate, proof) {
		return ErrBadResourceProof
	}

	s.members[candidate] = &Member{
		NodeID:  candidate,
		Address: addr,
		Age:     age,
		State:   Joined,
	}
	return nil
}

// Relocate accepts relocation of the member at addr to newAge, returning a
// signed commitment. If the member is currently an elder, the relocation is
// deferred until it is next demoted; otherwise it is applied immediately
// (spec §4.3). Age is reset to newAge rather than carried forward, the one
// exception to age's monotonic-non-decreasing invariant.
func (s *Section) Relocate(addr address.XorName, newAge uint8, signer *bls.SecretKey) (*RelocatePromise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var member *Member
	for _, m := range s.members {
		if m.Address.Equal(addr) {
			member = m
			break
		}
	}
	if member == nil {
		return nil, ErrUnknownMember
	}

	promise := &RelocatePromise{
		NodeID:  member.NodeID,
		NewAddr: addr,
		NewAge:  newAge,
	}
	payload := relocatePayloadBytes(promise)
	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, err
	}
	promise.Signature = sig

	if member.IsElder {
		member.State = Relocating
		return promise, nil
	}

	member.Age = newAge
	member.State = Joined
	return promise, nil
}

// FinishRelocation completes a deferred relocation after the member has been
// demoted, resetting its age and clearing the Relocating state. promise must
// verify against the section's current authority key and must not have been
// presented before; a second presentation of the same signed promise is
// rejected rather than silently re-applied (spec §8 property 10).
func (s *Section) FinishRelocation(promise *RelocatePromise) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !bls.Verify(s.authorityKey, promise.Signature, relocatePayloadBytes(promise)) {
		return ErrBadRelocateProof
	}
	sigKey := string(bls.SignatureToBytes(promise.Signature))
	if s.usedPromises[sigKey] {
		return ErrRelocatePromiseReplayed
	}

	member, ok := s.members[promise.NodeID]
	if !ok || member.State != Relocating {
		return ErrUnknownMember
	}

	s.usedPromises[sigKey] = true
	member.Age = promise.NewAge
	member.State = Joined
	member.IsElder = false
	return nil
}

// Split divides the section into two children along the next address bit,
// provided membership exceeds the split threshold with enough balance on
// each extending bit (spec §4.3). It does not mutate the receiver.
func (s *Section) Split() (zero, one *Section, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.members) <= s.splitThreshold {
		return nil, nil, ErrNotEnoughToSplit
	}

	zeroMembers := make(map[ids.NodeID]*Member)
	oneMembers := make(map[ids.NodeID]*Member)
	nextBit := s.prefix.Len()
	for id, m := range s.members {
		cp := *m
		if m.Address.Bit(nextBit) {
			oneMembers[id] = &cp
		} else {
			zeroMembers[id] = &cp
		}
	}
	half := s.splitThreshold / 2
	if len(zeroMembers) < half || len(oneMembers) < half {
		return nil, nil, ErrNotEnoughToSplit
	}

	zero = &Section{
		prefix:         s.prefix.PushBit(false),
		elderCount:     s.elderCount,
		splitThreshold: s.splitThreshold,
		joinsAllowed:   true,
		members:        zeroMembers,
		authorityKey:   s.authorityKey,
		fresh:          s.fresh,
		usedPromises:   make(map[string]bool),
	}
	one = &Section{
		prefix:         s.prefix.PushBit(true),
		elderCount:     s.elderCount,
		splitThreshold: s.splitThreshold,
		joinsAllowed:   true,
		members:        oneMembers,
		authorityKey:   s.authorityKey,
		fresh:          s.fresh,
		usedPromises:   make(map[string]bool),
	}
	return zero, one, nil
}

// PromoteDemote atomically swaps the section authority to newKey, signed by
// the current (outgoing) authority key, and marks candidateElders as the
// new elder set (spec §4.3). Exactly one authority is live at any time: the
// swap either fully succeeds or leaves state unchanged.
func (s *Section) PromoteDemote(candidateElders []ids.NodeID, newKey *bls.PublicKey, proof *bls.Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !bls.Verify(s.authorityKey, proof, bls.PublicKeyToCompressedBytes(newKey)) {
		return ErrBadAuthorityProof
	}

	elect := make(map[ids.NodeID]struct{}, len(candidateElders))
	for _, id := range candidateElders {
		elect[id] = struct{}{}
	}
	for id, m := range s.members {
		if _, ok := elect[id]; ok {
			if m.State == Relocating {
				// A relocating elder cannot be re-elected; promotion skips it.
				m.IsElder = false
				continue
			}
			m.IsElder = true
		} else if m.IsElder {
			m.IsElder = false
			// a demoted Relocating member stays Relocating until
			// FinishRelocation applies its new age
		}
	}
	s.authorityKey = newKey
	return nil
}

// Elders returns the current elder set: the elderCount oldest joined members
// that pass the freshness check, ties broken by address closeness to the
// section's prefix name (spec §4.3 invariant).
func (s *Section) Elders() []*Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]*Member, 0, len(s.members))
	for _, m := range s.members {
		if m.State != Joined {
			continue
		}
		if s.fresh != nil && !s.fresh(m.NodeID) {
			continue
		}
		candidates = append(candidates, m)
	}

	target := s.prefix.Name()
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Age != b.Age {
			return a.Age > b.Age
		}
		return a.Address.CloserTo(b.Address, target)
	})

	if len(candidates) > s.elderCount {
		candidates = candidates[:s.elderCount]
	}
	return candidates
}

// Members returns every current member (any state).
func (s *Section) Members() []*Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	return out
}

func relocatePayloadBytes(p *RelocatePromise) []byte {
	out := make([]byte, 0, len(p.NodeID)+address.Size+1)
	out = append(out, p.NodeID[:]...)
	out = append(out, p.NewAddr[:]...)
	out = append(out, p.NewAge)
	return out
}
