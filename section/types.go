package section

import (
	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"

	"github.com/luxfi/overlay/address"
)

// State is the membership state of one peer in a section.
type State int

const (
	// Joined means the peer is a full member, either adult or elder.
	Joined State = iota
	// Relocating means the peer is an elder that has been promised
	// relocation; it stays Relocating through its demotion until
	// FinishRelocation applies the new age (spec §4.3).
	Relocating
	// Left means the peer is no longer a member.
	Left
)

func (s State) String() string {
	switch s {
	case Joined:
		return "joined"
	case Relocating:
		return "relocating"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Member is one peer known to a section.
type Member struct {
	NodeID    ids.NodeID
	Address   address.XorName
	Age       uint8
	State     State
	IsElder   bool
	PublicKey *bls.PublicKey
}

// RelocatePromise is the signed commitment a section issues when it accepts
// relocating one of its members (spec §4.3).
type RelocatePromise struct {
	NodeID    ids.NodeID
	NewAddr   address.XorName
	NewAge    uint8
	Signature *bls.Signature
}

// FreshnessChecker reports whether a member is currently reachable, the
// check applied before a member is allowed into the elder set.
type FreshnessChecker func(ids.NodeID) bool

// ResourceProofValidator validates the proof-of-work a joining candidate
// submits alongside its join request.
type ResourceProofValidator func(candidate ids.NodeID, proof []byte) bool
