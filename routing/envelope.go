package routing

import (
	"errors"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"

	"github.com/luxfi/overlay/address"
	"github.com/luxfi/overlay/keychain"
)

// ErrUnknownSectionKey is returned by Verify when a Section envelope
// references a key not present in the local chain — the trigger for the
// bounce protocol.
var ErrUnknownSectionKey = errors.New("routing: section key not in local chain")

// ErrShareNotAMessage is returned by Verify for BlsShareAuthority
// envelopes, which are never themselves handled as messages.
var ErrShareNotAMessage = errors.New("routing: bls share envelopes are not handled as messages")

// AuthorityKind tags where an envelope's authority claim comes from.
type AuthorityKind int

const (
	// NodeAuthority means the envelope carries a single node's own
	// signature over the payload.
	NodeAuthority AuthorityKind = iota
	// BlsShareAuthority means the envelope is one elder's signature share;
	// it feeds the aggregator and is never itself handled as a message.
	BlsShareAuthority
	// SectionAuthority means the envelope carries a combined signature
	// produced by a section key.
	SectionAuthority
)

// Authority identifies who is vouching for an envelope's payload.
type Authority struct {
	Kind AuthorityKind

	// Node fields, valid when Kind == NodeAuthority.
	NodeID  ids.NodeID
	NodePK  *bls.PublicKey
	NodeSig *bls.Signature

	// Section fields, valid when Kind == SectionAuthority.
	SectionPK  *bls.PublicKey
	SectionSig *bls.Signature
}

// Envelope is a routing message's header: who sent it, where it is going,
// and which authority vouches for it (spec §3 "Routing envelope").
type Envelope struct {
	ID      ids.ID
	Src     Authority
	Dst     address.XorName
	Payload []byte
}

// Verify checks an envelope against the node's verification rules
// (spec §4.5 "Message verification"). BlsShareAuthority envelopes are never
// handled here — the caller must route them to the aggregator instead.
func Verify(env Envelope, chain *keychain.Chain) (bool, error) {
	switch env.Src.Kind {
	case NodeAuthority:
		return bls.Verify(env.Src.NodePK, env.Src.NodeSig, env.Payload), nil
	case SectionAuthority:
		if !chain.IsKnown(env.Src.SectionPK) {
			return false, ErrUnknownSectionKey
		}
		return bls.Verify(env.Src.SectionPK, env.Src.SectionSig, env.Payload), nil
	default:
		return false, ErrShareNotAMessage
	}
}
