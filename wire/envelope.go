// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire implements the on-the-wire binary encoding of a
// RoutingMsg envelope (spec §6); it has no Chunk encoding. Field order is
// stable — a bincode-style linear encoding, not a self-describing format
// like JSON — so two nodes running the same protocol version always
// produce identical bytes for identical values. Grounded on the teacher's
// codec.go (Marshal/Unmarshal + CodecVersion shape), generalized from a
// generic JSON pass-through to a concrete, schema-specific binary layout
// using the Packer/Unpacker helpers in utils/wrappers.
package wire

import (
	"errors"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"

	"github.com/luxfi/overlay/address"
	"github.com/luxfi/overlay/utils/wrappers"
)

// Version is the current wire format version. A node that cannot parse a
// message's version rejects it outright (callers surface this as a
// verification failure, not a bounce — a version mismatch is not a stale
// key).
const Version uint8 = 1

// ErrUnsupportedVersion is returned by Decode when the leading version
// byte does not match Version.
var ErrUnsupportedVersion = errors.New("wire: unsupported envelope version")

// ErrUnknownAuthorityKind is returned when decoding an authority tag this
// build does not recognize.
var ErrUnknownAuthorityKind = errors.New("wire: unknown authority kind")

// ErrUnknownDstKind is returned when decoding a destination tag this
// build does not recognize.
var ErrUnknownDstKind = errors.New("wire: unknown destination kind")

// AuthorityKind tags which of the three SrcAuthority variants an
// envelope carries (spec §6).
type AuthorityKind uint8

const (
	// AuthorityNode is a single node's own signature over the payload.
	AuthorityNode AuthorityKind = iota
	// AuthorityBlsShare is one elder's signature share, destined for the
	// aggregator and never itself handled as a message.
	AuthorityBlsShare
	// AuthoritySection is a combined signature produced by a section key.
	AuthoritySection
)

// DstKind tags which of the five DstLocation variants an envelope
// targets (spec §6).
type DstKind uint8

const (
	// DstNode addresses a single node by address.
	DstNode DstKind = iota
	// DstSection addresses whichever section currently owns an address.
	DstSection
	// DstPrefix addresses every elder of a named prefix.
	DstPrefix
	// DstEndUser addresses a client connected via a gateway elder.
	DstEndUser
	// DstDirect addresses the immediate peer on the connection the
	// envelope arrived on (no routing lookup).
	DstDirect
)

// Aggregation names where threshold signing happens before delivery
// (spec §6).
type Aggregation uint8

const (
	// AggregationNone means the envelope is delivered as-is.
	AggregationNone Aggregation = iota
	// AggregationAtDestination means the destination combines shares
	// before handling.
	AggregationAtDestination
	// AggregationAtSourceSection means the source section combines
	// shares before sending.
	AggregationAtSourceSection
)

// SrcAuthority identifies who is vouching for an envelope's payload
// (spec §6).
type SrcAuthority struct {
	Kind AuthorityKind

	// Valid when Kind == AuthorityNode.
	NodeID  ids.NodeID
	NodeSig *bls.Signature

	// Valid when Kind == AuthorityBlsShare. NodeID doubles as the share's
	// signer identity here, the key the aggregator dedupes on.
	KeyIndex uint64
	Share    *bls.Signature

	// Valid when Kind == AuthoritySection.
	SectionSig *bls.Signature
}

// DstLocation identifies where an envelope is headed (spec §6).
type DstLocation struct {
	Kind DstKind

	// Valid when Kind == DstNode, DstSection, or DstEndUser.
	Address address.XorName
	// Valid when Kind == DstPrefix.
	Prefix address.Prefix
	// Valid when Kind == DstEndUser: the gateway-local socket token for
	// the client connection this envelope must be pushed on.
	Socket uint64
}

// RoutingMsg is the wire envelope: a message ID, who sent it, where it is
// going, how aggregation applies, an opaque variant payload, and the
// section public key the sender believes is current (spec §6).
type RoutingMsg struct {
	IDHi, IDLo  uint64
	Src         SrcAuthority
	Dst         DstLocation
	Aggregation Aggregation
	Variant     []byte
	SectionPK   *bls.PublicKey
}

// Encode serializes msg into its stable binary form.
func Encode(msg RoutingMsg) ([]byte, error) {
	p := wrappers.NewPacker(64 + len(msg.Variant))
	p.PackByte(Version)
	p.PackLong(msg.IDHi)
	p.PackLong(msg.IDLo)

	p.PackByte(byte(msg.Src.Kind))
	switch msg.Src.Kind {
	case AuthorityNode:
		p.PackFixedBytes(msg.Src.NodeID[:])
		p.PackVarBytes(bls.SignatureToBytes(msg.Src.NodeSig))
	case AuthorityBlsShare:
		p.PackFixedBytes(msg.Src.NodeID[:])
		p.PackLong(msg.Src.KeyIndex)
		p.PackVarBytes(bls.SignatureToBytes(msg.Src.Share))
	case AuthoritySection:
		p.PackVarBytes(bls.SignatureToBytes(msg.Src.SectionSig))
	}

	p.PackByte(byte(msg.Dst.Kind))
	switch msg.Dst.Kind {
	case DstNode, DstSection:
		p.PackFixedBytes(msg.Dst.Address[:])
	case DstPrefix:
		p.PackFixedBytes(msg.Dst.Prefix.Name().Bytes())
		p.PackByte(byte(msg.Dst.Prefix.Len()))
	case DstEndUser:
		p.PackFixedBytes(msg.Dst.Address[:])
		p.PackLong(msg.Dst.Socket)
	case DstDirect:
		// no payload
	}

	p.PackByte(byte(msg.Aggregation))
	p.PackVarBytes(msg.Variant)
	p.PackVarBytes(bls.PublicKeyToCompressedBytes(msg.SectionPK))

	if p.Err != nil {
		return nil, p.Err
	}
	return p.Bytes, nil
}

// Decode parses b into a RoutingMsg. It rejects anything not stamped with
// the current Version rather than guessing at forward compatibility.
func Decode(b []byte) (RoutingMsg, error) {
	u := wrappers.NewUnpacker(b)
	if v := u.UnpackByte(); v != Version {
		return RoutingMsg{}, ErrUnsupportedVersion
	}

	var msg RoutingMsg
	msg.IDHi = u.UnpackLong()
	msg.IDLo = u.UnpackLong()

	msg.Src.Kind = AuthorityKind(u.UnpackByte())
	switch msg.Src.Kind {
	case AuthorityNode:
		var nodeID ids.NodeID
		copy(nodeID[:], u.UnpackFixedBytes(len(nodeID)))
		msg.Src.NodeID = nodeID
		if sig := u.UnpackVarBytes(); u.Err == nil {
			pk, err := bls.SignatureFromBytes(sig)
			if err != nil {
				return RoutingMsg{}, err
			}
			msg.Src.NodeSig = pk
		}
	case AuthorityBlsShare:
		var signerID ids.NodeID
		copy(signerID[:], u.UnpackFixedBytes(len(signerID)))
		msg.Src.NodeID = signerID
		msg.Src.KeyIndex = u.UnpackLong()
		if sig := u.UnpackVarBytes(); u.Err == nil {
			pk, err := bls.SignatureFromBytes(sig)
			if err != nil {
				return RoutingMsg{}, err
			}
			msg.Src.Share = pk
		}
	case AuthoritySection:
		if sig := u.UnpackVarBytes(); u.Err == nil {
			pk, err := bls.SignatureFromBytes(sig)
			if err != nil {
				return RoutingMsg{}, err
			}
			msg.Src.SectionSig = pk
		}
	default:
		return RoutingMsg{}, ErrUnknownAuthorityKind
	}

	msg.Dst.Kind = DstKind(u.UnpackByte())
	switch msg.Dst.Kind {
	case DstNode, DstSection:
		addr, err := address.FromBytes(u.UnpackFixedBytes(address.Size))
		if err != nil && u.Err == nil {
			u.Err = err
		}
		msg.Dst.Address = addr
	case DstPrefix:
		name, err := address.FromBytes(u.UnpackFixedBytes(address.Size))
		if err != nil && u.Err == nil {
			u.Err = err
		}
		bitLen := u.UnpackByte()
		msg.Dst.Prefix = address.NewPrefix(name, uint(bitLen))
	case DstEndUser:
		addr, err := address.FromBytes(u.UnpackFixedBytes(address.Size))
		if err != nil && u.Err == nil {
			u.Err = err
		}
		msg.Dst.Address = addr
		msg.Dst.Socket = u.UnpackLong()
	case DstDirect:
		// no payload
	default:
		return RoutingMsg{}, ErrUnknownDstKind
	}

	msg.Aggregation = Aggregation(u.UnpackByte())
	msg.Variant = u.UnpackVarBytes()
	if pkBytes := u.UnpackVarBytes(); u.Err == nil && len(pkBytes) > 0 {
		pk, err := bls.PublicKeyFromCompressedBytes(pkBytes)
		if err != nil {
			return RoutingMsg{}, err
		}
		msg.SectionPK = pk
	}

	if u.Err != nil {
		return RoutingMsg{}, u.Err
	}
	return msg, nil
}
