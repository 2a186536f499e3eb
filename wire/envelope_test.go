// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"testing"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/overlay/address"
)

func testKeys(t *testing.T) (*bls.SecretKey, *bls.PublicKey) {
	t.Helper()
	sk, err := bls.NewSecretKey()
	require.NoError(t, err)
	return sk, sk.PublicKey()
}

func TestRoundTripNodeAuthority(t *testing.T) {
	sk, pk := testKeys(t)
	sig, err := sk.Sign([]byte("payload"))
	require.NoError(t, err)

	addr, err := address.Random()
	require.NoError(t, err)

	msg := RoutingMsg{
		IDHi: 1, IDLo: 2,
		Src: SrcAuthority{Kind: AuthorityNode, NodeID: ids.GenerateTestNodeID(), NodeSig: sig},
		Dst: DstLocation{Kind: DstNode, Address: addr},
		Aggregation: AggregationNone,
		Variant:     []byte("hello"),
		SectionPK:   pk,
	}

	b, err := Encode(msg)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, msg.IDHi, got.IDHi)
	require.Equal(t, msg.IDLo, got.IDLo)
	require.Equal(t, msg.Src.Kind, got.Src.Kind)
	require.Equal(t, msg.Src.NodeID, got.Src.NodeID)
	require.Equal(t, msg.Dst.Kind, got.Dst.Kind)
	require.True(t, msg.Dst.Address.Equal(got.Dst.Address))
	require.Equal(t, msg.Variant, got.Variant)
}

func TestRoundTripSectionAuthorityAndPrefixDst(t *testing.T) {
	sk, pk := testKeys(t)
	sig, err := sk.Sign([]byte("combined"))
	require.NoError(t, err)

	name, err := address.Random()
	require.NoError(t, err)
	prefix := address.NewPrefix(name, 3)

	msg := RoutingMsg{
		Src:         SrcAuthority{Kind: AuthoritySection, SectionSig: sig},
		Dst:         DstLocation{Kind: DstPrefix, Prefix: prefix},
		Aggregation: AggregationAtDestination,
		Variant:     []byte{1, 2, 3},
		SectionPK:   pk,
	}

	b, err := Encode(msg)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, AuthoritySection, got.Src.Kind)
	require.Equal(t, DstPrefix, got.Dst.Kind)
	require.Equal(t, prefix.Len(), got.Dst.Prefix.Len())
	require.True(t, prefix.Name().Equal(got.Dst.Prefix.Name()))
	require.Equal(t, AggregationAtDestination, got.Aggregation)
}

func TestDirectDestinationHasNoPayload(t *testing.T) {
	_, pk := testKeys(t)
	signer := ids.GenerateTestNodeID()
	msg := RoutingMsg{
		Src:       SrcAuthority{Kind: AuthorityBlsShare, NodeID: signer, KeyIndex: 7},
		Dst:       DstLocation{Kind: DstDirect},
		SectionPK: pk,
	}
	sk, _ := testKeys(t)
	sig, err := sk.Sign([]byte("share"))
	require.NoError(t, err)
	msg.Src.Share = sig

	b, err := Encode(msg)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, DstDirect, got.Dst.Kind)
	require.Equal(t, uint64(7), got.Src.KeyIndex)
	require.Equal(t, signer, got.Src.NodeID)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	_, err := Decode([]byte{0xFF, 0, 0})
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, err := Decode([]byte{Version})
	require.Error(t, err)
}
