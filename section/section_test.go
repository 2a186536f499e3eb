package section

import (
	"testing"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/overlay/address"
)

func alwaysFresh(ids.NodeID) bool { return true }

func newTestSection(t *testing.T, elderCount, splitThreshold int) (*Section, *bls.SecretKey) {
	t.Helper()
	sk, err := bls.NewSecretKey()
	require.NoError(t, err)
	return New(address.EmptyPrefix, elderCount, splitThreshold, sk.PublicKey(), alwaysFresh), sk
}

func TestJoinRejectsOutsidePrefix(t *testing.T) {
	var name address.XorName
	name[0] = 0b10000000
	prefix := address.NewPrefix(name, 1)
	sk, err := bls.NewSecretKey()
	require.NoError(t, err)
	sec := New(prefix, 7, 10, sk.PublicKey(), alwaysFresh)

	var outside address.XorName
	outside[0] = 0b00000000
	err = sec.Join(ids.GenerateTestNodeID(), outside, 1, nil, nil)
	require.ErrorIs(t, err, ErrOutsidePrefix)
}

func TestJoinRejectsWhenDisallowed(t *testing.T) {
	sec, _ := newTestSection(t, 7, 10)
	sec.SetJoinsAllowed(false)

	addr, err := address.Random()
	require.NoError(t, err)
	err = sec.Join(ids.GenerateTestNodeID(), addr, 1, nil, nil)
	require.ErrorIs(t, err, ErrJoinsDisallowed)
}

func TestJoinValidatesResourceProof(t *testing.T) {
	sec, _ := newTestSection(t, 7, 10)
	addr, err := address.Random()
	require.NoError(t, err)

	reject := func(ids.NodeID, []byte) bool { return false }
	err = sec.Join(ids.GenerateTestNodeID(), addr, 1, []byte("proof"), reject)
	require.ErrorIs(t, err, ErrBadResourceProof)

	accept := func(ids.NodeID, []byte) bool { return true }
	err = sec.Join(ids.GenerateTestNodeID(), addr, 1, []byte("proof"), accept)
	require.NoError(t, err)
}

func TestElderSelectionPicksOldestFirst(t *testing.T) {
	sec, _ := newTestSection(t, 2, 10)

	young := ids.GenerateTestNodeID()
	old := ids.GenerateTestNodeID()
	middle := ids.GenerateTestNodeID()

	addr, _ := address.Random()
	require.NoError(t, sec.Join(young, addr, 1, nil, nil))
	addr2, _ := address.Random()
	require.NoError(t, sec.Join(old, addr2, 10, nil, nil))
	addr3, _ := address.Random()
	require.NoError(t, sec.Join(middle, addr3, 5, nil, nil))

	elders := sec.Elders()
	require.Len(t, elders, 2)
	require.Equal(t, old, elders[0].NodeID)
	require.Equal(t, middle, elders[1].NodeID)
}

func TestRelocateAdultAppliesImmediately(t *testing.T) {
	sec, sk := newTestSection(t, 7, 10)
	member := ids.GenerateTestNodeID()
	addr, err := address.Random()
	require.NoError(t, err)
	require.NoError(t, sec.Join(member, addr, 3, nil, nil))

	promise, err := sec.Relocate(addr, 0, sk)
	require.NoError(t, err)
	require.Equal(t, member, promise.NodeID)
	require.NotNil(t, promise.Signature)

	members := sec.Members()
	require.Len(t, members, 1)
	require.Equal(t, uint8(0), members[0].Age)
	require.Equal(t, Joined, members[0].State)
}

func TestRelocateElderDefersUntilDemotion(t *testing.T) {
	sec, sk := newTestSection(t, 7, 10)
	member := ids.GenerateTestNodeID()
	addr, err := address.Random()
	require.NoError(t, err)
	require.NoError(t, sec.Join(member, addr, 3, nil, nil))

	for _, m := range sec.members {
		m.IsElder = true
	}

	promise, err := sec.Relocate(addr, 0, sk)
	require.NoError(t, err)

	members := sec.Members()
	require.Equal(t, Relocating, members[0].State)
	require.Equal(t, uint8(3), members[0].Age) // unchanged until demoted

	require.NoError(t, sec.FinishRelocation(promise))
	members = sec.Members()
	require.Equal(t, Joined, members[0].State)
	require.Equal(t, uint8(0), members[0].Age)
	require.False(t, members[0].IsElder)
}

func TestFinishRelocationRejectsReplayedPromise(t *testing.T) {
	sec, sk := newTestSection(t, 7, 10)
	member := ids.GenerateTestNodeID()
	addr, err := address.Random()
	require.NoError(t, err)
	require.NoError(t, sec.Join(member, addr, 3, nil, nil))

	for _, m := range sec.members {
		m.IsElder = true
	}

	promise, err := sec.Relocate(addr, 0, sk)
	require.NoError(t, err)

	require.NoError(t, sec.FinishRelocation(promise))
	// Presenting the very same signed promise again must be rejected, not
	// silently re-applied.
	err = sec.FinishRelocation(promise)
	require.ErrorIs(t, err, ErrRelocatePromiseReplayed)
}

func TestFinishRelocationRejectsBadSignature(t *testing.T) {
	sec, sk := newTestSection(t, 7, 10)
	member := ids.GenerateTestNodeID()
	addr, err := address.Random()
	require.NoError(t, err)
	require.NoError(t, sec.Join(member, addr, 3, nil, nil))

	for _, m := range sec.members {
		m.IsElder = true
	}

	promise, err := sec.Relocate(addr, 0, sk)
	require.NoError(t, err)

	tampered := *promise
	tampered.NewAge = 99
	err = sec.FinishRelocation(&tampered)
	require.ErrorIs(t, err, ErrBadRelocateProof)
}

func TestRelocateUnknownMember(t *testing.T) {
	sec, sk := newTestSection(t, 7, 10)
	addr, err := address.Random()
	require.NoError(t, err)
	_, err = sec.Relocate(addr, 0, sk)
	require.ErrorIs(t, err, ErrUnknownMember)
}

func TestSplitRequiresBalancedThreshold(t *testing.T) {
	sec, _ := newTestSection(t, 7, 4)

	var zeroAddr, oneAddr address.XorName
	zeroAddr[0] = 0b00000000
	oneAddr[0] = 0b10000000

	require.NoError(t, sec.Join(ids.GenerateTestNodeID(), zeroAddr, 1, nil, nil))
	require.NoError(t, sec.Join(ids.GenerateTestNodeID(), oneAddr, 1, nil, nil))

	_, _, err := sec.Split()
	require.ErrorIs(t, err, ErrNotEnoughToSplit)

	require.NoError(t, sec.Join(ids.GenerateTestNodeID(), zeroAddr, 1, nil, nil))
	require.NoError(t, sec.Join(ids.GenerateTestNodeID(), oneAddr, 1, nil, nil))
	// Membership must exceed the threshold of 4, not merely reach it.
	require.NoError(t, sec.Join(ids.GenerateTestNodeID(), zeroAddr, 1, nil, nil))

	zero, one, err := sec.Split()
	require.NoError(t, err)
	require.Equal(t, "0", zero.Prefix().String())
	require.Equal(t, "1", one.Prefix().String())
}

func TestPromoteDemoteSwapsAuthority(t *testing.T) {
	sec, sk := newTestSection(t, 7, 10)
	candidate := ids.GenerateTestNodeID()
	addr, err := address.Random()
	require.NoError(t, err)
	require.NoError(t, sec.Join(candidate, addr, 1, nil, nil))

	newSK, err := bls.NewSecretKey()
	require.NoError(t, err)
	newPK := newSK.PublicKey()
	proof, err := sk.Sign(bls.PublicKeyToCompressedBytes(newPK))
	require.NoError(t, err)

	err = sec.PromoteDemote([]ids.NodeID{candidate}, newPK, proof)
	require.NoError(t, err)
	require.Equal(t, bls.PublicKeyToCompressedBytes(newPK), bls.PublicKeyToCompressedBytes(sec.AuthorityKey()))

	members := sec.Members()
	require.True(t, members[0].IsElder)
}

func TestPromoteDemoteRejectsBadProof(t *testing.T) {
	sec, _ := newTestSection(t, 7, 10)
	otherSK, err := bls.NewSecretKey()
	require.NoError(t, err)
	newSK, err := bls.NewSecretKey()
	require.NoError(t, err)
	newPK := newSK.PublicKey()
	badProof, err := otherSK.Sign(bls.PublicKeyToCompressedBytes(newPK))
	require.NoError(t, err)

	err = sec.PromoteDemote(nil, newPK, badProof)
	require.ErrorIs(t, err, ErrBadAuthorityProof)
}
