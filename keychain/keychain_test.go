package keychain

import (
	"testing"

	"github.com/luxfi/crypto/bls"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) (*bls.SecretKey, *bls.PublicKey) {
	t.Helper()
	sk, err := bls.NewSecretKey()
	require.NoError(t, err)
	return sk, sk.PublicKey()
}

func TestChainExtendAndTail(t *testing.T) {
	genesisSK, genesisPK := mustKey(t)
	chain := NewChain(genesisPK)
	require.Equal(t, 1, chain.Len())

	_, nextPK := mustKey(t)
	proof, err := genesisSK.Sign(bls.PublicKeyToCompressedBytes(nextPK))
	require.NoError(t, err)

	require.NoError(t, chain.Extend(nextPK, proof))
	require.Equal(t, 2, chain.Len())
	require.Equal(t, bls.PublicKeyToCompressedBytes(nextPK), bls.PublicKeyToCompressedBytes(chain.Tail()))
}

func TestChainExtendRejectsBadProof(t *testing.T) {
	_, genesisPK := mustKey(t)
	chain := NewChain(genesisPK)

	otherSK, _ := mustKey(t)
	_, nextPK := mustKey(t)
	badProof, err := otherSK.Sign(bls.PublicKeyToCompressedBytes(nextPK))
	require.NoError(t, err)

	err = chain.Extend(nextPK, badProof)
	require.ErrorIs(t, err, ErrBadProof)
	require.Equal(t, 1, chain.Len())
}

func TestChainIsKnownAndMinimizeTo(t *testing.T) {
	genesisSK, genesisPK := mustKey(t)
	chain := NewChain(genesisPK)

	midSK, midPK := mustKey(t)
	proof1, err := genesisSK.Sign(bls.PublicKeyToCompressedBytes(midPK))
	require.NoError(t, err)
	require.NoError(t, chain.Extend(midPK, proof1))

	_, tailPK := mustKey(t)
	proof2, err := midSK.Sign(bls.PublicKeyToCompressedBytes(tailPK))
	require.NoError(t, err)
	require.NoError(t, chain.Extend(tailPK, proof2))

	require.True(t, chain.IsKnown(genesisPK))
	require.True(t, chain.IsKnown(midPK))
	require.True(t, chain.IsKnown(tailPK))

	sub, ok := chain.MinimizeTo(midPK)
	require.True(t, ok)
	require.Equal(t, 2, sub.Len())
	require.False(t, sub.IsKnown(genesisPK))
	require.True(t, sub.IsKnown(midPK))
	require.True(t, sub.IsKnown(tailPK))

	_, unrelatedPK := mustKey(t)
	_, ok = chain.MinimizeTo(unrelatedPK)
	require.False(t, ok)
}

func TestChainVerifyTailSignature(t *testing.T) {
	genesisSK, genesisPK := mustKey(t)
	chain := NewChain(genesisPK)

	msg := []byte("section decision")
	sig, err := genesisSK.Sign(msg)
	require.NoError(t, err)

	require.True(t, chain.VerifyTailSignature(sig, msg))
	require.False(t, chain.VerifyTailSignature(sig, []byte("different")))
}
