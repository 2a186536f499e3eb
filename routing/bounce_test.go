package routing

import (
	"testing"

	"github.com/luxfi/crypto/bls"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/overlay/keychain"
)

func extendChain(t *testing.T, chain *keychain.Chain, tailSK *bls.SecretKey, n int) *bls.SecretKey {
	t.Helper()
	for i := 0; i < n; i++ {
		nextSK, err := bls.NewSecretKey()
		require.NoError(t, err)
		nextPK := nextSK.PublicKey()
		proof, err := tailSK.Sign(bls.PublicKeyToCompressedBytes(nextPK))
		require.NoError(t, err)
		require.NoError(t, chain.Extend(nextPK, proof))
		tailSK = nextSK
	}
	return tailSK
}

func TestHandleBounceBootstrappingAlwaysResendsUnchanged(t *testing.T) {
	sk, err := bls.NewSecretKey()
	require.NoError(t, err)
	chain := keychain.NewChain(sk.PublicKey())

	action, ext := HandleBounce(Bootstrapping, chain, Bounce{SenderLastKnownKey: sk.PublicKey()})
	require.Equal(t, ResendUnchanged, action)
	require.Nil(t, ext)
}

func TestHandleBounceResendsWithExtensionWhenSenderBehind(t *testing.T) {
	genesisSK, err := bls.NewSecretKey()
	require.NoError(t, err)
	chain := keychain.NewChain(genesisSK.PublicKey())
	extendChain(t, chain, genesisSK, 2)

	action, ext := HandleBounce(Approved, chain, Bounce{SenderLastKnownKey: genesisSK.PublicKey()})
	require.Equal(t, ResendWithExtension, action)
	require.NotNil(t, ext)
	require.Equal(t, 3, ext.Len())
}

func TestHandleBounceDropsWhenSenderKeyUnknown(t *testing.T) {
	genesisSK, err := bls.NewSecretKey()
	require.NoError(t, err)
	chain := keychain.NewChain(genesisSK.PublicKey())

	unrelatedSK, err := bls.NewSecretKey()
	require.NoError(t, err)

	action, ext := HandleBounce(Approved, chain, Bounce{SenderLastKnownKey: unrelatedSK.PublicKey()})
	require.Equal(t, Drop, action)
	require.Nil(t, ext)
}

func TestHandleBounceDropsWhenSenderAtTail(t *testing.T) {
	genesisSK, err := bls.NewSecretKey()
	require.NoError(t, err)
	chain := keychain.NewChain(genesisSK.PublicKey())

	action, ext := HandleBounce(Approved, chain, Bounce{SenderLastKnownKey: genesisSK.PublicKey()})
	require.Equal(t, Drop, action)
	require.Nil(t, ext)
}
