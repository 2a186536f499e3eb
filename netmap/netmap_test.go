package netmap

import (
	"testing"

	"github.com/luxfi/crypto/bls"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/overlay/address"
)

func testPrefix(t *testing.T, bits string) address.Prefix {
	t.Helper()
	var name address.XorName
	p := address.NewPrefix(name, 0)
	for _, c := range bits {
		p = p.PushBit(c == '1')
	}
	return p
}

func testKey(t *testing.T) *bls.PublicKey {
	t.Helper()
	sk, err := bls.NewSecretKey()
	require.NoError(t, err)
	return sk.PublicKey()
}

func TestMapInsertAndSectionFor(t *testing.T) {
	m := New()
	key := testKey(t)
	require.True(t, m.Insert(OtherSection{SectionPrefix: testPrefix(t, "1"), AuthorityKey: key}))

	var addr address.XorName
	addr[0] = 0b10000000
	got, ok := m.SectionFor(addr)
	require.True(t, ok)
	require.Equal(t, "1", got.SectionPrefix.String())
}

func TestMapRejectsChildWhileParentPresent(t *testing.T) {
	m := New()
	require.True(t, m.Insert(OtherSection{SectionPrefix: testPrefix(t, "1"), AuthorityKey: testKey(t)}))
	require.False(t, m.Insert(OtherSection{SectionPrefix: testPrefix(t, "10"), AuthorityKey: testKey(t)}))
}

func TestMapParentAbsorbsChildren(t *testing.T) {
	m := New()
	require.True(t, m.Insert(OtherSection{SectionPrefix: testPrefix(t, "10"), AuthorityKey: testKey(t)}))
	require.True(t, m.Insert(OtherSection{SectionPrefix: testPrefix(t, "11"), AuthorityKey: testKey(t)}))
	require.Len(t, m.All(), 2)

	require.True(t, m.Insert(OtherSection{SectionPrefix: testPrefix(t, "1"), AuthorityKey: testKey(t)}))
	require.Len(t, m.All(), 1)
}

func TestMapIsIncompleteWithGap(t *testing.T) {
	m := New()
	require.True(t, m.Insert(OtherSection{SectionPrefix: testPrefix(t, "0"), AuthorityKey: testKey(t)}))
	require.False(t, m.IsComplete())
}

func TestMapIsCompleteWhenFullyPartitioned(t *testing.T) {
	m := New()
	require.True(t, m.Insert(OtherSection{SectionPrefix: testPrefix(t, "0"), AuthorityKey: testKey(t)}))
	require.True(t, m.Insert(OtherSection{SectionPrefix: testPrefix(t, "10"), AuthorityKey: testKey(t)}))
	require.True(t, m.Insert(OtherSection{SectionPrefix: testPrefix(t, "11"), AuthorityKey: testKey(t)}))
	require.True(t, m.IsComplete())
	require.True(t, m.IsDisjoint())
}

func TestMapRemoveAndAll(t *testing.T) {
	m := New()
	p := testPrefix(t, "1")
	require.True(t, m.Insert(OtherSection{SectionPrefix: p, AuthorityKey: testKey(t)}))
	require.Len(t, m.All(), 1)
	m.Remove(p)
	require.Len(t, m.All(), 0)
}
