package prefixmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/overlay/address"
)

type entry struct {
	prefix address.Prefix
	label  string
}

func (e entry) Prefix() address.Prefix { return e.prefix }

func prefixOf(t *testing.T, bits string) address.Prefix {
	t.Helper()
	var name address.XorName
	p := address.NewPrefix(name, 0)
	for _, c := range bits {
		p = p.PushBit(c == '1')
	}
	return p
}

func TestMapInsertReplacesEqualPrefix(t *testing.T) {
	m := New[entry]()
	p := prefixOf(t, "101")

	require.True(t, m.Insert(entry{prefix: p, label: "first"}))
	require.True(t, m.Insert(entry{prefix: p, label: "second"}))
	require.Equal(t, 1, m.Len())

	got, ok := m.GetMatching(p.Name())
	require.True(t, ok)
	require.Equal(t, "second", got.label)
}

func TestMapInsertRemovesContainedEntries(t *testing.T) {
	m := New[entry]()
	parent := prefixOf(t, "10")
	child0 := prefixOf(t, "100")
	child1 := prefixOf(t, "101")

	require.True(t, m.Insert(entry{prefix: child0, label: "child0"}))
	require.True(t, m.Insert(entry{prefix: child1, label: "child1"}))
	require.Equal(t, 2, m.Len())

	require.True(t, m.Insert(entry{prefix: parent, label: "parent"}))
	require.Equal(t, 1, m.Len())
	require.True(t, m.IsDisjoint())
}

func TestMapInsertAcceptsDisjointSiblings(t *testing.T) {
	m := New[entry]()
	pa := prefixOf(t, "101")
	pb := prefixOf(t, "100")

	require.True(t, m.Insert(entry{prefix: pa, label: "a"}))
	require.True(t, m.Insert(entry{prefix: pb, label: "b"}))
	require.Equal(t, 2, m.Len())
}

func TestMapInsertRejectsChildWhileParentPresent(t *testing.T) {
	m := New[entry]()
	parent := prefixOf(t, "10")
	child := prefixOf(t, "101")

	require.True(t, m.Insert(entry{prefix: parent, label: "parent"}))
	require.False(t, m.Insert(entry{prefix: child, label: "child"}))
	require.Equal(t, 1, m.Len())
}

func TestMapGetMatchingPicksLongestPrefix(t *testing.T) {
	m := New[entry]()
	root := address.EmptyPrefix
	sub := prefixOf(t, "1")

	require.True(t, m.Insert(entry{prefix: root, label: "root"}))

	var addr address.XorName
	addr[0] = 0b10000000

	got, ok := m.GetMatching(addr)
	require.True(t, ok)
	require.Equal(t, "root", got.label)

	m.Remove(root)
	require.True(t, m.Insert(entry{prefix: sub, label: "sub"}))

	got, ok = m.GetMatching(addr)
	require.True(t, ok)
	require.Equal(t, "sub", got.label)
}

func TestMapAllIsOrderedAndDisjoint(t *testing.T) {
	m := New[entry]()
	require.True(t, m.Insert(entry{prefix: prefixOf(t, "1"), label: "one"}))
	require.True(t, m.Insert(entry{prefix: prefixOf(t, "0"), label: "zero"}))

	all := m.All()
	require.Len(t, all, 2)
	require.Equal(t, "zero", all[0].label)
	require.Equal(t, "one", all[1].label)
	require.True(t, m.IsDisjoint())
}
