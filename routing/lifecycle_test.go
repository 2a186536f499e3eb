package routing

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/overlay/address"
	"github.com/luxfi/overlay/section"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	addr, err := address.Random()
	require.NoError(t, err)
	return NewNode(ids.GenerateTestNodeID(), addr)
}

func TestLifecycleHappyPath(t *testing.T) {
	n := newTestNode(t)
	require.Equal(t, Bootstrapping, n.State())

	elders := []ids.NodeID{ids.GenerateTestNodeID()}
	require.NoError(t, n.ReceiveJoinTarget(elders))
	require.Equal(t, Joining, n.State())

	require.NoError(t, n.Approve())
	require.Equal(t, Approved, n.State())
}

func TestRejectedDisallowedRebootstrapsWithFreshIdentity(t *testing.T) {
	n := newTestNode(t)
	_, origAddr := n.Identity()
	require.NoError(t, n.ReceiveJoinTarget(nil))

	require.NoError(t, n.Rejected(JoinsDisallowed))
	require.Equal(t, Bootstrapping, n.State())

	_, newAddr := n.Identity()
	require.NotEqual(t, origAddr, newAddr)
}

func TestRejectedOtherReasonTerminates(t *testing.T) {
	n := newTestNode(t)
	require.NoError(t, n.ReceiveJoinTarget(nil))
	require.NoError(t, n.Rejected(OtherReject))
	require.Equal(t, Terminated, n.State())
}

func TestBootstrapFailureTerminates(t *testing.T) {
	n := newTestNode(t)
	require.NoError(t, n.BootstrapFailed())
	require.Equal(t, Terminated, n.State())
	require.ErrorIs(t, n.BootstrapFailed(), ErrInvalidTransition)
}

func TestRetryStaysInJoining(t *testing.T) {
	n := newTestNode(t)
	require.NoError(t, n.ReceiveJoinTarget(nil))
	newElders := []ids.NodeID{ids.GenerateTestNodeID(), ids.GenerateTestNodeID()}
	require.NoError(t, n.Retry(newElders))
	require.Equal(t, Joining, n.State())
}

func TestRelocateReturnsToBootstrappingWithPayload(t *testing.T) {
	n := newTestNode(t)
	require.NoError(t, n.ReceiveJoinTarget(nil))
	require.NoError(t, n.Approve())

	promise := &section.RelocatePromise{NodeID: ids.GenerateTestNodeID(), NewAge: 5}
	require.NoError(t, n.Relocate(promise))
	require.Equal(t, Bootstrapping, n.State())
	require.Equal(t, promise, n.RelocatePayload())
}

func TestInvalidTransitionsRejected(t *testing.T) {
	n := newTestNode(t)
	require.ErrorIs(t, n.Approve(), ErrInvalidTransition)
	require.ErrorIs(t, n.Retry(nil), ErrInvalidTransition)
}

func TestTerminatedAbsorbsEverything(t *testing.T) {
	n := newTestNode(t)
	require.NoError(t, n.BootstrapFailed())
	require.ErrorIs(t, n.ReceiveJoinTarget(nil), ErrInvalidTransition)
	require.ErrorIs(t, n.Rebootstrap(), ErrInvalidTransition)
	require.Equal(t, Terminated, n.State())
}
