// Package routing implements the node lifecycle state machine, the bounce
// protocol used to recover from stale section-key knowledge, and envelope
// verification (spec §4.5).
package routing

import (
	"errors"
	"sync"

	"github.com/luxfi/ids"

	"github.com/luxfi/overlay/address"
	"github.com/luxfi/overlay/section"
)

// State is one of the four node lifecycle states.
type State int

const (
	// Bootstrapping is the initial state: the node is locating a section to
	// join.
	Bootstrapping State = iota
	// Joining means the node has a join target and is negotiating
	// admission with it.
	Joining
	// Approved means the node is a full member, handling routing,
	// aggregation, relay, and duty execution.
	Approved
	// Terminated is absorbing; all further inputs are ignored.
	Terminated
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Joining:
		return "joining"
	case Approved:
		return "approved"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned when an event does not apply to the
// node's current state.
var ErrInvalidTransition = errors.New("routing: event not valid in current state")

// RejectReason is why an elder rejected a join request.
type RejectReason int

const (
	// NotReachable means the elders could not connect back to the
	// candidate.
	NotReachable RejectReason = iota
	// JoinsDisallowed means the target section is not currently admitting
	// members.
	JoinsDisallowed
	// OtherReject covers any reason without a specified recourse; the node
	// terminates rather than guess at a retry strategy.
	OtherReject
)

// Node drives one peer's lifecycle state machine. The zero value is not
// usable; construct with NewNode.
type Node struct {
	mu sync.Mutex

	state    State
	identity ids.NodeID
	address  address.XorName

	targetElders    []ids.NodeID
	relocatePayload *section.RelocatePromise
}

// NewNode starts a node in the Bootstrapping state under the given identity
// and address.
func NewNode(identity ids.NodeID, addr address.XorName) *Node {
	return &Node{state: Bootstrapping, identity: identity, address: addr}
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Identity returns the node's current NodeID and address. The address is
// replaced with a fresh random one when Rejected rebootstraps the node
// (spec §4.5 scenario S5); the NodeID does not change.
func (n *Node) Identity() (ids.NodeID, address.XorName) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.identity, n.address
}

// RelocatePayload returns the relocate commitment retained across a
// bootstrap cycle, if any.
func (n *Node) RelocatePayload() *section.RelocatePromise {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.relocatePayload
}

// ReceiveJoinTarget transitions Bootstrapping → Joining once a
// BootstrapResponse::Join names a target elder set.
func (n *Node) ReceiveJoinTarget(targetElders []ids.NodeID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Bootstrapping {
		return ErrInvalidTransition
	}
	n.targetElders = targetElders
	n.state = Joining
	return nil
}

// Rebootstrap restarts bootstrapping against a new peer set. Valid from
// Bootstrapping (BootstrapResponse::Rebootstrap) or Joining (timeout,
// retry-exhausted, or a disallowed rejection).
func (n *Node) Rebootstrap() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Bootstrapping && n.state != Joining {
		return ErrInvalidTransition
	}
	n.state = Bootstrapping
	n.targetElders = nil
	return nil
}

// BootstrapFailed terminates the node after a bootstrap failure event.
func (n *Node) BootstrapFailed() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Bootstrapping {
		return ErrInvalidTransition
	}
	n.state = Terminated
	return nil
}

// Retry retargets a Joining node to a new elder set without losing state
// (JoinResponse::Retry).
func (n *Node) Retry(newElders []ids.NodeID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Joining {
		return ErrInvalidTransition
	}
	n.targetElders = newElders
	return nil
}

// Rejected handles JoinResponse::Rejected. NotReachable and JoinsDisallowed
// rebootstrap with a fresh random address, keeping the NodeID (the node has nothing to gain by
// retrying the same one); any other reason terminates, since no recourse is
// specified for it.
func (n *Node) Rejected(reason RejectReason) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Joining {
		return ErrInvalidTransition
	}

	switch reason {
	case NotReachable, JoinsDisallowed:
		fresh, err := address.Random()
		if err != nil {
			return err
		}
		n.address = fresh
		n.state = Bootstrapping
		n.targetElders = nil
		return nil
	default:
		n.state = Terminated
		return nil
	}
}

// Approve transitions Joining → Approved on JoinResponse::Approval.
func (n *Node) Approve() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Joining {
		return ErrInvalidTransition
	}
	n.state = Approved
	n.targetElders = nil
	return nil
}

// Relocate transitions Approved → Bootstrapping on a signed Relocate
// directive, retaining promise so it is presented with the next join.
func (n *Node) Relocate(promise *section.RelocatePromise) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Approved {
		return ErrInvalidTransition
	}
	n.relocatePayload = promise
	n.state = Bootstrapping
	return nil
}
