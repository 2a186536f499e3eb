// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node composes the address, section, routing, keychain,
// aggregate, dkg, netmap, blob, payment, dispatch, eventbus, liveness,
// and metrics packages into one running peer. It threads an inbound wire
// message through the control flow: decode, verify, classify duty, then
// relay it, schedule a bounce, or return the classified duty to the
// caller; running the duty itself is left to the caller. Grounded on the teacher's engine/dag wiring shape — one struct
// holding every subsystem the node needs, built once by a constructor and
// driven by narrow per-event methods — generalized from chain-consensus
// message handling to this overlay's join/relay/duty flow.
package node

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/overlay/address"
	"github.com/luxfi/overlay/aggregate"
	"github.com/luxfi/overlay/blob"
	"github.com/luxfi/overlay/config"
	"github.com/luxfi/overlay/dispatch"
	"github.com/luxfi/overlay/dkg"
	"github.com/luxfi/overlay/eventbus"
	"github.com/luxfi/overlay/keychain"
	"github.com/luxfi/overlay/liveness"
	nolog "github.com/luxfi/overlay/log"
	"github.com/luxfi/overlay/metrics"
	"github.com/luxfi/overlay/netmap"
	"github.com/luxfi/overlay/payment"
	"github.com/luxfi/overlay/routing"
	"github.com/luxfi/overlay/section"
	"github.com/luxfi/overlay/utils"
	"github.com/luxfi/overlay/wire"
)

// SectionRole tags which duty a remote section's accumulated authority
// carries, so the duty classifier's sender predicates (spec §4.6
// "SenderIsPaymentSectionAccumulated" / "...Metadata...") can be answered
// at the node layer without dispatch itself knowing about roles.
type SectionRole int

const (
	// NoRole is any section this node has not tagged with a duty.
	NoRole SectionRole = iota
	// GatewayElderRole marks a single elder (not an accumulated section)
	// acting as the client's gateway.
	GatewayElderRole
	// PaymentRole marks a section's accumulated authority as the payment
	// section's combined result.
	PaymentRole
	// MetadataRole marks a section's accumulated authority as the
	// metadata section's combined result.
	MetadataRole
)

// Transport is the boundary Node calls through to actually move bytes.
// Dialing peers and managing connections is out of scope here; this
// package only decides what to send, to whom, and when.
//
//go:generate mockgen -source=node.go -destination=transportmock/transport_mock.go -package=transportmock Transport
type Transport interface {
	// Send delivers raw bytes to a specific peer.
	Send(ctx context.Context, dst ids.NodeID, raw []byte) error
	// PushToClient delivers payload on the gateway-local client stream
	// named by socket (wire.DstLocation.Socket).
	PushToClient(ctx context.Context, socket uint64, payload []byte) error
}

// Config is everything NewNode needs to assemble a running peer.
type Config struct {
	Params     config.Parameters
	Identity   ids.NodeID
	Address    address.XorName
	GenesisKey *bls.PublicKey

	Log       log.Logger
	Namespace string
	Registry  prometheus.Registerer

	Payment   payment.Hooks
	Storage   blob.Storage
	Transport Transport

	// Fresh overrides the freshness check elder election gates on. When
	// nil, a fresh liveness.Tracker is used and every member starts
	// unreachable until explicitly Connect-ed.
	Fresh section.FreshnessChecker
}

// Node is one running peer: its lifecycle state machine, its section's
// membership authority, its view of the rest of the network, and the
// subsystems a verified, locally-owned envelope is dispatched through.
type Node struct {
	mu sync.Mutex

	cfg       config.Parameters
	log       log.Logger
	metrics   *metrics.Node
	transport Transport
	payment   payment.Hooks

	lifecycle *routing.Node
	chain     *keychain.Chain
	sect      *section.Section
	netmap    *netmap.Map
	agg       *aggregate.Aggregator
	dkgs      *dkg.Driver
	blobs     *blob.Store
	scheduler *eventbus.Scheduler
	liveness  *liveness.Tracker

	selfIsAdult *utils.AtomicBool

	gatewayElders map[ids.NodeID]bool
	sectionRoles  map[[bls.PublicKeyLen]byte]SectionRole
	clientOwner   map[uint64]bool
	memberKeys    map[ids.NodeID]*bls.PublicKey
}

// NewNode assembles a Node from cfg, validating cfg.Params first.
func NewNode(cfg Config) (*Node, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("node: invalid parameters: %w", err)
	}
	if cfg.GenesisKey == nil {
		return nil, errors.New("node: genesis key is required")
	}

	l := cfg.Log
	if l == nil {
		l = nolog.NewNoOpLogger()
	}

	var reg prometheus.Registerer = cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "overlay"
	}
	m, err := metrics.NewNode(ns, reg)
	if err != nil {
		return nil, fmt.Errorf("node: register metrics: %w", err)
	}

	tracker := liveness.New()
	fresh := cfg.Fresh
	if fresh == nil {
		fresh = tracker.IsConnected
	}

	pay := cfg.Payment
	if pay == nil {
		pay = payment.NoOpHooks{}
	}

	transport := cfg.Transport
	if transport == nil {
		transport = noopTransport{}
	}

	prefix := address.NewPrefix(cfg.Address, 0)
	return &Node{
		cfg:           cfg.Params,
		log:           l,
		metrics:       m,
		transport:     transport,
		payment:       pay,
		lifecycle:     routing.NewNode(cfg.Identity, cfg.Address),
		chain:         keychain.NewChain(cfg.GenesisKey),
		sect:          section.New(prefix, cfg.Params.ElderCount, cfg.Params.SplitThreshold, cfg.GenesisKey, fresh),
		netmap:        netmap.New(),
		agg:           aggregate.New(cfg.Params.AggregatorTTL),
		dkgs:          dkg.New(cfg.Params.DKGTimeoutBudget),
		blobs:         blob.NewStore(cfg.Storage),
		scheduler:     eventbus.New(),
		liveness:      tracker,
		selfIsAdult:   utils.NewAtomicBool(false),
		gatewayElders: make(map[ids.NodeID]bool),
		sectionRoles:  make(map[[bls.PublicKeyLen]byte]SectionRole),
		clientOwner:   make(map[uint64]bool),
		memberKeys:    make(map[ids.NodeID]*bls.PublicKey),
	}, nil
}

// RegisterMemberKey records the signing key a member NodeID authenticates
// with, so NodeAuthority envelopes from it can be verified. A real
// deployment populates this from the section's Join/resource-proof flow,
// which carries the candidate's key alongside its proof; this package
// keeps that lookup separate from section.Member's own PublicKey field so
// a node can verify before a candidate is durably a member (e.g. during
// the join handshake itself).
func (n *Node) RegisterMemberKey(nodeID ids.NodeID, pk *bls.PublicKey) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.memberKeys[nodeID] = pk
}

// Section returns the node's own section authority.
func (n *Node) Section() *section.Section { return n.sect }

// Chain returns the node's section-key chain.
func (n *Node) Chain() *keychain.Chain { return n.chain }

// Lifecycle returns the node's lifecycle state machine.
func (n *Node) Lifecycle() *routing.Node { return n.lifecycle }

// Netmap returns the node's view of the rest of the network.
func (n *Node) Netmap() *netmap.Map { return n.netmap }

// Liveness returns the peer connectivity tracker backing the elder
// freshness check, unless the Node was built with an overriding Fresh
// checker.
func (n *Node) Liveness() *liveness.Tracker { return n.liveness }

// Scheduler returns the cooperative timer driving bounce resend and DKG
// timeout waits.
func (n *Node) Scheduler() *eventbus.Scheduler { return n.scheduler }

// Blobs returns the self-encrypting blob store.
func (n *Node) Blobs() *blob.Store { return n.blobs }

// DKG returns the key-generation driver elder-rotation events run against.
func (n *Node) DKG() *dkg.Driver { return n.dkgs }

// SetSelfIsAdult records whether this node currently holds the adult
// role, consulted by the duty classifier's RunAsAdult predicate.
func (n *Node) SetSelfIsAdult(isAdult bool) {
	n.selfIsAdult.Set(isAdult)
}

// RegisterGatewayElder marks nodeID as a single elder acting in the
// gateway duty, so envelopes it authors as NodeAuthority satisfy the
// classifier's SenderIsSingleGatewayElder predicate.
func (n *Node) RegisterGatewayElder(nodeID ids.NodeID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gatewayElders[nodeID] = true
}

// RegisterSectionRole tags a remote section's authority key with the duty
// its accumulated signatures represent.
func (n *Node) RegisterSectionRole(pk *bls.PublicKey, role SectionRole) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sectionRoles[keyTag(pk)] = role
}

// RegisterClientStream marks socket as a client stream this node owns,
// so envelopes destined for it satisfy DstIsClientHandledByUs.
func (n *Node) RegisterClientStream(socket uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clientOwner[socket] = true
}

func keyTag(pk *bls.PublicKey) [bls.PublicKeyLen]byte {
	var tag [bls.PublicKeyLen]byte
	if pk != nil {
		copy(tag[:], bls.PublicKeyToCompressedBytes(pk))
	}
	return tag
}

// HandleShare routes one BLS signature share into the aggregator, keyed
// by the hash of the envelope's variant payload and the elder key
// generation it was produced under. It returns the combined signature
// once threshold shares are in (spec §4.2, §4.6 Accumulate).
func (n *Node) HandleShare(msg wire.RoutingMsg, payloadHash [32]byte, threshold int) (*bls.Signature, bool, error) {
	if msg.Src.Kind != wire.AuthorityBlsShare {
		return nil, false, fmt.Errorf("node: HandleShare called on non-share envelope")
	}
	combined, ready, err := n.agg.AddShare(payloadHash, msg.Src.KeyIndex, threshold, msg.Src.NodeID, msg.Src.Share)
	if err != nil {
		return nil, false, err
	}
	if ready {
		n.metrics.AggregatorHits.Inc()
	} else {
		n.metrics.AggregatorMisses.Inc()
	}
	return combined, ready, nil
}

// HandleEnvelope decodes raw, verifies its authority, classifies its
// duty, and returns the classified Action with the decoded message; an
// envelope classified as Relay is forwarded before returning. It is the single entry point an overlay listener calls for
// every inbound byte slice (spec §4's end to end control flow). Bls
// share envelopes are routed to HandleShare by the caller instead — this
// method returns routing.ErrShareNotAMessage for those so callers can
// distinguish the two paths.
func (n *Node) HandleEnvelope(ctx context.Context, raw []byte, in ClassifyHints) (dispatch.Action, wire.RoutingMsg, error) {
	msg, err := wire.Decode(raw)
	if err != nil {
		return dispatch.UnknownMessage, wire.RoutingMsg{}, fmt.Errorf("node: decode envelope: %w", err)
	}

	env, err := n.toRoutingEnvelope(msg)
	if err != nil {
		return dispatch.UnknownMessage, msg, err
	}

	ok, verr := routing.Verify(env, n.chain)
	if verr != nil {
		if errors.Is(verr, routing.ErrUnknownSectionKey) {
			n.handleBounce(ctx, msg.SectionPK, raw)
		}
		return dispatch.UnknownMessage, msg, verr
	}
	if !ok {
		return dispatch.UnknownMessage, msg, fmt.Errorf("node: signature did not verify")
	}

	action := dispatch.Classify(n.classifyInput(msg, in))
	if action == dispatch.Relay {
		n.relay(ctx, msg, raw)
		return action, msg, nil
	}
	if action == dispatch.UnknownMessage {
		n.metrics.UnknownMessages.Inc()
	}
	return action, msg, nil
}

// relay implements the relay rule (spec §4.5): an envelope not addressed
// to us is forwarded toward its destination instead of being handled
// locally. Target selection picks the node(s) in the local routing view
// whose addresses are closest to the destination under XOR, excluding
// self; a multi-target destination (Section/Prefix) fans out to every
// elder in our section instead of a single next hop, since each
// recipient accumulates independently. Grounded on the original
// implementation's try_relay_message/closest_known_elders_to
// (states/approved_peer) using address.XorName.CloserTo for the
// documented tie-break.
func (n *Node) relay(ctx context.Context, msg wire.RoutingMsg, raw []byte) {
	targets := n.relayTargets(msg.Dst)
	n.metrics.RelayFanout.Observe(float64(len(targets)))
	for _, t := range targets {
		if err := n.transport.Send(ctx, t, raw); err != nil {
			n.log.Debug("relay send failed", "target", t, "error", err)
		}
	}
}

// relayTargets resolves the next hop(s) for dst out of our own section's
// known elders, excluding self. DstSection/DstPrefix fan out to every
// elder (each recipient accumulates independently); DstNode/DstEndUser
// pick the single closest elder under the XOR metric.
func (n *Node) relayTargets(dst wire.DstLocation) []ids.NodeID {
	n.mu.Lock()
	defer n.mu.Unlock()

	self, _ := n.lifecycle.Identity()
	elders := n.sect.Elders()

	switch dst.Kind {
	case wire.DstSection, wire.DstPrefix:
		targets := make([]ids.NodeID, 0, len(elders))
		for _, e := range elders {
			if e.NodeID == self {
				continue
			}
			targets = append(targets, e.NodeID)
		}
		return targets
	default:
		target, ok := n.relayDst(dst)
		if !ok {
			return nil
		}
		var (
			closest     *section.Member
			closestAddr address.XorName
		)
		for _, e := range elders {
			if e.NodeID == self {
				continue
			}
			if closest == nil || e.Address.CloserTo(closestAddr, target) {
				closest, closestAddr = e, e.Address
			}
		}
		if closest == nil {
			return nil
		}
		return []ids.NodeID{closest.NodeID}
	}
}

func (n *Node) relayDst(dst wire.DstLocation) (address.XorName, bool) {
	switch dst.Kind {
	case wire.DstNode, wire.DstEndUser:
		return dst.Address, true
	case wire.DstPrefix:
		return dst.Prefix.Name(), true
	default:
		return address.XorName{}, false
	}
}

// ClassifyHints carries the facts about an inbound envelope that only the
// caller (the party that received it off a specific connection) can know:
// what message kind the variant payload encodes. Whether the destination
// is a client stream this node owns, and the role-derived facts
// (SenderIsSingleGatewayElder, SenderIs*SectionAccumulated), are computed
// from the node's own registries instead.
type ClassifyHints struct {
	Kind MessageKind
}

// MessageKind mirrors dispatch.MessageKind at the wiring layer so callers
// outside this module need not import dispatch directly to build a
// ClassifyHints.
type MessageKind = dispatch.MessageKind

func (n *Node) classifyInput(msg wire.RoutingMsg, hints ClassifyHints) dispatch.Input {
	n.mu.Lock()
	defer n.mu.Unlock()

	dstIsUs := n.dstIsUsLocked(msg.Dst)
	dstIsClient := msg.Dst.Kind == wire.DstEndUser && n.clientOwner[msg.Dst.Socket]

	senderIsGateway := msg.Src.Kind == wire.AuthorityNode && n.gatewayElders[msg.Src.NodeID]
	role := n.sectionRoles[keyTag(msg.SectionPK)]

	return dispatch.Input{
		DstIsClientHandledByUs:                  dstIsClient,
		DstIsUs:                                  dstIsUs,
		SenderIsRemoteSectionNeedingAccumulation: msg.Aggregation == wire.AggregationAtDestination,
		SenderIsSingleGatewayElder:               senderIsGateway,
		SenderIsPaymentSectionAccumulated:        role == PaymentRole,
		SenderIsMetadataSectionAccumulated:       role == MetadataRole,
		Kind:                                     hints.Kind,
		SelfIsAdult:                              n.selfIsAdult.Get(),
	}
}

func (n *Node) dstIsUsLocked(dst wire.DstLocation) bool {
	switch dst.Kind {
	case wire.DstDirect:
		return true
	case wire.DstNode, wire.DstEndUser:
		return n.sect.Prefix().Matches(dst.Address)
	case wire.DstSection:
		return n.sect.Prefix().Matches(dst.Address)
	case wire.DstPrefix:
		return dst.Prefix.IsCompatible(n.sect.Prefix())
	default:
		return false
	}
}

func (n *Node) toRoutingEnvelope(msg wire.RoutingMsg) (routing.Envelope, error) {
	var id ids.ID
	binary.BigEndian.PutUint64(id[0:8], msg.IDHi)
	binary.BigEndian.PutUint64(id[8:16], msg.IDLo)

	env := routing.Envelope{ID: id, Payload: msg.Variant}
	switch msg.Dst.Kind {
	case wire.DstNode, wire.DstSection, wire.DstEndUser:
		env.Dst = msg.Dst.Address
	default:
		env.Dst = n.sect.Prefix().Name()
	}

	switch msg.Src.Kind {
	case wire.AuthorityNode:
		pk, ok := n.memberKey(msg.Src.NodeID)
		if !ok {
			return routing.Envelope{}, fmt.Errorf("node: no known public key for node %s", msg.Src.NodeID)
		}
		env.Src = routing.Authority{Kind: routing.NodeAuthority, NodeID: msg.Src.NodeID, NodePK: pk, NodeSig: msg.Src.NodeSig}
	case wire.AuthoritySection:
		env.Src = routing.Authority{Kind: routing.SectionAuthority, SectionPK: msg.SectionPK, SectionSig: msg.Src.SectionSig}
	case wire.AuthorityBlsShare:
		return routing.Envelope{}, routing.ErrShareNotAMessage
	default:
		return routing.Envelope{}, fmt.Errorf("node: unknown authority kind %d", msg.Src.Kind)
	}
	return env, nil
}

// memberKey resolves a node's signing key, first from the keys recorded by
// RegisterMemberKey and then from section membership — the
// source of truth for "which key speaks for this NodeID" that wire's
// NodeAuthority variant deliberately omits (spec §6: node authority
// carries only a NodeID and signature; the verifier looks up the key).
func (n *Node) memberKey(nodeID ids.NodeID) (*bls.PublicKey, bool) {
	n.mu.Lock()
	if pk, ok := n.memberKeys[nodeID]; ok {
		n.mu.Unlock()
		return pk, true
	}
	n.mu.Unlock()

	for _, m := range n.sect.Members() {
		if m.NodeID == nodeID && m.PublicKey != nil {
			return m.PublicKey, true
		}
	}
	return nil, false
}

// handleBounce runs on a verification failure against an unknown section
// key (spec §4.5). It counts the bounce, takes routing.HandleBounce's
// decision with the message's SectionPK as the sender's last known key,
// and unless that decision is Drop schedules resend after
// BounceResendDelay. No Bounce message is sent back to the sender.
func (n *Node) handleBounce(ctx context.Context, senderKey *bls.PublicKey, raw []byte) {
	n.metrics.Bounces.Inc()
	action, extension := routing.HandleBounce(n.lifecycle.State(), n.chain, routing.Bounce{
		SenderLastKnownKey: senderKey,
		OriginalBytes:      raw,
	})
	if action == routing.Drop {
		return
	}
	n.log.Debug("bounce scheduled", "action", action)
	n.scheduler.After(n.cfg.BounceResendDelay, func() {
		n.resend(ctx, action, extension, raw)
	})
}

// resend is the bounce protocol's delayed action. A real deployment wires
// this to re-emit through Transport once it has resolved the original
// destination peer; this package only owns the decision and the timer.
func (n *Node) resend(_ context.Context, action routing.BounceAction, _ *keychain.Chain, _ []byte) {
	n.log.Debug("bounce resend fired", "action", action)
}

// PaymentHooks returns the payment boundary the RunAsPaymentElder and
// RunAsTransfersElder duties charge through.
func (n *Node) PaymentHooks() payment.Hooks { return n.payment }

// Put self-encrypts and stores data, recording latency against the
// node's metrics (spec §4.7).
func (n *Node) Put(data []byte, vis blob.Visibility) (address.XorName, error) {
	start := time.Now()
	defer func() { n.metrics.BlobPutLatency.Observe(time.Since(start).Seconds()) }()
	return n.blobs.Put(data, vis)
}

// Get reconstructs [offset, offset+length) of the blob at head, recording
// latency against the node's metrics (spec §4.7).
func (n *Node) Get(head address.XorName, offset, length int) ([]byte, error) {
	start := time.Now()
	defer func() { n.metrics.BlobGetLatency.Observe(time.Since(start).Seconds()) }()
	return n.blobs.Get(head, offset, length)
}

// Close stops the node's scheduler, cancelling any pending bounce resends
// or DKG timeouts.
func (n *Node) Close() {
	n.scheduler.Stop()
}

type noopTransport struct{}

func (noopTransport) Send(context.Context, ids.NodeID, []byte) error       { return nil }
func (noopTransport) PushToClient(context.Context, uint64, []byte) error   { return nil }
