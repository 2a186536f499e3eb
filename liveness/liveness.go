// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package liveness tracks which peers are currently connected, backing
// the freshness check elder election gates on (spec §4.3 invariant:
// "elder set is the N oldest joined members that pass a freshness
// check"). Grounded on the teacher's uptime.Manager
// (Connect/Disconnect/IsConnected) shape, collapsed to the single
// interface our section package actually needs and stripped of the
// teacher's subnet-scoped uptime-percentage bookkeeping (spec §1: no
// subnet/reward accounting here, just connectivity).
package liveness

import (
	"sync"

	"github.com/luxfi/ids"
)

// Tracker records peer connect/disconnect events and answers whether a
// peer is currently reachable. Safe for concurrent use. It satisfies
// section.FreshnessChecker via its IsConnected method.
type Tracker struct {
	mu        sync.RWMutex
	connected map[ids.NodeID]bool
}

// New returns an empty Tracker; every peer starts disconnected.
func New() *Tracker {
	return &Tracker{connected: make(map[ids.NodeID]bool)}
}

// Connect marks nodeID as reachable.
func (t *Tracker) Connect(nodeID ids.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected[nodeID] = true
}

// Disconnect marks nodeID as unreachable. A disconnected elder candidate
// fails the freshness check and is skipped in the next election (spec
// §4.3).
func (t *Tracker) Disconnect(nodeID ids.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.connected, nodeID)
}

// IsConnected reports whether nodeID is currently marked reachable. This
// method's signature (func(ids.NodeID) bool) is exactly
// section.FreshnessChecker.
func (t *Tracker) IsConnected(nodeID ids.NodeID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected[nodeID]
}

// Count returns the number of currently connected peers.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.connected)
}
