// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the protocol constants a node is parameterized by:
// elder committee size, split balance, chunk size limit, aggregator TTL,
// bounce resend delay, DKG timeout budget, and resource-proof difficulty.
// Shape follows the teacher's Parameters/DefaultParams/MainnetParams
// preset idiom.
package config

import (
	"time"

	"github.com/luxfi/overlay/utils/constants"
)

// Parameters is the full set of protocol constants one node is configured
// with. The zero value is not valid; use DefaultParams or a preset
// constructor and then Validate.
type Parameters struct {
	// NetworkID identifies which network this node is joining
	// (constants.MainnetID/TestnetID/LocalID).
	NetworkID uint32

	// ElderCount is the fixed elder committee size per section (spec §4.3
	// invariant: "elder count = protocol constant").
	ElderCount int
	// SplitThreshold is the membership count a section must exceed,
	// balanced across both extending bits, before Split succeeds (spec
	// §4.3).
	SplitThreshold int

	// ChunkSizeLimit is the maximum serialized size of one chunk in bytes
	// (spec §3, "≈1 MiB").
	ChunkSizeLimit int

	// AggregatorTTL bounds how long an incomplete signature-aggregation
	// session is retained before it is evicted as stale (spec §4.2).
	AggregatorTTL time.Duration

	// BounceResendDelay is the fixed delay before resending a bounced
	// message (spec §4.5).
	BounceResendDelay time.Duration

	// DKGTimeoutBudget bounds how long a DKG session may run after Start
	// before it counts as Failed. The dkg driver checks this deadline when
	// the session is next queried or updated; no DKG-complete event is
	// subscribed to.
	DKGTimeoutBudget time.Duration

	// JoinRetryLimit bounds how many times a Joining node retargets
	// before giving up and rebootstrapping.
	JoinRetryLimit int
	// ReadRetryLimit bounds how many times a client retries a
	// DataNotFound read before surfacing the error (spec §8 property 8,
	// scenario S3: "within 10 retries").
	ReadRetryLimit int

	// ResourceProofDifficulty is an opaque difficulty parameter passed to
	// the resource-proof validator during Join (spec §6 JoinRequest).
	ResourceProofDifficulty uint32
}

// DefaultParams returns Mainnet().
func DefaultParams() Parameters {
	return Mainnet()
}

// Mainnet returns the production parameter set.
func Mainnet() Parameters {
	return Parameters{
		NetworkID:               constants.MainnetID,
		ElderCount:              7,
		SplitThreshold:          14,
		ChunkSizeLimit:          1 << 20,
		AggregatorTTL:           10 * time.Minute,
		BounceResendDelay:       time.Second,
		DKGTimeoutBudget:        2 * time.Minute,
		JoinRetryLimit:          3,
		ReadRetryLimit:          10,
		ResourceProofDifficulty: 1 << 14,
	}
}

// Testnet returns a parameter set with a smaller elder committee, suitable
// for a long-running but lower-stakes network.
func Testnet() Parameters {
	p := Mainnet()
	p.NetworkID = constants.TestnetID
	p.ElderCount = 5
	p.SplitThreshold = 10
	p.ResourceProofDifficulty = 1 << 10
	return p
}

// Local returns a parameter set tuned for fast local development: small
// committees, short timers, trivial resource proofs.
func Local() Parameters {
	return Parameters{
		NetworkID:               constants.LocalID,
		ElderCount:              3,
		SplitThreshold:          6,
		ChunkSizeLimit:          1 << 20,
		AggregatorTTL:           time.Minute,
		BounceResendDelay:       50 * time.Millisecond,
		DKGTimeoutBudget:        5 * time.Second,
		JoinRetryLimit:          3,
		ReadRetryLimit:          3,
		ResourceProofDifficulty: 1,
	}
}
