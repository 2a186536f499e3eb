// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "github.com/luxfi/overlay/utils/math"

// Validate reports whether p is internally consistent. It is cheap and
// side-effect free; callers run it once at startup after loading
// parameters from flags/env/file.
func (p Parameters) Validate() error {
	if p.ElderCount < 1 {
		return ErrElderCountInvalid
	}
	// A section must be able to hold a balanced split: each half needs at
	// least the elder committee it elects from.
	if doubled, err := math.Mul64(uint64(p.ElderCount), 2); err != nil || p.SplitThreshold < int(doubled) {
		return ErrSplitThresholdInvalid
	}
	if p.ChunkSizeLimit <= 0 {
		return ErrChunkSizeInvalid
	}
	if p.AggregatorTTL <= 0 {
		return ErrAggregatorTTLInvalid
	}
	if p.BounceResendDelay < 0 {
		return ErrBounceDelayInvalid
	}
	if p.DKGTimeoutBudget <= 0 {
		return ErrDKGTimeoutInvalid
	}
	return nil
}
