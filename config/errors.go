// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "errors"

var (
	// ErrElderCountInvalid is returned by Validate when ElderCount is not
	// a positive odd-friendly committee size.
	ErrElderCountInvalid = errors.New("config: elder count must be >= 1")
	// ErrSplitThresholdInvalid is returned by Validate when
	// SplitThreshold is less than twice ElderCount, too small for both
	// halves of a split to hold a full elder committee.
	ErrSplitThresholdInvalid = errors.New("config: split threshold must be >= 2x elder count")
	// ErrChunkSizeInvalid is returned by Validate when ChunkSizeLimit is
	// not a positive number of bytes.
	ErrChunkSizeInvalid = errors.New("config: chunk size limit must be > 0")
	// ErrAggregatorTTLInvalid is returned by Validate when AggregatorTTL
	// is not positive.
	ErrAggregatorTTLInvalid = errors.New("config: aggregator TTL must be > 0")
	// ErrBounceDelayInvalid is returned by Validate when
	// BounceResendDelay is negative.
	ErrBounceDelayInvalid = errors.New("config: bounce resend delay must be >= 0")
	// ErrDKGTimeoutInvalid is returned by Validate when DKGTimeoutBudget
	// is not positive.
	ErrDKGTimeoutInvalid = errors.New("config: DKG timeout budget must be > 0")
)
