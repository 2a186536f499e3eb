// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"

	"github.com/luxfi/overlay/api/health"
)

// Health implements health.Checkable: a node is healthy once it has left
// Bootstrapping/Joining and is handling traffic as an Approved member.
func (n *Node) Health(_ context.Context) (interface{}, error) {
	state := n.lifecycle.State()
	return health.Health{
		Healthy: state.String() == "approved",
		Details: map[string]interface{}{
			"state":         state.String(),
			"prefix":        n.sect.Prefix().String(),
			"member_count":  len(n.sect.Members()),
			"pending_tasks": n.scheduler.Pending(),
		},
	}, nil
}

var _ health.Checkable = (*Node)(nil)
