// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package constants holds network identifiers shared by config and the
// join handshake (the network ID a candidate's JoinRequest is stamped
// with must match the target section's).
package constants

// Network IDs
const (
	MainnetID uint32 = 1
	TestnetID uint32 = 1919
	LocalID   uint32 = 12345
)

// NetworkIDToNetworkName maps network IDs to network names
var NetworkIDToNetworkName = map[uint32]string{
	MainnetID: "mainnet",
	TestnetID: "testnet",
	LocalID:   "local",
}

// NetworkName returns the name of the network for the given ID
func NetworkName(networkID uint32) string {
	if name, ok := NetworkIDToNetworkName[networkID]; ok {
		return name
	}
	return "unknown"
}
