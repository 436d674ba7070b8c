// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package tickets

// State is the Proof-of-Relay state of a packet at one hop.
type State uint8

const (
	// AwaitingForward is the state before the packet was relayed.
	AwaitingForward State = iota

	// Forwarded is the state while the relay holds an unacknowledged ticket.
	Forwarded

	// Redeemable is the state once the acknowledgement solved the challenge.
	Redeemable

	// Invalid is the state of a ticket whose acknowledgement did not solve
	// the challenge. It is discarded.
	Invalid
)

func (s State) String() string {
	switch s {
	case AwaitingForward:
		return "AwaitingForward"
	case Forwarded:
		return "Forwarded"
	case Redeemable:
		return "Redeemable"
	case Invalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}
