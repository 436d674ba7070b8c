// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package packet implements the wire packet exchanged between nodes: the
// onion packet followed by the Proof-of-Relay material for the receiver.
package packet

import (
	"errors"
	"fmt"

	"github.com/hoprnet/hoprmix/core/por"
	"github.com/hoprnet/hoprmix/core/sphinx/geo"
	"github.com/hoprnet/hoprmix/core/tickets"
)

// ErrInvalidPacket is returned for wire packets that do not parse.
var ErrInvalidPacket = errors.New("packet: invalid packet")

// Packet is a wire packet.
type Packet struct {
	// Sphinx is the onion packet, PacketLength bytes.
	Sphinx []byte

	// AckChallengeHint is the challenge the receiver's acknowledgement
	// key will be checked against.
	AckChallengeHint por.HalfKeyChallenge

	// AckChallenge is the sender's signature over AckChallengeHint.
	AckChallenge *por.AcknowledgementChallenge

	// Ticket pays the receiver for relaying.
	Ticket *tickets.Ticket
}

// Length returns the wire length of packets of geometry g.
func Length(g *geo.Geometry) int {
	return g.PacketLength + por.HalfKeyChallengeLength + por.AcknowledgementChallengeLength + tickets.TicketLength
}

// Bytes serializes the packet.
func (p *Packet) Bytes() []byte {
	b := make([]byte, 0, len(p.Sphinx)+por.HalfKeyChallengeLength+por.AcknowledgementChallengeLength+tickets.TicketLength)
	b = append(b, p.Sphinx...)
	b = append(b, p.AckChallengeHint[:]...)
	b = append(b, p.AckChallenge.Bytes()...)
	return append(b, p.Ticket.Bytes()...)
}

// Parse deserializes a packet of geometry g. The returned packet does not
// alias b.
func Parse(g *geo.Geometry, b []byte) (*Packet, error) {
	if len(b) != Length(g) {
		return nil, fmt.Errorf("%w: length %d, expected %d", ErrInvalidPacket, len(b), Length(g))
	}
	p := &Packet{Sphinx: append([]byte{}, b[:g.PacketLength]...)}
	b = b[g.PacketLength:]

	var err error
	if p.AckChallengeHint, err = por.NewHalfKeyChallenge(b[:por.HalfKeyChallengeLength]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}
	b = b[por.HalfKeyChallengeLength:]
	if p.AckChallenge, err = por.ParseAcknowledgementChallenge(b[:por.AcknowledgementChallengeLength]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}
	b = b[por.AcknowledgementChallengeLength:]
	if p.Ticket, err = tickets.ParseTicket(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}
	return p, nil
}
