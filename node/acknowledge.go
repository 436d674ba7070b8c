// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package node

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/hoprnet/hoprmix/core/por"
	"github.com/hoprnet/hoprmix/core/tickets"
	"github.com/hoprnet/hoprmix/node/internal/instrument"
	"github.com/hoprnet/hoprmix/node/internal/ticketdb"
)

// ProcessAcknowledgement processes an acknowledgement received from the
// node a packet was relayed to. It returns the ticket the acknowledgement
// made redeemable, or nil if it acknowledged a packet this node originated.
// A ticket whose challenge the acknowledgement does not solve is dropped.
func (n *Node) ProcessAcknowledgement(b []byte, from *btcec.PublicKey) (*tickets.Acknowledged, error) {
	if err := n.acquire(); err != nil {
		return nil, err
	}
	defer n.release()

	ack, err := por.ParseAcknowledgement(b)
	if err != nil {
		instrument.Acknowledgement("malformed")
		return nil, err
	}
	if !ack.Validate(from) {
		instrument.Acknowledgement("malformed")
		return nil, por.ErrInvalidAcknowledgement
	}
	challenge, err := ack.AckChallenge()
	if err != nil {
		return nil, err
	}

	pending, err := n.db.TakePending(challenge)
	switch {
	case errors.Is(err, ticketdb.ErrNotFound):
		instrument.Acknowledgement("unknown")
		return nil, ErrUnknownAcknowledgement
	case err != nil:
		return nil, err
	}
	if pending.Sender {
		instrument.Acknowledgement("sender")
		n.log.Debugf("Packet acknowledged by first hop.")
		return nil, nil
	}

	key, err := ack.AckKeyShare()
	if err != nil {
		return nil, err
	}
	defer key.Reset()
	acked, err := pending.Ticket.Acknowledge(&key)
	if err != nil {
		instrument.Acknowledgement("invalid")
		n.log.Debugf("Dropping ticket %v: %v", pending.Ticket.Ticket(), err)
		return nil, fmt.Errorf("node: %s ticket: %w", tickets.Invalid, err)
	}
	if err = n.db.PutAcknowledged(acked); err != nil {
		return nil, err
	}
	instrument.Acknowledgement("redeemable")
	n.log.Debugf("Ticket %v is redeemable.", acked.Ticket)
	return acked, nil
}
