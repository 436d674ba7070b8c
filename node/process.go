// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package node

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/packet"
	"github.com/hoprnet/hoprmix/core/por"
	"github.com/hoprnet/hoprmix/core/sphinx"
	"github.com/hoprnet/hoprmix/core/tickets"
	"github.com/hoprnet/hoprmix/node/internal/instrument"
	"github.com/hoprnet/hoprmix/node/internal/ticketdb"
)

// Result is the outcome of processing an accepted packet.
type Result struct {
	// Delivered is the message, set when this node is the destination.
	Delivered []byte

	// LastHopData is the data the sender left for the destination.
	LastHopData []byte

	// NextHop is the node Packet must be sent to, set when relaying.
	NextHop *btcec.PublicKey

	// Packet is the wire packet for NextHop.
	Packet []byte

	// PreviousHop is the node Acknowledgement must be sent to.
	PreviousHop *btcec.PublicKey

	// Acknowledgement is the serialized acknowledgement for PreviousHop.
	Acknowledgement []byte
}

// IsDelivered returns true iff the packet was addressed to this node.
func (r *Result) IsDelivered() bool {
	return r.NextHop == nil
}

func (n *Node) drop(reason string, err error) error {
	instrument.PacketDropped(reason)
	n.log.Debugf("Dropping packet: %v", err)
	return err
}

// ProcessPacket processes a wire packet received from previousHop.
func (n *Node) ProcessPacket(b []byte, previousHop *btcec.PublicKey) (*Result, error) {
	if err := n.acquire(); err != nil {
		return nil, err
	}
	defer n.release()

	instrument.PacketReceived()

	pkt, err := packet.Parse(n.sphinx.Geometry(), b)
	if err != nil {
		return nil, n.drop("malformed", err)
	}

	startAt := time.Now()
	hop, tag, err := n.sphinx.Unwrap(n.keypair.PrivateKey(), pkt.Sphinx)
	instrument.UnwrapDuration(time.Since(startAt))
	if err != nil {
		return nil, n.drop("unwrap", err)
	}
	defer hop.Reset()

	prevAddr := chainkey.AddressFromPublicKey(previousHop)
	if err = pkt.Ticket.Verify(prevAddr); err != nil {
		return nil, n.drop("ticket", fmt.Errorf("%w: %v", ErrInvalidTicket, err))
	}
	if pkt.Ticket.Counterparty() != n.address {
		return nil, n.drop("ticket", fmt.Errorf("%w: issued to %v", ErrInvalidTicket, pkt.Ticket.Counterparty()))
	}
	if !hop.IsFinal {
		if err = n.validateRelayTicket(pkt, hop, prevAddr); err != nil {
			return nil, err
		}
	}

	ackKey := por.AckHalfKey(&hop.Secret)
	defer ackKey.Reset()
	if !pkt.AckChallenge.Validate(ackKey.ToChallenge(), previousHop) {
		return nil, n.drop("challenge", ErrInvalidChallenge)
	}

	// Only a packet that passed every check consumes its replay tag, so a
	// copy of the header with a bogus ticket can not shadow the real one.
	if n.replay.IsReplay(tag) {
		instrument.PacketReplayed()
		return nil, n.drop("replay", ErrReplay)
	}

	res := &Result{
		PreviousHop:     previousHop,
		Acknowledgement: por.NewAcknowledgement(ackKey, n.keypair).Bytes(),
	}
	if hop.IsFinal {
		res.Delivered = hop.Payload
		res.LastHopData = hop.LastHopData
		instrument.PacketDelivered()
		n.log.Debugf("Delivered packet of %d bytes.", len(hop.Payload))
		return res, nil
	}

	if err = n.relay(pkt, hop, previousHop, res); err != nil {
		return nil, err
	}
	instrument.PacketForwarded()
	return res, nil
}

// validateRelayTicket checks the ticket of a packet this node is asked to
// forward: the channel epoch, the Proof-of-Relay commitment, the winning
// probability and the amount.
func (n *Node) validateRelayTicket(pkt *packet.Packet, hop *sphinx.Hop, prevAddr chainkey.Address) error {
	epoch, err := n.channels.ChannelEpoch(prevAddr, n.address)
	if err != nil {
		return n.drop("ticket", fmt.Errorf("%w: %v", ErrInvalidTicket, err))
	}
	if epoch.Cmp(pkt.Ticket.ChannelEpoch()) != 0 {
		return n.drop("ticket", fmt.Errorf("%w: channel epoch %v, expected %v", ErrInvalidTicket, pkt.Ticket.ChannelEpoch(), epoch))
	}

	challenge := pkt.Ticket.Challenge()
	if !por.PreVerify(&hop.Secret, &pkt.AckChallengeHint, &challenge) {
		return n.drop("por", fmt.Errorf("%w: challenge does not commit to the hop keys", ErrInvalidTicket))
	}
	if pkt.Ticket.WinProb().Cmp(n.winProb) < 0 {
		return n.drop("ticket", fmt.Errorf("%w: winning probability below %v", ErrInvalidTicket, n.cfg.Tickets.WinProb))
	}
	if pos := pkt.Ticket.GetPathPosition(n.price, n.inverseWinProb); n.price.Sign() > 0 && pos < hop.PathPosition {
		return n.drop("ticket", fmt.Errorf("%w: pays for %d relays, %d remain", ErrInvalidTicket, pos, hop.PathPosition))
	}
	return nil
}

// relay stores the ticket of a packet this node forwards until the next hop
// acknowledges, and prepares the packet for the next hop.
func (n *Node) relay(pkt *packet.Packet, hop *sphinx.Hop, previousHop *btcec.PublicKey, res *Result) error {
	porString, err := por.ParseProofOfRelayString(hop.RelayerData)
	if err != nil {
		return n.drop("por", err)
	}
	nextHop, err := chainkey.ParsePublicKey(hop.NextNode[:])
	if err != nil {
		return n.drop("unwrap", err)
	}

	nextAddr := chainkey.AddressFromPublicKey(nextHop)
	nextTicket, err := n.issueTicket(nextAddr, porString.NextTicketChallenge, int(hop.PathPosition)-1)
	if err != nil {
		return n.drop("channel", err)
	}

	ownKey := por.OwnHalfKey(&hop.Secret)
	defer ownKey.Reset()
	pending := &ticketdb.Pending{
		Ticket:  tickets.NewUnacknowledged(pkt.Ticket, ownKey, previousHop),
		Created: time.Now(),
	}
	if err = n.db.PutPending(pkt.AckChallengeHint, pending); err != nil {
		return n.drop("store", err)
	}

	// The next hop acknowledges with the key behind the challenge this node
	// was handed.
	out := &packet.Packet{
		Sphinx:           pkt.Sphinx,
		AckChallengeHint: porString.NextAckChallenge,
		AckChallenge:     por.NewAcknowledgementChallenge(pkt.AckChallengeHint, n.keypair),
		Ticket:           nextTicket,
	}
	res.NextHop = nextHop
	res.Packet = out.Bytes()
	n.log.Debugf("Relaying packet to %v, %d hops remain.", nextAddr, hop.PathPosition)
	return nil
}
