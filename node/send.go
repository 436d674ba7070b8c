// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package node

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/katzenpost/hpqc/rand"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/crypto/keyshares"
	"github.com/hoprnet/hoprmix/core/packet"
	"github.com/hoprnet/hoprmix/core/por"
	"github.com/hoprnet/hoprmix/core/tickets"
	"github.com/hoprnet/hoprmix/node/internal/instrument"
	"github.com/hoprnet/hoprmix/node/internal/ticketdb"
)

var errEmptyPath = errors.New("node: empty path")

// SendMessage creates a packet carrying msg along path, which lists the
// relays followed by the destination. It returns the first hop and the wire
// packet to hand to it.
func (n *Node) SendMessage(msg []byte, path []*btcec.PublicKey) (*btcec.PublicKey, []byte, error) {
	if err := n.acquire(); err != nil {
		return nil, nil, err
	}
	defer n.release()

	if len(path) == 0 {
		return nil, nil, errEmptyPath
	}

	shares, err := keyshares.GenerateKeyShares(rand.Reader, path)
	if err != nil {
		return nil, nil, err
	}
	defer shares.Reset()

	porStrings, err := por.NewProofOfRelayStrings(shares.Secrets)
	if err != nil {
		return nil, nil, err
	}
	relayerData := make([][]byte, 0, len(porStrings))
	for _, s := range porStrings {
		relayerData = append(relayerData, s.Bytes())
	}
	values, err := por.NewProofOfRelayValues(shares.Secrets)
	if err != nil {
		return nil, nil, err
	}
	defer values.OwnKey.Reset()

	sphinxPkt, err := n.sphinx.NewPacket(rand.Reader, shares, path, relayerData, nil, msg)
	if err != nil {
		return nil, nil, err
	}

	// The first hop acknowledges with its own ack key.
	ackKey := por.AckHalfKey(&shares.Secrets[0])
	defer ackKey.Reset()
	ackChallenge := ackKey.ToChallenge()

	ticket, err := n.issueTicket(chainkey.AddressFromPublicKey(path[0]), values.TicketChallenge, len(path)-1)
	if err != nil {
		return nil, nil, err
	}
	pkt := &packet.Packet{
		Sphinx:           sphinxPkt,
		AckChallengeHint: values.AckChallenge,
		AckChallenge:     por.NewAcknowledgementChallenge(ackChallenge, n.keypair),
		Ticket:           ticket,
	}

	if err = n.db.PutPending(ackChallenge, &ticketdb.Pending{Sender: true, Created: time.Now()}); err != nil {
		return nil, nil, err
	}
	instrument.PacketSent()
	n.log.Debugf("Sending packet over %d hops, ticket: %v", len(path), ticket)
	return path[0], pkt.Bytes(), nil
}

// issueTicket signs the ticket for the next hop, paying for the remaining
// relays. The destination, with no relay left, gets a zero hop ticket.
func (n *Node) issueTicket(destination chainkey.Address, challenge por.EthereumChallenge, remainingRelays int) (*tickets.Ticket, error) {
	if remainingRelays <= 0 {
		return tickets.NewZeroHopTicket(destination, n.keypair), nil
	}

	epoch, err := n.channels.ChannelEpoch(n.address, destination)
	if err != nil {
		return nil, fmt.Errorf("node: channel to %v: %w", destination, err)
	}
	index, err := n.channels.NextTicketIndex(n.address, destination)
	if err != nil {
		return nil, fmt.Errorf("node: channel to %v: %w", destination, err)
	}
	amount := new(big.Int).Mul(n.price, n.inverseWinProb)
	amount.Mul(amount, big.NewInt(int64(remainingRelays)))
	return tickets.NewTicket(destination, challenge, amount, n.winProb, index, epoch, n.keypair)
}
