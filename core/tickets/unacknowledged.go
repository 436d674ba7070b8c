// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package tickets

import (
	"errors"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/por"
)

const (
	// UnacknowledgedV0Length is the length of a serialized unacknowledged
	// ticket without the signer key.
	UnacknowledgedV0Length = TicketLength + por.HalfKeyLength

	// UnacknowledgedV1Length is the length of a serialized unacknowledged
	// ticket that carries the compressed signer key.
	UnacknowledgedV1Length = UnacknowledgedV0Length + chainkey.PublicKeyLength
)

var (
	// ErrTicketConsumed is returned when an unacknowledged ticket is
	// acknowledged a second time.
	ErrTicketConsumed = errors.New("tickets: ticket already acknowledged")

	// ErrChallengeMismatch is returned when an acknowledgement does not
	// solve the ticket challenge.
	ErrChallengeMismatch = errors.New("tickets: response does not solve the ticket challenge")
)

// Unacknowledged is a ticket a relay holds while it waits for the next hop's
// acknowledgement. It has a single owner and is consumed by Acknowledge.
type Unacknowledged struct {
	ticket   *Ticket
	ownKey   por.HalfKey
	signer   *btcec.PublicKey
	consumed atomic.Bool
}

// NewUnacknowledged wraps ticket with the relay's own HalfKey.
func NewUnacknowledged(ticket *Ticket, ownKey por.HalfKey, signer *btcec.PublicKey) *Unacknowledged {
	return &Unacknowledged{
		ticket: ticket,
		ownKey: ownKey,
		signer: signer,
	}
}

// ParseUnacknowledged deserializes either encoding version, selected by
// length. V0 recovers the signer from the ticket signature.
func ParseUnacknowledged(b []byte) (*Unacknowledged, error) {
	if len(b) != UnacknowledgedV0Length && len(b) != UnacknowledgedV1Length {
		return nil, ErrInvalidTicket
	}
	t, err := ParseTicket(b[:TicketLength])
	if err != nil {
		return nil, err
	}
	ownKey, err := por.NewHalfKey(b[TicketLength:UnacknowledgedV0Length])
	if err != nil {
		return nil, ErrInvalidTicket
	}

	var signer *btcec.PublicKey
	if len(b) == UnacknowledgedV1Length {
		signer, err = chainkey.ParsePublicKey(b[UnacknowledgedV0Length:])
	} else {
		signer, err = t.RecoverSigner()
	}
	if err != nil {
		return nil, ErrInvalidTicket
	}
	return NewUnacknowledged(t, ownKey, signer), nil
}

// Bytes serializes the ticket in the V1 encoding.
func (u *Unacknowledged) Bytes() []byte {
	b := make([]byte, 0, UnacknowledgedV1Length)
	b = append(b, u.ticket.Bytes()...)
	b = append(b, u.ownKey[:]...)
	return append(b, u.signer.SerializeCompressed()...)
}

// Ticket returns the wrapped ticket.
func (u *Unacknowledged) Ticket() *Ticket {
	return u.ticket
}

// Signer returns the ticket issuer.
func (u *Unacknowledged) Signer() *btcec.PublicKey {
	return u.signer
}

// VerifySignature checks that the ticket was signed by the stored signer.
func (u *Unacknowledged) VerifySignature() error {
	return u.ticket.Verify(chainkey.AddressFromPublicKey(u.signer))
}

// GetResponse combines the own HalfKey with the acknowledgement.
func (u *Unacknowledged) GetResponse(ack *por.HalfKey) (por.Response, error) {
	return por.ResponseFromHalfKeys(&u.ownKey, ack)
}

// VerifyChallenge returns true iff ack solves the ticket challenge.
func (u *Unacknowledged) VerifyChallenge(ack *por.HalfKey) bool {
	r, err := u.GetResponse(ack)
	if err != nil {
		return false
	}
	c := r.ToChallenge()
	e := c.ToEthereumChallenge()
	challenge := u.ticket.Challenge()
	return e.Equal(&challenge)
}

// Acknowledge consumes the ticket and returns it as redeemable if ack solves
// its challenge. Only the first call does any work.
func (u *Unacknowledged) Acknowledge(ack *por.HalfKey) (*Acknowledged, error) {
	if !u.consumed.CompareAndSwap(false, true) {
		return nil, ErrTicketConsumed
	}
	defer u.ownKey.Reset()

	if !u.VerifyChallenge(ack) {
		return nil, ErrChallengeMismatch
	}
	r, err := u.GetResponse(ack)
	if err != nil {
		return nil, err
	}
	return NewAcknowledged(u.ticket, r, chainkey.AddressFromPublicKey(u.signer)), nil
}
