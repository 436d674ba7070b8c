// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package tickets

import (
	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/por"
)

// AcknowledgedLength is the length of a serialized acknowledged ticket.
const AcknowledgedLength = TicketLength + por.ResponseLength + chainkey.AddressLength

// Acknowledged is a ticket together with the response that solves its
// challenge.
type Acknowledged struct {
	Ticket   *Ticket
	Response por.Response
	Signer   chainkey.Address
}

// NewAcknowledged returns an acknowledged ticket.
func NewAcknowledged(ticket *Ticket, response por.Response, signer chainkey.Address) *Acknowledged {
	return &Acknowledged{
		Ticket:   ticket,
		Response: response,
		Signer:   signer,
	}
}

// ParseAcknowledged deserializes an acknowledged ticket.
func ParseAcknowledged(b []byte) (*Acknowledged, error) {
	if len(b) != AcknowledgedLength {
		return nil, ErrInvalidTicket
	}
	t, err := ParseTicket(b[:TicketLength])
	if err != nil {
		return nil, err
	}
	b = b[TicketLength:]
	r, err := por.NewResponse(b[:por.ResponseLength])
	if err != nil {
		return nil, ErrInvalidTicket
	}
	signer, err := chainkey.NewAddress(b[por.ResponseLength:])
	if err != nil {
		return nil, ErrInvalidTicket
	}
	return NewAcknowledged(t, r, signer), nil
}

// Bytes serializes the acknowledged ticket.
func (a *Acknowledged) Bytes() []byte {
	b := make([]byte, 0, AcknowledgedLength)
	b = append(b, a.Ticket.Bytes()...)
	b = append(b, a.Response[:]...)
	return append(b, a.Signer[:]...)
}

// Verify checks the issuer signature and that the response solves the
// ticket challenge.
func (a *Acknowledged) Verify(issuer chainkey.Address) error {
	if err := a.Ticket.Verify(issuer); err != nil {
		return err
	}
	c := a.Response.ToChallenge()
	e := c.ToEthereumChallenge()
	challenge := a.Ticket.Challenge()
	if !e.Equal(&challenge) {
		return ErrChallengeMismatch
	}
	return nil
}

// IsWinning returns true iff the ticket wins for preimage.
func (a *Acknowledged) IsWinning(preimage [chainkey.HashLength]byte) bool {
	return a.Ticket.IsWinning(preimage, &a.Response)
}
