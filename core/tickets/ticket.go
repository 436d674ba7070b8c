// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package tickets implements the signed probabilistic payment tickets relays
// earn for forwarding packets.
package tickets

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/por"
)

const (
	// U256Length is the length of a serialized 256 bit integer.
	U256Length = 32

	// UnsignedLength is the length of a ticket without its signature.
	UnsignedLength = chainkey.AddressLength + por.EthereumChallengeLength + 4*U256Length

	// TicketLength is the length of a serialized ticket.
	TicketLength = UnsignedLength + chainkey.SignatureLength
)

var (
	// ErrInvalidTicket is returned for malformed tickets.
	ErrInvalidTicket = errors.New("tickets: invalid ticket")

	// ErrInvalidSigner is returned when the ticket signature was not
	// produced by the expected key.
	ErrInvalidSigner = errors.New("tickets: signature does not match signer")

	errOutOfRange = errors.New("tickets: integer does not fit 256 bits")

	maxU256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// Ticket is a signed, immutable payment voucher.
type Ticket struct {
	counterparty chainkey.Address
	challenge    por.EthereumChallenge
	amount       *big.Int
	winProb      *big.Int
	index        *big.Int
	channelEpoch *big.Int
	signature    chainkey.Signature
}

// NewTicket creates a ticket for counterparty and signs it with signer.
func NewTicket(counterparty chainkey.Address, challenge por.EthereumChallenge, amount, winProb, index, channelEpoch *big.Int, signer *chainkey.Keypair) (*Ticket, error) {
	for _, v := range []*big.Int{amount, winProb, index, channelEpoch} {
		if !fitsU256(v) {
			return nil, errOutOfRange
		}
	}
	t := &Ticket{
		counterparty: counterparty,
		challenge:    challenge,
		amount:       new(big.Int).Set(amount),
		winProb:      new(big.Int).Set(winProb),
		index:        new(big.Int).Set(index),
		channelEpoch: new(big.Int).Set(channelEpoch),
	}
	t.signature = signer.Sign(t.Hash())
	return t, nil
}

// NewZeroHopTicket creates the zero value ticket handed to the destination
// of a packet.
func NewZeroHopTicket(destination chainkey.Address, signer *chainkey.Keypair) *Ticket {
	zero := new(big.Int)
	t, err := NewTicket(destination, por.EthereumChallenge{}, zero, zero, zero, zero, signer)
	if err != nil {
		panic("tickets: BUG: " + err.Error())
	}
	return t
}

// ParseTicket deserializes a ticket.
func ParseTicket(b []byte) (*Ticket, error) {
	if len(b) != TicketLength {
		return nil, ErrInvalidTicket
	}
	t := new(Ticket)
	copy(t.counterparty[:], b[:chainkey.AddressLength])
	b = b[chainkey.AddressLength:]
	copy(t.challenge[:], b[:por.EthereumChallengeLength])
	b = b[por.EthereumChallengeLength:]
	t.amount, b = readU256(b)
	t.winProb, b = readU256(b)
	t.index, b = readU256(b)
	t.channelEpoch, b = readU256(b)

	var err error
	if t.signature, err = chainkey.NewSignature(b); err != nil {
		return nil, ErrInvalidTicket
	}
	return t, nil
}

// Counterparty returns the address the ticket pays.
func (t *Ticket) Counterparty() chainkey.Address {
	return t.counterparty
}

// Challenge returns the Proof-of-Relay challenge the ticket commits to.
func (t *Ticket) Challenge() por.EthereumChallenge {
	return t.challenge
}

// Amount returns the value of the ticket.
func (t *Ticket) Amount() *big.Int {
	return new(big.Int).Set(t.amount)
}

// WinProb returns the winning probability, scaled to 2^256-1.
func (t *Ticket) WinProb() *big.Int {
	return new(big.Int).Set(t.winProb)
}

// Index returns the ticket index within its channel epoch.
func (t *Ticket) Index() *big.Int {
	return new(big.Int).Set(t.index)
}

// ChannelEpoch returns the channel epoch of the ticket.
func (t *Ticket) ChannelEpoch() *big.Int {
	return new(big.Int).Set(t.channelEpoch)
}

// Signature returns the issuer signature.
func (t *Ticket) Signature() chainkey.Signature {
	return t.signature
}

// UnsignedBytes serializes the ticket without its signature.
func (t *Ticket) UnsignedBytes() []byte {
	b := make([]byte, 0, TicketLength)
	b = append(b, t.counterparty[:]...)
	b = append(b, t.challenge[:]...)
	b = appendU256(b, t.amount)
	b = appendU256(b, t.winProb)
	b = appendU256(b, t.index)
	return appendU256(b, t.channelEpoch)
}

// Bytes serializes the ticket.
func (t *Ticket) Bytes() []byte {
	return append(t.UnsignedBytes(), t.signature[:]...)
}

// Hash returns the hash the issuer signs.
func (t *Ticket) Hash() [chainkey.HashLength]byte {
	h := chainkey.Keccak256(t.UnsignedBytes())
	return chainkey.EthereumSignedHash(h[:])
}

// RecoverSigner returns the public key of the issuer.
func (t *Ticket) RecoverSigner() (*btcec.PublicKey, error) {
	return t.signature.RecoverPublicKey(t.Hash())
}

// Verify checks that the ticket was issued by the key behind address.
func (t *Ticket) Verify(address chainkey.Address) error {
	if !t.signature.VerifyAddress(t.Hash(), address) {
		return ErrInvalidSigner
	}
	return nil
}

// GetLuck returns the value compared against the winning probability.
func (t *Ticket) GetLuck(preimage [chainkey.HashLength]byte, response *por.Response) *big.Int {
	h := t.Hash()
	luck := chainkey.Keccak256(h[:], preimage[:], response[:])
	return new(big.Int).SetBytes(luck[:])
}

// IsWinning returns true iff the ticket wins for the preimage and response.
func (t *Ticket) IsWinning(preimage [chainkey.HashLength]byte, response *por.Response) bool {
	return t.GetLuck(preimage, response).Cmp(t.winProb) <= 0
}

// GetPathPosition returns the number of hops the ticket amount pays for.
func (t *Ticket) GetPathPosition(pricePerPacket, inverseWinProb *big.Int) uint8 {
	base := new(big.Int).Mul(pricePerPacket, inverseWinProb)
	if base.Sign() <= 0 {
		return 0
	}
	pos := new(big.Int).Div(t.amount, base)
	if !pos.IsUint64() || pos.Uint64() > 255 {
		return 255
	}
	return uint8(pos.Uint64())
}

func (t *Ticket) String() string {
	return fmt.Sprintf("ticket #%s epoch %s to %s, amount %s, challenge %s", t.index, t.channelEpoch, t.counterparty, t.amount, t.challenge)
}

// WinProbFromFloat maps a probability in [0, 1] to the 256 bit encoding, the
// integer part of p * (2^256 - 1). The product is exact, so for every p that
// is a float64 the encoding is floor(p * (2^256 - 1)) and it is monotonic in p.
func WinProbFromFloat(p float64) *big.Int {
	if p <= 0 {
		return new(big.Int)
	}
	if p >= 1 {
		return new(big.Int).Set(maxU256)
	}
	f := new(big.Float).SetPrec(512).SetInt(maxU256)
	f.Mul(f, big.NewFloat(p))
	v, _ := f.Int(nil)
	return v
}

// InverseWinProb returns round(1 / p) for the 256 bit encoded probability.
func InverseWinProb(winProb *big.Int) *big.Int {
	if winProb.Sign() <= 0 {
		return new(big.Int)
	}
	q := new(big.Int).Add(maxU256, new(big.Int).Rsh(winProb, 1))
	return q.Div(q, winProb)
}

func fitsU256(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(maxU256) <= 0
}

func appendU256(b []byte, v *big.Int) []byte {
	var buf [U256Length]byte
	v.FillBytes(buf[:])
	return append(b, buf[:]...)
}

func readU256(b []byte) (*big.Int, []byte) {
	return new(big.Int).SetBytes(b[:U256Length]), b[U256Length:]
}
