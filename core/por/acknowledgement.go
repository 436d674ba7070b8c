// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package por

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
)

const (
	// AcknowledgementChallengeLength is the length of a serialized
	// AcknowledgementChallenge.
	AcknowledgementChallengeLength = chainkey.SignatureLength

	// AcknowledgementLength is the length of a serialized Acknowledgement.
	AcknowledgementLength = chainkey.SignatureLength + HalfKeyLength
)

var (
	// ErrInvalidAcknowledgement is returned for malformed acknowledgements
	// and acknowledgement challenges.
	ErrInvalidAcknowledgement = errors.New("por: invalid acknowledgement")

	// ErrNotValidated is returned when an acknowledgement is used before its
	// signature was checked.
	ErrNotValidated = errors.New("por: acknowledgement not validated")
)

// AcknowledgementChallenge is the ticket issuer's signature over the
// HalfKeyChallenge the next hop must answer. It is only usable once bound to
// that challenge, either at creation or through Validate.
type AcknowledgementChallenge struct {
	signature    chainkey.Signature
	ackChallenge *HalfKeyChallenge
}

// NewAcknowledgementChallenge signs ackChallenge with the issuer key.
func NewAcknowledgementChallenge(ackChallenge HalfKeyChallenge, issuer *chainkey.Keypair) *AcknowledgementChallenge {
	return &AcknowledgementChallenge{
		signature:    issuer.Sign(chainkey.Keccak256(ackChallenge[:])),
		ackChallenge: &ackChallenge,
	}
}

// ParseAcknowledgementChallenge deserializes an unvalidated
// AcknowledgementChallenge.
func ParseAcknowledgementChallenge(b []byte) (*AcknowledgementChallenge, error) {
	sig, err := chainkey.NewSignature(b)
	if err != nil {
		return nil, ErrInvalidAcknowledgement
	}
	return &AcknowledgementChallenge{signature: sig}, nil
}

// Validate checks that the signature over ackChallenge was produced by
// issuer, and binds the challenge on success.
func (c *AcknowledgementChallenge) Validate(ackChallenge HalfKeyChallenge, issuer *btcec.PublicKey) bool {
	if !c.signature.Verify(chainkey.Keccak256(ackChallenge[:]), issuer) {
		return false
	}
	c.ackChallenge = &ackChallenge
	return true
}

// Verify returns true iff the bound challenge was signed by issuer.
func (c *AcknowledgementChallenge) Verify(issuer *btcec.PublicKey) bool {
	if c.ackChallenge == nil {
		return false
	}
	return c.signature.Verify(chainkey.Keccak256(c.ackChallenge[:]), issuer)
}

// Solve returns true iff secret is the HalfKey behind the bound challenge.
func (c *AcknowledgementChallenge) Solve(secret []byte) bool {
	if c.ackChallenge == nil {
		return false
	}
	h, err := NewHalfKey(secret)
	if err != nil {
		return false
	}
	defer h.Reset()
	return h.ToChallenge() == *c.ackChallenge
}

// AckChallenge returns the bound challenge, or nil before validation.
func (c *AcknowledgementChallenge) AckChallenge() *HalfKeyChallenge {
	return c.ackChallenge
}

// Bytes returns the serialized signature.
func (c *AcknowledgementChallenge) Bytes() []byte {
	return c.signature.Bytes()
}

// Acknowledgement carries the acknowledgement HalfKey a node hands back to
// its predecessor, signed by that node.
type Acknowledgement struct {
	signature   chainkey.Signature
	ackKeyShare HalfKey
	validated   bool
}

// NewAcknowledgement signs ackKeyShare with the node key.
func NewAcknowledgement(ackKeyShare HalfKey, node *chainkey.Keypair) *Acknowledgement {
	return &Acknowledgement{
		signature:   node.Sign(chainkey.Keccak256(ackKeyShare[:])),
		ackKeyShare: ackKeyShare,
		validated:   true,
	}
}

// ParseAcknowledgement deserializes an unvalidated Acknowledgement.
func ParseAcknowledgement(b []byte) (*Acknowledgement, error) {
	if len(b) != AcknowledgementLength {
		return nil, ErrInvalidAcknowledgement
	}
	sig, err := chainkey.NewSignature(b[:chainkey.SignatureLength])
	if err != nil {
		return nil, ErrInvalidAcknowledgement
	}
	h, err := NewHalfKey(b[chainkey.SignatureLength:])
	if err != nil {
		return nil, ErrInvalidAcknowledgement
	}
	return &Acknowledgement{signature: sig, ackKeyShare: h}, nil
}

// Validate checks that the acknowledgement was signed by sender.
func (a *Acknowledgement) Validate(sender *btcec.PublicKey) bool {
	a.validated = a.signature.Verify(chainkey.Keccak256(a.ackKeyShare[:]), sender)
	return a.validated
}

// AckKeyShare returns the acknowledged HalfKey.
func (a *Acknowledgement) AckKeyShare() (HalfKey, error) {
	if !a.validated {
		return HalfKey{}, ErrNotValidated
	}
	return a.ackKeyShare, nil
}

// AckChallenge returns the challenge answered by the acknowledgement.
func (a *Acknowledgement) AckChallenge() (HalfKeyChallenge, error) {
	if !a.validated {
		return HalfKeyChallenge{}, ErrNotValidated
	}
	return a.ackKeyShare.ToChallenge(), nil
}

// Bytes returns the serialized acknowledgement.
func (a *Acknowledgement) Bytes() []byte {
	b := make([]byte, 0, AcknowledgementLength)
	b = append(b, a.signature[:]...)
	return append(b, a.ackKeyShare[:]...)
}
