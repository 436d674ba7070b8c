// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package por implements the Proof-of-Relay key halves, challenges and
// acknowledgements that tie a relay's payment to the next hop's cooperation.
package por

import (
	"crypto/subtle"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/katzenpost/hpqc/util"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
)

const (
	// HalfKeyLength is the length of a serialized HalfKey.
	HalfKeyLength = 32

	// HalfKeyChallengeLength is the length of a serialized HalfKeyChallenge.
	HalfKeyChallengeLength = secp256k1.PubKeyBytesLenCompressed

	// ChallengeLength is the length of a serialized Challenge.
	ChallengeLength = secp256k1.PubKeyBytesLenCompressed

	// EthereumChallengeLength is the length of an EthereumChallenge.
	EthereumChallengeLength = chainkey.AddressLength

	// ResponseLength is the length of a serialized Response.
	ResponseLength = 32
)

var (
	// ErrInvalidHalfKey is returned for scalars that are zero or not
	// reduced modulo the group order.
	ErrInvalidHalfKey = errors.New("por: invalid half key")

	// ErrInvalidChallenge is returned for challenges that are not curve
	// points.
	ErrInvalidChallenge = errors.New("por: invalid challenge")

	// ErrInvalidResponse is returned for malformed responses.
	ErrInvalidResponse = errors.New("por: invalid response")
)

// HalfKey is one of the two scalars whose sum solves a ticket challenge.
type HalfKey [HalfKeyLength]byte

// NewHalfKey copies b into a HalfKey.
func NewHalfKey(b []byte) (HalfKey, error) {
	var h HalfKey
	if len(b) != HalfKeyLength {
		return h, ErrInvalidHalfKey
	}
	copy(h[:], b)
	if _, err := h.scalar(); err != nil {
		return HalfKey{}, err
	}
	return h, nil
}

// HalfKeyFromScalar serializes the scalar k.
func HalfKeyFromScalar(k *secp256k1.ModNScalar) HalfKey {
	var h HalfKey
	k.PutBytes((*[32]byte)(&h))
	return h
}

func (h *HalfKey) scalar() (*secp256k1.ModNScalar, error) {
	s := new(secp256k1.ModNScalar)
	if overflow := s.SetBytes((*[32]byte)(h)); overflow != 0 || s.IsZero() {
		return nil, ErrInvalidHalfKey
	}
	return s, nil
}

// ToChallenge returns the commitment h·G.
func (h *HalfKey) ToChallenge() HalfKeyChallenge {
	s, err := h.scalar()
	if err != nil {
		// A HalfKey built through NewHalfKey or derived from a secret is
		// always a valid scalar; the zero value maps to no challenge.
		return HalfKeyChallenge{}
	}
	defer s.Zero()
	var c HalfKeyChallenge
	copy(c[:], scalarBaseMult(s).SerializeCompressed())
	return c
}

// Equal returns true iff both half keys are equal, in constant time.
func (h *HalfKey) Equal(other *HalfKey) bool {
	return subtle.ConstantTimeCompare(h[:], other[:]) == 1
}

// Bytes returns a copy of the half key.
func (h *HalfKey) Bytes() []byte {
	return append([]byte{}, h[:]...)
}

// Reset clears the half key.
func (h *HalfKey) Reset() {
	util.ExplicitBzero(h[:])
}

// HalfKeyChallenge is the curve point commitment to a HalfKey.
type HalfKeyChallenge [HalfKeyChallengeLength]byte

// NewHalfKeyChallenge copies b into a HalfKeyChallenge, rejecting anything
// that is not a compressed curve point.
func NewHalfKeyChallenge(b []byte) (HalfKeyChallenge, error) {
	var c HalfKeyChallenge
	if len(b) != HalfKeyChallengeLength {
		return c, ErrInvalidChallenge
	}
	if _, err := secp256k1.ParsePubKey(b); err != nil {
		return c, ErrInvalidChallenge
	}
	copy(c[:], b)
	return c, nil
}

// HalfKeyChallengeFromExponent returns the commitment to the exponent b.
func HalfKeyChallengeFromExponent(b []byte) (HalfKeyChallenge, error) {
	h, err := NewHalfKey(b)
	if err != nil {
		return HalfKeyChallenge{}, err
	}
	defer h.Reset()
	return h.ToChallenge(), nil
}

// PublicKey returns the challenge as a curve point.
func (c *HalfKeyChallenge) PublicKey() (*secp256k1.PublicKey, error) {
	p, err := secp256k1.ParsePubKey(c[:])
	if err != nil {
		return nil, ErrInvalidChallenge
	}
	return p, nil
}

// IsZero returns true for the zero value.
func (c *HalfKeyChallenge) IsZero() bool {
	return util.CtIsZero(c[:])
}

// Bytes returns a copy of the challenge.
func (c *HalfKeyChallenge) Bytes() []byte {
	return append([]byte{}, c[:]...)
}

// Challenge is the curve point a ticket commits to, the sum of the relay's
// own HalfKeyChallenge and the acknowledgement HalfKeyChallenge.
type Challenge [ChallengeLength]byte

// ChallengeFromHintAndShare returns ownShare + ackHint.
func ChallengeFromHintAndShare(ownShare, ackHint *HalfKeyChallenge) (Challenge, error) {
	a, err := ownShare.PublicKey()
	if err != nil {
		return Challenge{}, err
	}
	b, err := ackHint.PublicKey()
	if err != nil {
		return Challenge{}, err
	}
	sum, err := addPoints(a, b)
	if err != nil {
		return Challenge{}, err
	}
	var c Challenge
	copy(c[:], sum.SerializeCompressed())
	return c, nil
}

// ToEthereumChallenge returns the address form of the challenge that
// tickets carry.
func (c *Challenge) ToEthereumChallenge() EthereumChallenge {
	p, err := secp256k1.ParsePubKey(c[:])
	if err != nil {
		return EthereumChallenge{}
	}
	return EthereumChallenge(chainkey.AddressFromPublicKey(p))
}

// EthereumChallenge is the Ethereum address of a Challenge point.
type EthereumChallenge [EthereumChallengeLength]byte

// NewEthereumChallenge copies b into an EthereumChallenge.
func NewEthereumChallenge(b []byte) (EthereumChallenge, error) {
	var e EthereumChallenge
	if len(b) != EthereumChallengeLength {
		return e, ErrInvalidChallenge
	}
	copy(e[:], b)
	return e, nil
}

// Equal returns true iff both challenges are equal.
func (e *EthereumChallenge) Equal(other *EthereumChallenge) bool {
	return subtle.ConstantTimeCompare(e[:], other[:]) == 1
}

// String returns the checksummed hex encoding.
func (e EthereumChallenge) String() string {
	return chainkey.Address(e).String()
}

// Response is the scalar that solves a ticket Challenge.
type Response [ResponseLength]byte

// NewResponse copies b into a Response.
func NewResponse(b []byte) (Response, error) {
	var r Response
	if len(b) != ResponseLength {
		return r, ErrInvalidResponse
	}
	copy(r[:], b)
	s := new(secp256k1.ModNScalar)
	if overflow := s.SetBytes((*[32]byte)(&r)); overflow != 0 || s.IsZero() {
		return Response{}, ErrInvalidResponse
	}
	return r, nil
}

// ResponseFromHalfKeys returns own + ack modulo the group order.
func ResponseFromHalfKeys(own, ack *HalfKey) (Response, error) {
	a, err := own.scalar()
	if err != nil {
		return Response{}, err
	}
	defer a.Zero()
	b, err := ack.scalar()
	if err != nil {
		return Response{}, err
	}
	defer b.Zero()

	a.Add(b)
	if a.IsZero() {
		return Response{}, ErrInvalidResponse
	}
	var r Response
	a.PutBytes((*[32]byte)(&r))
	return r, nil
}

// ToChallenge returns the Challenge solved by the response.
func (r *Response) ToChallenge() Challenge {
	s := new(secp256k1.ModNScalar)
	if overflow := s.SetBytes((*[32]byte)(r)); overflow != 0 || s.IsZero() {
		return Challenge{}
	}
	defer s.Zero()
	var c Challenge
	copy(c[:], scalarBaseMult(s).SerializeCompressed())
	return c
}

// Bytes returns a copy of the response.
func (r *Response) Bytes() []byte {
	return append([]byte{}, r[:]...)
}

func scalarBaseMult(k *secp256k1.ModNScalar) *secp256k1.PublicKey {
	var out secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(k, &out)
	out.ToAffine()
	return secp256k1.NewPublicKey(&out.X, &out.Y)
}

func addPoints(a, b *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	var aj, bj, sum secp256k1.JacobianPoint
	a.AsJacobian(&aj)
	b.AsJacobian(&bj)
	secp256k1.AddNonConst(&aj, &bj, &sum)
	if (sum.X.IsZero() && sum.Y.IsZero()) || sum.Z.IsZero() {
		return nil, ErrInvalidChallenge
	}
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y), nil
}
