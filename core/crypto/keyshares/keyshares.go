// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package keyshares implements the blinded Diffie-Hellman key shares that
// give every hop of a path its own packet secret.
package keyshares

import (
	"errors"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/katzenpost/hpqc/util"

	"github.com/hoprnet/hoprmix/core/crypto/kdf"
)

const (
	// MaxPathLength is the largest number of hops a packet can traverse.
	MaxPathLength = 8

	// GroupElementLength is the length of a compressed group element.
	GroupElementLength = secp256k1.PubKeyBytesLenCompressed

	maxExponentTries = 64
)

var (
	// ErrInvalidGroupElement is returned for any alpha that is not a
	// compressed curve point. It is deliberately the same error whatever
	// the cause.
	ErrInvalidGroupElement = errors.New("keyshares: invalid group element")

	// ErrEmptyPath is returned when no hop public keys are given.
	ErrEmptyPath = errors.New("keyshares: empty path")

	// ErrPathTooLong is returned for paths longer than MaxPathLength.
	ErrPathTooLong = errors.New("keyshares: path too long")
)

// SharedSecret is the secret a single hop shares with the sender.
type SharedSecret [kdf.SecretLength]byte

// Reset clears the secret.
func (s *SharedSecret) Reset() {
	util.ExplicitBzero(s[:])
}

// GroupElement is a compressed curve point, the alpha value of a packet.
type GroupElement [GroupElementLength]byte

// KeyShares is the sender side output of GenerateKeyShares.
type KeyShares struct {
	// Alpha is the group element placed in the packet for the first hop.
	Alpha GroupElement

	// Alphas holds the group element as seen by each hop.
	Alphas []GroupElement

	// Secrets holds one shared secret per hop, in path order.
	Secrets []SharedSecret
}

// Reset clears every secret.
func (k *KeyShares) Reset() {
	for i := range k.Secrets {
		k.Secrets[i].Reset()
	}
}

// GenerateKeyShares picks a random exponent and derives the shared secret of
// every hop in path. Each hop can only recover its own secret by calling
// ForwardTransform with its private key.
func GenerateKeyShares(r io.Reader, path []*secp256k1.PublicKey) (*KeyShares, error) {
	if len(path) == 0 {
		return nil, ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return nil, ErrPathTooLong
	}
	for _, p := range path {
		if p == nil {
			return nil, ErrInvalidGroupElement
		}
	}

	coeff, err := randomExponent(r)
	if err != nil {
		return nil, err
	}
	defer coeff.Zero()

	k := &KeyShares{
		Alphas:  make([]GroupElement, len(path)),
		Secrets: make([]SharedSecret, len(path)),
	}
	for i, p := range path {
		copy(k.Alphas[i][:], scalarBaseMult(coeff).SerializeCompressed())

		shared := scalarMult(coeff, p).SerializeCompressed()
		k.Secrets[i] = kdf.ExtractSecret(shared, k.Alphas[i][:])
		util.ExplicitBzero(shared)

		b := kdf.DeriveBlinding(k.Secrets[i][:], k.Alphas[i][:])
		coeff.Mul(b)
		b.Zero()
	}
	k.Alpha = k.Alphas[0]
	return k, nil
}

// ForwardTransform recovers the secret of the hop holding privKey and returns
// the blinded group element for the next hop.
func ForwardTransform(alpha []byte, privKey *secp256k1.PrivateKey) (GroupElement, *SharedSecret, error) {
	var next GroupElement
	if len(alpha) != GroupElementLength {
		return next, nil, ErrInvalidGroupElement
	}
	point, err := secp256k1.ParsePubKey(alpha)
	if err != nil {
		return next, nil, ErrInvalidGroupElement
	}

	shared := scalarMult(&privKey.Key, point).SerializeCompressed()
	defer util.ExplicitBzero(shared)
	secret := SharedSecret(kdf.ExtractSecret(shared, alpha))

	b := kdf.DeriveBlinding(secret[:], alpha)
	defer b.Zero()
	copy(next[:], scalarMult(b, point).SerializeCompressed())
	return next, &secret, nil
}

func randomExponent(r io.Reader) (*secp256k1.ModNScalar, error) {
	var buf [32]byte
	defer util.ExplicitBzero(buf[:])
	for i := 0; i < maxExponentTries; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		s := new(secp256k1.ModNScalar)
		if overflow := s.SetBytes(&buf); overflow == 0 && !s.IsZero() {
			return s, nil
		}
	}
	return nil, errors.New("keyshares: random source produced no valid exponent")
}

func scalarBaseMult(k *secp256k1.ModNScalar) *secp256k1.PublicKey {
	var out secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(k, &out)
	out.ToAffine()
	return secp256k1.NewPublicKey(&out.X, &out.Y)
}

func scalarMult(k *secp256k1.ModNScalar, p *secp256k1.PublicKey) *secp256k1.PublicKey {
	var pj, out secp256k1.JacobianPoint
	p.AsJacobian(&pj)
	secp256k1.ScalarMultNonConst(k, &pj, &out)
	out.ToAffine()
	return secp256k1.NewPublicKey(&out.X, &out.Y)
}
