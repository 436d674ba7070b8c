// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package chainkey

import (
	"crypto/subtle"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

const (
	// SignatureLength is the length of a recoverable signature, r || s || v.
	SignatureLength = 65

	recoveryOffset = 27

	// compactCompressedFlag is added to the recovery code by
	// ecdsa.SignCompact for compressed public keys.
	compactCompressedFlag = 4
)

var (
	// ErrInvalidSignature is returned for malformed or unrecoverable
	// signatures.
	ErrInvalidSignature = errors.New("chainkey: invalid signature")
)

// Signature is a recoverable secp256k1 ECDSA signature laid out the way
// Ethereum contracts expect it: r (32) || s (32) || v (1), v in {27, 28}.
type Signature [SignatureLength]byte

// NewSignature copies b into a Signature, checking the recovery byte.
func NewSignature(b []byte) (Signature, error) {
	var s Signature
	if len(b) != SignatureLength {
		return s, ErrInvalidSignature
	}
	copy(s[:], b)
	if v := s[64]; v != recoveryOffset && v != recoveryOffset+1 {
		return s, ErrInvalidSignature
	}
	return s, nil
}

// Sign signs the 32 byte hash with the private key.
func Sign(hash [HashLength]byte, key *btcec.PrivateKey) Signature {
	compact := ecdsa.SignCompact(key, hash[:], true)

	var s Signature
	copy(s[:64], compact[1:])
	s[64] = compact[0] - compactCompressedFlag
	return s
}

// RecoverPublicKey returns the public key that produced the signature over
// hash.
func (s *Signature) RecoverPublicKey(hash [HashLength]byte) (*btcec.PublicKey, error) {
	v := s[64]
	if v != recoveryOffset && v != recoveryOffset+1 {
		return nil, ErrInvalidSignature
	}
	var compact [SignatureLength]byte
	compact[0] = v + compactCompressedFlag
	copy(compact[1:], s[:64])

	pub, _, err := ecdsa.RecoverCompact(compact[:], hash[:])
	if err != nil {
		return nil, ErrInvalidSignature
	}
	return pub, nil
}

// Verify returns true iff the signature over hash was produced by pub.
func (s *Signature) Verify(hash [HashLength]byte, pub *btcec.PublicKey) bool {
	if pub == nil {
		return false
	}
	recovered, err := s.RecoverPublicKey(hash)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(recovered.SerializeCompressed(), pub.SerializeCompressed()) == 1
}

// VerifyAddress returns true iff the signature over hash was produced by the
// key behind addr.
func (s *Signature) VerifyAddress(hash [HashLength]byte, addr Address) bool {
	recovered, err := s.RecoverPublicKey(hash)
	if err != nil {
		return false
	}
	a := AddressFromPublicKey(recovered)
	return subtle.ConstantTimeCompare(a[:], addr[:]) == 1
}

// Bytes returns a copy of the signature bytes.
func (s *Signature) Bytes() []byte {
	return append([]byte{}, s[:]...)
}
