// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package chainkey provides the secp256k1 node identity keys, their Ethereum
// addresses and recoverable signatures.
package chainkey

import (
	"errors"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/katzenpost/hpqc/util"
)

const (
	// PrivateKeyLength is the length of a private scalar.
	PrivateKeyLength = btcec.PrivKeyBytesLen

	// PublicKeyLength is the length of a compressed public key.
	PublicKeyLength = btcec.PubKeyBytesLenCompressed

	keyType = "HOPR CHAIN PRIVATE KEY"
)

// ErrInvalidKey is returned for malformed keys.
var ErrInvalidKey = errors.New("chainkey: invalid key")

// Keypair is a node's secp256k1 identity.
type Keypair struct {
	priv *btcec.PrivateKey
}

// NewKeypair generates a keypair from the random source r.
func NewKeypair(r io.Reader) (*Keypair, error) {
	var buf [PrivateKeyLength]byte
	defer util.ExplicitBzero(buf[:])
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		k := new(Keypair)
		if err := k.FromBytes(buf[:]); err == nil {
			return k, nil
		}
	}
}

// KeypairFromBytes returns the keypair of a serialized private scalar.
func KeypairFromBytes(b []byte) (*Keypair, error) {
	k := new(Keypair)
	if err := k.FromBytes(b); err != nil {
		return nil, err
	}
	return k, nil
}

// FromBytes deserializes the private scalar.
func (k *Keypair) FromBytes(b []byte) error {
	if len(b) != PrivateKeyLength {
		return ErrInvalidKey
	}
	var s btcec.ModNScalar
	defer s.Zero()
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return ErrInvalidKey
	}
	k.priv, _ = btcec.PrivKeyFromBytes(b)
	return nil
}

// Bytes returns the serialized private scalar.
func (k *Keypair) Bytes() []byte {
	return k.priv.Serialize()
}

// KeyType returns the PEM block type of the key.
func (k *Keypair) KeyType() string {
	return keyType
}

// PrivateKey returns the private key.
func (k *Keypair) PrivateKey() *btcec.PrivateKey {
	return k.priv
}

// PublicKey returns the public key.
func (k *Keypair) PublicKey() *btcec.PublicKey {
	return k.priv.PubKey()
}

// Address returns the Ethereum address of the keypair.
func (k *Keypair) Address() Address {
	return AddressFromPublicKey(k.PublicKey())
}

// Sign signs hash.
func (k *Keypair) Sign(hash [HashLength]byte) Signature {
	return Sign(hash, k.priv)
}

// Reset clears the private scalar.
func (k *Keypair) Reset() {
	if k.priv != nil {
		k.priv.Zero()
	}
}

// ParsePublicKey parses a compressed public key.
func ParsePublicKey(b []byte) (*btcec.PublicKey, error) {
	if len(b) != PublicKeyLength {
		return nil, ErrInvalidKey
	}
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return pub, nil
}
