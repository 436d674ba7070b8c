// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package kdf derives the per-hop packet keys from a shared secret.
package kdf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/katzenpost/hpqc/util"
	"golang.org/x/crypto/hkdf"

	"github.com/hoprnet/hoprmix/core/crypto/prg"
	"github.com/hoprnet/hoprmix/core/crypto/prp"
)

const (
	// SecretLength is the length of a per-hop shared secret.
	SecretLength = sha256.Size

	// MACKeyLength is the key size of the header MAC in bytes.
	MACKeyLength = 32

	// MACLength is the tag size of the header MAC in bytes.
	MACLength = sha256.Size

	// TagLength is the replay tag length in bytes.
	TagLength = 32

	tagPRG       = "HASH_KEY_PRG"
	tagPRP       = "HASH_KEY_PRP"
	tagMAC       = "HASH_KEY_HMAC"
	tagPacketTag = "HASH_KEY_PACKET_TAG"
	tagOwnKey    = "HASH_KEY_OWN_KEY"
	tagAckKey    = "HASH_KEY_ACK_KEY"
	tagBlinding  = "HASH_KEY_BLINDING"

	maxSampleTries = 256
)

// PRGParameters is the key and IV of a header keystream.
type PRGParameters struct {
	Key [prg.KeyLength]byte
	IV  [prg.IVLength]byte
}

// Reset clears the parameters.
func (p *PRGParameters) Reset() {
	util.ExplicitBzero(p.Key[:])
	util.ExplicitBzero(p.IV[:])
}

// NewPRG returns the keystream generator keyed by the parameters.
func (p *PRGParameters) NewPRG() *prg.PRG {
	g, err := prg.New(p.Key[:], p.IV[:])
	if err != nil {
		panic("kdf: BUG: " + err.Error())
	}
	return g
}

// PRPParameters is the key and IV of a payload permutation.
type PRPParameters struct {
	Key [prp.KeyLength]byte
	IV  [prp.IVLength]byte
}

// Reset clears the parameters.
func (p *PRPParameters) Reset() {
	util.ExplicitBzero(p.Key[:])
	util.ExplicitBzero(p.IV[:])
}

// NewPRP returns the payload permutation keyed by the parameters.
func (p *PRPParameters) NewPRP() *prp.PRP {
	k, err := prp.New(p.Key[:], p.IV[:])
	if err != nil {
		panic("kdf: BUG: " + err.Error())
	}
	return k
}

// Expand returns n bytes of HKDF-SHA256 output for the secret and info tag.
func Expand(secret []byte, info string, n int) []byte {
	okm := make([]byte, n)
	r := hkdf.Expand(sha256.New, secret, []byte(info))
	if _, err := io.ReadFull(r, okm); err != nil {
		panic("kdf: BUG: " + err.Error())
	}
	return okm
}

// ExtractSecret turns a shared group element into a uniformly random secret.
func ExtractSecret(ikm, salt []byte) [SecretLength]byte {
	var s [SecretLength]byte
	prk := hkdf.Extract(sha256.New, ikm, salt)
	defer util.ExplicitBzero(prk)
	copy(s[:], prk)
	return s
}

// DerivePRGParameters returns the header keystream parameters of a hop.
func DerivePRGParameters(secret []byte) *PRGParameters {
	okm := Expand(secret, tagPRG, prg.KeyLength+prg.IVLength)
	defer util.ExplicitBzero(okm)

	p := new(PRGParameters)
	copy(p.Key[:], okm[:prg.KeyLength])
	copy(p.IV[:], okm[prg.KeyLength:])
	return p
}

// DerivePRPParameters returns the payload permutation parameters of a hop.
func DerivePRPParameters(secret []byte) *PRPParameters {
	okm := Expand(secret, tagPRP, prp.KeyLength+prp.IVLength)
	defer util.ExplicitBzero(okm)

	p := new(PRPParameters)
	copy(p.Key[:], okm[:prp.KeyLength])
	copy(p.IV[:], okm[prp.KeyLength:])
	return p
}

// DeriveMACKey returns the header MAC key of a hop.
func DeriveMACKey(secret []byte) *[MACKeyLength]byte {
	okm := Expand(secret, tagMAC, MACKeyLength)
	defer util.ExplicitBzero(okm)

	k := new([MACKeyLength]byte)
	copy(k[:], okm)
	return k
}

// NewMAC returns a new hash.Hash implementing the header MAC with the
// provided key.
func NewMAC(key *[MACKeyLength]byte) hash.Hash {
	return hmac.New(sha256.New, key[:])
}

// DerivePacketTag returns the replay tag of a hop.
func DerivePacketTag(secret []byte) [TagLength]byte {
	var t [TagLength]byte
	okm := Expand(secret, tagPacketTag, TagLength)
	copy(t[:], okm)
	return t
}

// DeriveOwnKey returns the scalar a relay keeps for itself.
func DeriveOwnKey(secret []byte) *secp256k1.ModNScalar {
	return SampleFieldElement(secret, tagOwnKey)
}

// DeriveAckKey returns the scalar a relay hands back as acknowledgement.
func DeriveAckKey(secret []byte) *secp256k1.ModNScalar {
	return SampleFieldElement(secret, tagAckKey)
}

// DeriveBlinding returns the blinding factor applied to alpha after a hop.
func DeriveBlinding(secret, alpha []byte) *secp256k1.ModNScalar {
	ikm := make([]byte, 0, len(secret)+len(alpha))
	ikm = append(ikm, secret...)
	ikm = append(ikm, alpha...)
	defer util.ExplicitBzero(ikm)
	return SampleFieldElement(ikm, tagBlinding)
}

// SampleFieldElement maps the secret and tag to a non-zero scalar modulo the
// secp256k1 group order. Out of range outputs are re-expanded with a counter
// appended to the tag.
func SampleFieldElement(secret []byte, tag string) *secp256k1.ModNScalar {
	info := []byte(tag)
	for i := 0; i < maxSampleTries; i++ {
		okm := Expand(secret, string(info), 32)
		s := new(secp256k1.ModNScalar)
		overflow := s.SetByteSlice(okm)
		util.ExplicitBzero(okm)
		if !overflow && !s.IsZero() {
			return s
		}
		var ctr [4]byte
		binary.BigEndian.PutUint32(ctr[:], uint32(i))
		info = append([]byte(tag), ctr[:]...)
	}
	// The probability of getting here is about 2^-32768.
	panic("kdf: BUG: failed to sample field element")
}
