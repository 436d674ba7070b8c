// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package prp implements the four round Lioness style keyed permutation used
// to encrypt packet payloads.
package prp

import (
	"errors"

	"github.com/go-faster/xor"
	"github.com/katzenpost/hpqc/util"
	"golang.org/x/crypto/blake2s"

	"github.com/hoprnet/hoprmix/core/crypto/prg"
)

const (
	rounds = 4

	// HashLength is the size of the left half of the permuted block.
	HashLength = blake2s.Size

	// MinLength is the smallest input the permutation accepts.
	MinLength = HashLength

	// KeyLength is the PRP key size in bytes, four PRG keys.
	KeyLength = rounds * prg.KeyLength

	// IVLength is the PRP IV size in bytes, four PRG IVs.
	IVLength = rounds * prg.IVLength
)

var (
	// ErrInvalidKey is returned when the key or IV has the wrong size.
	ErrInvalidKey = errors.New("prp: invalid key or iv length")

	// ErrTooShort is returned for inputs shorter than MinLength.
	ErrTooShort = errors.New("prp: input too short")
)

// PRP is a keyed bijection over byte strings of at least MinLength bytes.
type PRP struct {
	keys [rounds][prg.KeyLength]byte
	ivs  [rounds][prg.IVLength]byte
}

// New splits key and iv into the four round keys and IVs.
func New(key, iv []byte) (*PRP, error) {
	if len(key) != KeyLength || len(iv) != IVLength {
		return nil, ErrInvalidKey
	}
	p := new(PRP)
	for i := 0; i < rounds; i++ {
		copy(p.keys[i][:], key[i*prg.KeyLength:])
		copy(p.ivs[i][:], iv[i*prg.IVLength:])
	}
	return p, nil
}

// Permutate returns the permutation of plaintext as a new slice.
func (p *PRP) Permutate(plaintext []byte) ([]byte, error) {
	if len(plaintext) < MinLength {
		return nil, ErrTooShort
	}
	b := make([]byte, len(plaintext))
	copy(b, plaintext)

	p.streamRound(b, 0)
	p.hashRound(b, 1)
	p.streamRound(b, 2)
	p.hashRound(b, 3)
	return b, nil
}

// Inverse returns the inverse permutation of ciphertext as a new slice.
func (p *PRP) Inverse(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < MinLength {
		return nil, ErrTooShort
	}
	b := make([]byte, len(ciphertext))
	copy(b, ciphertext)

	p.hashRound(b, 3)
	p.streamRound(b, 2)
	p.hashRound(b, 1)
	p.streamRound(b, 0)
	return b, nil
}

// Reset clears the round keys.
func (p *PRP) Reset() {
	for i := 0; i < rounds; i++ {
		util.ExplicitBzero(p.keys[i][:])
		util.ExplicitBzero(p.ivs[i][:])
	}
}

// streamRound encrypts the right half under a key bound to the left half.
func (p *PRP) streamRound(b []byte, round int) {
	right := b[HashLength:]
	if len(right) == 0 {
		return
	}
	h := blake2s.Sum256(b[:HashLength])
	p.xorRound(right, round, h[:prg.KeyLength])
}

// hashRound encrypts the left half under a key bound to the right half.
func (p *PRP) hashRound(b []byte, round int) {
	h := blake2s.Sum256(b[HashLength:])
	p.xorRound(b[:HashLength], round, h[:prg.KeyLength])
}

func (p *PRP) xorRound(dst []byte, round int, tweak []byte) {
	var k [prg.KeyLength]byte
	defer util.ExplicitBzero(k[:])
	xor.Bytes(k[:], p.keys[round][:], tweak)

	g, err := prg.New(k[:], p.ivs[round][:])
	if err != nil {
		panic("prp: BUG: " + err.Error())
	}
	defer g.Reset()
	ks, err := g.Digest(0, len(dst))
	if err != nil {
		panic("prp: BUG: " + err.Error())
	}
	defer util.ExplicitBzero(ks)
	xor.Bytes(dst, dst, ks)
}
