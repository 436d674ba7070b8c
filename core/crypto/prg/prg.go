// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package prg implements the counter addressed keystream generator used to
// encrypt packet headers.
package prg

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"

	"github.com/katzenpost/hpqc/util"
	"gitlab.com/yawning/bsaes.git"
)

const (
	// KeyLength is the PRG key size in bytes.
	KeyLength = 16

	// IVLength is the PRG IV size in bytes.
	IVLength = 12

	// BlockLength is the block size of the underlying block cipher.
	BlockLength = 16

	counterLength = BlockLength - IVLength
)

var (
	// ErrInvalidKey is returned when the key or IV has the wrong size.
	ErrInvalidKey = errors.New("prg: invalid key or iv length")

	// ErrInvalidRange is returned when a digest range is empty or negative.
	ErrInvalidRange = errors.New("prg: invalid range")
)

type resetable interface {
	Reset()
}

// PRG is a keystream generator where any byte range of the stream can be
// requested independently of every other range.
type PRG struct {
	block cipher.Block
	iv    [IVLength]byte
}

// New returns a PRG for the given key and IV.
func New(key, iv []byte) (*PRG, error) {
	if len(key) != KeyLength || len(iv) != IVLength {
		return nil, ErrInvalidKey
	}

	// bsaes is smart enough to detect if the Go runtime and the CPU support
	// AES-NI and PCLMULQDQ and call `crypto/aes`.
	blk, err := bsaes.NewCipher(key)
	if err != nil {
		// Not covered by unit tests because this indicates a bug in bsaes.
		panic("prg: failed to create AES instance: " + err.Error())
	}
	p := &PRG{block: blk}
	copy(p.iv[:], iv)
	return p, nil
}

// Digest returns the keystream bytes in [start, end).
func (p *PRG) Digest(start, end int) ([]byte, error) {
	if start < 0 || end <= start {
		return nil, ErrInvalidRange
	}

	firstBlock := start / BlockLength
	lastBlock := (end + BlockLength - 1) / BlockLength
	if uint64(lastBlock) > 1<<(8*counterLength) {
		return nil, ErrInvalidRange
	}

	var ctr [BlockLength]byte
	copy(ctr[:], p.iv[:])
	binary.BigEndian.PutUint32(ctr[IVLength:], uint32(firstBlock))

	buf := make([]byte, (lastBlock-firstBlock)*BlockLength)
	stream := cipher.NewCTR(p.block, ctr[:])
	stream.XORKeyStream(buf, buf)
	if r, ok := stream.(resetable); ok {
		r.Reset()
	}

	offset := start - firstBlock*BlockLength
	return buf[offset : offset+end-start], nil
}

// Reset clears the PRG instance such that no sensitive data is left in
// memory.
func (p *PRG) Reset() {
	// bsaes's ctrAble implementation exposes this, `crypto/aes` does not,
	// c'est la vie.
	if r, ok := p.block.(resetable); ok {
		r.Reset()
	}
	util.ExplicitBzero(p.iv[:])
}
