// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package prg

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestPRG(t require.TestingT) *PRG {
	var key [KeyLength]byte
	var iv [IVLength]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)
	_, err = rand.Read(iv[:])
	require.NoError(t, err)
	p, err := New(key[:], iv[:])
	require.NoError(t, err)
	return p
}

func TestPRGMatchesAESCTR(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	var key [KeyLength]byte
	var iv [IVLength]byte
	_, err := rand.Read(key[:])
	require.NoError(err)
	_, err = rand.Read(iv[:])
	require.NoError(err)

	p, err := New(key[:], iv[:])
	require.NoError(err)
	defer p.Reset()

	blk, err := aes.NewCipher(key[:])
	require.NoError(err)
	var ctr [BlockLength]byte
	copy(ctr[:], iv[:])
	expected := make([]byte, 1000)
	cipher.NewCTR(blk, ctr[:]).XORKeyStream(expected, expected)

	actual, err := p.Digest(0, len(expected))
	require.NoError(err)
	require.Equal(expected, actual)
}

func TestPRGSubRange(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	p := newTestPRG(t)
	full, err := p.Digest(0, 500)
	require.NoError(err)
	sub, err := p.Digest(10, 20)
	require.NoError(err)
	require.Equal(full[10:20], sub)

	sub, err = p.Digest(17, 33)
	require.NoError(err)
	require.Equal(full[17:33], sub)
}

func TestPRGRangeComposable(t *testing.T) {
	p := newTestPRG(t)
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.IntRange(0, 4096).Draw(t, "start")
		end := rapid.IntRange(start+1, start+4096).Draw(t, "end")
		outerStart := rapid.IntRange(0, start).Draw(t, "outerStart")
		outerEnd := rapid.IntRange(end, end+256).Draw(t, "outerEnd")

		outer, err := p.Digest(outerStart, outerEnd)
		if err != nil {
			t.Fatalf("outer digest: %v", err)
		}
		inner, err := p.Digest(start, end)
		if err != nil {
			t.Fatalf("inner digest: %v", err)
		}
		if len(inner) != end-start {
			t.Fatalf("digest length %d, expected %d", len(inner), end-start)
		}
		for i := range inner {
			if inner[i] != outer[start-outerStart+i] {
				t.Fatalf("keystream mismatch at offset %d", start+i)
			}
		}
	})
}

func TestPRGInvalid(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	_, err := New(make([]byte, KeyLength-1), make([]byte, IVLength))
	assert.ErrorIs(err, ErrInvalidKey)
	_, err = New(make([]byte, KeyLength), make([]byte, IVLength+4))
	assert.ErrorIs(err, ErrInvalidKey)

	p := newTestPRG(t)
	_, err = p.Digest(10, 10)
	assert.ErrorIs(err, ErrInvalidRange)
	_, err = p.Digest(20, 10)
	assert.ErrorIs(err, ErrInvalidRange)
	_, err = p.Digest(-1, 10)
	assert.ErrorIs(err, ErrInvalidRange)
}
