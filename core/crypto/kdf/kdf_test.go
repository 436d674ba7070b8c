// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package kdf

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/hkdf"

	"github.com/hoprnet/hoprmix/core/crypto/prg"
	"github.com/hoprnet/hoprmix/core/crypto/prp"
)

func randomSecret(t *testing.T) []byte {
	s := make([]byte, SecretLength)
	_, err := rand.Read(s)
	require.NoError(t, err)
	return s
}

func TestExpandMatchesHKDF(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	secret := randomSecret(t)
	expected := make([]byte, 64)
	_, err := io.ReadFull(hkdf.Expand(sha256.New, secret, []byte(tagPRP)), expected)
	require.NoError(err)
	require.Equal(expected, Expand(secret, tagPRP, 64))
}

func TestDerivationsAreDistinct(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	secret := randomSecret(t)
	prgParams := DerivePRGParameters(secret)
	defer prgParams.Reset()
	prpParams := DerivePRPParameters(secret)
	defer prpParams.Reset()
	macKey := DeriveMACKey(secret)
	tag := DerivePacketTag(secret)

	assert.NotEqual(prgParams.Key[:], prpParams.Key[:prg.KeyLength])
	assert.NotEqual(macKey[:], tag[:])

	own := DeriveOwnKey(secret)
	ack := DeriveAckKey(secret)
	assert.False(own.Equals(ack))
	assert.False(own.IsZero())
	assert.False(ack.IsZero())

	again := DerivePRGParameters(secret)
	assert.Equal(prgParams.Key, again.Key)
	assert.Equal(prgParams.IV, again.IV)
}

func TestBlindingDependsOnAlpha(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	secret := randomSecret(t)
	a := DeriveBlinding(secret, []byte{0x02, 0x01})
	b := DeriveBlinding(secret, []byte{0x02, 0x02})
	assert.False(a.Equals(b))
}

func TestParametersReset(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	p := DerivePRPParameters(randomSecret(t))
	p.Reset()
	assert.Equal([prp.KeyLength]byte{}, p.Key)
	assert.Equal([prp.IVLength]byte{}, p.IV)
}
