// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package keyshares

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestPath(t require.TestingT, n int) ([]*secp256k1.PrivateKey, []*secp256k1.PublicKey) {
	privs := make([]*secp256k1.PrivateKey, n)
	pubs := make([]*secp256k1.PublicKey, n)
	for i := 0; i < n; i++ {
		k, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		privs[i] = k
		pubs[i] = k.PubKey()
	}
	return privs, pubs
}

func TestKeySharesRecovery(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	privs, pubs := newTestPath(t, 3)
	shares, err := GenerateKeyShares(rand.Reader, pubs)
	require.NoError(err)
	require.Len(shares.Secrets, 3)

	alpha := shares.Alpha
	for i, priv := range privs {
		require.Equal(shares.Alphas[i], alpha, "alpha at hop %d", i)
		next, secret, err := ForwardTransform(alpha[:], priv)
		require.NoError(err)
		require.Equal(shares.Secrets[i], *secret, "secret at hop %d", i)
		alpha = next
	}
}

func TestKeySharesRecoveryProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, MaxPathLength).Draw(rt, "hops")
		seed := rapid.SliceOfN(rapid.Byte(), 32*4, 32*4).Draw(rt, "seed")

		privs, pubs := newTestPath(t, n)
		shares, err := GenerateKeyShares(io.MultiReader(bytes.NewReader(seed), rand.Reader), pubs)
		if err != nil {
			rt.Fatalf("GenerateKeyShares: %v", err)
		}
		alpha := shares.Alpha
		for i, priv := range privs {
			next, secret, err := ForwardTransform(alpha[:], priv)
			if err != nil {
				rt.Fatalf("ForwardTransform at hop %d: %v", i, err)
			}
			if *secret != shares.Secrets[i] {
				rt.Fatalf("secret mismatch at hop %d", i)
			}
			alpha = next
		}
	})
}

func TestKeySharesDistinctSecrets(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	_, pubs := newTestPath(t, 4)
	shares, err := GenerateKeyShares(rand.Reader, pubs)
	require.NoError(t, err)
	seen := make(map[SharedSecret]bool)
	for _, s := range shares.Secrets {
		assert.False(seen[s])
		seen[s] = true
	}
}

func TestKeySharesWrongKey(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	_, pubs := newTestPath(t, 2)
	shares, err := GenerateKeyShares(rand.Reader, pubs)
	require.NoError(err)

	other, err := secp256k1.GeneratePrivateKey()
	require.NoError(err)
	_, secret, err := ForwardTransform(shares.Alpha[:], other)
	require.NoError(err)
	require.NotEqual(shares.Secrets[0], *secret)
}

func TestKeySharesInvalid(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	_, err := GenerateKeyShares(rand.Reader, nil)
	assert.ErrorIs(err, ErrEmptyPath)

	_, pubs := newTestPath(t, MaxPathLength+1)
	_, err = GenerateKeyShares(rand.Reader, pubs)
	assert.ErrorIs(err, ErrPathTooLong)

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	_, _, err = ForwardTransform(make([]byte, GroupElementLength-1), priv)
	assert.ErrorIs(err, ErrInvalidGroupElement)

	bogus := make([]byte, GroupElementLength)
	bogus[0] = 0x02
	for i := 1; i < len(bogus); i++ {
		bogus[i] = 0xff
	}
	_, _, err = ForwardTransform(bogus, priv)
	assert.ErrorIs(err, ErrInvalidGroupElement)

	uncompressed := priv.PubKey().SerializeUncompressed()
	_, _, err = ForwardTransform(uncompressed, priv)
	assert.ErrorIs(err, ErrInvalidGroupElement)
}
