// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package pem

import (
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
)

func TestToFromPEM(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := filepath.Join(t.TempDir(), "chain.private.pem")
	require.False(Exists(f))

	k, err := chainkey.NewKeypair(rand.Reader)
	require.NoError(err)
	require.NoError(ToFile(f, k))
	require.True(Exists(f))

	k2 := new(chainkey.Keypair)
	require.NoError(FromFile(f, k2))
	require.Equal(k.Address(), k2.Address())

	// Existing key files are never overwritten.
	require.Error(ToFile(f, k))
}

type otherKey struct{ b []byte }

func (o *otherKey) FromBytes(b []byte) error { o.b = b; return nil }
func (o *otherKey) Bytes() []byte            { return o.b }
func (o *otherKey) KeyType() string          { return "other" }

func TestFromPEMWrongType(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := filepath.Join(t.TempDir(), "other.pem")
	require.NoError(ToFile(f, &otherKey{b: []byte{1, 2, 3}}))

	k := new(chainkey.Keypair)
	require.Error(FromFile(f, k))
	require.Error(ToFile(filepath.Join(t.TempDir(), "zero.pem"), &otherKey{b: make([]byte, 4)}))
}
