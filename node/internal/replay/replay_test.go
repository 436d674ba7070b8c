// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package replay

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsReplay(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f, err := New(16, 0.001)
	require.NoError(err)

	tag := make([]byte, 32)
	_, err = rand.Read(tag)
	require.NoError(err)

	require.False(f.IsReplay(tag), "first sighting")
	require.True(f.IsReplay(tag), "second sighting")
	require.True(f.IsReplay(tag[:31]), "malformed tag")
	require.False(f.Saturated())
}
