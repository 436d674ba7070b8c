// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/crypto/pem"
)

func TestSelfTest(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var out bytes.Buffer
	n, err := runSelfTest(ctx, selfTestOptions{
		hops:    3,
		message: "hello mixnet",
		dataDir: t.TempDir(),
		workers: 2,
	}, &out)
	require.NoError(err, out.String())
	require.Equal(2, n)
	require.Contains(out.String(), "delivered")
}

func TestSelfTestInvalidHops(t *testing.T) {
	t.Parallel()

	_, err := runSelfTest(context.Background(), selfTestOptions{hops: 0}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestGenKeyAndValidate(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	keyFile := filepath.Join(dir, "node.pem")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"genkey", "-o", keyFile})
	require.NoError(cmd.Execute())

	k := new(chainkey.Keypair)
	require.NoError(pem.FromFile(keyFile, k))
	require.Contains(out.String(), k.Address().String())

	// Refuses to overwrite.
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"genkey", "-o", keyFile})
	require.Error(cmd.Execute())

	cfgFile := filepath.Join(dir, "node.toml")
	require.NoError(os.WriteFile(cfgFile, []byte(`
[Node]
  Identifier = "node.example.org"
  DataDir = "`+dir+`"

[Sphinx]
  MaxHops = 4
  UserPayloadLength = 400
`), 0600))

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", "-f", cfgFile, "-k", keyFile})
	require.NoError(cmd.Execute())
	require.Contains(out.String(), "node.example.org")
	require.Contains(out.String(), k.Address().String())
}

func TestGeometry(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"geometry", "--hops", "4", "--payload", "400"})
	require.NoError(cmd.Execute())
	require.Contains(out.String(), "UserPayloadLength = 400")

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"geometry", "--hops", "0"})
	require.Error(cmd.Execute())
}
