// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import (
	"crypto/rand"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/hoprnet/hoprmix/core/sphinx/geo"
)

var testGeo = geo.GeometryFromUserPayloadLength(500, geo.DefaultMaxHops, 53, 16)

func TestRelayHop(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	k, err := secp256k1.GeneratePrivateKey()
	require.NoError(err)

	cmd := &RelayHop{PathPosition: 2, RelayerData: make([]byte, testGeo.RelayerDataLength)}
	copy(cmd.NextNode[:], k.PubKey().SerializeCompressed())
	_, err = rand.Read(cmd.MAC[:])
	require.NoError(err)
	_, err = rand.Read(cmd.RelayerData)
	require.NoError(err)

	b, err := cmd.ToBytes(nil, testGeo)
	require.NoError(err)
	require.Len(b, testGeo.PerHopRoutingInfoLength, "RelayHop: ToBytes() length")

	c, err := FromBytes(b, testGeo)
	require.NoError(err)
	require.IsType(cmd, c)
	require.Equal(cmd, c)

	cmd.RelayerData = cmd.RelayerData[1:]
	_, err = cmd.ToBytes(nil, testGeo)
	require.Error(err, "RelayHop: short relayer data")
}

func TestFinalHop(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	for _, data := range [][]byte{{}, []byte("sixteen bytes!!!"), []byte("x")} {
		cmd := &FinalHop{Data: data}
		b, err := cmd.ToBytes(nil, testGeo)
		require.NoError(err)
		require.Len(b, testGeo.PerHopRoutingInfoLength, "FinalHop: ToBytes() length")
		require.Equal(byte(EndPrefix), b[0])

		c, err := FromBytes(b, testGeo)
		require.NoError(err)
		require.Equal(data, c.(*FinalHop).Data)

		b[len(b)-1] = 0x01
		_, err = FromBytes(b, testGeo)
		require.Error(err, "FromBytes(): non-zero padding")
	}

	_, err := (&FinalHop{Data: make([]byte, testGeo.LastHopDataLength+1)}).ToBytes(nil, testGeo)
	require.Error(err, "FinalHop: oversized data")
}

func TestFromBytesInvalid(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	_, err := FromBytes(make([]byte, testGeo.PerHopRoutingInfoLength-1), testGeo)
	require.Error(err, "FromBytes(): short block")

	// Neither a compressed point nor the end marker.
	b := make([]byte, testGeo.PerHopRoutingInfoLength)
	b[0] = 0x04
	_, err = FromBytes(b, testGeo)
	require.Error(err, "FromBytes(): invalid next node")

	b[0] = EndPrefix
	b[1], b[2], b[3], b[4] = 0xff, 0xff, 0xff, 0xff
	_, err = FromBytes(b, testGeo)
	require.Error(err, "FromBytes(): oversized length prefix")
}
