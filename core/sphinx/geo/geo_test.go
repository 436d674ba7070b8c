// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package geo

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/schwarmco/go-cartesian-product"
	"github.com/stretchr/testify/require"
)

func TestGeometryCartesianProduct(t *testing.T) {
	t.Parallel()

	maxHops := []interface{}{1, 2, 4, 8}
	relayerData := []interface{}{0, 53, 100}
	payloadSize := []interface{}{28, 500, 1021, 20000}

	for product := range cartesian.Iter(maxHops, relayerData, payloadSize) {
		hops := product[0].(int)
		rd := product[1].(int)
		size := product[2].(int)

		g := GeometryFromUserPayloadLength(size, hops, rd, 0)
		require.NoError(t, g.Validate(), "hops %d relayer data %d payload %d", hops, rd, size)
		require.Equal(t, hops*(NodeIDLength+PathPositionLength+g.MACLength+rd), g.RoutingInfoLength)
		require.Equal(t, g.HeaderLength+g.PayloadLength, g.PacketLength)
		require.Equal(t, size+4+len(PaddingTag), g.PayloadLength)
		t.Logf("hops %d relayer data %d: PacketLength %d UserPayloadLength %d", hops, rd, g.PacketLength, g.UserPayloadLength)
	}
}

func TestGeometryValidate(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	require.Error(GeometryFromUserPayloadLength(500, 0, 53, 0).Validate())
	require.Error(GeometryFromUserPayloadLength(500, 9, 53, 0).Validate())
	require.Error(GeometryFromUserPayloadLength(10, 4, 53, 0).Validate())
	require.Error(GeometryFromUserPayloadLength(500, 4, 0, 100).Validate())

	g := GeometryFromUserPayloadLength(500, 4, 53, 16)
	require.NoError(g.Validate())
	g.PacketLength++
	require.Error(g.Validate())
}

func TestGeometryDisplayRoundTrip(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := GeometryFromUserPayloadLength(1000, DefaultMaxHops, 53, 0)
	g2 := new(Geometry)
	_, err := toml.Decode(g.Display(), g2)
	require.NoError(err)
	require.Equal(g, g2)
	require.Contains(g.String(), "max hops: 4")
}
