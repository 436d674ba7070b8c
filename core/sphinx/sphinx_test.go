// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package sphinx

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/hoprnet/hoprmix/core/crypto/keyshares"
	"github.com/hoprnet/hoprmix/core/sphinx/geo"
)

const testRelayerDataLength = 53

func newTestSphinx(t *testing.T, maxHops int) *Sphinx {
	g := geo.GeometryFromUserPayloadLength(500, maxHops, testRelayerDataLength, 16)
	s, err := NewSphinx(g)
	require.NoError(t, err)
	return s
}

type testPath struct {
	privs       []*secp256k1.PrivateKey
	pubs        []*secp256k1.PublicKey
	shares      *keyshares.KeyShares
	relayerData [][]byte
}

func newTestPath(t *testing.T, s *Sphinx, n int) *testPath {
	require := require.New(t)
	p := &testPath{}
	for i := 0; i < n; i++ {
		k, err := secp256k1.GeneratePrivateKey()
		require.NoError(err)
		p.privs = append(p.privs, k)
		p.pubs = append(p.pubs, k.PubKey())
	}
	var err error
	p.shares, err = keyshares.GenerateKeyShares(rand.Reader, p.pubs)
	require.NoError(err)
	for i := 0; i < n-1; i++ {
		d := make([]byte, s.Geometry().RelayerDataLength)
		_, err := rand.Read(d)
		require.NoError(err)
		p.relayerData = append(p.relayerData, d)
	}
	return p
}

func TestForwardSphinx(t *testing.T) {
	t.Parallel()
	const maxHops = 5

	s := newTestSphinx(t, maxHops)
	for nrHops := 1; nrHops <= maxHops; nrHops++ {
		t.Run(fmt.Sprintf("%d hops", nrHops), func(t *testing.T) {
			require := require.New(t)
			path := newTestPath(t, s, nrHops)
			payload := []byte("It is the stillest words that bring on the storm.")
			lastHopData := []byte("destination")

			pkt, err := s.NewPacket(rand.Reader, path.shares, path.pubs, path.relayerData, lastHopData, payload)
			require.NoError(err)
			require.Len(pkt, s.Geometry().PacketLength)

			tags := make(map[string]bool)
			for i := range path.pubs {
				hop, tag, err := s.Unwrap(path.privs[i], pkt)
				require.NoError(err, "Hop %d: Unwrap failed", i)
				require.Len(pkt, s.Geometry().PacketLength, "Hop %d: packet length changed", i)
				require.Equal(path.shares.Secrets[i], hop.Secret, "Hop %d: secret", i)
				require.False(tags[string(tag)], "Hop %d: repeated replay tag", i)
				tags[string(tag)] = true

				if i == nrHops-1 {
					require.True(hop.IsFinal, "Hop %d: expected final hop", i)
					require.Equal(payload, hop.Payload)
					require.Equal(lastHopData, hop.LastHopData)
				} else {
					require.False(hop.IsFinal, "Hop %d: unexpected final hop", i)
					require.Equal(path.pubs[i+1].SerializeCompressed(), hop.NextNode[:])
					require.Equal(uint8(nrHops-1-i), hop.PathPosition)
					require.Equal(path.relayerData[i], hop.RelayerData)
					require.Nil(hop.Payload)
				}
			}
		})
	}
}

func TestUnwrapWrongKey(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	s := newTestSphinx(t, geo.DefaultMaxHops)
	path := newTestPath(t, s, 3)
	pkt, err := s.NewPacket(rand.Reader, path.shares, path.pubs, path.relayerData, nil, []byte("hello"))
	require.NoError(err)

	other, err := secp256k1.GeneratePrivateKey()
	require.NoError(err)
	_, tag, err := s.Unwrap(other, pkt)
	require.ErrorIs(err, ErrInvalidMAC)
	require.NotNil(tag, "replay tag must be returned on MAC failure")
}

func TestHeaderBitFlip(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	s := newTestSphinx(t, 2)
	path := newTestPath(t, s, 2)
	pkt, err := s.NewPacket(rand.Reader, path.shares, path.pubs, path.relayerData, nil, []byte("hello"))
	require.NoError(err)

	for off := 0; off < s.Geometry().HeaderLength; off++ {
		flipped := append([]byte{}, pkt...)
		flipped[off] ^= 0x01
		_, _, err := s.Unwrap(path.privs[0], flipped)
		require.Error(err, "header flip at %d accepted", off)
	}
}

func TestPayloadBitFlip(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	s := newTestSphinx(t, 3)
	path := newTestPath(t, s, 3)
	pkt, err := s.NewPacket(rand.Reader, path.shares, path.pubs, path.relayerData, nil, []byte("hello"))
	require.NoError(err)

	pkt[len(pkt)-1] ^= 0x80
	for i := 0; i < 2; i++ {
		_, _, err := s.Unwrap(path.privs[i], pkt)
		require.NoError(err, "Hop %d: relays do not authenticate the payload", i)
	}
	_, _, err = s.Unwrap(path.privs[2], pkt)
	require.ErrorIs(err, ErrInvalidPayload)
}

func TestNewPacketInvalid(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	s := newTestSphinx(t, 2)
	path := newTestPath(t, s, 2)

	_, err := s.NewPacket(rand.Reader, path.shares, path.pubs, path.relayerData, nil, make([]byte, s.Geometry().UserPayloadLength+1))
	require.Error(err, "oversized payload")

	_, err = s.NewPacket(rand.Reader, path.shares, path.pubs, nil, nil, nil)
	require.Error(err, "missing relayer data")

	_, err = s.NewPacket(rand.Reader, path.shares, path.pubs, [][]byte{{0x01}}, nil, nil)
	require.Error(err, "short relayer data")

	long := newTestPath(t, newTestSphinx(t, 3), 3)
	_, err = s.NewPacket(rand.Reader, long.shares, long.pubs, long.relayerData, nil, nil)
	require.Error(err, "path longer than MaxHops")

	_, _, err = s.Unwrap(path.privs[0], make([]byte, s.Geometry().PacketLength-1))
	require.ErrorIs(err, ErrInvalidPacket)
}
