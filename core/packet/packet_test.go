// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package packet

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/por"
	"github.com/hoprnet/hoprmix/core/sphinx/geo"
	"github.com/hoprnet/hoprmix/core/tickets"
)

func TestPacketRoundTrip(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	g := geo.GeometryFromUserPayloadLength(500, geo.DefaultMaxHops, por.ProofOfRelayStringLength, 0)
	issuer, err := chainkey.NewKeypair(rand.Reader)
	require.NoError(err)

	k, err := secp256k1.GeneratePrivateKey()
	require.NoError(err)
	h := por.HalfKeyFromScalar(&k.Key)
	hint := h.ToChallenge()

	tk, err := tickets.NewTicket(issuer.Address(), por.EthereumChallenge{0x01}, big.NewInt(1), tickets.WinProbFromFloat(1), big.NewInt(0), big.NewInt(1), issuer)
	require.NoError(err)

	p := &Packet{
		Sphinx:           make([]byte, g.PacketLength),
		AckChallengeHint: hint,
		AckChallenge:     por.NewAcknowledgementChallenge(hint, issuer),
		Ticket:           tk,
	}
	_, err = rand.Read(p.Sphinx)
	require.NoError(err)

	b := p.Bytes()
	require.Len(b, Length(g))

	parsed, err := Parse(g, b)
	require.NoError(err)
	require.Equal(b, parsed.Bytes())
	require.True(parsed.AckChallenge.Validate(parsed.AckChallengeHint, issuer.PublicKey()))
	require.NoError(parsed.Ticket.Verify(issuer.Address()))

	b[0] ^= 0xff
	require.NotEqual(b[0], parsed.Sphinx[0], "Parse must copy")

	_, err = Parse(g, b[1:])
	require.ErrorIs(err, ErrInvalidPacket)

	bad := append([]byte{}, b...)
	copy(bad[g.PacketLength:], make([]byte, por.HalfKeyChallengeLength))
	_, err = Parse(g, bad)
	require.ErrorIs(err, ErrInvalidPacket)
}
