// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package tickets

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/crypto/keyshares"
	"github.com/hoprnet/hoprmix/core/por"
)

func newTestKeypair(t *testing.T) *chainkey.Keypair {
	k, err := chainkey.NewKeypair(rand.Reader)
	require.NoError(t, err)
	return k
}

func newTestTicket(t *testing.T, issuer *chainkey.Keypair, challenge por.EthereumChallenge) *Ticket {
	counterparty := newTestKeypair(t)
	tk, err := NewTicket(counterparty.Address(), challenge, big.NewInt(100), WinProbFromFloat(1), big.NewInt(7), big.NewInt(1), issuer)
	require.NoError(t, err)
	return tk
}

func TestTicketRoundTrip(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	issuer := newTestKeypair(t)
	tk := newTestTicket(t, issuer, por.EthereumChallenge{0x01, 0x02})
	b := tk.Bytes()
	require.Len(b, TicketLength)

	parsed, err := ParseTicket(b)
	require.NoError(err)
	require.Equal(b, parsed.Bytes())
	require.Equal(tk.Hash(), parsed.Hash())
	require.NoError(parsed.Verify(issuer.Address()))
	require.Equal(0, parsed.Amount().Cmp(big.NewInt(100)))
	require.Equal(0, parsed.Index().Cmp(big.NewInt(7)))

	signer, err := parsed.RecoverSigner()
	require.NoError(err)
	require.Equal(issuer.PublicKey().SerializeCompressed(), signer.SerializeCompressed())

	_, err = ParseTicket(b[1:])
	require.ErrorIs(err, ErrInvalidTicket)
}

func TestTicketBitFlip(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	issuer := newTestKeypair(t)
	b := newTestTicket(t, issuer, por.EthereumChallenge{0xaa}).Bytes()
	for i := range b {
		flipped := append([]byte{}, b...)
		flipped[i] ^= 0x01
		parsed, err := ParseTicket(flipped)
		if err != nil {
			continue
		}
		require.Error(parsed.Verify(issuer.Address()), "flip at %d accepted", i)
	}
}

func TestTicketOutOfRange(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	issuer := newTestKeypair(t)
	one := big.NewInt(1)
	_, err := NewTicket(issuer.Address(), por.EthereumChallenge{}, big.NewInt(-1), one, one, one, issuer)
	assert.Error(err)
	tooBig := new(big.Int).Lsh(one, 256)
	_, err = NewTicket(issuer.Address(), por.EthereumChallenge{}, one, tooBig, one, one, issuer)
	assert.Error(err)
}

func TestWinProbEncoding(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	// floor((2^256 - 1) * percent / 100), the encoding channel contracts
	// compare luck against.
	fromPercent := func(percent int64) *big.Int {
		v := new(big.Int).Mul(maxU256, big.NewInt(percent))
		return v.Div(v, big.NewInt(100))
	}
	for _, v := range []struct {
		p       float64
		percent int64
	}{
		{0, 0},
		{0.25, 25},
		{0.5, 50},
		{0.75, 75},
		{1, 100},
	} {
		require.Zero(WinProbFromFloat(v.p).Cmp(fromPercent(v.percent)), "p = %v", v.p)
	}

	half, ok := new(big.Int).SetString("7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", 16)
	require.True(ok)
	require.Zero(WinProbFromFloat(0.5).Cmp(half))
}

func TestWinProbMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64Range(0, 1).Draw(rt, "a")
		b := rapid.Float64Range(0, 1).Draw(rt, "b")
		if a > b {
			a, b = b, a
		}
		wa, wb := WinProbFromFloat(a), WinProbFromFloat(b)
		if wa.Cmp(wb) > 0 {
			rt.Fatalf("WinProbFromFloat(%v) > WinProbFromFloat(%v)", a, b)
		}
		if !fitsU256(wb) {
			rt.Fatalf("WinProbFromFloat(%v) does not fit 256 bits", b)
		}
	})
}

func TestWinProb(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.Equal(0, WinProbFromFloat(1).Cmp(maxU256))
	assert.Equal(0, WinProbFromFloat(0).Sign())
	assert.Equal(0, InverseWinProb(WinProbFromFloat(1)).Cmp(big.NewInt(1)))
	assert.Equal(0, InverseWinProb(WinProbFromFloat(0.5)).Cmp(big.NewInt(2)))

	issuer := newTestKeypair(t)
	tk := newTestTicket(t, issuer, por.EthereumChallenge{})
	var preimage [chainkey.HashLength]byte
	var r por.Response
	r[31] = 1
	assert.True(tk.IsWinning(preimage, &r), "probability one always wins")

	tk, err := NewTicket(issuer.Address(), por.EthereumChallenge{}, big.NewInt(300), new(big.Int), new(big.Int), new(big.Int), issuer)
	assert.NoError(err)
	assert.False(tk.IsWinning(preimage, &r), "probability zero never wins")
	assert.Equal(uint8(3), tk.GetPathPosition(big.NewInt(100), big.NewInt(1)))
}

// testPath holds what a sender derives for a path of relays.
type testPath struct {
	secrets []keyshares.SharedSecret
	values  *por.ProofOfRelayValues
	strs    []*por.ProofOfRelayString
}

func newTestPath(t *testing.T, n int) *testPath {
	require := require.New(t)
	pubs := make([]*secp256k1.PublicKey, n)
	for i := range pubs {
		k, err := secp256k1.GeneratePrivateKey()
		require.NoError(err)
		pubs[i] = k.PubKey()
	}
	shares, err := keyshares.GenerateKeyShares(rand.Reader, pubs)
	require.NoError(err)
	p := &testPath{secrets: shares.Secrets}
	p.values, err = por.NewProofOfRelayValues(p.secrets)
	require.NoError(err)
	p.strs, err = por.NewProofOfRelayStrings(p.secrets)
	require.NoError(err)
	return p
}

func TestThreeHopProofOfRelay(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	const n = 3
	path := newTestPath(t, n)
	issuers := []*chainkey.Keypair{newTestKeypair(t), newTestKeypair(t)}

	// The ticket of hop j is challenged with values for j == 0 and with the
	// previous hop's string otherwise.
	challenges := []por.EthereumChallenge{path.values.TicketChallenge}
	for _, s := range path.strs {
		challenges = append(challenges, s.NextTicketChallenge)
	}
	seen := map[por.EthereumChallenge]bool{}
	for _, c := range challenges {
		require.False(seen[c], "challenges must be distinct")
		seen[c] = true
	}

	for j := 0; j < n-1; j++ {
		issuer := issuers[j]
		tk := newTestTicket(t, issuer, challenges[j])
		u := NewUnacknowledged(tk, por.OwnHalfKey(&path.secrets[j]), issuer.PublicKey())
		require.NoError(u.VerifySignature())

		// Round trip both encodings before acknowledging.
		v1, err := ParseUnacknowledged(u.Bytes())
		require.NoError(err)
		require.Equal(u.Bytes(), v1.Bytes())
		v0, err := ParseUnacknowledged(u.Bytes()[:UnacknowledgedV0Length])
		require.NoError(err)
		require.Equal(u.Bytes(), v0.Bytes(), "V0 recovers the signer")

		ack := por.AckHalfKey(&path.secrets[j+1])
		require.True(u.VerifyChallenge(&ack), "hop %d", j)

		var random por.HalfKey
		_, err = rand.Read(random[:])
		require.NoError(err)
		require.False(u.VerifyChallenge(&random), "hop %d", j)

		acked, err := u.Acknowledge(&ack)
		require.NoError(err)
		require.NoError(acked.Verify(issuer.Address()))

		parsed, err := ParseAcknowledged(acked.Bytes())
		require.NoError(err)
		require.Equal(acked.Bytes(), parsed.Bytes())

		_, err = u.Acknowledge(&ack)
		require.ErrorIs(err, ErrTicketConsumed)
	}
}

func TestAcknowledgeWrongKey(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	path := newTestPath(t, 2)
	issuer := newTestKeypair(t)
	tk := newTestTicket(t, issuer, path.values.TicketChallenge)
	u := NewUnacknowledged(tk, path.values.OwnKey, issuer.PublicKey())

	wrong := por.AckHalfKey(&path.secrets[0])
	_, err := u.Acknowledge(&wrong)
	require.ErrorIs(err, ErrChallengeMismatch)

	right := por.AckHalfKey(&path.secrets[1])
	_, err = u.Acknowledge(&right)
	require.ErrorIs(err, ErrTicketConsumed, "a failed acknowledgement still consumes the ticket")
}

func TestStateString(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("Redeemable", Redeemable.String())
	assert.Equal("Unknown", State(42).String())
}
