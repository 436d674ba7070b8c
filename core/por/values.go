// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package por

import (
	"errors"

	"github.com/hoprnet/hoprmix/core/crypto/kdf"
	"github.com/hoprnet/hoprmix/core/crypto/keyshares"
)

// ProofOfRelayStringLength is the length of the relayer data every
// forwarding hop finds in its routing info block.
const ProofOfRelayStringLength = HalfKeyChallengeLength + EthereumChallengeLength

var errNoSecrets = errors.New("por: no per-hop secrets")

// ProofOfRelayString is the data a forwarding hop needs to issue the ticket
// and acknowledgement challenge for the next hop.
type ProofOfRelayString struct {
	// NextAckChallenge is the acknowledgement challenge of the next hop.
	NextAckChallenge HalfKeyChallenge

	// NextTicketChallenge is the challenge of the next hop's ticket.
	NextTicketChallenge EthereumChallenge
}

// Bytes serializes the string.
func (s *ProofOfRelayString) Bytes() []byte {
	b := make([]byte, 0, ProofOfRelayStringLength)
	b = append(b, s.NextAckChallenge[:]...)
	return append(b, s.NextTicketChallenge[:]...)
}

// ParseProofOfRelayString deserializes a ProofOfRelayString.
func ParseProofOfRelayString(b []byte) (*ProofOfRelayString, error) {
	if len(b) != ProofOfRelayStringLength {
		return nil, ErrInvalidChallenge
	}
	s := new(ProofOfRelayString)
	var err error
	if s.NextAckChallenge, err = NewHalfKeyChallenge(b[:HalfKeyChallengeLength]); err != nil {
		return nil, err
	}
	copy(s.NextTicketChallenge[:], b[HalfKeyChallengeLength:])
	return s, nil
}

// ProofOfRelayValues is what the sender needs for the first ticket of a
// path.
type ProofOfRelayValues struct {
	// AckChallenge is the challenge the first hop's acknowledgement answers.
	AckChallenge HalfKeyChallenge

	// TicketChallenge is the challenge of the first ticket.
	TicketChallenge EthereumChallenge

	// OwnKey is the first hop's own HalfKey.
	OwnKey HalfKey
}

// OwnHalfKey returns the HalfKey a hop keeps to itself.
func OwnHalfKey(secret *keyshares.SharedSecret) HalfKey {
	s := kdf.DeriveOwnKey(secret[:])
	defer s.Zero()
	return HalfKeyFromScalar(s)
}

// AckHalfKey returns the HalfKey a hop hands back as acknowledgement.
func AckHalfKey(secret *keyshares.SharedSecret) HalfKey {
	s := kdf.DeriveAckKey(secret[:])
	defer s.Zero()
	return HalfKeyFromScalar(s)
}

// ackChallengeAt returns the acknowledgement challenge hop i expects. The
// final hop receives no acknowledgement and commits to its own ack key.
func ackChallengeAt(secrets []keyshares.SharedSecret, i int) HalfKeyChallenge {
	next := i + 1
	if next == len(secrets) {
		next = i
	}
	h := AckHalfKey(&secrets[next])
	defer h.Reset()
	return h.ToChallenge()
}

func ticketChallengeAt(secrets []keyshares.SharedSecret, i int, ackChallenge *HalfKeyChallenge) (EthereumChallenge, error) {
	own := OwnHalfKey(&secrets[i])
	defer own.Reset()
	ownChallenge := own.ToChallenge()
	c, err := ChallengeFromHintAndShare(&ownChallenge, ackChallenge)
	if err != nil {
		return EthereumChallenge{}, err
	}
	return c.ToEthereumChallenge(), nil
}

// NewProofOfRelayValues derives the first hop's values from the per-hop
// secrets of a path.
func NewProofOfRelayValues(secrets []keyshares.SharedSecret) (*ProofOfRelayValues, error) {
	if len(secrets) == 0 {
		return nil, errNoSecrets
	}
	v := &ProofOfRelayValues{AckChallenge: ackChallengeAt(secrets, 0)}
	var err error
	if v.TicketChallenge, err = ticketChallengeAt(secrets, 0, &v.AckChallenge); err != nil {
		return nil, err
	}
	v.OwnKey = OwnHalfKey(&secrets[0])
	return v, nil
}

// NewProofOfRelayStrings derives the relayer data of every forwarding hop,
// one string for each hop but the last.
func NewProofOfRelayStrings(secrets []keyshares.SharedSecret) ([]*ProofOfRelayString, error) {
	if len(secrets) == 0 {
		return nil, errNoSecrets
	}
	strs := make([]*ProofOfRelayString, 0, len(secrets)-1)
	for j := 0; j < len(secrets)-1; j++ {
		s := &ProofOfRelayString{NextAckChallenge: ackChallengeAt(secrets, j+1)}
		var err error
		if s.NextTicketChallenge, err = ticketChallengeAt(secrets, j+1, &s.NextAckChallenge); err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	return strs, nil
}

// PreVerify checks, before forwarding, that the ticket challenge a hop was
// handed commits to its own HalfKey and the acknowledgement challenge it
// expects from the next hop.
func PreVerify(secret *keyshares.SharedSecret, ackChallenge *HalfKeyChallenge, challenge *EthereumChallenge) bool {
	own := OwnHalfKey(secret)
	defer own.Reset()
	ownChallenge := own.ToChallenge()
	c, err := ChallengeFromHintAndShare(&ownChallenge, ackChallenge)
	if err != nil {
		return false
	}
	e := c.ToEthereumChallenge()
	return e.Equal(challenge)
}
