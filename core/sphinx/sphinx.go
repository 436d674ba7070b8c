// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package sphinx implements the onion encrypted packet header and payload.
package sphinx

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/go-faster/xor"
	"github.com/katzenpost/hpqc/util"

	"github.com/hoprnet/hoprmix/core/crypto/kdf"
	"github.com/hoprnet/hoprmix/core/crypto/keyshares"
	"github.com/hoprnet/hoprmix/core/sphinx/commands"
	"github.com/hoprnet/hoprmix/core/sphinx/framing"
	"github.com/hoprnet/hoprmix/core/sphinx/geo"
)

var (
	// ErrInvalidPacket is returned for packets of the wrong size.
	ErrInvalidPacket = errors.New("sphinx: invalid packet, bad length")

	// ErrInvalidMAC is returned when the header MAC does not verify.
	ErrInvalidMAC = errors.New("sphinx: invalid packet, MAC mismatch")

	// ErrInvalidPayload is returned when the final hop can not recover the
	// padded payload.
	ErrInvalidPayload = errors.New("sphinx: invalid payload")

	errInvalidPath = errors.New("sphinx: invalid path")
)

// Sphinx is a packet factory for one geometry.
type Sphinx struct {
	geometry *geo.Geometry
}

// NewSphinx creates a new instance of Sphinx.
func NewSphinx(geometry *geo.Geometry) (*Sphinx, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	return &Sphinx{geometry: geometry}, nil
}

// Geometry returns the packet geometry.
func (s *Sphinx) Geometry() *geo.Geometry {
	return s.geometry
}

// Hop is the outcome of unwrapping one layer of a packet.
type Hop struct {
	// Secret is the shared secret of this hop.
	Secret keyshares.SharedSecret

	// IsFinal is true when this hop is the destination.
	IsFinal bool

	// NextNode is the compressed public key of the next hop.
	NextNode [geo.NodeIDLength]byte

	// PathPosition is the number of hops remaining after this one.
	PathPosition uint8

	// RelayerData is the opaque data the sender left for this hop.
	RelayerData []byte

	// LastHopData is the data the sender left for the destination.
	LastHopData []byte

	// Payload is the plaintext message, set for the final hop only.
	Payload []byte
}

// Reset clears the hop secret.
func (h *Hop) Reset() {
	h.Secret.Reset()
}

func (s *Sphinx) createHeader(r io.Reader, shares *keyshares.KeyShares, path []*secp256k1.PublicKey, relayerData [][]byte, lastHopData []byte) ([]byte, error) {
	nrHops := len(path)
	if nrHops == 0 || nrHops > s.geometry.MaxHops || len(shares.Secrets) != nrHops {
		return nil, errInvalidPath
	}
	if len(relayerData) != nrHops-1 {
		return nil, errInvalidPath
	}

	perHop := s.geometry.PerHopRoutingInfoLength

	// Derive the routing_information keystream and encrypted padding for each
	// hop.
	riKeyStream := make([][]byte, nrHops)
	riPadding := make([][]byte, nrHops)
	for i := 0; i < nrHops; i++ {
		params := kdf.DerivePRGParameters(shares.Secrets[i][:])
		stream := params.NewPRG()
		params.Reset()
		keyStream, err := stream.Digest(0, s.geometry.RoutingInfoLength+perHop)
		stream.Reset()
		if err != nil {
			panic("sphinx: BUG: " + err.Error())
		}
		defer util.ExplicitBzero(keyStream)

		ksLen := len(keyStream) - (i+1)*perHop
		riKeyStream[i] = keyStream[:ksLen]
		riPadding[i] = keyStream[ksLen:]
		if i > 0 {
			prevPadLen := len(riPadding[i-1])
			xorBytes(riPadding[i][:prevPadLen], riPadding[i][:prevPadLen], riPadding[i-1])
		}
	}

	// Create the routing_information block.
	var mac []byte
	var routingInfo []byte
	if skippedHops := s.geometry.MaxHops - nrHops; skippedHops > 0 {
		routingInfo = make([]byte, skippedHops*perHop)
		if _, err := io.ReadFull(r, routingInfo); err != nil {
			return nil, err
		}
	}
	for i := nrHops - 1; i >= 0; i-- {
		var cmd commands.RoutingCommand
		if i == nrHops-1 {
			cmd = &commands.FinalHop{Data: lastHopData}
		} else {
			next := &commands.RelayHop{
				PathPosition: uint8(nrHops - 1 - i),
				RelayerData:  relayerData[i],
			}
			copy(next.NextNode[:], path[i+1].SerializeCompressed())
			copy(next.MAC[:], mac)
			cmd = next
		}
		riFragment, err := cmd.ToBytes(make([]byte, 0, perHop), s.geometry)
		if err != nil {
			return nil, err
		}

		routingInfo = append(riFragment, routingInfo...) // Prepend
		xorBytes(routingInfo, routingInfo, riKeyStream[i])

		m := kdf.NewMAC(kdf.DeriveMACKey(shares.Secrets[i][:]))
		m.Write(shares.Alphas[i][:])
		m.Write(routingInfo)
		if i > 0 {
			m.Write(riPadding[i-1])
		}
		mac = m.Sum(nil)
	}

	hdr := make([]byte, 0, s.geometry.HeaderLength)
	hdr = append(hdr, shares.Alpha[:]...)
	hdr = append(hdr, routingInfo...)
	hdr = append(hdr, mac...)
	return hdr, nil
}

// NewPacket creates a packet along path, keyed by the key shares previously
// generated for the same path. relayerData holds one block for every hop but
// the last, lastHopData is handed to the destination.
func (s *Sphinx) NewPacket(r io.Reader, shares *keyshares.KeyShares, path []*secp256k1.PublicKey, relayerData [][]byte, lastHopData, payload []byte) ([]byte, error) {
	padded, err := framing.Pad(payload, []byte(geo.PaddingTag), s.geometry.PayloadLength)
	if err != nil {
		return nil, fmt.Errorf("sphinx: invalid payload length: %d, maximum %d", len(payload), s.geometry.UserPayloadLength)
	}

	hdr, err := s.createHeader(r, shares, path, relayerData, lastHopData)
	if err != nil {
		return nil, err
	}

	// Encrypt the payload, innermost layer first.
	b := padded
	for i := len(path) - 1; i >= 0; i-- {
		params := kdf.DerivePRPParameters(shares.Secrets[i][:])
		p := params.NewPRP()
		params.Reset()
		b, err = p.Permutate(b)
		p.Reset()
		if err != nil {
			panic("sphinx: BUG: " + err.Error())
		}
	}

	pkt := make([]byte, 0, s.geometry.PacketLength)
	pkt = append(pkt, hdr...)
	pkt = append(pkt, b...)
	return pkt, nil
}

// Unwrap unwraps the packet pkt in-place using the hop private key, and
// returns the hop details and the replay tag. The replay tag is returned
// whenever the group element is valid, even if the MAC does not verify.
// When the returned hop is not final, pkt holds the packet for the next hop.
func (s *Sphinx) Unwrap(privKey *secp256k1.PrivateKey, pkt []byte) (*Hop, []byte, error) {
	var (
		riOff      = geo.GroupElementLength
		macOff     = riOff + s.geometry.RoutingInfoLength
		payloadOff = macOff + kdf.MACLength
		perHop     = s.geometry.PerHopRoutingInfoLength
	)

	if len(pkt) != s.geometry.PacketLength {
		return nil, nil, ErrInvalidPacket
	}

	nextAlpha, secret, err := keyshares.ForwardTransform(pkt[:riOff], privKey)
	if err != nil {
		return nil, nil, err
	}
	defer secret.Reset()
	replayTag := kdf.DerivePacketTag(secret[:])

	// Validate the header.
	m := kdf.NewMAC(kdf.DeriveMACKey(secret[:]))
	m.Write(pkt[:macOff])
	mac := m.Sum(nil)
	if subtle.ConstantTimeCompare(pkt[macOff:payloadOff], mac) != 1 {
		return nil, replayTag[:], ErrInvalidMAC
	}

	// Append padding to preserve length invariance, decrypt the (padded)
	// routing_info block, and extract the section for the current hop.
	params := kdf.DerivePRGParameters(secret[:])
	stream := params.NewPRG()
	params.Reset()
	keyStream, err := stream.Digest(0, s.geometry.RoutingInfoLength+perHop)
	stream.Reset()
	if err != nil {
		panic("sphinx: BUG: " + err.Error())
	}
	defer util.ExplicitBzero(keyStream)

	b := make([]byte, s.geometry.RoutingInfoLength+perHop)
	copy(b, pkt[riOff:macOff])
	xorBytes(b, b, keyStream)

	cmd, err := commands.FromBytes(b[:perHop], s.geometry)
	if err != nil {
		return nil, replayTag[:], err
	}

	// Decrypt one layer of the payload.
	prpParams := kdf.DerivePRPParameters(secret[:])
	p := prpParams.NewPRP()
	prpParams.Reset()
	payload, err := p.Inverse(pkt[payloadOff:])
	p.Reset()
	if err != nil {
		return nil, replayTag[:], ErrInvalidPayload
	}

	hop := &Hop{Secret: *secret}
	switch c := cmd.(type) {
	case *commands.RelayHop:
		hop.NextNode = c.NextNode
		hop.PathPosition = c.PathPosition
		hop.RelayerData = c.RelayerData

		copy(pkt[:riOff], nextAlpha[:])
		copy(pkt[riOff:macOff], b[perHop:])
		copy(pkt[macOff:payloadOff], c.MAC[:])
		copy(pkt[payloadOff:], payload)
	case *commands.FinalHop:
		hop.IsFinal = true
		hop.LastHopData = c.Data
		hop.Payload, err = framing.Unpad(payload, []byte(geo.PaddingTag))
		if err != nil {
			hop.Reset()
			return nil, replayTag[:], ErrInvalidPayload
		}
	default:
		panic(fmt.Sprintf("sphinx: BUG: unexpected routing command %T", cmd))
	}
	return hop, replayTag[:], nil
}

func xorBytes(dst, a, b []byte) {
	if len(a) != len(b) || len(a) != len(dst) {
		panic(fmt.Sprintf("sphinx: BUG: xorBytes called with mismatched buffer sizes, got 'len(a)' %d and 'len(b)' %d", len(a), len(b)))
	}
	xor.Bytes(dst, a, b)
}
