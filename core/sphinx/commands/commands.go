// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package commands implements the per-hop routing info blocks of the packet
// header.
package commands

import (
	"encoding/binary"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/katzenpost/hpqc/util"

	"github.com/hoprnet/hoprmix/core/crypto/kdf"
	"github.com/hoprnet/hoprmix/core/sphinx/framing"
	"github.com/hoprnet/hoprmix/core/sphinx/geo"
)

// EndPrefix marks the routing info block of the final hop. A compressed
// public key never starts with it.
const EndPrefix = 0xff

var errInvalidCommand = errors.New("sphinx: invalid per-hop routing info")

// RoutingCommand is the common interface exposed by the per-hop routing
// info blocks.
type RoutingCommand interface {
	// ToBytes appends the serialized command, padded to one routing info
	// block, to slice b and returns the resulting slice.
	ToBytes(b []byte, g *geo.Geometry) ([]byte, error)
}

// RelayHop instructs a hop to forward the packet.
type RelayHop struct {
	// NextNode is the compressed public key of the next hop.
	NextNode [geo.NodeIDLength]byte

	// PathPosition is the number of hops remaining after this one.
	PathPosition uint8

	// MAC is the header MAC the next hop will verify.
	MAC [kdf.MACLength]byte

	// RelayerData is opaque data for this hop, RelayerDataLength bytes.
	RelayerData []byte
}

// ToBytes appends the serialized RelayHop to slice b.
func (cmd *RelayHop) ToBytes(b []byte, g *geo.Geometry) ([]byte, error) {
	if len(cmd.RelayerData) != g.RelayerDataLength {
		return nil, errInvalidCommand
	}
	b = append(b, cmd.NextNode[:]...)
	b = append(b, cmd.PathPosition)
	b = append(b, cmd.MAC[:]...)
	b = append(b, cmd.RelayerData...)
	return b, nil
}

// FinalHop marks the destination of the packet.
type FinalHop struct {
	// Data is at most LastHopDataLength bytes for the destination.
	Data []byte
}

// ToBytes appends the serialized FinalHop to slice b, zero padded to one
// routing info block.
func (cmd *FinalHop) ToBytes(b []byte, g *geo.Geometry) ([]byte, error) {
	if len(cmd.Data) > g.LastHopDataLength {
		return nil, errInvalidCommand
	}
	start := len(b)
	b = append(b, EndPrefix)
	b = framing.AppendEncode(b, cmd.Data, nil)
	if pad := g.PerHopRoutingInfoLength - (len(b) - start); pad > 0 {
		b = append(b, make([]byte, pad)...)
	}
	return b, nil
}

// FromBytes deserializes one routing info block.
func FromBytes(b []byte, g *geo.Geometry) (RoutingCommand, error) {
	if len(b) != g.PerHopRoutingInfoLength {
		return nil, errInvalidCommand
	}
	if b[0] == EndPrefix {
		return finalHopFromBytes(b[1:], g)
	}
	return relayHopFromBytes(b, g)
}

func relayHopFromBytes(b []byte, g *geo.Geometry) (RoutingCommand, error) {
	if _, err := secp256k1.ParsePubKey(b[:geo.NodeIDLength]); err != nil {
		return nil, errInvalidCommand
	}
	cmd := new(RelayHop)
	copy(cmd.NextNode[:], b[:geo.NodeIDLength])
	b = b[geo.NodeIDLength:]
	cmd.PathPosition = b[0]
	b = b[geo.PathPositionLength:]
	copy(cmd.MAC[:], b[:kdf.MACLength])
	b = b[kdf.MACLength:]
	cmd.RelayerData = make([]byte, g.RelayerDataLength)
	copy(cmd.RelayerData, b)
	return cmd, nil
}

func finalHopFromBytes(b []byte, g *geo.Geometry) (RoutingCommand, error) {
	if len(b) < framing.PrefixLength {
		return nil, errInvalidCommand
	}
	l := int(binary.BigEndian.Uint32(b[:framing.PrefixLength]))
	if l > g.LastHopDataLength || framing.PrefixLength+l > len(b) {
		return nil, errInvalidCommand
	}
	used := framing.PrefixLength + l
	data, err := framing.Decode(b[:used], nil)
	if err != nil {
		return nil, errInvalidCommand
	}
	if !util.CtIsZero(b[used:]) {
		return nil, errInvalidCommand
	}
	return &FinalHop{Data: data}, nil
}
