// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package geo describes the sizes of every part of a packet.
package geo

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hoprnet/hoprmix/core/crypto/kdf"
	"github.com/hoprnet/hoprmix/core/crypto/keyshares"
	"github.com/hoprnet/hoprmix/core/crypto/prp"
	"github.com/hoprnet/hoprmix/core/sphinx/framing"
)

const (
	// NodeIDLength is the length of a next hop identifier, a compressed
	// public key.
	NodeIDLength = keyshares.GroupElementLength

	// GroupElementLength is the length of alpha.
	GroupElementLength = keyshares.GroupElementLength

	// PathPositionLength is the length of the path position field.
	PathPositionLength = 1

	// PaddingTag separates the length prefix from the payload.
	PaddingTag = "HOPR"

	// DefaultMaxHops is the default header capacity, three relays and the
	// destination.
	DefaultMaxHops = 4
)

// Geometry describes the geometry of a packet.
type Geometry struct {

	// PacketLength is the length of a packet.
	PacketLength int

	// MaxHops is the number of hops the header has room for.
	MaxHops int

	// HeaderLength is the length of the header: alpha, routing info and MAC.
	HeaderLength int

	// RoutingInfoLength is the length of the routing info portion of the header.
	RoutingInfoLength int

	// PerHopRoutingInfoLength is the length of the per hop routing info.
	PerHopRoutingInfoLength int

	// RelayerDataLength is the length of the opaque data handed to every
	// forwarding hop.
	RelayerDataLength int

	// LastHopDataLength is the length of the data handed to the final hop.
	LastHopDataLength int

	// PayloadLength is the size of the encrypted payload.
	PayloadLength int

	// UserPayloadLength is the size of the usable payload.
	UserPayloadLength int

	// NodeIDLength is the node identifier length in bytes.
	NodeIDLength int

	// MACLength is the header MAC length in bytes.
	MACLength int
}

func (g *Geometry) String() string {
	var b strings.Builder
	b.WriteString("packet_geometry:\n")
	b.WriteString(fmt.Sprintf("packet size: %d\n", g.PacketLength))
	b.WriteString(fmt.Sprintf("max hops: %d\n", g.MaxHops))
	b.WriteString(fmt.Sprintf("header size: %d\n", g.HeaderLength))
	b.WriteString(fmt.Sprintf("routing info size: %d\n", g.RoutingInfoLength))
	b.WriteString(fmt.Sprintf("per hop routing info size: %d\n", g.PerHopRoutingInfoLength))
	b.WriteString(fmt.Sprintf("relayer data size: %d\n", g.RelayerDataLength))
	b.WriteString(fmt.Sprintf("last hop data size: %d\n", g.LastHopDataLength))
	b.WriteString(fmt.Sprintf("payload size: %d\n", g.PayloadLength))
	b.WriteString(fmt.Sprintf("user payload size: %d\n", g.UserPayloadLength))
	return b.String()
}

// Display returns the geometry as a TOML block.
func (g *Geometry) Display() string {
	buf := new(bytes.Buffer)
	encoder := toml.NewEncoder(buf)
	err := encoder.Encode(g)
	if err != nil {
		panic(err)
	}
	return buf.String()
}

// Validate checks that the geometry is self consistent.
func (g *Geometry) Validate() error {
	if g.MaxHops < 1 || g.MaxHops > keyshares.MaxPathLength {
		return fmt.Errorf("geo: MaxHops %d out of range 1..%d", g.MaxHops, keyshares.MaxPathLength)
	}
	if g.RelayerDataLength < 0 || g.LastHopDataLength < 0 || g.UserPayloadLength < 0 {
		return errors.New("geo: negative length")
	}
	if g.NodeIDLength != NodeIDLength || g.MACLength != kdf.MACLength {
		return errors.New("geo: unsupported node ID or MAC length")
	}
	f := newFactory(g.MaxHops, g.RelayerDataLength, g.LastHopDataLength)
	if 1+framing.PrefixLength+g.LastHopDataLength > f.perHopRoutingInfoLength() {
		return errors.New("geo: last hop data does not fit one routing info block")
	}
	if g.PayloadLength < prp.MinLength {
		return fmt.Errorf("geo: PayloadLength %d below the permutation minimum %d", g.PayloadLength, prp.MinLength)
	}
	expected := f.build(g.UserPayloadLength)
	if *expected != *g {
		return errors.New("geo: derived lengths are inconsistent")
	}
	return nil
}

type geometryFactory struct {
	maxHops           int
	relayerDataLength int
	lastHopDataLength int
}

func newFactory(maxHops, relayerDataLength, lastHopDataLength int) *geometryFactory {
	return &geometryFactory{
		maxHops:           maxHops,
		relayerDataLength: relayerDataLength,
		lastHopDataLength: lastHopDataLength,
	}
}

func (f *geometryFactory) perHopRoutingInfoLength() int {
	return NodeIDLength + PathPositionLength + kdf.MACLength + f.relayerDataLength
}

func (f *geometryFactory) routingInfoLength() int {
	return f.perHopRoutingInfoLength() * f.maxHops
}

func (f *geometryFactory) headerLength() int {
	return GroupElementLength + f.routingInfoLength() + kdf.MACLength
}

func (f *geometryFactory) payloadLength(userPayloadLength int) int {
	return userPayloadLength + framing.Overhead([]byte(PaddingTag))
}

func (f *geometryFactory) build(userPayloadLength int) *Geometry {
	payloadLength := f.payloadLength(userPayloadLength)
	return &Geometry{
		PacketLength:            f.headerLength() + payloadLength,
		MaxHops:                 f.maxHops,
		HeaderLength:            f.headerLength(),
		RoutingInfoLength:       f.routingInfoLength(),
		PerHopRoutingInfoLength: f.perHopRoutingInfoLength(),
		RelayerDataLength:       f.relayerDataLength,
		LastHopDataLength:       f.lastHopDataLength,
		PayloadLength:           payloadLength,
		UserPayloadLength:       userPayloadLength,
		NodeIDLength:            NodeIDLength,
		MACLength:               kdf.MACLength,
	}
}

// GeometryFromUserPayloadLength returns the geometry of packets carrying
// userPayloadLength bytes of user data through at most maxHops hops.
func GeometryFromUserPayloadLength(userPayloadLength, maxHops, relayerDataLength, lastHopDataLength int) *Geometry {
	return newFactory(maxHops, relayerDataLength, lastHopDataLength).build(userPayloadLength)
}
