// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package node

import (
	"errors"
	"math/big"
	"sync"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
)

// ErrNoChannel is returned when no payment channel links two nodes.
var ErrNoChannel = errors.New("node: no payment channel")

// Channels is the node's view of the payment channels it is part of.
type Channels interface {
	// ChannelEpoch returns the epoch of the channel from source to
	// destination.
	ChannelEpoch(source, destination chainkey.Address) (*big.Int, error)

	// NextTicketIndex reserves and returns the index of the next ticket
	// issued on the channel from source to destination.
	NextTicketIndex(source, destination chainkey.Address) (*big.Int, error)
}

type channelID struct {
	source      chainkey.Address
	destination chainkey.Address
}

type channel struct {
	epoch *big.Int
	index *big.Int
}

// StaticChannels is an in-memory Channels implementation.
type StaticChannels struct {
	sync.Mutex

	channels map[channelID]*channel
}

// NewStaticChannels creates an empty channel view.
func NewStaticChannels() *StaticChannels {
	return &StaticChannels{channels: make(map[channelID]*channel)}
}

// Open opens, or reopens with a new epoch, the channel from source to
// destination. Reopening resets the ticket index.
func (s *StaticChannels) Open(source, destination chainkey.Address, epoch uint64) {
	s.Lock()
	defer s.Unlock()
	s.channels[channelID{source, destination}] = &channel{
		epoch: new(big.Int).SetUint64(epoch),
		index: new(big.Int),
	}
}

// ChannelEpoch implements Channels.
func (s *StaticChannels) ChannelEpoch(source, destination chainkey.Address) (*big.Int, error) {
	s.Lock()
	defer s.Unlock()
	c, ok := s.channels[channelID{source, destination}]
	if !ok {
		return nil, ErrNoChannel
	}
	return new(big.Int).Set(c.epoch), nil
}

// NextTicketIndex implements Channels.
func (s *StaticChannels) NextTicketIndex(source, destination chainkey.Address) (*big.Int, error) {
	s.Lock()
	defer s.Unlock()
	c, ok := s.channels[channelID{source, destination}]
	if !ok {
		return nil, ErrNoChannel
	}
	idx := new(big.Int).Set(c.index)
	c.index.Add(c.index, big.NewInt(1))
	return idx, nil
}
