// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package framing implements length prefixed fields and the fixed size
// padding of packet payloads.
package framing

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"math"

	"github.com/katzenpost/hpqc/util"
)

// PrefixLength is the size of the big endian length prefix.
const PrefixLength = 4

var (
	// ErrTruncated is returned when a buffer ends before a frame does.
	ErrTruncated = errors.New("framing: truncated frame")

	// ErrLengthMismatch is returned when the declared length disagrees with
	// the buffer.
	ErrLengthMismatch = errors.New("framing: length mismatch")

	// ErrTagMismatch is returned when the padding tag does not match.
	ErrTagMismatch = errors.New("framing: padding tag mismatch")

	// ErrInvalidPadding is returned when the bytes after a padded frame are
	// not all zero.
	ErrInvalidPadding = errors.New("framing: invalid padding")

	// ErrTooLarge is returned when a message does not fit the target size.
	ErrTooLarge = errors.New("framing: message too large")
)

// Overhead returns the number of bytes a frame adds around its payload.
func Overhead(tag []byte) int {
	return PrefixLength + len(tag)
}

// Encode returns msg as a frame: uint32be(len(msg)) || tag || msg.
func Encode(msg, tag []byte) []byte {
	return AppendEncode(make([]byte, 0, Overhead(tag)+len(msg)), msg, tag)
}

// AppendEncode appends the frame of msg to dst.
func AppendEncode(dst, msg, tag []byte) []byte {
	if uint64(len(msg)) > math.MaxUint32 {
		panic("framing: BUG: message exceeds the length prefix")
	}
	var prefix [PrefixLength]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(msg)))
	dst = append(dst, prefix[:]...)
	dst = append(dst, tag...)
	return append(dst, msg...)
}

// Decode returns the payload of a single frame spanning exactly buf.
func Decode(buf, tag []byte) ([]byte, error) {
	msg, rest, err := decodeOne(buf, tag)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrLengthMismatch
	}
	return msg, nil
}

// DecodeAll returns the payloads of the concatenated frames in buf, in
// order.
func DecodeAll(buf, tag []byte) ([][]byte, error) {
	var msgs [][]byte
	for len(buf) > 0 {
		msg, rest, err := decodeOne(buf, tag)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
		buf = rest
	}
	return msgs, nil
}

// Pad frames msg and fills the remainder of a size byte buffer with zeros.
func Pad(msg, tag []byte, size int) ([]byte, error) {
	if Overhead(tag)+len(msg) > size {
		return nil, ErrTooLarge
	}
	b := make([]byte, 0, size)
	b = AppendEncode(b, msg, tag)
	return b[:size], nil
}

// Unpad reverses Pad. Every byte following the frame must be zero.
func Unpad(buf, tag []byte) ([]byte, error) {
	msg, rest, err := decodeOne(buf, tag)
	if err != nil {
		return nil, err
	}
	if !util.CtIsZero(rest) {
		return nil, ErrInvalidPadding
	}
	return msg, nil
}

func decodeOne(buf, tag []byte) ([]byte, []byte, error) {
	hdrLen := Overhead(tag)
	if len(buf) < hdrLen {
		return nil, nil, ErrTruncated
	}
	l := uint64(binary.BigEndian.Uint32(buf[:PrefixLength]))
	if subtle.ConstantTimeCompare(buf[PrefixLength:hdrLen], tag) != 1 && len(tag) > 0 {
		return nil, nil, ErrTagMismatch
	}
	if l > uint64(len(buf)-hdrLen) {
		return nil, nil, ErrLengthMismatch
	}
	end := hdrLen + int(l)
	msg := make([]byte, l)
	copy(msg, buf[hdrLen:end])
	return msg, buf[end:], nil
}
