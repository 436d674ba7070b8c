// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package chainkey

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// AddressLength is the length of an Ethereum address in bytes.
const AddressLength = 20

// ErrInvalidAddress is returned for malformed addresses.
var ErrInvalidAddress = errors.New("chainkey: invalid address")

// Address is an Ethereum address.
type Address [AddressLength]byte

// AddressFromPublicKey returns the address of the public key, the last 20
// bytes of the Keccak256 of the uncompressed point without its prefix.
func AddressFromPublicKey(pub *secp256k1.PublicKey) Address {
	var a Address
	h := Keccak256(pub.SerializeUncompressed()[1:])
	copy(a[:], h[HashLength-AddressLength:])
	return a
}

// NewAddress copies b into an Address.
func NewAddress(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, ErrInvalidAddress
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress parses a 0x prefixed hex address. The checksum case is not
// enforced.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, ErrInvalidAddress
	}
	return NewAddress(b)
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	return append([]byte{}, a[:]...)
}

// IsZero returns true iff the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the EIP-55 checksummed hex encoding of the address.
func (a Address) String() string {
	lower := hex.EncodeToString(a[:])
	h := Keccak256([]byte(lower))

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' {
			continue
		}
		nibble := h[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}
