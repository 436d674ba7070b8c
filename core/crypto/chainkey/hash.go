// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package chainkey

import (
	"strconv"

	"golang.org/x/crypto/sha3"
)

// HashLength is the Keccak256 digest size in bytes.
const HashLength = 32

const signedMessagePrefix = "\x19Ethereum Signed Message:\n"

// Keccak256 returns the legacy Keccak256 digest of the concatenated inputs.
func Keccak256(data ...[]byte) [HashLength]byte {
	var out [HashLength]byte
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	h.Sum(out[:0])
	return out
}

// EthereumSignedHash returns the digest wallets sign for a personal message,
// the Keccak256 of the prefixed message.
func EthereumSignedHash(msg []byte) [HashLength]byte {
	return Keccak256([]byte(signedMessagePrefix), []byte(strconv.Itoa(len(msg))), msg)
}
