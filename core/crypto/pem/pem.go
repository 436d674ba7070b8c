// pem.go - PEM file write barrier.
//
// Copyright (C) 2022  David Stainton.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package pem stores node keys as PEM files.
package pem

import (
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/katzenpost/hpqc/util"
)

// KeyMaterial is a key that can be written to and read from a PEM block.
type KeyMaterial interface {
	FromBytes([]byte) error

	Bytes() []byte

	KeyType() string
}

// Exists returns true iff the file f exists.
func Exists(f string) bool {
	if _, err := os.Stat(f); err == nil {
		return true
	} else if errors.Is(err, os.ErrNotExist) {
		return false
	} else {
		panic(err)
	}
}

// ToFile writes key to f, refusing to overwrite an existing file.
func ToFile(f string, key KeyMaterial) error {
	keyType := strings.ToUpper(key.KeyType())

	blob := key.Bytes()
	if util.CtIsZero(blob) {
		return fmt.Errorf("pem: ToFile/%s: attempted to serialize scrubbed key", keyType)
	}
	blk := &pem.Block{
		Type:  keyType,
		Bytes: blob,
	}
	out, err := os.OpenFile(f, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	outBuf := pem.EncodeToMemory(blk)
	defer util.ExplicitBzero(outBuf)
	writeCount, err := out.Write(outBuf)
	if err != nil {
		out.Close()
		return err
	}
	if writeCount != len(outBuf) {
		out.Close()
		return errors.New("pem: partial write failure")
	}
	if err = out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FromFile reads the key stored in f into key.
func FromFile(f string, key KeyMaterial) error {
	keyType := strings.ToUpper(key.KeyType())

	buf, err := os.ReadFile(f)
	if err != nil {
		return fmt.Errorf("pem: FromFile error: %w", err)
	}
	defer util.ExplicitBzero(buf)
	blk, _ := pem.Decode(buf)
	if blk == nil {
		return fmt.Errorf("pem: failed to decode PEM file %v", f)
	}
	if blk.Type != keyType {
		return fmt.Errorf("pem: attempted to decode PEM file with wrong key type %v != %v", blk.Type, keyType)
	}
	return key.FromBytes(blk.Bytes)
}
