// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package replay implements the packet replay filter.
package replay

import (
	"sync"

	"github.com/katzenpost/hpqc/rand"
	"github.com/yawning/bloom"

	"github.com/hoprnet/hoprmix/core/crypto/kdf"
)

// Filter remembers the replay tags of processed packets.
type Filter struct {
	sync.Mutex

	f *bloom.Filter
}

// New creates a filter of 2^log2Bits bits tuned for the false positive rate
// fpRate.
func New(log2Bits int, fpRate float64) (*Filter, error) {
	f, err := bloom.New(rand.Reader, log2Bits, fpRate)
	if err != nil {
		return nil, err
	}
	return &Filter{f: f}, nil
}

// IsReplay marks a given replay tag as seen, and returns true iff the tag has
// been seen previously (Test and Set).
func (r *Filter) IsReplay(rawTag []byte) bool {
	// Treat all pathologically malformed tags as replays.
	if len(rawTag) != kdf.TagLength {
		return true
	}

	r.Lock()
	defer r.Unlock()

	// A saturated filter no longer bounds the false positive rate, so every
	// packet is refused until the node restarts with a larger filter.
	if r.f.Entries() >= r.f.MaxEntries() {
		return true
	}
	return r.f.TestAndSet(rawTag)
}

// Saturated returns true once the filter holds its maximum number of entries.
func (r *Filter) Saturated() bool {
	r.Lock()
	defer r.Unlock()
	return r.f.Entries() >= r.f.MaxEntries()
}
