// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package ticketdb implements the persistent store of pending
// acknowledgements and redeemable tickets.
package ticketdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/op/go-logging.v1"

	"github.com/hoprnet/hoprmix/core/por"
	"github.com/hoprnet/hoprmix/core/tickets"
)

const (
	pendingBucket      = "pending"
	acknowledgedBucket = "acknowledged"
	metadataBucket     = "metadata"
	versionKey         = "version"

	storeVersion = 0
)

var (
	// ErrNotFound is returned when no pending acknowledgement matches.
	ErrNotFound = errors.New("ticketdb: no pending acknowledgement")

	// ErrExists is returned when a pending acknowledgement is already
	// stored under the same challenge.
	ErrExists = errors.New("ticketdb: pending acknowledgement exists")

	dbOptions = &bolt.Options{
		NoFreelistSync: true,
		Timeout:        time.Second,
	}
)

// Pending is an acknowledgement a node is waiting for. Sender entries
// belong to packets the node originated and carry no ticket.
type Pending struct {
	Sender  bool
	Ticket  *tickets.Unacknowledged
	Created time.Time
}

type pendingRecord struct {
	Sender  bool   `cbor:"1,keyasint"`
	Ticket  []byte `cbor:"2,keyasint,omitempty"`
	Created int64  `cbor:"3,keyasint"`
}

type acknowledgedRecord struct {
	State  tickets.State `cbor:"1,keyasint"`
	Ticket []byte        `cbor:"2,keyasint"`
}

// DB is a ticket store backed by bbolt.
type DB struct {
	db  *bolt.DB
	log *logging.Logger
}

// Open creates or opens the store at path.
func Open(path string, log *logging.Logger) (*DB, error) {
	db, err := bolt.Open(path, 0600, dbOptions)
	if err != nil {
		return nil, err
	}
	d := &DB{db: db, log: log}
	if err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if b := meta.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != storeVersion {
				return fmt.Errorf("ticketdb: incompatible version: %x", b)
			}
		} else if err := meta.Put([]byte(versionKey), []byte{storeVersion}); err != nil {
			return err
		}
		for _, name := range []string{pendingBucket, acknowledgedBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	log.Debugf("Opened ticket store '%v'.", path)
	return d, nil
}

// Close closes the store.
func (d *DB) Close() error {
	return d.db.Close()
}

// PutPending stores p under the acknowledgement challenge it waits for.
func (d *DB) PutPending(challenge por.HalfKeyChallenge, p *Pending) error {
	rec := pendingRecord{Sender: p.Sender, Created: p.Created.UnixMilli()}
	if p.Ticket != nil {
		rec.Ticket = p.Ticket.Bytes()
	}
	b, err := cbor.Marshal(&rec)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(pendingBucket))
		if bkt.Get(challenge[:]) != nil {
			return ErrExists
		}
		return bkt.Put(challenge[:], b)
	})
}

// TakePending removes and returns the pending acknowledgement stored under
// challenge. Each entry is handed out at most once.
func (d *DB) TakePending(challenge por.HalfKeyChallenge) (*Pending, error) {
	var raw []byte
	if err := d.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(pendingBucket))
		v := bkt.Get(challenge[:])
		if v == nil {
			return ErrNotFound
		}
		raw = append([]byte{}, v...)
		return bkt.Delete(challenge[:])
	}); err != nil {
		return nil, err
	}
	return decodePending(raw)
}

func decodePending(raw []byte) (*Pending, error) {
	var rec pendingRecord
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("ticketdb: corrupted pending record: %w", err)
	}
	p := &Pending{Sender: rec.Sender, Created: time.UnixMilli(rec.Created)}
	if !rec.Sender {
		t, err := tickets.ParseUnacknowledged(rec.Ticket)
		if err != nil {
			return nil, fmt.Errorf("ticketdb: corrupted pending ticket: %w", err)
		}
		p.Ticket = t
	}
	return p, nil
}

// CountPending returns the number of pending acknowledgements.
func (d *DB) CountPending() (int, error) {
	n := 0
	err := d.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(pendingBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

// ExpirePending drops every pending acknowledgement created before the
// cutoff and returns how many were dropped.
func (d *DB) ExpirePending(cutoff time.Time) (int, error) {
	n := 0
	err := d.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(pendingBucket))

		// Deleting through the cursor skips entries, so collect first.
		var expired [][]byte
		if err := bkt.ForEach(func(k, v []byte) error {
			var rec pendingRecord
			if err := cbor.Unmarshal(v, &rec); err == nil && !time.UnixMilli(rec.Created).Before(cutoff) {
				return nil
			}
			expired = append(expired, append([]byte{}, k...))
			return nil
		}); err != nil {
			return err
		}
		for _, k := range expired {
			if err := bkt.Delete(k); err != nil {
				return err
			}
		}
		n = len(expired)
		return nil
	})
	if n > 0 {
		d.log.Debugf("Expired %d pending acknowledgements.", n)
	}
	return n, err
}

// PutAcknowledged stores a redeemable ticket, keyed by the ticket hash.
func (d *DB) PutAcknowledged(a *tickets.Acknowledged) error {
	b, err := cbor.Marshal(&acknowledgedRecord{State: tickets.Redeemable, Ticket: a.Bytes()})
	if err != nil {
		return err
	}
	h := a.Ticket.Hash()
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(acknowledgedBucket)).Put(h[:], b)
	})
}

// Acknowledged returns every redeemable ticket in the store.
func (d *DB) Acknowledged() ([]*tickets.Acknowledged, error) {
	var out []*tickets.Acknowledged
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(acknowledgedBucket)).ForEach(func(k, v []byte) error {
			var rec acknowledgedRecord
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("ticketdb: corrupted ticket record: %w", err)
			}
			if rec.State != tickets.Redeemable {
				return nil
			}
			a, err := tickets.ParseAcknowledged(rec.Ticket)
			if err != nil {
				return fmt.Errorf("ticketdb: corrupted ticket: %w", err)
			}
			out = append(out, a)
			return nil
		})
	})
	return out, err
}
