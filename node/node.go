// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package node ties the packet format and the Proof-of-Relay scheme together
// into a relay node that exchanges byte slices with its host.
package node

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"gopkg.in/op/go-logging.v1"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/log"
	"github.com/hoprnet/hoprmix/core/sphinx"
	"github.com/hoprnet/hoprmix/core/tickets"
	"github.com/hoprnet/hoprmix/core/worker"
	"github.com/hoprnet/hoprmix/node/config"
	"github.com/hoprnet/hoprmix/node/internal/cryptoworker"
	"github.com/hoprnet/hoprmix/node/internal/instrument"
	"github.com/hoprnet/hoprmix/node/internal/profiling"
	"github.com/hoprnet/hoprmix/node/internal/replay"
	"github.com/hoprnet/hoprmix/node/internal/ticketdb"
)

var (
	// ErrReplay is returned for packets that were already processed.
	ErrReplay = errors.New("node: packet is a replay")

	// ErrInvalidTicket is returned when the ticket of a packet is not
	// acceptable.
	ErrInvalidTicket = errors.New("node: invalid ticket")

	// ErrInvalidChallenge is returned when the acknowledgement challenge of
	// a packet does not verify.
	ErrInvalidChallenge = errors.New("node: invalid acknowledgement challenge")

	// ErrUnknownAcknowledgement is returned for acknowledgements nothing is
	// waiting for.
	ErrUnknownAcknowledgement = errors.New("node: unexpected acknowledgement")

	// ErrHalted is returned when the node is shutting down.
	ErrHalted = errors.New("node: halted")

	// ErrNotStarted is returned by Enqueue before Start was called.
	ErrNotStarted = errors.New("node: not started")
)

const jobQueueLength = 64

// Node is a relay node.
type Node struct {
	worker.Worker

	cfg      *config.Config
	keypair  *chainkey.Keypair
	address  chainkey.Address
	channels Channels
	sphinx   *sphinx.Sphinx

	price          *big.Int
	winProb        *big.Int
	inverseWinProb *big.Int

	logBackend *log.Backend
	log        *logging.Logger

	db     *ticketdb.DB
	replay *replay.Filter

	workers  []*cryptoworker.Worker
	jobCh    chan *cryptoworker.Job
	resultCh chan *Processed
	jobID    atomic.Uint64
	started  atomic.Bool

	stopProfiling func() error

	// opLock is held for reading by every operation that touches the
	// ticket store, and for writing while the store is closed.
	opLock sync.RWMutex
	halted bool

	startOnce sync.Once
	haltOnce  sync.Once
}

// Processed is the outcome of a packet submitted with Enqueue.
type Processed struct {
	// ID is the value Enqueue returned for the packet.
	ID uint64

	// Result is set when the packet was accepted.
	Result *Result

	// Err is set when the packet was dropped.
	Err error
}

func (n *Node) initDataDir() error {
	const dirMode = os.ModeDir | 0700
	d := n.cfg.Node.DataDir

	// Initialize the data directory, by ensuring that it exists (or can be
	// created), and that it has the appropriate permissions.
	if fi, err := os.Lstat(d); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("node: failed to stat() DataDir: %v", err)
		}
		if err = os.Mkdir(d, dirMode); err != nil {
			return fmt.Errorf("node: failed to create DataDir: %v", err)
		}
	} else {
		if !fi.IsDir() {
			return fmt.Errorf("node: DataDir '%v' is not a directory", d)
		}
		if fi.Mode() != dirMode {
			return fmt.Errorf("node: DataDir '%v' has invalid permissions '%v', should be '%v'", d, fi.Mode(), dirMode)
		}
	}
	return nil
}

func (n *Node) initLogging() error {
	p := n.cfg.Logging.File
	if !n.cfg.Logging.Disable && p != "" && !filepath.IsAbs(p) {
		p = filepath.Join(n.cfg.Node.DataDir, p)
	}

	var err error
	n.logBackend, err = log.New(p, n.cfg.Logging.Level, n.cfg.Logging.Disable)
	if err == nil {
		n.log = n.logBackend.GetLogger("node")
	}
	return err
}

// PublicKey returns the node's identity public key.
func (n *Node) PublicKey() *btcec.PublicKey {
	return n.keypair.PublicKey()
}

// Address returns the node's Ethereum address.
func (n *Node) Address() chainkey.Address {
	return n.address
}

// LogBackend returns the node's log backend.
func (n *Node) LogBackend() *log.Backend {
	return n.logBackend
}

// RedeemableTickets returns the acknowledged tickets held by the node.
func (n *Node) RedeemableTickets() ([]*tickets.Acknowledged, error) {
	if err := n.acquire(); err != nil {
		return nil, err
	}
	defer n.release()

	return n.db.Acknowledged()
}

// acquire returns ErrHalted once Shutdown closed the ticket store, otherwise
// it holds off Shutdown until release is called.
func (n *Node) acquire() error {
	n.opLock.RLock()
	if n.halted {
		n.opLock.RUnlock()
		return ErrHalted
	}
	return nil
}

func (n *Node) release() {
	n.opLock.RUnlock()
}

// RotateLog rotates the log file if logging to a file is enabled.
func (n *Node) RotateLog() error {
	if err := n.logBackend.Rotate(); err != nil {
		return fmt.Errorf("node: failed to rotate log file: %v", err)
	}
	n.log.Notice("Log rotated.")
	return nil
}

// Start spawns the packet processing workers and the pending
// acknowledgement expiry loop.
func (n *Node) Start() {
	n.startOnce.Do(func() {
		for i := 0; i < n.cfg.Debug.NumCryptoWorkers; i++ {
			w := cryptoworker.New(n.logBackend, n, n.jobCh, n.ackTimeout(), i)
			n.workers = append(n.workers, w)
		}
		n.Go(n.expiryWorker)
		n.started.Store(true)
		n.log.Noticef("Started %d crypto workers.", len(n.workers))
	})
}

// Enqueue submits a packet received from previousHop to the workers and
// returns the ID its outcome will carry on Results. Packets still queued
// when Shutdown is called produce no outcome.
func (n *Node) Enqueue(pkt []byte, previousHop *btcec.PublicKey) (uint64, error) {
	select {
	case <-n.HaltCh():
		return 0, ErrHalted
	default:
	}
	if !n.started.Load() {
		return 0, ErrNotStarted
	}
	job := &cryptoworker.Job{
		ID:          n.jobID.Add(1),
		Packet:      pkt,
		PreviousHop: previousHop,
		RecvAt:      time.Now(),
	}
	select {
	case n.jobCh <- job:
		return job.ID, nil
	case <-n.HaltCh():
		return 0, ErrHalted
	}
}

// Results returns the channel the outcome of every enqueued packet is
// written to.
func (n *Node) Results() <-chan *Processed {
	return n.resultCh
}

// HandleJob implements cryptoworker.Handler.
func (n *Node) HandleJob(job *cryptoworker.Job) {
	res, err := n.ProcessPacket(job.Packet, job.PreviousHop)
	select {
	case n.resultCh <- &Processed{ID: job.ID, Result: res, Err: err}:
	case <-n.HaltCh():
	}
}

func (n *Node) ackTimeout() time.Duration {
	return time.Duration(n.cfg.Tickets.AckTimeout) * time.Millisecond
}

func (n *Node) expiryWorker() {
	interval := n.ackTimeout() / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-n.HaltCh():
			n.log.Debugf("Terminating expiry worker.")
			return
		case <-t.C:
		}
		n.expirePending(time.Now())
	}
}

func (n *Node) expirePending(now time.Time) {
	if err := n.acquire(); err != nil {
		return
	}
	defer n.release()

	if _, err := n.db.ExpirePending(now.Add(-n.ackTimeout())); err != nil {
		n.log.Errorf("Failed to expire pending acknowledgements: %v", err)
		return
	}
	if count, err := n.db.CountPending(); err == nil {
		instrument.PendingAcknowledgements(count)
	}
}

// Shutdown cleanly shuts down a given Node instance.
func (n *Node) Shutdown() {
	n.haltOnce.Do(func() { n.halt() })
}

func (n *Node) halt() {
	n.log.Notice("Starting graceful shutdown.")

	// The workers block on the node halt channel when handing off results.
	n.Halt()
	for _, w := range n.workers {
		w.Halt()
	}
	n.workers = nil

	// Wait for in flight operations before closing the store.
	n.opLock.Lock()
	n.halted = true
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.log.Warningf("Failed to close ticket store: %v", err)
		}
	}
	n.opLock.Unlock()
	if n.stopProfiling != nil {
		if err := n.stopProfiling(); err != nil {
			n.log.Warningf("Failed to stop profiling: %v", err)
		}
	}
	n.log.Notice("Shutdown complete.")
}

// New returns a new Node instance parameterized with the specific
// configuration. The caller retains ownership of keypair.
func New(cfg *config.Config, keypair *chainkey.Keypair, channels Channels) (*Node, error) {
	n := &Node{
		cfg:      cfg,
		keypair:  keypair,
		address:  keypair.Address(),
		channels: channels,
		jobCh:    make(chan *cryptoworker.Job, jobQueueLength),
		resultCh: make(chan *Processed, jobQueueLength),
	}

	// Do the early initialization and bring up logging.
	if err := n.initDataDir(); err != nil {
		return nil, err
	}
	if err := n.initLogging(); err != nil {
		return nil, err
	}
	if n.cfg.Logging.Level == "DEBUG" {
		n.log.Warning("Unsafe Debug logging is enabled.")
	}
	n.log.Noticef("Node %v address is: %v", cfg.Node.Identifier, n.address)

	var err error
	if n.sphinx, err = sphinx.NewSphinx(cfg.Sphinx.Geometry()); err != nil {
		return nil, err
	}
	n.log.Debugf("Packet geometry: %v", n.sphinx.Geometry())
	if n.price, err = cfg.Tickets.Price(); err != nil {
		return nil, err
	}
	n.winProb = tickets.WinProbFromFloat(cfg.Tickets.WinProb)
	n.inverseWinProb = tickets.InverseWinProb(n.winProb)

	if n.replay, err = replay.New(cfg.Debug.ReplayFilterLog2Entries, cfg.Debug.ReplayFilterFalsePositiveRate); err != nil {
		return nil, fmt.Errorf("node: failed to create replay filter: %v", err)
	}

	// Past this point, failures need to call n.Shutdown() to do cleanup.
	isOk := false
	defer func() {
		if !isOk {
			n.Shutdown()
		}
	}()

	if n.db, err = ticketdb.Open(cfg.TicketDBPath(), n.logBackend.GetLogger("node/ticketdb")); err != nil {
		n.log.Errorf("Failed to open ticket store: %v", err)
		return nil, err
	}
	instrument.Init(cfg.Node.MetricsAddress, n.log)
	if n.stopProfiling, err = profiling.Start(cfg.Node.Identifier, n.log); err != nil {
		n.log.Warningf("Profiling disabled: %v", err)
	}

	isOk = true
	return n, nil
}
