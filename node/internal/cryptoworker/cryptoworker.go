// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package cryptoworker implements the pool of packet processing workers.
package cryptoworker

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"gopkg.in/op/go-logging.v1"

	"github.com/hoprnet/hoprmix/core/log"
	"github.com/hoprnet/hoprmix/core/worker"
)

// Job is an inbound packet waiting to be processed.
type Job struct {
	// ID identifies the job in the processing results.
	ID uint64

	// Packet is the raw wire packet.
	Packet []byte

	// PreviousHop is the key of the node the packet came from.
	PreviousHop *btcec.PublicKey

	// RecvAt is when the packet was enqueued.
	RecvAt time.Time
}

// Handler does the actual processing of a job.
type Handler interface {
	HandleJob(*Job)
}

// Worker is a packet processing worker instance.
type Worker struct {
	worker.Worker

	log     *logging.Logger
	handler Handler
	slack   time.Duration

	incomingCh <-chan *Job
}

func (w *Worker) worker() {
	for {
		var job *Job
		select {
		case <-w.HaltCh():
			w.log.Debugf("Terminating gracefully.")
			return
		case job = <-w.incomingCh:
		}

		// Drop the packet if it has been sitting in the queue for too long,
		// its predecessor has likely given up on the acknowledgement.
		now := time.Now()
		if delay := now.Sub(job.RecvAt); w.slack > 0 && delay > w.slack {
			w.log.Debugf("Dropping packet: %v (Spent %v waiting for processing)", job.ID, delay)
			continue
		}

		w.handler.HandleJob(job)
		w.log.Debugf("Packet: %v (processing took: %v)", job.ID, time.Since(now))
	}
}

// New constructs a new Worker instance. Jobs older than slack are dropped,
// a zero slack disables the check.
func New(backend *log.Backend, handler Handler, incomingCh <-chan *Job, slack time.Duration, id int) *Worker {
	w := &Worker{
		log:        backend.GetLogger(fmt.Sprintf("node/cryptoworker:%d", id)),
		handler:    handler,
		slack:      slack,
		incomingCh: incomingCh,
	}
	w.Go(w.worker)
	return w
}
