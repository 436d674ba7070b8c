// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !noprometheus
// +build !noprometheus

// Package instrument exposes the node counters to prometheus.
package instrument

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/op/go-logging.v1"
)

var (
	registerOnce sync.Once

	packetsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoprmix_packets_received_total",
			Help: "Number of packets received",
		},
	)
	packetsForwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoprmix_packets_forwarded_total",
			Help: "Number of packets forwarded to the next hop",
		},
	)
	packetsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoprmix_packets_delivered_total",
			Help: "Number of packets delivered to this node",
		},
	)
	packetsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoprmix_packets_sent_total",
			Help: "Number of packets originated by this node",
		},
	)
	packetsReplayed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoprmix_packets_replayed_total",
			Help: "Number of replayed packets",
		},
	)
	packetsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoprmix_packets_dropped_total",
			Help: "Number of dropped packets",
		},
		[]string{"reason"},
	)
	acknowledgements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoprmix_acknowledgements_total",
			Help: "Number of acknowledgements received",
		},
		[]string{"outcome"},
	)
	pendingAcknowledgements = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hoprmix_pending_acknowledgements",
			Help: "Number of acknowledgements awaited",
		},
	)
	unwrapDuration = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Name: "hoprmix_unwrap_duration_seconds",
			Help: "Time spent unwrapping one packet",
		},
	)
)

// Init registers the metrics and, if address is set, serves them over HTTP.
// The metrics are process wide, every node in a process shares them.
func Init(address string, log *logging.Logger) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			packetsReceived,
			packetsForwarded,
			packetsDelivered,
			packetsSent,
			packetsReplayed,
			packetsDropped,
			acknowledgements,
			pendingAcknowledgements,
			unwrapDuration,
		)
	})
	if address == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Errorf("Metrics listener terminated: %v", err)
		}
	}()
	log.Noticef("Serving metrics on %v.", address)
}

// PacketReceived increments the counter for received packets.
func PacketReceived() {
	packetsReceived.Inc()
}

// PacketForwarded increments the counter for relayed packets.
func PacketForwarded() {
	packetsForwarded.Inc()
}

// PacketDelivered increments the counter for packets addressed to this node.
func PacketDelivered() {
	packetsDelivered.Inc()
}

// PacketSent increments the counter for originated packets.
func PacketSent() {
	packetsSent.Inc()
}

// PacketReplayed increments the counter for replayed packets.
func PacketReplayed() {
	packetsReplayed.Inc()
}

// PacketDropped increments the counter for dropped packets.
func PacketDropped(reason string) {
	packetsDropped.With(prometheus.Labels{"reason": reason}).Inc()
}

// Acknowledgement increments the counter for received acknowledgements.
func Acknowledgement(outcome string) {
	acknowledgements.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// PendingAcknowledgements sets the number of awaited acknowledgements.
func PendingAcknowledgements(n int) {
	pendingAcknowledgements.Set(float64(n))
}

// UnwrapDuration observes how long one unwrap took.
func UnwrapDuration(d time.Duration) {
	unwrapDuration.Observe(d.Seconds())
}
