// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

//go:build noprometheus
// +build noprometheus

// Package instrument exposes the node counters to prometheus.
package instrument

import (
	"time"

	"gopkg.in/op/go-logging.v1"
)

// Init does nothing
func Init(address string, log *logging.Logger) {}

// PacketReceived does nothing
func PacketReceived() {}

// PacketForwarded does nothing
func PacketForwarded() {}

// PacketDelivered does nothing
func PacketDelivered() {}

// PacketSent does nothing
func PacketSent() {}

// PacketReplayed does nothing
func PacketReplayed() {}

// PacketDropped does nothing
func PacketDropped(reason string) {}

// Acknowledgement does nothing
func Acknowledgement(outcome string) {}

// PendingAcknowledgements does nothing
func PendingAcknowledgements(n int) {}

// UnwrapDuration does nothing
func UnwrapDuration(d time.Duration) {}
