// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !pyroscope
// +build !pyroscope

// Package profiling hooks the node into continuous profiling.
package profiling

import "gopkg.in/op/go-logging.v1"

// Start does nothing beyond logging that profiling is disabled.
func Start(identifier string, log *logging.Logger) (func() error, error) {
	log.Debug("Pyroscope is disabled")
	return func() error { return nil }, nil
}
