// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/hoprnet/hoprmix/common"
)

// newRootCommand creates the root cobra command
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hoprmix",
		Short: "HOPR style mixnet node toolkit",
		Long: `hoprmix bundles the tools around the hoprmix node: chain key generation,
configuration validation, packet geometry inspection and an in-process
self test that relays a message over several nodes and collects the
resulting Proof-of-Relay tickets.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newGenKeyCommand(),
		newValidateCommand(),
		newGeometryCommand(),
		newSelfTestCommand(),
	)
	return cmd
}

func main() {
	// Ensure that a sane number of OS threads is allowed.
	if os.Getenv("GOMAXPROCS") == "" {
		// But only if the user isn't trying to override it.
		nProcs := runtime.GOMAXPROCS(0)
		nCPU := runtime.NumCPU()
		if nProcs < nCPU {
			runtime.GOMAXPROCS(nCPU)
		}
	}

	common.ExecuteWithFang(newRootCommand())
}
