// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"io"

	"github.com/katzenpost/qrterminal"
	"github.com/spf13/cobra"

	"github.com/hoprnet/hoprmix/core/por"
	"github.com/hoprnet/hoprmix/core/sphinx/geo"
)

func newGeometryCommand() *cobra.Command {
	var (
		maxHops           int
		userPayloadLength int
		lastHopDataLength int
		isQR              bool
	)
	cmd := &cobra.Command{
		Use:   "geometry",
		Short: "Print a packet geometry",
		Long: `Compute the packet geometry for the given parameters and print it in the
TOML form the node configuration uses.`,
		Example: `  hoprmix geometry --hops 4 --payload 500 -q`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := geo.GeometryFromUserPayloadLength(userPayloadLength, maxHops, por.ProofOfRelayStringLength, lastHopDataLength)
			if err := g.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", g.Display())
			if isQR {
				printQR(cmd.OutOrStdout(), g.Display())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxHops, "hops", geo.DefaultMaxHops, "maximum number of hops, relays and destination")
	cmd.Flags().IntVar(&userPayloadLength, "payload", 500, "user payload length")
	cmd.Flags().IntVar(&lastHopDataLength, "last-hop-data", 0, "length of the destination data")
	cmd.Flags().BoolVarP(&isQR, "qr", "q", false, "also print the geometry as a QR code")
	return cmd
}

func printQR(w io.Writer, s string) {
	qrterminal.GenerateWithConfig(s, qrterminal.Config{
		Level:      qrterminal.L,
		Writer:     w,
		HalfBlocks: true,
		QuietZone:  1,
	})
}
