// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"errors"
	"fmt"

	"github.com/katzenpost/hpqc/rand"
	"github.com/spf13/cobra"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/crypto/pem"
)

func newGenKeyCommand() *cobra.Command {
	var (
		out  string
		isQR bool
	)
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a chain key",
		Long: `Generate a secp256k1 chain key, write it to a PEM file and print the
Ethereum address it controls.`,
		Example: `  # Write a new key and show the address as a QR code
  hoprmix genkey -o node.pem -q`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("key file must be specified with -o/--out")
			}
			if pem.Exists(out) {
				return fmt.Errorf("refusing to overwrite '%v'", out)
			}
			k, err := chainkey.NewKeypair(rand.Reader)
			if err != nil {
				return err
			}
			defer k.Reset()
			if err = pem.ToFile(out, k); err != nil {
				return err
			}
			addr := k.Address().String()
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s, address %s\n", out, addr)
			if isQR {
				printQR(cmd.OutOrStdout(), addr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "path of the PEM key file to create")
	cmd.Flags().BoolVarP(&isQR, "qr", "q", false, "also print the address as a QR code")
	return cmd
}
