// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/core/crypto/pem"
	"github.com/hoprnet/hoprmix/node/config"
)

func newValidateCommand() *cobra.Command {
	var (
		configFile string
		keyFile    string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a node configuration",
		Long: `Load a node configuration file, apply the defaults and check every
section. On success the resulting packet geometry is printed, and the
address of the key file if one is given.`,
		Example: `  hoprmix validate -f /etc/hoprmix/node.toml -k /etc/hoprmix/node.pem`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				return errors.New("config file must be specified with -f/--config")
			}
			cfg, err := config.LoadFile(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config file '%v': %v", configFile, err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Node %s, ticket store %s\n", cfg.Node.Identifier, cfg.TicketDBPath())
			fmt.Fprintf(w, "\n%s\n\n", cfg.Sphinx.Geometry().Display())

			if keyFile != "" {
				k := new(chainkey.Keypair)
				if err := pem.FromFile(keyFile, k); err != nil {
					return fmt.Errorf("failed to load key file '%v': %v", keyFile, err)
				}
				defer k.Reset()
				fmt.Fprintf(w, "Address %s\n", k.Address())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "f", "", "path to the node configuration file (TOML format)")
	cmd.Flags().StringVarP(&keyFile, "key", "k", "", "path to the node PEM key file")
	return cmd
}
