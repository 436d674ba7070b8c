// SPDX-FileCopyrightText: Copyright (C) 2026 The hoprmix Authors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"charm.land/lipgloss/v2"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/katzenpost/hpqc/rand"
	"github.com/spf13/cobra"

	"github.com/hoprnet/hoprmix/core/crypto/chainkey"
	"github.com/hoprnet/hoprmix/node"
	"github.com/hoprnet/hoprmix/node/config"
)

var okStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))

type selfTestOptions struct {
	hops     int
	message  string
	dataDir  string
	logLevel string
	workers  int
}

func newSelfTestCommand() *cobra.Command {
	var opts selfTestOptions
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Relay a message over in-process nodes",
		Long: `Start one sender and a path of in-process nodes, send a message through
the relays to the destination, hand every acknowledgement back and report
the tickets that became redeemable. The crypto workers of every node do
the packet processing, exactly as they would behind a transport.`,
		Example: `  # Relay over two relays to a destination
  hoprmix selftest --hops 3 --message hello

  # Keep the node state and debug logs around for inspection
  hoprmix selftest --hops 3 --data-dir /tmp/hoprmix --log-level DEBUG`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := runSelfTest(cmd.Context(), opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Self test passed, %d redeemable tickets.", n)))
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.hops, "hops", 3, "number of hops, relays and destination")
	cmd.Flags().StringVarP(&opts.message, "message", "m", "hello mixnet", "message to send")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "directory for the node state, a temporary one by default")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "write node logs at this level into each node's data directory")
	cmd.Flags().IntVar(&opts.workers, "workers", 2, "crypto workers per node")
	return cmd
}

func newSelfTestNode(opts *selfTestOptions, id int, channels node.Channels) (*node.Node, error) {
	cfg := &config.Config{
		Node: &config.Node{
			Identifier: fmt.Sprintf("selftest%d", id),
			DataDir:    filepath.Join(opts.dataDir, fmt.Sprintf("node%d", id)),
		},
		Logging: &config.Logging{
			Disable: opts.logLevel == "",
			File:    "hoprmix.log",
			Level:   opts.logLevel,
		},
		Debug: &config.Debug{
			NumCryptoWorkers: opts.workers,
		},
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	if opts.hops > cfg.Sphinx.MaxHops {
		return nil, fmt.Errorf("invalid argument: --hops %d exceeds the maximum of %d", opts.hops, cfg.Sphinx.MaxHops)
	}

	k, err := chainkey.NewKeypair(rand.Reader)
	if err != nil {
		return nil, err
	}
	return node.New(cfg, k, channels)
}

// runSelfTest returns the number of redeemable tickets the relays hold once
// the message was delivered.
func runSelfTest(ctx context.Context, opts selfTestOptions, w io.Writer) (int, error) {
	if opts.hops < 1 {
		return 0, fmt.Errorf("invalid argument: --hops %d", opts.hops)
	}
	if opts.dataDir == "" {
		d, err := os.MkdirTemp("", "hoprmix-selftest")
		if err != nil {
			return 0, err
		}
		defer os.RemoveAll(d)
		opts.dataDir = d
	} else if err := os.MkdirAll(opts.dataDir, 0700); err != nil {
		return 0, err
	}

	channels := node.NewStaticChannels()
	nodes := make([]*node.Node, 0, opts.hops+1)
	defer func() {
		for _, n := range nodes {
			n.Shutdown()
		}
	}()
	for i := 0; i <= opts.hops; i++ {
		n, err := newSelfTestNode(&opts, i, channels)
		if err != nil {
			return 0, err
		}
		nodes = append(nodes, n)
	}
	for _, a := range nodes {
		for _, b := range nodes {
			if a != b {
				channels.Open(a.Address(), b.Address(), 1)
			}
		}
		a.Start()
	}

	path := make([]*btcec.PublicKey, 0, opts.hops)
	for _, n := range nodes[1:] {
		path = append(path, n.PublicKey())
	}
	msg := []byte(opts.message)
	nextHop, pkt, err := nodes[0].SendMessage(msg, path)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "Sent %d bytes from %v over %d hops.\n", len(pkt), nodes[0].Address(), opts.hops)

	prev := nodes[0]
	for i, cur := range nodes[1:] {
		if !cur.PublicKey().IsEqual(nextHop) {
			return 0, fmt.Errorf("hop %d: packet routed to an unexpected node", i)
		}
		res, err := processOn(ctx, cur, pkt, prev.PublicKey())
		if err != nil {
			return 0, fmt.Errorf("hop %d: %w", i, err)
		}
		acked, err := prev.ProcessAcknowledgement(res.Acknowledgement, cur.PublicKey())
		if err != nil {
			return 0, fmt.Errorf("hop %d: acknowledgement: %w", i, err)
		}
		if acked != nil {
			fmt.Fprintf(w, "  %v: redeemable %v\n", prev.Address(), acked.Ticket)
		}

		if res.IsDelivered() {
			if !bytes.Equal(res.Delivered, msg) {
				return 0, errors.New("delivered message does not match")
			}
			fmt.Fprintf(w, "  %v: delivered %q\n", cur.Address(), res.Delivered)
			break
		}
		nextHop, pkt = res.NextHop, res.Packet
		prev = cur
	}

	total := 0
	for _, n := range nodes {
		t, err := n.RedeemableTickets()
		if err != nil {
			return 0, err
		}
		total += len(t)
	}
	if want := opts.hops - 1; total != want {
		return total, fmt.Errorf("%d redeemable tickets, expected %d", total, want)
	}
	return total, nil
}

// processOn hands pkt to the crypto workers of n and waits for the outcome.
func processOn(ctx context.Context, n *node.Node, pkt []byte, previousHop *btcec.PublicKey) (*node.Result, error) {
	id, err := n.Enqueue(pkt, previousHop)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case p := <-n.Results():
			if p.ID != id {
				continue
			}
			return p.Result, p.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
