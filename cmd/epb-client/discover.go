// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/discovery"
)

func newDiscoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "list servers visible on the local network",
		RunE:  runDiscover,
	}
	cmd.Flags().Bool("watch", false, "keep watching for Added/Removed events instead of printing one snapshot")
	return cmd
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}
	watch, _ := cmd.Flags().GetBool("watch")

	client, err := discovery.NewClient()
	if err != nil {
		return fmt.Errorf("opening discovery client: %w", err)
	}
	defer client.Close()

	if !watch {
		peers := client.BroadcastOnce(discovery.BroadcastPeriod)
		if len(peers) == 0 {
			fmt.Println("no servers responded")
			return nil
		}
		for _, p := range peers {
			fmt.Printf("%s:%d  server_id=%s\n", p.Addr, p.Port, hex.EncodeToString(p.ID[:]))
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	events := make(chan discovery.Event)
	go func() {
		if err := client.Run(ctx, events); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "discovery: %v\n", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev.Kind {
			case discovery.Added:
				fmt.Printf("+ %s:%d  server_id=%s\n", ev.Peer.Addr, ev.Peer.Port, hex.EncodeToString(ev.Peer.ID[:]))
			case discovery.Removed:
				fmt.Printf("- %s:%d  server_id=%s\n", ev.Peer.Addr, ev.Peer.Port, hex.EncodeToString(ev.Peer.ID[:]))
			}
		}
	}
}
