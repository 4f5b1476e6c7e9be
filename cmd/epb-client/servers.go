// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/store"
)

func newServersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "inspect and manage paired servers",
	}
	cmd.AddCommand(newServersListCommand())
	cmd.AddCommand(newServersRemoveCommand())
	return cmd
}

func newServersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list paired servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			storagePath, _ := cmd.Flags().GetString("storage")
			cs := store.NewClientStore(storagePath)
			if err := cs.Load(); err != nil {
				return fmt.Errorf("loading client store: %w", err)
			}

			servers := cs.PairedServers()
			if len(servers) == 0 {
				fmt.Println("no paired servers")
				return nil
			}
			for _, ps := range servers {
				syncPath := "(no sync directory configured)"
				if len(ps.DirectoriesToSync) == 1 {
					syncPath = ps.DirectoriesToSync[0].Path
				}
				fmt.Printf("%s  %s  syncing %s\n", hex.EncodeToString(ps.ServerID[:]), ps.ServerName, syncPath)
			}
			return nil
		},
	}
}

func newServersRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <server-id-hex>",
		Short: "remove a paired server by its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storagePath, _ := cmd.Flags().GetString("storage")
			cs := store.NewClientStore(storagePath)
			if err := cs.Load(); err != nil {
				return fmt.Errorf("loading client store: %w", err)
			}

			raw, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("decoding server id: %w", err)
			}
			if len(raw) != 16 {
				return fmt.Errorf("server id must be 16 bytes, got %d", len(raw))
			}
			var serverID [16]byte
			copy(serverID[:], raw)

			if _, ok := cs.FindPairedServer(serverID); !ok {
				return fmt.Errorf("no paired server with that id")
			}
			if err := cs.RemovePairedServer(serverID); err != nil {
				return fmt.Errorf("removing server: %w", err)
			}
			fmt.Println("removed")
			return nil
		},
	}
}
