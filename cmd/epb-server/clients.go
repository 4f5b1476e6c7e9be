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

func newClientsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "inspect and manage paired clients",
	}
	cmd.AddCommand(newClientsListCommand())
	cmd.AddCommand(newClientsRemoveCommand())
	return cmd
}

func newClientsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list paired clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			storagePath, _ := cmd.Flags().GetString("storage")
			s, err := openServerStoreReadOnly(storagePath)
			if err != nil {
				return err
			}

			clients := s.PairedClients()
			if len(clients) == 0 {
				fmt.Println("no paired clients")
				return nil
			}
			for _, c := range clients {
				fmt.Printf("%s  %s\n", hex.EncodeToString(c.ClientPublicKey), c.Name)
			}
			return nil
		},
	}
}

func newClientsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <client-public-key-hex>",
		Short: "remove a paired client by its public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storagePath, _ := cmd.Flags().GetString("storage")
			s, err := openServerStoreReadOnly(storagePath)
			if err != nil {
				return err
			}

			key, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("decoding client public key: %w", err)
			}
			if _, ok := s.FindPairedClient(key); !ok {
				return fmt.Errorf("no paired client with that public key")
			}
			if err := s.RemovePairedClient(key); err != nil {
				return fmt.Errorf("removing client: %w", err)
			}
			fmt.Println("removed")
			return nil
		},
	}
}

// openServerStoreReadOnly loads the store for a one-shot CLI command.
// machineID starts zero rather than bootstrapped; Load replaces it with
// the stored id, so the save done by `clients remove` (through
// RemovePairedClient) keeps the stored machine id.
func openServerStoreReadOnly(path string) (*store.ServerStore, error) {
	s := store.NewServerStore(path, [16]byte{})
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("loading server store: %w", err)
	}
	return s, nil
}
