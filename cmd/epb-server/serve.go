// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/config"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/discovery"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/store"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/transfer"
	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/elog"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "accept pairing and photo-transfer connections",
		RunE:  runServe,
	}
	cmd.Flags().String("sync-dir", "", "destination directory new photos are written into (required)")
	cmd.Flags().String("device-name", "", "name this server presents during pairing (defaults to hostname)")
	cmd.Flags().String("collision", "rename", "name-collision strategy for incoming files: overwrite, skip, rename")
	cmd.Flags().String("confirm-helper", "", "external program invoked with the 6-digit SAS to confirm pairing; omitted means prompt on this terminal")
	if err := cmd.MarkFlagRequired("sync-dir"); err != nil {
		panic(err)
	}
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}

	storagePath, _ := cmd.Flags().GetString("storage")
	syncDir, _ := cmd.Flags().GetString("sync-dir")
	deviceName, _ := cmd.Flags().GetString("device-name")
	collisionName, _ := cmd.Flags().GetString("collision")
	confirmHelper, _ := cmd.Flags().GetString("confirm-helper")

	if deviceName == "" {
		deviceName, _ = os.Hostname()
	}
	cfg := config.Static{Sync: syncDir, Device: deviceName, Storage: storagePath}

	strategy, err := parseCollisionStrategy(collisionName)
	if err != nil {
		return err
	}

	serverStore, err := loadOrBootstrapServerStore(cfg.StoragePath())
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}
	defer ln.Close()
	tcpPort := uint16(ln.Addr().(*net.TCPAddr).Port)

	machineID := serverStore.MachineID()
	responder, err := discovery.NewResponder(tcpPort, machineID)
	if err != nil {
		return fmt.Errorf("starting discovery responder: %w", err)
	}
	defer responder.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		elog.Info("epb-server: shutting down")
		cancel()
		ln.Close()
		responder.Close()
	}()

	go func() {
		if err := responder.Run(ctx); err != nil && ctx.Err() == nil {
			elog.Error("discovery responder: %v", err)
		}
	}()

	srv := newServer(serverStore, cfg.SyncDirectory(), cfg.DeviceName(), strategy, confirmHelper)
	go srv.runConfirmPoller(ctx)

	elog.Info("epb-server: listening on port %d as %q", tcpPort, cfg.DeviceName())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		go srv.handleConnection(conn)
	}
}

func parseCollisionStrategy(name string) (transfer.NameCollisionStrategy, error) {
	switch name {
	case "overwrite":
		return transfer.Overwrite, nil
	case "skip":
		return transfer.Skip, nil
	case "rename":
		return transfer.Rename, nil
	default:
		return 0, fmt.Errorf("unknown --collision strategy %q: want overwrite, skip, or rename", name)
	}
}

// loadOrBootstrapServerStore loads the persisted store, generating and
// immediately saving a fresh machine id on first launch.
func loadOrBootstrapServerStore(path string) (*store.ServerStore, error) {
	_, err := os.Stat(path)
	firstLaunch := os.IsNotExist(err)

	var machineID [16]byte
	if firstLaunch {
		id := uuid.New()
		copy(machineID[:], id[:])
	}

	s := store.NewServerStore(path, machineID)
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("loading server store: %w", err)
	}
	if firstLaunch {
		if err := s.Save(); err != nil {
			return nil, fmt.Errorf("persisting freshly generated machine id: %w", err)
		}
	}
	return s, nil
}
