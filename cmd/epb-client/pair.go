// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package main

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/config"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/discovery"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/pairing"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/protocol"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/rpktls"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/store"
)

func newPairCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair <server-address>",
		Short: "pair with a server, identified by address:port or discovered by server id hex prefix",
		Args:  cobra.ExactArgs(1),
		RunE:  runPair,
	}
	cmd.Flags().String("device-name", "", "name this client presents during pairing (defaults to hostname)")
	cmd.Flags().String("sync-dir", "", "local directory to sync to this server once paired (required)")
	return cmd
}

func runPair(cmd *cobra.Command, args []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}

	storagePath, _ := cmd.Flags().GetString("storage")
	deviceName, _ := cmd.Flags().GetString("device-name")
	syncDir, _ := cmd.Flags().GetString("sync-dir")
	if syncDir == "" {
		return fmt.Errorf("--sync-dir is required")
	}
	if deviceName == "" {
		deviceName, _ = os.Hostname()
	}
	cfg := config.Static{Sync: syncDir, Device: deviceName, Storage: storagePath}

	addr, err := resolveServerAddress(args[0])
	if err != nil {
		return err
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := protocol.ClientNegotiateVersion(conn); err != nil {
		return fmt.Errorf("version handshake: %w", err)
	}

	clientPub, clientPriv, err := rpktls.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generating client key pair: %w", err)
	}

	result, err := pairing.ClientPair(conn, clientPub, cfg.DeviceName(), promptUserConfirm)
	if err != nil {
		return fmt.Errorf("pairing: %w", err)
	}

	var serverID [16]byte
	copy(serverID[:], result.ServerID)

	cs := store.NewClientStore(cfg.StoragePath())
	if err := cs.Load(); err != nil {
		return fmt.Errorf("loading client store: %w", err)
	}
	ps := store.PairedServer{
		ServerID:         serverID,
		ServerName:       result.ServerName,
		ServerPublicKey:  result.ServerPublicKey,
		ClientPublicKey:  clientPub,
		ClientPrivateKey: clientPriv,
		DirectoriesToSync: []store.DirectoryToSync{
			{Path: cfg.SyncDirectory(), FilesChangeDetectionData: map[string]store.FileChangeDetectionData{}},
		},
	}
	if err := cs.UpsertPairedServer(ps); err != nil {
		return fmt.Errorf("saving paired server: %w", err)
	}

	fmt.Printf("paired with %q (server_id=%s)\n", result.ServerName, hex.EncodeToString(result.ServerID))
	return nil
}

// promptUserConfirm shows the SAS on this terminal and asks the operator
// to compare it against what the server displays.
func promptUserConfirm(sas string) (bool, error) {
	line := liner.NewLiner()
	defer line.Close()

	answer, err := line.Prompt(fmt.Sprintf("server shows %s, does it match? [y/N] ", sas))
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y"), nil
}

// resolveServerAddress accepts either a literal host:port or a prefix of a
// hex-encoded server id, in which case it broadcasts a discovery query and
// picks the first responder whose id starts with that prefix.
func resolveServerAddress(target string) (string, error) {
	if _, _, err := net.SplitHostPort(target); err == nil {
		return target, nil
	}

	client, err := discovery.NewClient()
	if err != nil {
		return "", fmt.Errorf("opening discovery client: %w", err)
	}
	defer client.Close()

	peers := client.BroadcastOnce(discovery.BroadcastPeriod)
	for _, p := range peers {
		if strings.HasPrefix(hex.EncodeToString(p.ID[:]), strings.ToLower(target)) {
			return net.JoinHostPort(p.Addr.String(), strconv.Itoa(p.Port)), nil
		}
	}
	return "", fmt.Errorf("no discovered server matches %q", target)
}
