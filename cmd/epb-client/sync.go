// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/session"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/store"
	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/elog"
)

func newSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "run the photo-send routine against every paired server",
		RunE:  runSync,
	}
	cmd.Flags().Bool("daemon", false, "keep running the routine on a fixed interval instead of once")
	cmd.Flags().Duration("interval", 5*time.Minute, "interval between routine runs in --daemon mode")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}

	storagePath, _ := cmd.Flags().GetString("storage")
	daemon, _ := cmd.Flags().GetBool("daemon")
	interval, _ := cmd.Flags().GetDuration("interval")

	cs := store.NewClientStore(storagePath)
	if err := cs.Load(); err != nil {
		return fmt.Errorf("loading client store: %w", err)
	}

	if !daemon {
		return printSyncResults(session.RunOnce(cs))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		elog.Info("epb-client: shutting down")
		cancel()
	}()

	sup := &session.Supervisor{Store: cs, Interval: interval}
	sup.Run(ctx)
	return nil
}

func printSyncResults(results []session.PerServerResult) error {
	if len(results) == 0 {
		fmt.Println("no paired servers responded to discovery")
		return nil
	}
	for _, pr := range results {
		if pr.Err != nil {
			fmt.Printf("%s: error: %v\n", pr.ServerName, pr.Err)
			continue
		}
		switch pr.Result.Outcome {
		case session.NoNewFiles:
			fmt.Printf("%s: no new files\n", pr.ServerName)
		case session.AllNewFilesSent:
			fmt.Printf("%s: sent %d file(s)\n", pr.ServerName, len(pr.Result.Sent))
		case session.SomeFilesSkipped:
			fmt.Printf("%s: sent %d, skipped %d file(s)\n", pr.ServerName, len(pr.Result.Sent), len(pr.Result.Skipped))
		}
	}
	return nil
}
