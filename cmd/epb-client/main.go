// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/elog"
)

var banner = `easy-photo-backup client, a LAN photo sync sender.
`

func main() {
	root := &cobra.Command{
		Use:   "epb-client",
		Short: "easy-photo-backup client",
		Long:  banner,
	}

	root.PersistentFlags().String("storage", "client_storage.bin", "path to the client's persisted state")
	root.PersistentFlags().String("level", "warn", "log level: debug, info, warn, error, fatal")
	root.PersistentFlags().Bool("v", true, "log on stderr")
	root.PersistentFlags().String("logfile", "", "also log to this file")

	root.AddCommand(newDiscoverCommand())
	root.AddCommand(newPairCommand())
	root.AddCommand(newSyncCommand())
	root.AddCommand(newServersCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command) error {
	levelStr, _ := cmd.Flags().GetString("level")
	stderr, _ := cmd.Flags().GetBool("v")
	logfile, _ := cmd.Flags().GetString("logfile")

	level, err := elog.ParseLevel(levelStr)
	if err != nil {
		return err
	}

	if stderr {
		elog.AddLogger("stderr", os.Stderr, level)
	}
	if logfile != "" {
		f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening logfile: %w", err)
		}
		elog.AddLogger("logfile", f, level)
	}
	return nil
}
