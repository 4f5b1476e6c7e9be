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

var banner = `easy-photo-backup server, a LAN photo sync receiver.
`

func main() {
	root := &cobra.Command{
		Use:   "epb-server",
		Short: "easy-photo-backup server",
		Long:  banner,
	}

	root.PersistentFlags().String("storage", "server_storage.bin", "path to the server's persisted state")
	root.PersistentFlags().String("level", "warn", "log level: debug, info, warn, error, fatal")
	root.PersistentFlags().Bool("v", true, "log on stderr")
	root.PersistentFlags().String("logfile", "", "also log to this file")

	root.AddCommand(newServeCommand())
	root.AddCommand(newClientsCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging wires the persistent --level/--v/--logfile flags into
// pkg/elog. It is called from each leaf command's RunE rather than a
// PersistentPreRun so commands that want a different default (quieter
// output for a scripted `clients list`, say) stay free to skip it.
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
