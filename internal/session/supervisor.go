// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package session

import (
	"context"
	"time"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/store"
	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/elog"
)

// Supervisor runs RunOnce on a fixed period until its context is
// canceled, logging a one-line summary per paired server at whatever
// verbosity elog is configured for.
type Supervisor struct {
	Store    *store.ClientStore
	Interval time.Duration
}

// Run blocks until ctx is canceled, calling RunOnce once per Interval.
// The first pass happens immediately, not after the first tick.
func (s *Supervisor) Run(ctx context.Context) {
	s.runAndLog()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAndLog()
		}
	}
}

func (s *Supervisor) runAndLog() {
	for _, pr := range RunOnce(s.Store) {
		if pr.Err != nil {
			elog.Error("session: %s: %v", pr.ServerName, pr.Err)
			continue
		}
		switch pr.Result.Outcome {
		case NoNewFiles:
			elog.Debug("session: %s: no new files", pr.ServerName)
		case AllNewFilesSent:
			elog.Info("session: %s: sent %d file(s)", pr.ServerName, len(pr.Result.Sent))
		case SomeFilesSkipped:
			elog.Warn("session: %s: sent %d, skipped %d file(s)", pr.ServerName, len(pr.Result.Sent), len(pr.Result.Skipped))
		}
	}
}
