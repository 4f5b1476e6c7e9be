// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package session drives the periodic send routine: one discovery
// broadcast, one change-detection pass per known paired server, and an
// attempted transfer session for any server with new or modified files.
// It owns no persistent state of its own beyond the client store it is
// handed.
package session

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/changedetect"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/discovery"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/rpktls"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/store"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/transfer"
)

// DiscoveryTimeout is how long one pass waits for discovery responses
// before moving on.
const DiscoveryTimeout = 600 * time.Millisecond

// Outcome classifies what happened when syncing one paired server.
type Outcome int

const (
	// NoNewFiles means the change detector found nothing to send.
	NoNewFiles Outcome = iota
	// AllNewFilesSent means every changed file was confirmed received.
	AllNewFilesSent
	// SomeFilesSkipped means at least one changed file was not confirmed.
	SomeFilesSkipped
)

func (o Outcome) String() string {
	switch o {
	case NoNewFiles:
		return "NoNewFiles"
	case AllNewFilesSent:
		return "AllNewFilesSent"
	case SomeFilesSkipped:
		return "SomeFilesSkipped"
	default:
		return "Unknown"
	}
}

// Result is the outcome of attempting to sync one paired server.
type Result struct {
	Outcome Outcome
	Sent    []string
	Skipped []string
	Reasons []string
}

// PerServerResult pairs a Result (or a failure) with the server it
// describes, so the caller can log or display a per-server summary.
type PerServerResult struct {
	ServerID   [16]byte
	ServerName string
	Result     Result
	Err        error
}

// RunOnce performs a single pass of the periodic send routine: it
// broadcasts one discovery query, then for every paired server that
// answered, runs change detection and, if there is anything new,
// attempts a transfer session. Paired servers that did not answer this
// round are silently absent from the returned slice — they simply
// weren't reachable on this pass, not an error.
func RunOnce(cs *store.ClientStore) []PerServerResult {
	client, err := discovery.NewClient()
	if err != nil {
		return []PerServerResult{{Err: fmt.Errorf("session: opening discovery client: %w", err)}}
	}
	defer client.Close()

	peers := client.BroadcastOnce(DiscoveryTimeout)

	var results []PerServerResult
	for _, ps := range cs.PairedServers() {
		peer, ok := findPeer(peers, ps.ServerID)
		if !ok {
			continue
		}
		addr := net.JoinHostPort(peer.Addr.String(), strconv.Itoa(peer.Port))
		results = append(results, syncOneServer(cs, ps, addr))
	}
	return results
}

func findPeer(peers map[string]discovery.Peer, serverID [16]byte) (discovery.Peer, bool) {
	for _, p := range peers {
		if p.ID == serverID {
			return p, true
		}
	}
	return discovery.Peer{}, false
}

// syncOneServer runs change detection against ps's one sync directory
// and, if there is anything new, opens a transfer session to addr. It
// updates cs's persisted sync state only after the session completes
// (or after a no-op detection pass), never per file.
func syncOneServer(cs *store.ClientStore, ps store.PairedServer, addr string) PerServerResult {
	pr := PerServerResult{ServerID: ps.ServerID, ServerName: ps.ServerName}

	if len(ps.DirectoriesToSync) != 1 {
		pr.Err = store.ErrMultipleDirectoriesToSync
		recordPassError(ps.ServerName)
		return pr
	}
	dir := ps.DirectoriesToSync[0]

	detected, err := changedetect.Detect(dir)
	if err != nil {
		pr.Err = fmt.Errorf("session: detecting changes for %s: %w", ps.ServerName, err)
		recordPassError(ps.ServerName)
		return pr
	}

	if len(detected.Changed) == 0 {
		if err := cs.UpdateSyncState(ps.ServerID, detected.NewLastModifiedTime, nil); err != nil {
			pr.Err = fmt.Errorf("session: recording no-op sync state for %s: %w", ps.ServerName, err)
			recordPassError(ps.ServerName)
			return pr
		}
		pr.Result = Result{Outcome: NoNewFiles}
		return pr
	}

	cert, err := rpktls.WrapKeyPair(ps.ClientPublicKey, ps.ClientPrivateKey)
	if err != nil {
		pr.Err = fmt.Errorf("session: wrapping client key pair for %s: %w", ps.ServerName, err)
		recordPassError(ps.ServerName)
		return pr
	}

	byPath := make(map[string]changedetect.ChangedFile, len(detected.Changed))
	files := make([]transfer.FileToSend, 0, len(detected.Changed))
	for _, cf := range detected.Changed {
		byPath[cf.RelPath] = cf
		files = append(files, transfer.FileToSend{
			RelPath: cf.RelPath,
			AbsPath: filepath.Join(dir.Path, filepath.FromSlash(cf.RelPath)),
			Size:    cf.Size,
		})
	}

	sendResult, sendErr := transfer.RunClientSession(addr, cert, ps.ServerPublicKey, ps.ClientPublicKey, files)

	// sentFilesCache accumulates per-file confirmations in memory for the
	// duration of this one session; the client store is written once,
	// below, rather than once per confirmed file. It is built from
	// sendResult.Outcomes even when sendErr is set: RunClientSession
	// returns whatever confirmations arrived before a mid-batch drop, and
	// persisting those now is what lets a retried pass re-send only the
	// files that were never confirmed, instead of the whole batch.
	sentFilesCache := make(map[string]store.FileChangeDetectionData)
	var sent, skipped, reasons []string
	for _, outcome := range sendResult.Outcomes {
		if outcome.Received {
			cf := byPath[outcome.RelPath]
			sentFilesCache[outcome.RelPath] = store.FileChangeDetectionData{
				LastModifiedTime: cf.ModTimeUnix,
				ContentHash:      cf.ContentHash,
			}
			sent = append(sent, outcome.RelPath)
		} else {
			skipped = append(skipped, outcome.RelPath)
			reasons = append(reasons, "server did not confirm receipt")
		}
	}

	if sendErr != nil {
		if len(sentFilesCache) > 0 {
			// Leave the folder mtime where it was: the batch never
			// finished, so files beyond what was confirmed still need a
			// fresh look next pass, and advancing the high-water mark
			// would hide them.
			priorMtime := int64(0)
			if dir.FolderLastModifiedTime != nil {
				priorMtime = *dir.FolderLastModifiedTime
			}
			if err := cs.UpdateSyncState(ps.ServerID, priorMtime, sentFilesCache); err != nil {
				pr.Err = fmt.Errorf("session: persisting partial sync state for %s: %w", ps.ServerName, err)
				recordPassError(ps.ServerName)
				return pr
			}
		}
		pr.Err = fmt.Errorf("session: transfer session with %s: %w", ps.ServerName, sendErr)
		recordPassError(ps.ServerName)
		return pr
	}

	if err := cs.UpdateSyncState(ps.ServerID, detected.NewLastModifiedTime, sentFilesCache); err != nil {
		pr.Err = fmt.Errorf("session: persisting sync state for %s: %w", ps.ServerName, err)
		recordPassError(ps.ServerName)
		return pr
	}

	recordFilesSent(ps.ServerName, len(sent))
	recordFilesSkipped(ps.ServerName, len(skipped))

	if len(skipped) == 0 {
		pr.Result = Result{Outcome: AllNewFilesSent, Sent: sent}
	} else {
		pr.Result = Result{Outcome: SomeFilesSkipped, Sent: sent, Skipped: skipped, Reasons: reasons}
	}
	return pr
}
