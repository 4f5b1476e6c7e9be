// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/bstore"
)

// ClientStorageFormatVersion is the current on-disk schema version for
// client_storage.bin. Version 0 is the original schema, with no
// migrations registered yet; the first schema change should add an
// AddStep(1, ...) to the updater built in NewClientStore and bump this to
// 1.
const ClientStorageFormatVersion = 0

// ErrMultipleDirectoriesToSync is returned when a PairedServer is asked to
// carry more than one DirectoryToSync. The data model keeps the slice
// shape (the source's own structure permits more), but this
// implementation enforces the single-active-directory invariant as a
// hard error rather than silently using only the first entry.
var ErrMultipleDirectoriesToSync = fmt.Errorf("store: a paired server may have exactly one directory to sync")

// ClientStore is the mutex-guarded, atomically-persisted set of servers a
// client has paired with. A single RWMutex wraps the whole value, matching
// the store's own "single lock guards the whole in-memory state"
// discipline; holding times are meant to be short (clone out, release
// lock, work, reacquire to write back).
type ClientStore struct {
	mu      sync.RWMutex
	path    string
	updater *bstore.StorageUpdater
	servers []PairedServer
}

// NewClientStore constructs an empty, unpersisted store rooted at path.
func NewClientStore(path string) *ClientStore {
	return &ClientStore{path: path, updater: bstore.NewStorageUpdater()}
}

// Load reads path, applying any pending migrations, and replaces the
// in-memory set. A missing file is treated as an empty store, not an
// error, matching first-launch behavior.
func (s *ClientStore) Load() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: opening %s: %w", s.path, err)
	}
	defer f.Close()

	root, err := bstore.LoadFile(f, s.updater, bstore.Limits{})
	if err != nil {
		return fmt.Errorf("store: loading %s: %w", s.path, err)
	}

	array, err := bstore.AsArray(root, "paired_servers")
	if err != nil {
		return fmt.Errorf("store: decoding %s: %w", s.path, err)
	}

	servers := make([]PairedServer, len(array.Elems))
	for i, elem := range array.Elems {
		ps, err := pairedServerFromValue(elem)
		if err != nil {
			return fmt.Errorf("store: decoding %s: %w", s.path, err)
		}
		servers[i] = ps
	}

	s.mu.Lock()
	s.servers = servers
	s.mu.Unlock()
	return nil
}

// save writes the current in-memory set to a temp file and renames it into
// place, so a crash mid-write cannot corrupt the previous, valid file.
// Callers must hold s.mu for reading.
func (s *ClientStore) save() error {
	elems := make([]bstore.Value, len(s.servers))
	for i, ps := range s.servers {
		elems[i] = ps.ToValue()
	}
	root := bstore.ArrayValue{ElemTag: bstore.TagObject, Elems: elems}

	var buf bytes.Buffer
	if err := bstore.SaveFile(&buf, ClientStorageFormatVersion, root); err != nil {
		return fmt.Errorf("store: encoding: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".client_storage-*.tmp")
	if err != nil {
		return fmt.Errorf("store: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: renaming temp file into place: %w", err)
	}
	return nil
}

// PairedServers returns a shallow clone of the currently paired servers.
func (s *ClientStore) PairedServers() []PairedServer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PairedServer, len(s.servers))
	copy(out, s.servers)
	return out
}

// FindPairedServer looks up a server by id.
func (s *ClientStore) FindPairedServer(serverID [16]byte) (PairedServer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ps := range s.servers {
		if ps.ServerID == serverID {
			return ps, true
		}
	}
	return PairedServer{}, false
}

// UpsertPairedServer inserts ps, replacing any existing entry with the
// same server_id, then persists. It rejects ps outright if it carries more
// than one DirectoryToSync.
func (s *ClientStore) UpsertPairedServer(ps PairedServer) error {
	if len(ps.DirectoriesToSync) > 1 {
		return ErrMultipleDirectoriesToSync
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i, existing := range s.servers {
		if existing.ServerID == ps.ServerID {
			s.servers[i] = ps
			replaced = true
			break
		}
	}
	if !replaced {
		s.servers = append(s.servers, ps)
	}
	return s.save()
}

// RemovePairedServer deletes the server with the given id, if present, and
// persists.
func (s *ClientStore) RemovePairedServer(serverID [16]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.servers {
		if existing.ServerID == serverID {
			s.servers = append(s.servers[:i], s.servers[i+1:]...)
			return s.save()
		}
	}
	return nil
}

// UpdateSyncState rewrites the one DirectoryToSync of the named server's
// change-detection state and persists. It is the only mutation path a
// transfer session should use after a routine completes, so that the
// folder mtime and the per-file entries land in storage atomically
// together.
func (s *ClientStore) UpdateSyncState(serverID [16]byte, newFolderMtime int64, confirmedFiles map[string]FileChangeDetectionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.servers {
		if existing.ServerID != serverID {
			continue
		}
		if len(existing.DirectoriesToSync) != 1 {
			return ErrMultipleDirectoriesToSync
		}

		dir := existing.DirectoriesToSync[0]
		mtime := newFolderMtime
		dir.FolderLastModifiedTime = &mtime
		if dir.FilesChangeDetectionData == nil {
			dir.FilesChangeDetectionData = make(map[string]FileChangeDetectionData, len(confirmedFiles))
		}
		for path, data := range confirmedFiles {
			dir.FilesChangeDetectionData[path] = data
		}
		existing.DirectoriesToSync[0] = dir
		s.servers[i] = existing
		return s.save()
	}
	return fmt.Errorf("store: no paired server with the given id")
}
