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

// ServerStorageFormatVersion is the current on-disk schema version for
// server_storage.bin. See the matching comment on ClientStorageFormatVersion.
const ServerStorageFormatVersion = 0

// PendingPairing is the single in-flight pairing attempt the server
// remembers between ExchangePublicKeys and the user's accept/reject. It
// is transient: never persisted, and evicted the moment a new pairing
// attempt begins.
type PendingPairing struct {
	ClientPublicKey   []byte
	ClientName        string
	ServerPublicKey   []byte
	ServerPrivateKey  []byte
	ServerNonce       []byte
	ConfirmationValue []byte
}

// ServerStore is the mutex-guarded, atomically-persisted server-side peer
// state: a stable machine id, the set of paired clients, and the one
// transient pending-pairing slot.
type ServerStore struct {
	mu              sync.RWMutex
	path            string
	updater         *bstore.StorageUpdater
	machineID       [16]byte
	clients         []PairedClient
	awaitingPairing *PendingPairing
}

// NewServerStore constructs an empty, unpersisted store rooted at path
// with the given machine id. machineID is generated once on first launch
// and never rotated; callers persist it by calling Save after
// NewServerStore when no prior file exists.
func NewServerStore(path string, machineID [16]byte) *ServerStore {
	return &ServerStore{path: path, updater: bstore.NewStorageUpdater(), machineID: machineID}
}

// Load reads path, applying any pending migrations, and replaces the
// in-memory set. A missing file is treated as "use the machineID passed to
// NewServerStore and an empty client list", not an error.
func (s *ServerStore) Load() error {
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

	obj, err := bstore.AsObject(root, "server_storage")
	if err != nil {
		return fmt.Errorf("store: decoding %s: %w", s.path, err)
	}

	machineID, err := bstore.RequireByteArrayField(obj, "machine_id")
	if err != nil {
		return fmt.Errorf("store: decoding %s: %w", s.path, err)
	}
	if len(machineID) != 16 {
		return fmt.Errorf("store: decoding %s: machine_id is %d bytes, want 16", s.path, len(machineID))
	}

	clientsArray, err := bstore.RequireArrayField(obj, "paired_clients")
	if err != nil {
		return fmt.Errorf("store: decoding %s: %w", s.path, err)
	}
	clients := make([]PairedClient, len(clientsArray.Elems))
	for i, elem := range clientsArray.Elems {
		pc, err := pairedClientFromValue(elem)
		if err != nil {
			return fmt.Errorf("store: decoding %s: %w", s.path, err)
		}
		clients[i] = pc
	}

	s.mu.Lock()
	copy(s.machineID[:], machineID)
	s.clients = clients
	s.mu.Unlock()
	return nil
}

// save writes the current in-memory set to a temp file and renames it into
// place. Callers must hold s.mu.
func (s *ServerStore) save() error {
	clients := make([]bstore.Value, len(s.clients))
	for i, pc := range s.clients {
		clients[i] = pc.ToValue()
	}

	root := bstore.ObjectValue{Fields: []bstore.Field{
		{Name: "machine_id", Value: bstore.ByteArrayValue(s.machineID[:])},
		{Name: "paired_clients", Value: bstore.ArrayValue{ElemTag: bstore.TagObject, Elems: clients}},
	}}

	var buf bytes.Buffer
	if err := bstore.SaveFile(&buf, ServerStorageFormatVersion, root); err != nil {
		return fmt.Errorf("store: encoding: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".server_storage-*.tmp")
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

// Save persists the current in-memory state. Exported so a first-launch
// caller can write the freshly generated machine id before any pairing
// has happened.
func (s *ServerStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// MachineID returns the server's stable 16-byte id.
func (s *ServerStore) MachineID() [16]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.machineID
}

// PairedClients returns a shallow clone of the currently paired clients.
func (s *ServerStore) PairedClients() []PairedClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PairedClient, len(s.clients))
	copy(out, s.clients)
	return out
}

// FindPairedClient looks up a client by its public key.
func (s *ServerStore) FindPairedClient(clientPublicKey []byte) (PairedClient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pc := range s.clients {
		if bytes.Equal(pc.ClientPublicKey, clientPublicKey) {
			return pc, true
		}
	}
	return PairedClient{}, false
}

// UpsertPairedClient inserts pc, replacing any existing entry with the
// same client_public_key, then persists.
func (s *ServerStore) UpsertPairedClient(pc PairedClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.clients {
		if bytes.Equal(existing.ClientPublicKey, pc.ClientPublicKey) {
			s.clients[i] = pc
			return s.save()
		}
	}
	s.clients = append(s.clients, pc)
	return s.save()
}

// RemovePairedClient deletes the client with the given public key, if
// present, and persists.
func (s *ServerStore) RemovePairedClient(clientPublicKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.clients {
		if bytes.Equal(existing.ClientPublicKey, clientPublicKey) {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return s.save()
		}
	}
	return nil
}

// SetAwaitingPairingClient stashes (replacing any prior attempt) the
// prospective client from round one of pairing. The lock is held only for
// this call; nothing is held between it and the later
// TakeAwaitingPairingClient, and a newer attempt simply replaces the one
// slot.
func (s *ServerStore) SetAwaitingPairingClient(p PendingPairing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitingPairing = &p
}

// PeekAwaitingPairingClient returns the current pending pairing attempt,
// if any, without clearing it.
func (s *ServerStore) PeekAwaitingPairingClient() (PendingPairing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.awaitingPairing == nil {
		return PendingPairing{}, false
	}
	return *s.awaitingPairing, true
}

// TakeAwaitingPairingClient clears and returns the pending pairing
// attempt, if any. Used once the user's accept/reject decision is known.
func (s *ServerStore) TakeAwaitingPairingClient() (PendingPairing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.awaitingPairing == nil {
		return PendingPairing{}, false
	}
	p := *s.awaitingPairing
	s.awaitingPairing = nil
	return p, true
}
