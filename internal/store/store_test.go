// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package store

import (
	"path/filepath"
	"testing"
)

func TestClientStoreUpsertAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client_storage.bin")

	cs := NewClientStore(path)
	if err := cs.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}

	var serverID [16]byte
	serverID[0] = 7

	mtime := int64(1000)
	ps := PairedServer{
		ServerID:         serverID,
		ServerName:       "kitchen-pi",
		ServerPublicKey:  []byte{1, 2, 3},
		ClientPublicKey:  []byte{4, 5, 6},
		ClientPrivateKey: []byte{7, 8, 9},
		DirectoriesToSync: []DirectoryToSync{
			{
				Path:                   "/home/user/photos",
				FolderLastModifiedTime: &mtime,
				FilesChangeDetectionData: map[string]FileChangeDetectionData{
					"a/b.txt": {LastModifiedTime: 500, ContentHash: []byte{0xAA, 0xBB}},
				},
			},
		},
	}

	if err := cs.UpsertPairedServer(ps); err != nil {
		t.Fatalf("UpsertPairedServer: %v", err)
	}

	reloaded := NewClientStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	got, ok := reloaded.FindPairedServer(serverID)
	if !ok {
		t.Fatalf("expected reloaded store to contain the paired server")
	}
	if got.ServerName != ps.ServerName {
		t.Fatalf("server name mismatch: got %q want %q", got.ServerName, ps.ServerName)
	}
	if len(got.DirectoriesToSync) != 1 {
		t.Fatalf("expected exactly one directory to sync, got %d", len(got.DirectoriesToSync))
	}
	if *got.DirectoriesToSync[0].FolderLastModifiedTime != mtime {
		t.Fatalf("mtime mismatch: got %d want %d", *got.DirectoriesToSync[0].FolderLastModifiedTime, mtime)
	}
	data, ok := got.DirectoriesToSync[0].FilesChangeDetectionData["a/b.txt"]
	if !ok {
		t.Fatalf("expected a/b.txt change detection entry to survive reload")
	}
	if data.LastModifiedTime != 500 {
		t.Fatalf("file mtime mismatch: got %d want 500", data.LastModifiedTime)
	}
}

func TestClientStoreRejectsMultipleDirectoriesToSync(t *testing.T) {
	dir := t.TempDir()
	cs := NewClientStore(filepath.Join(dir, "client_storage.bin"))

	ps := PairedServer{
		DirectoriesToSync: []DirectoryToSync{
			{Path: "/a", FilesChangeDetectionData: map[string]FileChangeDetectionData{}},
			{Path: "/b", FilesChangeDetectionData: map[string]FileChangeDetectionData{}},
		},
	}
	if err := cs.UpsertPairedServer(ps); err != ErrMultipleDirectoriesToSync {
		t.Fatalf("expected ErrMultipleDirectoriesToSync, got %v", err)
	}
}

func TestClientStoreRemovePairedServer(t *testing.T) {
	dir := t.TempDir()
	cs := NewClientStore(filepath.Join(dir, "client_storage.bin"))

	var id [16]byte
	id[0] = 1
	if err := cs.UpsertPairedServer(PairedServer{ServerID: id}); err != nil {
		t.Fatalf("UpsertPairedServer: %v", err)
	}
	if err := cs.RemovePairedServer(id); err != nil {
		t.Fatalf("RemovePairedServer: %v", err)
	}
	if _, ok := cs.FindPairedServer(id); ok {
		t.Fatalf("expected server to be removed")
	}
}

func TestClientStoreUpdateSyncState(t *testing.T) {
	dir := t.TempDir()
	cs := NewClientStore(filepath.Join(dir, "client_storage.bin"))

	var id [16]byte
	id[0] = 2
	ps := PairedServer{
		ServerID: id,
		DirectoriesToSync: []DirectoryToSync{
			{Path: "/syncroot", FilesChangeDetectionData: map[string]FileChangeDetectionData{}},
		},
	}
	if err := cs.UpsertPairedServer(ps); err != nil {
		t.Fatalf("UpsertPairedServer: %v", err)
	}

	confirmed := map[string]FileChangeDetectionData{
		"a/b.txt": {LastModifiedTime: 111, ContentHash: []byte{1}},
	}
	if err := cs.UpdateSyncState(id, 222, confirmed); err != nil {
		t.Fatalf("UpdateSyncState: %v", err)
	}

	got, ok := cs.FindPairedServer(id)
	if !ok {
		t.Fatalf("expected server to still be present")
	}
	if *got.DirectoriesToSync[0].FolderLastModifiedTime != 222 {
		t.Fatalf("expected folder mtime 222, got %d", *got.DirectoriesToSync[0].FolderLastModifiedTime)
	}
	if _, ok := got.DirectoriesToSync[0].FilesChangeDetectionData["a/b.txt"]; !ok {
		t.Fatalf("expected confirmed file entry to be recorded")
	}
}

func TestServerStoreUpsertAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server_storage.bin")

	var machineID [16]byte
	machineID[0] = 42

	ss := NewServerStore(path, machineID)
	pc := PairedClient{
		Name:             "phone",
		ClientPublicKey:  []byte{1, 2},
		ServerPublicKey:  []byte{3, 4},
		ServerPrivateKey: []byte{5, 6},
	}
	if err := ss.UpsertPairedClient(pc); err != nil {
		t.Fatalf("UpsertPairedClient: %v", err)
	}

	reloaded := NewServerStore(path, [16]byte{})
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.MachineID() != machineID {
		t.Fatalf("machine id mismatch after reload")
	}
	got, ok := reloaded.FindPairedClient([]byte{1, 2})
	if !ok {
		t.Fatalf("expected paired client to survive reload")
	}
	if got.Name != "phone" {
		t.Fatalf("name mismatch: got %q", got.Name)
	}
}

func TestServerStoreAwaitingPairingClientIsTransient(t *testing.T) {
	dir := t.TempDir()
	var machineID [16]byte
	ss := NewServerStore(filepath.Join(dir, "server_storage.bin"), machineID)

	pending := PendingPairing{ClientName: "phone", ClientPublicKey: []byte{9}}
	ss.SetAwaitingPairingClient(pending)

	got, ok := ss.PeekAwaitingPairingClient()
	if !ok || got.ClientName != "phone" {
		t.Fatalf("expected to peek the pending pairing, got %+v ok=%v", got, ok)
	}

	// A second pairing attempt displaces the first.
	ss.SetAwaitingPairingClient(PendingPairing{ClientName: "laptop"})
	got, ok = ss.TakeAwaitingPairingClient()
	if !ok || got.ClientName != "laptop" {
		t.Fatalf("expected displaced pending pairing to be laptop, got %+v", got)
	}

	if _, ok := ss.PeekAwaitingPairingClient(); ok {
		t.Fatalf("expected pending pairing to be cleared after Take")
	}
}
