// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package session

import (
	"crypto/ed25519"
	"crypto/tls"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/protocol"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/rpktls"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/store"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/transfer"
	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/wire"
)

// startTestServer accepts exactly one connection and serves it with
// transfer.ServeOneSession under the given server key pair, returning the
// chosen strategy's receive result over the returned channel.
func startTestServer(t *testing.T, destRoot string, clientPub []byte, serverPub ed25519.PublicKey, serverPriv ed25519.PrivateKey) (addr string, results <-chan transfer.ReceiveResult) {
	t.Helper()

	serverCert, err := rpktls.WrapKeyPair(serverPub, serverPriv)
	if err != nil {
		t.Fatalf("WrapKeyPair: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	out := make(chan transfer.ReceiveResult, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer ln.Close()

		result, err := transfer.ServeOneSession(
			conn,
			serverCert,
			func(pub []byte) bool { return string(pub) == string(clientPub) },
			func() [][]byte { return [][]byte{clientPub} },
			destRoot,
			transfer.Overwrite,
		)
		if err != nil {
			t.Logf("ServeOneSession: %v", err)
		}
		out <- result
	}()

	s := ln.Addr().(*net.TCPAddr)
	return net.JoinHostPort(s.IP.String(), strconv.Itoa(s.Port)), out
}

func TestSyncOneServerSendsChangedFiles(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "photo.jpg"), []byte("pretend jpeg bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	clientPub, clientPriv, err := rpktls.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	serverPub, serverPriv, err := rpktls.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	addr, results := startTestServer(t, dstDir, clientPub, serverPub, serverPriv)

	var serverID [16]byte
	serverID[0] = 42

	cs := store.NewClientStore(filepath.Join(t.TempDir(), "client_storage.bin"))
	ps := store.PairedServer{
		ServerID:         serverID,
		ServerName:       "test-server",
		ServerPublicKey:  serverPub,
		ClientPublicKey:  clientPub,
		ClientPrivateKey: clientPriv,
		DirectoriesToSync: []store.DirectoryToSync{
			{Path: srcDir, FilesChangeDetectionData: map[string]store.FileChangeDetectionData{}},
		},
	}
	if err := cs.UpsertPairedServer(ps); err != nil {
		t.Fatalf("UpsertPairedServer: %v", err)
	}

	pr := syncOneServer(cs, ps, addr)
	if pr.Err != nil {
		t.Fatalf("syncOneServer: %v", pr.Err)
	}
	if pr.Result.Outcome != AllNewFilesSent {
		t.Fatalf("expected AllNewFilesSent, got %v (skipped=%v)", pr.Result.Outcome, pr.Result.Skipped)
	}
	if len(pr.Result.Sent) != 1 || pr.Result.Sent[0] != "photo.jpg" {
		t.Fatalf("expected photo.jpg to be reported sent, got %v", pr.Result.Sent)
	}

	recv := <-results
	if len(recv.Files) != 1 || !recv.Files[0].Accepted {
		t.Fatalf("expected the server to accept the one file, got %+v", recv.Files)
	}

	got, err := os.ReadFile(filepath.Join(dstDir, "photo.jpg"))
	if err != nil || string(got) != "pretend jpeg bytes" {
		t.Fatalf("destination file mismatch: %v %q", err, got)
	}

	reloaded, ok := cs.FindPairedServer(serverID)
	if !ok {
		t.Fatalf("expected the paired server to still be present")
	}
	data, ok := reloaded.DirectoriesToSync[0].FilesChangeDetectionData["photo.jpg"]
	if !ok {
		t.Fatalf("expected photo.jpg to be recorded in files_change_detection_data")
	}
	if len(data.ContentHash) == 0 {
		t.Fatalf("expected a non-empty recorded content hash")
	}
}

// startDroppingTestServer plays the handshake and transfer protocol far
// enough to confirm exactly one file, then closes the connection before
// the second file's confirmation — simulating the stream dropping
// mid-batch.
func startDroppingTestServer(t *testing.T, clientPub []byte, serverPub ed25519.PublicKey, serverPriv ed25519.PrivateKey) string {
	t.Helper()

	serverCert, err := rpktls.WrapKeyPair(serverPub, serverPriv)
	if err != nil {
		t.Fatalf("WrapKeyPair: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		defer ln.Close()

		if err := protocol.ServerWriteVersion(conn); err != nil {
			t.Logf("ServerWriteVersion: %v", err)
			return
		}
		if _, err := protocol.DecodeRequest(conn); err != nil {
			t.Logf("DecodeRequest: %v", err)
			return
		}
		if err := protocol.EncodeAnswer(conn, protocol.ReadyToReceiveFilesAnswer{}); err != nil {
			t.Logf("EncodeAnswer: %v", err)
			return
		}

		trustedKeys := func() [][]byte { return [][]byte{clientPub} }
		tlsConn := tls.Server(conn, rpktls.ServerConfig(serverCert, trustedKeys))

		if _, err := wire.ReadU8(tlsConn); err != nil { // continuation byte for the first file
			t.Logf("reading continuation byte: %v", err)
			return
		}
		if _, err := wire.ReadString(tlsConn, 65536); err != nil { // relative path
			t.Logf("reading relative path: %v", err)
			return
		}
		size, err := wire.ReadU64(tlsConn)
		if err != nil {
			t.Logf("reading file size: %v", err)
			return
		}
		if _, err := io.CopyN(io.Discard, tlsConn, int64(size)); err != nil {
			t.Logf("draining file contents: %v", err)
			return
		}
		if err := wire.WriteU32(tlsConn, 0); err != nil {
			t.Logf("writing confirmation index: %v", err)
			return
		}
		if err := wire.WriteU8(tlsConn, 1); err != nil { // accepted
			t.Logf("writing confirmation flag: %v", err)
			return
		}
		// Drop the connection here instead of reading the second file,
		// leaving it unconfirmed.
	}()

	s := ln.Addr().(*net.TCPAddr)
	return net.JoinHostPort(s.IP.String(), strconv.Itoa(s.Port))
}

func TestSyncOneServerPersistsConfirmedFilesAfterMidBatchDrop(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("confirmed before the drop"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "b.txt"), []byte("never confirmed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	clientPub, clientPriv, err := rpktls.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	serverPub, serverPriv, err := rpktls.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	var serverID [16]byte
	serverID[0] = 99

	cs := store.NewClientStore(filepath.Join(t.TempDir(), "client_storage.bin"))
	ps := store.PairedServer{
		ServerID:         serverID,
		ServerName:       "dropping-server",
		ServerPublicKey:  serverPub,
		ClientPublicKey:  clientPub,
		ClientPrivateKey: clientPriv,
		DirectoriesToSync: []store.DirectoryToSync{
			{Path: srcDir, FilesChangeDetectionData: map[string]store.FileChangeDetectionData{}},
		},
	}
	if err := cs.UpsertPairedServer(ps); err != nil {
		t.Fatalf("UpsertPairedServer: %v", err)
	}

	addr := startDroppingTestServer(t, clientPub, serverPub, serverPriv)

	pr := syncOneServer(cs, ps, addr)
	if pr.Err == nil {
		t.Fatalf("expected syncOneServer to report the dropped session as an error")
	}

	reloaded, ok := cs.FindPairedServer(serverID)
	if !ok {
		t.Fatalf("expected the paired server to still be present")
	}
	dir := reloaded.DirectoriesToSync[0]

	if _, ok := dir.FilesChangeDetectionData["a.txt"]; !ok {
		t.Fatalf("expected a.txt, confirmed before the drop, to be persisted")
	}
	if _, ok := dir.FilesChangeDetectionData["b.txt"]; ok {
		t.Fatalf("b.txt was never confirmed and must not be persisted")
	}
	if dir.FolderLastModifiedTime != nil && *dir.FolderLastModifiedTime != 0 {
		t.Fatalf("expected the folder mtime to stay at its prior (unset) value after a partial batch, got %v", *dir.FolderLastModifiedTime)
	}
}

func TestSyncOneServerReportsNoNewFilesAfterFirstPass(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("same every time"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	clientPub, clientPriv, err := rpktls.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	serverPub, serverPriv, err := rpktls.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	var serverID [16]byte
	serverID[0] = 7

	cs := store.NewClientStore(filepath.Join(t.TempDir(), "client_storage.bin"))
	ps := store.PairedServer{
		ServerID:         serverID,
		ServerName:       "second-pass-server",
		ServerPublicKey:  serverPub,
		ClientPublicKey:  clientPub,
		ClientPrivateKey: clientPriv,
		DirectoriesToSync: []store.DirectoryToSync{
			{Path: srcDir, FilesChangeDetectionData: map[string]store.FileChangeDetectionData{}},
		},
	}
	if err := cs.UpsertPairedServer(ps); err != nil {
		t.Fatalf("UpsertPairedServer: %v", err)
	}

	addr, _ := startTestServer(t, dstDir, clientPub, serverPub, serverPriv)
	first := syncOneServer(cs, ps, addr)
	if first.Err != nil {
		t.Fatalf("first syncOneServer: %v", first.Err)
	}

	reloaded, _ := cs.FindPairedServer(serverID)

	addr2, _ := startTestServer(t, dstDir, clientPub, serverPub, serverPriv)
	second := syncOneServer(cs, reloaded, addr2)
	if second.Err != nil {
		t.Fatalf("second syncOneServer: %v", second.Err)
	}
	if second.Result.Outcome != NoNewFiles {
		t.Fatalf("expected NoNewFiles on the second identical pass, got %v", second.Result.Outcome)
	}
}
