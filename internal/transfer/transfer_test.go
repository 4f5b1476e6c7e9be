// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package transfer

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/wire"
)

type duplexHalf struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (d *duplexHalf) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d *duplexHalf) Write(p []byte) (int, error) { return d.w.Write(p) }

func newPipePair() (client, server *duplexHalf) {
	clientToServerR, clientToServerW := io.Pipe()
	serverToClientR, serverToClientW := io.Pipe()
	client = &duplexHalf{r: serverToClientR, w: clientToServerW}
	server = &duplexHalf{r: clientToServerR, w: serverToClientW}
	return client, server
}

func writeTempFile(t *testing.T, dir, name, contents string) FileToSend {
	t.Helper()
	abs := filepath.Join(dir, name)
	if err := os.WriteFile(abs, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return FileToSend{RelPath: name, AbsPath: abs, Size: int64(len(contents))}
}

func TestSendAndReceiveFilesRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	files := []FileToSend{
		writeTempFile(t, srcDir, "one.txt", "first file contents"),
		writeTempFile(t, srcDir, "two.txt", "second file, a bit longer than the first"),
	}

	clientSide, serverSide := newPipePair()

	recvDone := make(chan struct {
		result ReceiveResult
		err    error
	}, 1)
	go func() {
		result, err := ReceiveFiles(serverSide, dstDir, Overwrite)
		recvDone <- struct {
			result ReceiveResult
			err    error
		}{result, err}
	}()

	sendResult, err := SendFiles(clientSide, files)
	if err != nil {
		t.Fatalf("SendFiles: %v", err)
	}
	if len(sendResult.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(sendResult.Outcomes))
	}
	for _, o := range sendResult.Outcomes {
		if !o.Received {
			t.Fatalf("expected %s to be received", o.RelPath)
		}
	}

	recv := <-recvDone
	if recv.err != nil {
		t.Fatalf("ReceiveFiles: %v", recv.err)
	}
	if len(recv.result.Files) != 2 {
		t.Fatalf("expected 2 received files, got %d", len(recv.result.Files))
	}

	gotOne, err := os.ReadFile(filepath.Join(dstDir, "one.txt"))
	if err != nil || string(gotOne) != "first file contents" {
		t.Fatalf("one.txt mismatch: %v %q", err, gotOne)
	}
	gotTwo, err := os.ReadFile(filepath.Join(dstDir, "two.txt"))
	if err != nil || string(gotTwo) != "second file, a bit longer than the first" {
		t.Fatalf("two.txt mismatch: %v %q", err, gotTwo)
	}
}

func TestReceiveFilesRejectsPathEscape(t *testing.T) {
	dstDir := t.TempDir()

	clientSide, serverSide := newPipePair()

	recvDone := make(chan struct {
		result ReceiveResult
		err    error
	}, 1)
	go func() {
		result, err := ReceiveFiles(serverSide, dstDir, Overwrite)
		recvDone <- struct {
			result ReceiveResult
			err    error
		}{result, err}
	}()

	go func() {
		// Hand-write a malicious frame directly, since a real
		// FileToSend always names a readable local source file.
		if err := wire.WriteU8(clientSide, continuationMore); err != nil {
			return
		}
		if err := wire.WriteString(clientSide, "../../etc/passwd"); err != nil {
			return
		}
		if err := wire.WriteU64(clientSide, 5); err != nil {
			return
		}
		if _, err := clientSide.Write([]byte("hello")); err != nil {
			return
		}
		if _, _, err := readConfirmation(clientSide); err != nil {
			return
		}
		_ = wire.WriteU8(clientSide, continuationDone)
	}()

	recv := <-recvDone
	if recv.err != nil {
		t.Fatalf("ReceiveFiles: %v", recv.err)
	}
	if len(recv.result.Files) != 1 || recv.result.Files[0].Accepted {
		t.Fatalf("expected the escaping path to be rejected, got %+v", recv.result.Files)
	}

	if _, err := os.Stat(filepath.Join(dstDir, "passwd")); !os.IsNotExist(err) {
		t.Fatalf("expected no file to be written outside the destination root")
	}
}

func TestResolveCollisionRename(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(dest, []byte("existing"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := resolveCollision(dest, Rename)
	if err != nil {
		t.Fatalf("resolveCollision: %v", err)
	}
	want := filepath.Join(dir, "photo(1).jpg")
	if got != want {
		t.Fatalf("expected renamed path %q, got %q", want, got)
	}
}

func TestResolveCollisionSkipReturnsEmptyPath(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(dest, []byte("existing"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := resolveCollision(dest, Skip)
	if err != nil {
		t.Fatalf("resolveCollision: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty path for Skip strategy on collision, got %q", got)
	}
}

func TestResolveCollisionOverwriteReturnsSamePath(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(dest, []byte("existing"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := resolveCollision(dest, Overwrite)
	if err != nil {
		t.Fatalf("resolveCollision: %v", err)
	}
	if got != dest {
		t.Fatalf("expected unchanged path %q, got %q", dest, got)
	}
}
