// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/wire"
)

// NameCollisionStrategy governs what the server does when an incoming
// file's destination path already exists.
type NameCollisionStrategy int

const (
	Overwrite NameCollisionStrategy = iota
	Skip
	Rename
)

// ReceivedFile records the outcome of receiving one file.
type ReceivedFile struct {
	RelPath  string
	Accepted bool
	// Reason is set when Accepted is false.
	Reason string
}

// ReceiveResult summarizes one server-side receive session.
type ReceiveResult struct {
	Files []ReceivedFile
}

// ReceiveFiles reads a continuation-prefixed stream of files from conn,
// which must already be the TLS-upgraded session stream, writing each
// one under destinationRoot according to strategy, until it reads a
// final continuation byte of 0. A rejected file is still fully drained
// from the stream so framing survives to the next file.
func ReceiveFiles(conn io.ReadWriter, destinationRoot string, strategy NameCollisionStrategy) (ReceiveResult, error) {
	canonicalRoot, err := filepath.Abs(destinationRoot)
	if err != nil {
		return ReceiveResult{}, fmt.Errorf("transfer: resolving destination root: %w", err)
	}

	var result ReceiveResult
	for index := 0; ; index++ {
		cont, err := wire.ReadU8(conn)
		if err != nil {
			return result, fmt.Errorf("transfer: reading continuation byte: %w", err)
		}
		if cont == continuationDone {
			return result, nil
		}

		received, reason, err := receiveOneFile(conn, canonicalRoot, strategy)
		if err != nil {
			return result, fmt.Errorf("transfer: receiving file %d: %w", index, err)
		}

		if err := writeConfirmation(conn, uint32(index), received); err != nil {
			return result, fmt.Errorf("transfer: writing confirmation for file %d: %w", index, err)
		}

		result.Files = append(result.Files, ReceivedFile{Accepted: received, Reason: reason})
	}
}

func receiveOneFile(conn io.ReadWriter, canonicalRoot string, strategy NameCollisionStrategy) (accepted bool, reason string, err error) {
	relPath, err := wire.ReadString(conn, maxFilePathLengthBytes)
	if err != nil {
		return false, "", fmt.Errorf("reading file path: %w", err)
	}
	size, err := wire.ReadU64(conn)
	if err != nil {
		return false, "", fmt.Errorf("reading file size: %w", err)
	}

	dest, safeErr := safeJoin(canonicalRoot, relPath)
	if safeErr != nil {
		if err := wire.DropBytes(conn, size); err != nil {
			return false, "", fmt.Errorf("draining rejected file %q: %w", relPath, err)
		}
		return false, safeErr.Error(), nil
	}

	dest, collisionErr := resolveCollision(dest, strategy)
	if collisionErr != nil {
		if err := wire.DropBytes(conn, size); err != nil {
			return false, "", fmt.Errorf("draining skipped file %q: %w", relPath, err)
		}
		return false, collisionErr.Error(), nil
	}
	if dest == "" {
		// Skip strategy with an existing file: drain and move on.
		if err := wire.DropBytes(conn, size); err != nil {
			return false, "", fmt.Errorf("draining skipped file %q: %w", relPath, err)
		}
		return false, "skipped: destination already exists", nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		if err := wire.DropBytes(conn, size); err != nil {
			return false, "", fmt.Errorf("draining file %q after mkdir failure: %w", relPath, err)
		}
		return false, fmt.Sprintf("creating parent directories: %v", err), nil
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		if err := wire.DropBytes(conn, size); err != nil {
			return false, "", fmt.Errorf("draining file %q after open failure: %w", relPath, err)
		}
		return false, fmt.Sprintf("opening destination: %v", err), nil
	}
	defer out.Close()

	copied, copyErr := io.CopyN(out, conn, int64(size))
	if copyErr != nil {
		if err := wire.DropBytes(conn, size-uint64(copied)); err != nil {
			return false, "", fmt.Errorf("draining file %q after write failure: %w", relPath, err)
		}
		return false, fmt.Sprintf("writing destination: %v", copyErr), nil
	}

	return true, "", nil
}

// safeJoin validates relPath contains only Normal path components — no
// "..", no ".", no root anchor, no drive prefix — then confirms the
// resolved absolute path stays within canonicalRoot.
func safeJoin(canonicalRoot, relPath string) (string, error) {
	if !filepath.IsLocal(relPath) {
		return "", fmt.Errorf("%w: %q is not a local path", ErrPathEscapesRoot, relPath)
	}
	for _, part := range strings.Split(relPath, "/") {
		if part == "." || part == ".." {
			return "", fmt.Errorf("%w: %q has a %q component", ErrPathEscapesRoot, relPath, part)
		}
	}

	abs := filepath.Join(canonicalRoot, filepath.FromSlash(relPath))
	absClean, err := filepath.Abs(abs)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", relPath, err)
	}

	if absClean != canonicalRoot && !strings.HasPrefix(absClean, canonicalRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, relPath)
	}
	return absClean, nil
}

// resolveCollision applies strategy to dest. It returns the final path
// to write to, or an empty path (with a nil error) when Skip applies and
// the file should be dropped silently.
func resolveCollision(dest string, strategy NameCollisionStrategy) (string, error) {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest, nil
	}

	switch strategy {
	case Overwrite:
		return dest, nil
	case Skip:
		return "", nil
	case Rename:
		ext := filepath.Ext(dest)
		stem := strings.TrimSuffix(dest, ext)
		for n := 1; n <= renameAttemptBound; n++ {
			candidate := fmt.Sprintf("%s(%d)%s", stem, n, ext)
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				return candidate, nil
			}
		}
		return "", ErrRenameExhausted
	default:
		return dest, nil
	}
}

func writeConfirmation(w io.Writer, index uint32, received bool) error {
	if err := wire.WriteU32(w, index); err != nil {
		return err
	}
	flag := uint8(0)
	if received {
		flag = 1
	}
	return wire.WriteU8(w, flag)
}
