// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package transfer implements the per-file framing that runs inside an
// already-TLS-upgraded connection: the client streams files one at a
// time and waits for a per-file confirmation, the server receives them
// under a configurable name-collision strategy while staying
// byte-frame-aligned even when it rejects a file.
package transfer

import (
	"errors"
)

const (
	continuationMore = 1
	continuationDone = 0

	// confirmationSize is the fixed 5-byte shape of a per-file
	// confirmation: a u32 index followed by a u8 received flag.
	confirmationSize = 5

	// renameAttemptBound is how many "{stem}({n}).{ext}" candidates the
	// server tries before giving up on a colliding file.
	renameAttemptBound = 10000
)

// maxFilePathLengthBytes bounds the relative path string read for each
// file, matching the protocol package's own string length ceiling.
const maxFilePathLengthBytes = 65536

// ErrPathEscapesRoot is returned when a file_path would resolve outside
// the receiving session's destination root.
var ErrPathEscapesRoot = errors.New("transfer: file path escapes destination root")

// ErrRenameExhausted is returned when NameCollisionStrategy is Rename and
// every "{stem}({n}).{ext}" candidate up to the bound is already taken.
var ErrRenameExhausted = errors.New("transfer: exhausted rename candidates for colliding file")

// FileToSend is one file queued for a client-side send session.
type FileToSend struct {
	// RelPath is forward-slash separated, relative to the sync root.
	RelPath string
	AbsPath string
	Size    int64
}

// FileOutcome records what happened to one file on the client's side of
// a send session.
type FileOutcome struct {
	RelPath  string
	Received bool
}
