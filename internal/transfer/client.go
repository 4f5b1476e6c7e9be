// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package transfer

import (
	"fmt"
	"io"
	"os"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/wire"
)

// SendResult summarizes one client-side send session.
type SendResult struct {
	Outcomes []FileOutcome
}

// SendFiles streams each of files over conn, which must already be the
// TLS-upgraded session stream, waiting for the server's confirmation
// after each one before moving to the next. It never aborts early on a
// negative confirmation; it records the outcome and continues, so a
// single rejected file does not block the rest of the batch. It returns
// an error, ending the batch, when a file cannot be opened or sent or on
// a framing-level failure (the stream itself is no longer trustworthy).
func SendFiles(conn io.ReadWriter, files []FileToSend) (SendResult, error) {
	var result SendResult

	for i, f := range files {
		if err := sendOneFile(conn, f); err != nil {
			return result, fmt.Errorf("transfer: sending %s: %w", f.RelPath, err)
		}

		index, received, err := readConfirmation(conn)
		if err != nil {
			return result, fmt.Errorf("transfer: reading confirmation for %s: %w", f.RelPath, err)
		}
		if int(index) != i {
			return result, fmt.Errorf("transfer: confirmation index %d does not match sent index %d", index, i)
		}

		result.Outcomes = append(result.Outcomes, FileOutcome{RelPath: f.RelPath, Received: received})
	}

	if err := wire.WriteU8(conn, continuationDone); err != nil {
		return result, fmt.Errorf("transfer: writing final continuation byte: %w", err)
	}

	return result, nil
}

func sendOneFile(conn io.ReadWriter, f FileToSend) error {
	file, err := os.Open(f.AbsPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.AbsPath, err)
	}
	defer file.Close()

	if err := wire.WriteU8(conn, continuationMore); err != nil {
		return fmt.Errorf("writing continuation byte: %w", err)
	}
	if err := wire.WriteString(conn, f.RelPath); err != nil {
		return fmt.Errorf("writing file path: %w", err)
	}
	if err := wire.WriteU64(conn, uint64(f.Size)); err != nil {
		return fmt.Errorf("writing file size: %w", err)
	}
	if _, err := io.CopyN(conn, file, f.Size); err != nil {
		return fmt.Errorf("streaming file contents: %w", err)
	}
	return nil
}

func readConfirmation(r io.Reader) (index uint32, received bool, err error) {
	index, err = wire.ReadU32(r)
	if err != nil {
		return 0, false, err
	}
	flag, err := wire.ReadU8(r)
	if err != nil {
		return 0, false, err
	}
	return index, flag == 1, nil
}
