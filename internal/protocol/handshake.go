// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/wire"
)

// ErrUnknownProtocolVersion is returned by the client when the server's
// advertised version is newer than anything this client understands.
var ErrUnknownProtocolVersion = errors.New("protocol: unknown (too new) protocol version")

// ErrObsoleteProtocolVersion is returned by the client when the server's
// advertised version is older than FirstProtocolVersionSupported.
var ErrObsoleteProtocolVersion = errors.New("protocol: obsolete (too old) protocol version")

// ErrHandshakeMismatch is returned by either side when the ack byte
// exchange does not round-trip.
var ErrHandshakeMismatch = errors.New("protocol: ack byte handshake mismatch")

// ServerWriteVersion performs the server's half of the versioning
// handshake: advertise ServerProtocolVersion, then exchange the ack byte.
func ServerWriteVersion(rw io.ReadWriter) error {
	if err := wire.WriteU32(rw, ServerProtocolVersion); err != nil {
		return fmt.Errorf("protocol: writing server protocol version: %w", err)
	}

	got, err := wire.ReadU8(rw)
	if err != nil {
		return fmt.Errorf("protocol: reading client ack byte: %w", err)
	}
	if got != AckByte {
		return fmt.Errorf("%w: got 0x%02x", ErrHandshakeMismatch, got)
	}
	if err := wire.WriteU8(rw, AckByte); err != nil {
		return fmt.Errorf("protocol: echoing ack byte: %w", err)
	}
	return nil
}

// ClientNegotiateVersion performs the client's half of the versioning
// handshake: read the server's advertised version, validate it falls
// within the supported range, then exchange the ack byte.
func ClientNegotiateVersion(rw io.ReadWriter) (uint32, error) {
	serverVersion, err := wire.ReadU32(rw)
	if err != nil {
		return 0, fmt.Errorf("protocol: reading server protocol version: %w", err)
	}
	if serverVersion > ServerProtocolVersion {
		return 0, fmt.Errorf("%w: server is at %d, client knows up to %d", ErrUnknownProtocolVersion, serverVersion, ServerProtocolVersion)
	}
	if serverVersion < FirstProtocolVersionSupported {
		return 0, fmt.Errorf("%w: server is at %d, client requires at least %d", ErrObsoleteProtocolVersion, serverVersion, FirstProtocolVersionSupported)
	}

	if err := wire.WriteU8(rw, AckByte); err != nil {
		return 0, fmt.Errorf("protocol: writing ack byte: %w", err)
	}
	got, err := wire.ReadU8(rw)
	if err != nil {
		return 0, fmt.Errorf("protocol: reading echoed ack byte: %w", err)
	}
	if got != AckByte {
		return 0, fmt.Errorf("%w: got 0x%02x", ErrHandshakeMismatch, got)
	}
	return serverVersion, nil
}
