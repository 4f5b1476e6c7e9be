// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package pairing implements the two-round pairing state machine: public
// key exchange, nonce exchange with confirmation value verification, and
// the out-of-band numeric-comparison acceptance that promotes a
// prospective peer into each side's persisted store.
package pairing

import "errors"

// ErrConfirmationValueMismatch is returned by the client when the
// confirmation_value the server sent before nonces were exchanged does
// not match what it recomputes afterward. This is a CryptoError: pairing
// aborts, no state is persisted on either side.
var ErrConfirmationValueMismatch = errors.New("pairing: confirmation value mismatch")

// ErrUserRejected is returned when the local user declines the SAS
// comparison.
var ErrUserRejected = errors.New("pairing: user rejected the numeric comparison")

// ErrNoPendingPairing is returned when a server-side step is attempted
// with no pairing attempt in flight.
var ErrNoPendingPairing = errors.New("pairing: no pending pairing attempt")

// ErrUnexpectedAnswer is a ProtocolViolation: the peer answered with a
// variant the state machine did not ask for.
var ErrUnexpectedAnswer = errors.New("pairing: unexpected answer variant")
