// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package protocol

import "errors"

// ErrUnknownDiscriminant is returned when a Request or Answer discriminant
// does not match any known variant. This is always a ProtocolViolation:
// the connection must be torn down without mutating any state.
var ErrUnknownDiscriminant = errors.New("protocol: unknown discriminant")
