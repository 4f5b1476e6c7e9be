// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package protocol defines the request/answer wire vocabulary shared by
// pairing and file transfer: the versioning handshake, the Request and
// Answer tagged unions, and the length bounds every decoder enforces.
package protocol

const (
	// AckByte is exchanged in both directions during the versioning
	// handshake to confirm the stream is framed correctly before any
	// structured request is sent.
	AckByte = 0xC1

	// ServerProtocolVersion is the only protocol version this
	// implementation speaks; earlier variants from prior deployments
	// exist but are deliberately not reimplemented here.
	ServerProtocolVersion = 6

	// FirstProtocolVersionSupported is the oldest protocol version a
	// client will accept from a server.
	FirstProtocolVersionSupported = 6

	DeviceNameMaxLengthBytes = 1000
	MaxFilePathLengthBytes   = 65536
	MaxPublicKeyLengthBytes  = 256
	MaxPrivateKeyLengthBytes = 256
)
