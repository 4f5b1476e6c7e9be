// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package config defines the narrow boundary between this module and
// wherever its settings ultimately come from. Loading a config file of
// any particular format is deliberately out of scope here; Source is
// satisfied today by flag-parsed values in cmd/, and could equally be
// satisfied later by a TOML or JSON reader without anything else in
// this module changing.
package config

// Source supplies the handful of settings the client and server CLIs
// need to operate.
type Source interface {
	// SyncDirectory is the one directory this instance syncs.
	SyncDirectory() string

	// DeviceName is the human-readable name this instance presents
	// during pairing.
	DeviceName() string

	// StoragePath is where client_storage.bin or server_storage.bin
	// lives.
	StoragePath() string
}

// Static is the simplest Source: fixed values set once at startup,
// which is all either CLI needs since there is no config-file reload.
type Static struct {
	Sync    string
	Device  string
	Storage string
}

func (s Static) SyncDirectory() string { return s.Sync }
func (s Static) DeviceName() string    { return s.Device }
func (s Static) StoragePath() string   { return s.Storage }
