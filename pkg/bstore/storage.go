// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package bstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/wire"
)

// ErrCorruptStore is returned by LoadFile when the root Value fails to
// decode. A root that decodes but does not match the caller's schema is
// reported by the caller's own from_value errors, not by ErrCorruptStore.
// Callers must not touch the on-disk file in this case: the load failed,
// the save path is untouched.
var ErrCorruptStore = errors.New("bstore: corrupt store")

// LoadFile reads the "u32 format_version, tagged Value root" layout shared
// by client_storage.bin and server_storage.bin, running updater's migration
// chain if the stored version is older than updater's latest. The returned
// Value is always at updater's latest version.
func LoadFile(r io.Reader, updater *StorageUpdater, limits Limits) (Value, error) {
	version, err := wire.ReadU32(r)
	if err != nil {
		return nil, fmt.Errorf("reading format version: %w", err)
	}

	root, err := Decode(r, limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}

	migrated, err := updater.Apply(root, version)
	if err != nil {
		var future *UnknownFutureVersion
		if errors.As(err, &future) {
			return nil, err
		}
		return nil, err
	}
	return migrated, nil
}

// SaveFile writes the current-version header followed by root. Callers are
// responsible for making the write atomic (temp file + rename); SaveFile
// only serializes.
func SaveFile(w io.Writer, currentVersion uint32, root Value) error {
	if err := wire.WriteU32(w, currentVersion); err != nil {
		return err
	}
	return Encode(w, root)
}
