// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package bstore

import "fmt"

// Patch mutates a decoded root Value from one schema version to the next.
// bstore has no notion of the schema it is patching; Patch functions reach
// into the Value tree (typically an ObjectValue) and add, remove, or
// reshape fields by hand.
type Patch func(Value) (Value, error)

// step is one (version_to, patch) pair in a StorageUpdater's chain.
type step struct {
	versionTo uint32
	patch     Patch
}

// StorageUpdater holds the ordered chain of schema migrations for one
// persisted record type. Register each step with AddStep in increasing
// version order; Apply walks the chain starting just after fromVersion.
type StorageUpdater struct {
	steps []step
}

func NewStorageUpdater() *StorageUpdater {
	return &StorageUpdater{}
}

// AddStep appends the patch that upgrades a record to versionTo. Steps must
// be added in strictly increasing versionTo order.
func (u *StorageUpdater) AddStep(versionTo uint32, patch Patch) {
	u.steps = append(u.steps, step{versionTo: versionTo, patch: patch})
}

// LatestVersion returns the version the last registered step upgrades to,
// or 0 if no steps are registered.
func (u *StorageUpdater) LatestVersion() uint32 {
	if len(u.steps) == 0 {
		return 0
	}
	return u.steps[len(u.steps)-1].versionTo
}

// MigrationFailure reports that a registered patch step failed.
type MigrationFailure struct {
	From, To uint32
	Cause    error
}

func (e *MigrationFailure) Error() string {
	return fmt.Sprintf("bstore: migration from version %d to %d failed: %v", e.From, e.To, e.Cause)
}

func (e *MigrationFailure) Unwrap() error { return e.Cause }

// UnknownFutureVersion reports a stored version newer than any registered
// migration step; the loader must refuse to proceed in this case.
type UnknownFutureVersion struct {
	Found, Latest uint32
}

func (e *UnknownFutureVersion) Error() string {
	return fmt.Sprintf("bstore: stored format version %d is newer than latest known %d", e.Found, e.Latest)
}

// Apply runs every step whose versionTo is greater than fromVersion, in
// order, against root. It returns a *MigrationFailure if a step's patch
// returns an error, and a *UnknownFutureVersion if fromVersion is already
// past the last registered step (the caller should treat this as refusing
// to load rather than silently truncating data).
func (u *StorageUpdater) Apply(root Value, fromVersion uint32) (Value, error) {
	latest := u.LatestVersion()
	if fromVersion > latest {
		return nil, &UnknownFutureVersion{Found: fromVersion, Latest: latest}
	}

	cur := fromVersion
	for _, s := range u.steps {
		if s.versionTo <= fromVersion {
			continue
		}
		patched, err := s.patch(root)
		if err != nil {
			return nil, &MigrationFailure{From: cur, To: s.versionTo, Cause: err}
		}
		root = patched
		cur = s.versionTo
	}
	return root, nil
}
