// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package config

import "testing"

func TestStaticImplementsSource(t *testing.T) {
	var _ Source = Static{}

	s := Static{Sync: "/photos", Device: "pixel-7", Storage: "client_storage.bin"}
	if s.SyncDirectory() != "/photos" {
		t.Errorf("SyncDirectory() = %q, want /photos", s.SyncDirectory())
	}
	if s.DeviceName() != "pixel-7" {
		t.Errorf("DeviceName() = %q, want pixel-7", s.DeviceName())
	}
	if s.StoragePath() != "client_storage.bin" {
		t.Errorf("StoragePath() = %q, want client_storage.bin", s.StoragePath())
	}
}
