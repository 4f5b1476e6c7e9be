// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package digitconfirm

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
)

// writeExitScript writes a tiny shell script that exits with the given
// code, ignoring its argument. Tests run only on unix shells; the
// helper contract itself is platform-agnostic.
func writeExitScript(t *testing.T, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("exit-code helper scripts are written for a POSIX shell")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "helper.sh")
	script := "#!/bin/sh\nexit " + strconv.Itoa(code) + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestConfirmExitCodeOneIsConfirmed(t *testing.T) {
	path := writeExitScript(t, 1)
	decision, err := Confirm(path, "123456")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if decision != Confirmed {
		t.Fatalf("expected Confirmed, got %v", decision)
	}
}

func TestConfirmExitCodeTwoIsAborted(t *testing.T) {
	path := writeExitScript(t, 2)
	decision, err := Confirm(path, "123456")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if decision != Aborted {
		t.Fatalf("expected Aborted, got %v", decision)
	}
}

func TestConfirmExitCodeThreeIsMissingArgument(t *testing.T) {
	path := writeExitScript(t, 3)
	decision, err := Confirm(path, "123456")
	if decision != Aborted {
		t.Fatalf("expected Aborted, got %v", decision)
	}
	if !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument, got %v", err)
	}
}

func TestConfirmUnknownExitCodeIsAborted(t *testing.T) {
	path := writeExitScript(t, 42)
	decision, err := Confirm(path, "123456")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if decision != Aborted {
		t.Fatalf("expected Aborted for an undocumented exit code, got %v", decision)
	}
}

func TestConfirmMissingExecutableIsAborted(t *testing.T) {
	decision, err := Confirm(filepath.Join(t.TempDir(), "does-not-exist"), "123456")
	if err == nil {
		t.Fatalf("expected an error for a missing executable")
	}
	if decision != Aborted {
		t.Fatalf("expected Aborted, got %v", decision)
	}
}
