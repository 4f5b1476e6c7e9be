// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package digitconfirm runs the server-side digit-confirmation external
// process: a helper the operator supplies, invoked with the SAS as its
// first argument, whose exit code says whether the operator accepted
// the comparison.
package digitconfirm

import (
	"errors"
	"fmt"
	"os/exec"
)

// Decision is the external process's verdict.
type Decision int

const (
	// Aborted is returned for exit code 2, for exit code 3 (alongside
	// ErrMissingArgument), for any other exit code, and for termination
	// by signal.
	Aborted Decision = iota
	// Confirmed is returned only for exit code 1.
	Confirmed
)

// ErrMissingArgument is returned alongside Aborted when the helper exits
// 3, its documented missing-argument error.
var ErrMissingArgument = errors.New("digitconfirm: helper reported a missing-argument error")

// Confirm invokes path with sas as its sole argument and interprets its
// exit code per the documented contract.
func Confirm(path string, sas string) (Decision, error) {
	cmd := exec.Command(path, sas)
	err := cmd.Run()
	if err == nil {
		// Exit code 0 is not part of the documented contract; treat it
		// the same as any other undocumented code.
		return Aborted, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Aborted, fmt.Errorf("digitconfirm: running %s: %w", path, err)
	}

	switch exitErr.ExitCode() {
	case 1:
		return Confirmed, nil
	case 2:
		return Aborted, nil
	case 3:
		return Aborted, ErrMissingArgument
	default:
		// Covers both other exit codes and termination by signal
		// (ExitCode returns -1 in that case).
		return Aborted, nil
	}
}
