// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package elog

import (
	"strings"
	"testing"
)

type buf struct {
	lines []string
}

func (b *buf) Println(v ...interface{}) {
	b.lines = append(b.lines, v[0].(string))
}

func TestLevelFiltering(t *testing.T) {
	logLock.Lock()
	loggers = make(map[string]*sink)
	logLock.Unlock()

	b := &buf{}
	logLock.Lock()
	loggers["test"] = &sink{logWriter: b, level: LevelWarn}
	logLock.Unlock()
	defer DelLogger("test")

	Debug("should not appear")
	Info("should not appear either")
	Warn("warn message %d", 1)
	Error("error message")

	if len(b.lines) != 2 {
		t.Fatalf("expected 2 lines logged, got %d: %v", len(b.lines), b.lines)
	}
	if !strings.Contains(b.lines[0], "warn message 1") {
		t.Fatalf("unexpected first line: %q", b.lines[0])
	}
}

func TestAddFilter(t *testing.T) {
	logLock.Lock()
	loggers = make(map[string]*sink)
	logLock.Unlock()

	b := &buf{}
	logLock.Lock()
	loggers["test"] = &sink{logWriter: b, level: LevelDebug}
	logLock.Unlock()
	defer DelLogger("test")

	if err := AddFilter("test", "secret"); err != nil {
		t.Fatalf("AddFilter: %v", err)
	}

	Info("contains secret value")
	Info("a clean message")

	if len(b.lines) != 1 {
		t.Fatalf("expected 1 line after filtering, got %d: %v", len(b.lines), b.lines)
	}
}

func TestParseLevelRoundTrip(t *testing.T) {
	for _, name := range []string{"debug", "info", "warn", "error", "fatal"} {
		lvl, err := ParseLevel(name)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", name, err)
		}
		if lvl.String() != name {
			t.Fatalf("round trip mismatch: %q -> %v -> %q", name, lvl, lvl.String())
		}
	}

	if _, err := ParseLevel("bogus"); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}
