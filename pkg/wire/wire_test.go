// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package wire

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestU8RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteU8(&buf, 0xAB); err != nil {
		t.Fatal(err)
	}
	got, err := ReadU8(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xAB {
		t.Fatalf("got %x want %x", got, 0xAB)
	}
}

func TestU32RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := uint32(0xDEADBEEF)
	if err := WriteU32(&buf, want); err != nil {
		t.Fatal(err)
	}
	if buf.Bytes()[0] != 0xDE {
		t.Fatalf("expected big-endian encoding, got %x", buf.Bytes())
	}
	got, err := ReadU32(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %x want %x", got, want)
	}
}

func TestU64RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := uint64(0x0102030405060708)
	if err := WriteU64(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadU64(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %x want %x", got, want)
	}
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := "hello, sync root"
	if err := WriteString(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadString(&buf, NoLimit)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := []byte{1, 2, 3, 4, 5}
	if err := WriteBytes(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadBytes(&buf, NoLimit)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestReadBytesEnforcesMaxLength(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBytes(&buf, make([]byte, 100)); err != nil {
		t.Fatal(err)
	}
	_, err := ReadBytes(&buf, 10)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestReadStringRejectsInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBytes(&buf, []byte{0xff, 0xfe, 0xfd}); err != nil {
		t.Fatal(err)
	}
	_, err := ReadString(&buf, NoLimit)
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestDropBytesKeepsStreamAligned(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(strings.Repeat("x", 20))
	buf.WriteString("next-frame")

	if err := DropBytes(&buf, 20); err != nil {
		t.Fatal(err)
	}
	rest := buf.String()
	if rest != "next-frame" {
		t.Fatalf("stream misaligned after drop: %q", rest)
	}
}
