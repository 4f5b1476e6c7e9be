// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package wire implements the fixed-width and length-prefixed primitives
// shared by every wire format in this repository (discovery packets,
// pairing/transfer requests and answers, and the bstore tagged-value
// encoding). All multi-byte integers are big-endian; strings and byte
// arrays are a u32 length prefix followed by raw bytes.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// NoLimit disables the max-length check on ReadString/ReadBytes.
const NoLimit = ^uint32(0)

// ErrPayloadTooLarge is returned when a length prefix exceeds the caller's
// configured maximum.
var ErrPayloadTooLarge = errors.New("wire: payload too large")

// ErrInvalidUTF8 is returned when a String's payload is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("wire: invalid utf-8 in string")

func WriteU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func ReadU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func WriteU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func ReadU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func WriteU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func ReadU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// WriteBytes writes a u32 length prefix followed by b.
func WriteBytes(w io.Writer, b []byte) error {
	if err := WriteU32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadBytes reads a u32-length-prefixed byte array, failing with
// ErrPayloadTooLarge if the declared length exceeds maxLength.
func ReadBytes(r io.Reader, maxLength uint32) ([]byte, error) {
	n, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	if n > maxLength {
		return nil, fmt.Errorf("%w: %d bytes exceeds max %d", ErrPayloadTooLarge, n, maxLength)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteString writes a u32 length prefix followed by the UTF-8 bytes of s.
func WriteString(w io.Writer, s string) error {
	return WriteBytes(w, []byte(s))
}

// ReadString reads a u32-length-prefixed string, failing with
// ErrPayloadTooLarge if the declared length exceeds maxLength and with
// ErrInvalidUTF8 if the bytes are not valid UTF-8.
func ReadString(r io.Reader, maxLength uint32) (string, error) {
	b, err := ReadBytes(r, maxLength)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

// DropBytes reads and discards exactly n bytes, keeping the stream
// frame-aligned after a fatal per-file error. It must be called with the
// number of bytes of the abandoned frame that are still unread.
func DropBytes(r io.Reader, n uint64) error {
	_, err := io.CopyN(io.Discard, r, int64(n))
	return err
}
