// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package cryptoutil implements the pairing protocol's primitives: secure
// nonce generation and the AES-128-CMAC-derived confirmation value and
// numeric comparison value (the short authenticated string, or SAS).
package cryptoutil

import (
	"crypto/aes"
	"crypto/rand"
	"errors"
	"fmt"
	"math/bits"

	"github.com/aead/cmac"
)

const (
	// NonceLengthBytes is the required length of both server_nonce and
	// client_nonce.
	NonceLengthBytes = 32
	// MACSizeBytes is the length of an AES-128-CMAC tag, and therefore of
	// confirmation_value's output.
	MACSizeBytes = 16
	// NumericComparisonDigits is the number of decimal digits in the SAS
	// shown to the user on both screens.
	NumericComparisonDigits = 6

	aesKeySize = 16
)

// ErrDerivedZero is returned by NumericComparisonValue when the folded
// result is exactly 0. The caller should retry pairing with fresh nonces;
// this trades a rare false-retry for eliminating a likely
// implementation-bug signal.
var ErrDerivedZero = errors.New("cryptoutil: derived numeric comparison value is zero")

// ErrInvalidNonceLength is returned when a nonce is not exactly
// NonceLengthBytes long.
var ErrInvalidNonceLength = errors.New("cryptoutil: invalid nonce length")

// NewNonce returns NonceLengthBytes of cryptographically secure random
// data.
func NewNonce() ([]byte, error) {
	n := make([]byte, NonceLengthBytes)
	if _, err := rand.Read(n); err != nil {
		return nil, fmt.Errorf("cryptoutil: generating nonce: %w", err)
	}
	return n, nil
}

// cmacOverServerKeyedMessage computes AES-128-CMAC keyed on the first 16
// bytes of pkServer, over the remaining bytes of pkServer followed by every
// element of rest, in order. This is the shared core of both
// ConfirmationValue and NumericComparisonValue.
func cmacOverServerKeyedMessage(pkServer []byte, rest ...[]byte) ([]byte, error) {
	if len(pkServer) < aesKeySize {
		return nil, fmt.Errorf("cryptoutil: server public key too short to derive a CMAC key: %d bytes", len(pkServer))
	}

	block, err := aes.NewCipher(pkServer[:aesKeySize])
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: building AES cipher: %w", err)
	}
	mac, err := cmac.New(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: building CMAC: %w", err)
	}

	if _, err := mac.Write(pkServer[aesKeySize:]); err != nil {
		return nil, err
	}
	for _, part := range rest {
		if _, err := mac.Write(part); err != nil {
			return nil, err
		}
	}
	return mac.Sum(nil), nil
}

// ConfirmationValue is the value the server sends the client in round one
// of pairing, before nonces are exchanged, so the client can later verify
// it once it learns nonceServer.
func ConfirmationValue(pkServer, pkClient, nonceServer []byte) ([]byte, error) {
	if len(nonceServer) != NonceLengthBytes {
		return nil, fmt.Errorf("%w: server nonce is %d bytes", ErrInvalidNonceLength, len(nonceServer))
	}
	return cmacOverServerKeyedMessage(pkServer, pkClient, nonceServer)
}

// NumericComparisonValue derives the SAS both sides display for the user to
// compare. It folds the CMAC tag into an integer by consuming bytes from
// the end of the tag, accumulating little-endian, until enough bits cover
// 10^digits, then reduces modulo 10^digits. A result of 0 is rejected with
// ErrDerivedZero.
func NumericComparisonValue(pkServer, pkClient, nonceServer, nonceClient []byte, digits int) (uint32, error) {
	if len(nonceServer) != NonceLengthBytes {
		return 0, fmt.Errorf("%w: server nonce is %d bytes", ErrInvalidNonceLength, len(nonceServer))
	}
	if len(nonceClient) != NonceLengthBytes {
		return 0, fmt.Errorf("%w: client nonce is %d bytes", ErrInvalidNonceLength, len(nonceClient))
	}

	tag, err := cmacOverServerKeyedMessage(pkServer, pkClient, nonceServer, nonceClient)
	if err != nil {
		return 0, err
	}

	result, err := foldToDigits(tag, digits)
	if err != nil {
		return 0, err
	}
	return result, nil
}

func foldToDigits(tag []byte, digits int) (uint32, error) {
	modulus := uint64(1)
	for i := 0; i < digits; i++ {
		modulus *= 10
	}
	neededBits := bits.Len64(modulus - 1)

	var acc uint64
	consumedBits := 0
	for i := len(tag) - 1; i >= 0 && consumedBits < neededBits; i-- {
		acc |= uint64(tag[i]) << uint(consumedBits)
		consumedBits += 8
	}

	result := acc % modulus
	if result == 0 {
		return 0, ErrDerivedZero
	}
	return uint32(result), nil
}

// FormatDigits zero-pads value to the given number of decimal digits, the
// form both sides display for comparison.
func FormatDigits(value uint32, digits int) string {
	return fmt.Sprintf("%0*d", digits, value)
}
