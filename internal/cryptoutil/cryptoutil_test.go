// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package cryptoutil

import (
	"bytes"
	"errors"
	"testing"
)

func repeated(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestConfirmationValueIsDeterministicAnd16Bytes(t *testing.T) {
	pkServer := repeated(0x01, 32)
	pkClient := repeated(0x02, 32)
	nonceServer := repeated(0x03, NonceLengthBytes)

	cv1, err := ConfirmationValue(pkServer, pkClient, nonceServer)
	if err != nil {
		t.Fatalf("ConfirmationValue: %v", err)
	}
	if len(cv1) != MACSizeBytes {
		t.Fatalf("expected %d bytes, got %d", MACSizeBytes, len(cv1))
	}

	cv2, err := ConfirmationValue(pkServer, pkClient, nonceServer)
	if err != nil {
		t.Fatalf("ConfirmationValue: %v", err)
	}
	if !bytes.Equal(cv1, cv2) {
		t.Fatalf("expected deterministic output, got %x vs %x", cv1, cv2)
	}
}

func TestConfirmationValueRejectsBadNonceLength(t *testing.T) {
	pkServer := repeated(0x01, 32)
	pkClient := repeated(0x02, 32)
	_, err := ConfirmationValue(pkServer, pkClient, []byte{1, 2, 3})
	if !errors.Is(err, ErrInvalidNonceLength) {
		t.Fatalf("expected ErrInvalidNonceLength, got %v", err)
	}
}

// TestPairingHappyPathScenario uses literal fixed nonce/key values to
// check that both sides derive the same 6-digit SAS.
func TestPairingHappyPathScenario(t *testing.T) {
	pkServer := repeated(0x01, 32)
	pkClient := repeated(0x02, 32)
	nonceServer := repeated(0x03, NonceLengthBytes)
	nonceClient := repeated(0x04, NonceLengthBytes)

	serverSide, err := NumericComparisonValue(pkServer, pkClient, nonceServer, nonceClient, NumericComparisonDigits)
	if err != nil {
		t.Fatalf("server-side derivation: %v", err)
	}
	clientSide, err := NumericComparisonValue(pkServer, pkClient, nonceServer, nonceClient, NumericComparisonDigits)
	if err != nil {
		t.Fatalf("client-side derivation: %v", err)
	}
	if serverSide != clientSide {
		t.Fatalf("SAS mismatch between server and client derivation: %d vs %d", serverSide, clientSide)
	}
	if serverSide == 0 || serverSide >= 1_000_000 {
		t.Fatalf("SAS %d out of [1, 10^6) range", serverSide)
	}

	formatted := FormatDigits(serverSide, NumericComparisonDigits)
	if len(formatted) != NumericComparisonDigits {
		t.Fatalf("expected %d-character formatted SAS, got %q", NumericComparisonDigits, formatted)
	}
}

func TestNumericComparisonValueDiffersWithDifferentClientNonce(t *testing.T) {
	pkServer := repeated(0x01, 32)
	pkClient := repeated(0x02, 32)
	nonceServer := repeated(0x03, NonceLengthBytes)
	nonceClientA := repeated(0x04, NonceLengthBytes)
	nonceClientB := repeated(0x05, NonceLengthBytes)

	a, err := NumericComparisonValue(pkServer, pkClient, nonceServer, nonceClientA, NumericComparisonDigits)
	if err != nil {
		t.Fatalf("derivation A: %v", err)
	}
	b, err := NumericComparisonValue(pkServer, pkClient, nonceServer, nonceClientB, NumericComparisonDigits)
	if err != nil {
		t.Fatalf("derivation B: %v", err)
	}
	if a == b {
		t.Fatalf("expected different SAS for different client nonces, both were %d", a)
	}
}

func TestNumericComparisonValueRejectsBadNonceLengths(t *testing.T) {
	pkServer := repeated(0x01, 32)
	pkClient := repeated(0x02, 32)
	goodNonce := repeated(0x03, NonceLengthBytes)

	if _, err := NumericComparisonValue(pkServer, pkClient, []byte{1}, goodNonce, NumericComparisonDigits); !errors.Is(err, ErrInvalidNonceLength) {
		t.Fatalf("expected ErrInvalidNonceLength for bad server nonce, got %v", err)
	}
	if _, err := NumericComparisonValue(pkServer, pkClient, goodNonce, []byte{1}, NumericComparisonDigits); !errors.Is(err, ErrInvalidNonceLength) {
		t.Fatalf("expected ErrInvalidNonceLength for bad client nonce, got %v", err)
	}
}

func TestFoldToDigitsRejectsZeroResult(t *testing.T) {
	zeroTag := make([]byte, MACSizeBytes)
	_, err := foldToDigits(zeroTag, NumericComparisonDigits)
	if !errors.Is(err, ErrDerivedZero) {
		t.Fatalf("expected ErrDerivedZero for all-zero tag, got %v", err)
	}
}
