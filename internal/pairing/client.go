// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package pairing

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/cryptoutil"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/protocol"
)

// ClientResult is what a successful client-side pairing run yields; the
// caller (the CLI) turns this into a store.PairedServer and persists it.
type ClientResult struct {
	ServerID        []byte
	ServerName      string
	ServerPublicKey []byte
	SAS             string
}

// Confirm asks the local user to compare sas against what they see on the
// server's screen; true means they match.
type Confirm func(sas string) (bool, error)

// ClientPair drives the client's half of the pairing state machine over
// rw, which must already be past the versioning handshake. It
// blocks on confirm for the user's accept/reject decision; on rejection,
// or on a confirmation-value mismatch, it returns an error and sends
// nothing further (the caller is responsible for closing rw).
func ClientPair(rw io.ReadWriter, clientPubKey []byte, clientName string, confirm Confirm) (ClientResult, error) {
	if err := protocol.EncodeRequest(rw, protocol.ExchangePublicKeysRequest{
		ClientPubKey: clientPubKey,
		ClientName:   clientName,
	}); err != nil {
		return ClientResult{}, fmt.Errorf("pairing: sending ExchangePublicKeys: %w", err)
	}

	ans, err := protocol.DecodeAnswer(rw)
	if err != nil {
		return ClientResult{}, fmt.Errorf("pairing: reading AnswerExchangePublicKeys: %w", err)
	}
	keysAnswer, ok := ans.(protocol.AnswerExchangePublicKeys)
	if !ok {
		return ClientResult{}, fmt.Errorf("%w: expected AnswerExchangePublicKeys, got %T", ErrUnexpectedAnswer, ans)
	}

	clientNonce, err := cryptoutil.NewNonce()
	if err != nil {
		return ClientResult{}, fmt.Errorf("pairing: generating client nonce: %w", err)
	}

	if err := protocol.EncodeRequest(rw, protocol.ExchangeNoncesRequest{ClientNonce: clientNonce}); err != nil {
		return ClientResult{}, fmt.Errorf("pairing: sending ExchangeNonces: %w", err)
	}

	ans, err = protocol.DecodeAnswer(rw)
	if err != nil {
		return ClientResult{}, fmt.Errorf("pairing: reading AnswerExchangeNonces: %w", err)
	}
	noncesAnswer, ok := ans.(protocol.AnswerExchangeNonces)
	if !ok {
		return ClientResult{}, fmt.Errorf("%w: expected AnswerExchangeNonces, got %T", ErrUnexpectedAnswer, ans)
	}

	recomputedCV, err := cryptoutil.ConfirmationValue(keysAnswer.ServerPub, clientPubKey, noncesAnswer.ServerNonce)
	if err != nil {
		return ClientResult{}, fmt.Errorf("pairing: recomputing confirmation value: %w", err)
	}
	if !bytes.Equal(recomputedCV, keysAnswer.CV) {
		return ClientResult{}, ErrConfirmationValueMismatch
	}

	sasValue, err := cryptoutil.NumericComparisonValue(
		keysAnswer.ServerPub, clientPubKey, noncesAnswer.ServerNonce, clientNonce, cryptoutil.NumericComparisonDigits)
	if err != nil {
		return ClientResult{}, fmt.Errorf("pairing: computing numeric comparison value: %w", err)
	}
	sas := cryptoutil.FormatDigits(sasValue, cryptoutil.NumericComparisonDigits)

	accepted, err := confirm(sas)
	if err != nil {
		return ClientResult{}, fmt.Errorf("pairing: confirming SAS: %w", err)
	}
	if !accepted {
		return ClientResult{}, ErrUserRejected
	}

	if err := protocol.EncodeRequest(rw, protocol.NumberEnteredRequest{}); err != nil {
		return ClientResult{}, fmt.Errorf("pairing: sending NumberEntered: %w", err)
	}

	return ClientResult{
		ServerID:        keysAnswer.ServerID,
		ServerName:      keysAnswer.ServerName,
		ServerPublicKey: keysAnswer.ServerPub,
		SAS:             sas,
	}, nil
}
