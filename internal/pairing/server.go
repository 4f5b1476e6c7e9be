// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package pairing

import (
	"fmt"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/cryptoutil"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/protocol"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/rpktls"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/store"
)

// Server drives the server's half of the pairing state machine. It does
// not own the TCP connection; HandleExchangePublicKeys and
// HandleExchangeNonces are called from the request-dispatch loop once the
// discriminant is known, and return the Answer to send back.
type Server struct {
	Store      *store.ServerStore
	ServerName string
}

// HandleExchangePublicKeys is pairing round one: it displaces any prior
// pending attempt (only one may be in flight), generates a fresh TLS key
// pair and nonce for this prospective client, and returns the
// confirmation value the client will later verify.
func (s *Server) HandleExchangePublicKeys(req protocol.ExchangePublicKeysRequest) (protocol.AnswerExchangePublicKeys, error) {
	serverPub, serverPriv, err := rpktls.GenerateKeyPair()
	if err != nil {
		return protocol.AnswerExchangePublicKeys{}, fmt.Errorf("pairing: generating server key pair: %w", err)
	}

	serverNonce, err := cryptoutil.NewNonce()
	if err != nil {
		return protocol.AnswerExchangePublicKeys{}, fmt.Errorf("pairing: generating server nonce: %w", err)
	}

	cv, err := cryptoutil.ConfirmationValue(serverPub, req.ClientPubKey, serverNonce)
	if err != nil {
		return protocol.AnswerExchangePublicKeys{}, fmt.Errorf("pairing: computing confirmation value: %w", err)
	}

	machineID := s.Store.MachineID()
	s.Store.SetAwaitingPairingClient(store.PendingPairing{
		ClientPublicKey:   req.ClientPubKey,
		ClientName:        req.ClientName,
		ServerPublicKey:   serverPub,
		ServerPrivateKey:  serverPriv,
		ServerNonce:       serverNonce,
		ConfirmationValue: cv,
	})

	return protocol.AnswerExchangePublicKeys{
		ServerPub:  serverPub,
		CV:         cv,
		ServerID:   machineID[:],
		ServerName: s.ServerName,
	}, nil
}

// HandleExchangeNonces is pairing round two: it returns the server_nonce
// already generated in round one so the client can verify cv, and uses
// the client's nonce to compute the same SAS independently for its own
// operator to see. The client's nonce is not stored.
func (s *Server) HandleExchangeNonces(req protocol.ExchangeNoncesRequest) (protocol.AnswerExchangeNonces, string, error) {
	pending, ok := s.Store.PeekAwaitingPairingClient()
	if !ok {
		return protocol.AnswerExchangeNonces{}, "", ErrNoPendingPairing
	}

	sasValue, err := cryptoutil.NumericComparisonValue(
		pending.ServerPublicKey, pending.ClientPublicKey, pending.ServerNonce, req.ClientNonce, cryptoutil.NumericComparisonDigits)
	if err != nil {
		return protocol.AnswerExchangeNonces{}, "", fmt.Errorf("pairing: computing numeric comparison value: %w", err)
	}
	sas := cryptoutil.FormatDigits(sasValue, cryptoutil.NumericComparisonDigits)

	return protocol.AnswerExchangeNonces{ServerNonce: pending.ServerNonce}, sas, nil
}

// CommitPending promotes the pending pairing attempt into the persisted
// paired-clients set. The caller is responsible for having already
// obtained the operator's local "yes" (via the digit-confirmation
// external process) before calling this; CommitPending does not itself
// prompt anyone.
func (s *Server) CommitPending() (store.PairedClient, error) {
	pending, ok := s.Store.TakeAwaitingPairingClient()
	if !ok {
		return store.PairedClient{}, ErrNoPendingPairing
	}

	pc := store.PairedClient{
		Name:             pending.ClientName,
		ClientPublicKey:  pending.ClientPublicKey,
		ServerPublicKey:  pending.ServerPublicKey,
		ServerPrivateKey: pending.ServerPrivateKey,
	}
	if err := s.Store.UpsertPairedClient(pc); err != nil {
		return store.PairedClient{}, fmt.Errorf("pairing: persisting paired client: %w", err)
	}
	return pc, nil
}

// AbortPending discards the pending pairing attempt without persisting
// anything, e.g. when the operator's local comparison fails.
func (s *Server) AbortPending() {
	s.Store.TakeAwaitingPairingClient()
}
