// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/peterh/liner"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/digitconfirm"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/pairing"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/protocol"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/rpktls"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/store"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/transfer"
	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/elog"
)

// server holds everything a connection handler needs: the persisted peer
// state, the one directory new files land in, and how to ask the local
// operator (or an external helper) to confirm a pairing's SAS.
type server struct {
	store         *store.ServerStore
	syncDir       string
	deviceName    string
	strategy      transfer.NameCollisionStrategy
	confirmHelper string

	confirmRequests chan confirmRequest
}

// confirmRequest is one pairing attempt waiting on the digit-confirmation
// poller. pairing is re-peeked from the store when the poller wakes, since
// by the time it runs a newer attempt may have displaced this one (the
// store keeps exactly one pending slot, per the documented eviction rule).
type confirmRequest struct {
	sas        string
	clientName string
	server     *pairing.Server
}

func newServer(st *store.ServerStore, syncDir, deviceName string, strategy transfer.NameCollisionStrategy, confirmHelper string) *server {
	return &server{
		store:           st,
		syncDir:         syncDir,
		deviceName:      deviceName,
		strategy:        strategy,
		confirmHelper:   confirmHelper,
		confirmRequests: make(chan confirmRequest),
	}
}

// runConfirmPoller is the one long-lived digit-confirmation thread: it
// blocks waiting for a pairing attempt to reach the SAS stage, then asks
// the operator (or confirmHelper) for a yes/no and commits or aborts.
// Serializing this in a single goroutine means two pairing attempts in
// flight never race each other's confirm prompts.
func (s *server) runConfirmPoller(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.confirmRequests:
			decision, err := s.askForConfirmation(req.sas, req.clientName)
			if err != nil {
				elog.Error("digit confirmation for %q: %v", req.clientName, err)
				req.server.AbortPending()
				continue
			}
			if decision == digitconfirm.Confirmed {
				if pc, err := req.server.CommitPending(); err != nil {
					elog.Error("committing pairing with %q: %v", req.clientName, err)
				} else {
					elog.Info("paired with %q", pc.Name)
				}
			} else {
				elog.Info("pairing with %q aborted by local confirmation", req.clientName)
				req.server.AbortPending()
			}
		}
	}
}

func (s *server) askForConfirmation(sas, clientName string) (digitconfirm.Decision, error) {
	if s.confirmHelper != "" {
		return digitconfirm.Confirm(s.confirmHelper, sas)
	}
	return promptConfirmation(sas, clientName)
}

// promptConfirmation is the interactive fallback when no --confirm-helper
// is configured: it shows the SAS on this terminal and asks the operator
// to compare it against what the client displays.
func promptConfirmation(sas, clientName string) (digitconfirm.Decision, error) {
	line := liner.NewLiner()
	defer line.Close()

	prompt := fmt.Sprintf("pairing with %q shows %s on its screen, does it match? [y/N] ", clientName, sas)
	answer, err := line.Prompt(prompt)
	if err != nil {
		return digitconfirm.Aborted, err
	}
	if strings.EqualFold(strings.TrimSpace(answer), "y") {
		return digitconfirm.Confirmed, nil
	}
	return digitconfirm.Aborted, nil
}

// handleConnection multiplexes every request kind a client may open this
// TCP stream for: pairing's two rounds plus its one-way notification,
// GetServerName, and SendFiles. Pairing requests loop; SendFiles consumes
// the rest of the connection itself (the stream upgrades to TLS), so it
// is always the last request handled.
func (s *server) handleConnection(conn net.Conn) {
	defer conn.Close()

	if err := protocol.ServerWriteVersion(conn); err != nil {
		elog.Debug("version handshake: %v", err)
		return
	}

	ps := &pairing.Server{Store: s.store, ServerName: s.deviceName}

	for {
		req, err := protocol.DecodeRequest(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				elog.Debug("reading request: %v", err)
			}
			return
		}

		switch r := req.(type) {
		case protocol.ExchangePublicKeysRequest:
			ans, err := ps.HandleExchangePublicKeys(r)
			if err != nil {
				elog.Error("ExchangePublicKeys: %v", err)
				return
			}
			if err := protocol.EncodeAnswer(conn, ans); err != nil {
				elog.Debug("writing ExchangePublicKeys answer: %v", err)
				return
			}

		case protocol.ExchangeNoncesRequest:
			ans, sas, err := ps.HandleExchangeNonces(r)
			if err != nil {
				elog.Error("ExchangeNonces: %v", err)
				return
			}
			if err := protocol.EncodeAnswer(conn, ans); err != nil {
				elog.Debug("writing ExchangeNonces answer: %v", err)
				return
			}
			pending, _ := s.store.PeekAwaitingPairingClient()
			s.confirmRequests <- confirmRequest{sas: sas, clientName: pending.ClientName, server: ps}

		case protocol.NumberEnteredRequest:
			elog.Debug("client signalled local SAS acceptance; awaiting local confirmation")

		case protocol.GetServerNameRequest:
			if err := protocol.EncodeAnswer(conn, protocol.AnswerGetServerName{Name: s.deviceName}); err != nil {
				elog.Debug("writing GetServerName answer: %v", err)
				return
			}

		case protocol.SendFilesRequest:
			s.handleSendFiles(conn, r)
			return

		default:
			elog.Error("unexpected request type %T", req)
			return
		}
	}
}

func (s *server) handleSendFiles(conn net.Conn, req protocol.SendFilesRequest) {
	pc, ok := s.store.FindPairedClient(req.ClientPubKey)
	if !ok {
		if err := protocol.EncodeAnswer(conn, protocol.UnknownClientAnswer{}); err != nil {
			elog.Debug("writing UnknownClient answer: %v", err)
		}
		return
	}

	cert, err := rpktls.WrapKeyPair(pc.ServerPublicKey, pc.ServerPrivateKey)
	if err != nil {
		elog.Error("wrapping server key pair for %q: %v", pc.Name, err)
		return
	}

	isKnown := func(clientPubKey []byte) bool {
		_, ok := s.store.FindPairedClient(clientPubKey)
		return ok
	}
	trustedKeys := func() [][]byte {
		clients := s.store.PairedClients()
		keys := make([][]byte, 0, len(clients))
		for _, c := range clients {
			keys = append(keys, c.ClientPublicKey)
		}
		return keys
	}

	result, err := transfer.HandleSendFilesRequest(conn, req, cert, isKnown, trustedKeys, s.syncDir, s.strategy)
	if err != nil {
		elog.Error("transfer session with %q: %v", pc.Name, err)
		return
	}

	accepted := 0
	for _, f := range result.Files {
		if f.Accepted {
			accepted++
		}
	}
	elog.Info("received %d/%d files from %q", accepted, len(result.Files), pc.Name)
}
