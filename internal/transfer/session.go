// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package transfer

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	"github.com/gameraccoon/easy-photo-backup-sub000/internal/protocol"
	"github.com/gameraccoon/easy-photo-backup-sub000/internal/rpktls"
)

// ErrUnknownClient is returned to the client when the server does not
// recognize the presented public key.
var ErrUnknownClient = errors.New("transfer: server does not recognize this client")

// RunClientSession dials addr, runs the plaintext versioning handshake
// and request phase, upgrades to TLS pinned to serverPublicKey, and
// sends files. It owns the connection and closes it before returning.
func RunClientSession(
	addr string,
	clientCert tls.Certificate,
	serverPublicKey []byte,
	clientPubKey []byte,
	files []FileToSend,
) (SendResult, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return SendResult{}, fmt.Errorf("transfer: dialing %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := protocol.ClientNegotiateVersion(conn); err != nil {
		return SendResult{}, fmt.Errorf("transfer: version handshake: %w", err)
	}

	if err := protocol.EncodeRequest(conn, protocol.SendFilesRequest{ClientPubKey: clientPubKey}); err != nil {
		return SendResult{}, fmt.Errorf("transfer: sending SendFiles request: %w", err)
	}

	ans, err := protocol.DecodeAnswer(conn)
	if err != nil {
		return SendResult{}, fmt.Errorf("transfer: reading answer to SendFiles: %w", err)
	}
	switch ans.(type) {
	case protocol.ReadyToReceiveFilesAnswer:
		// continue below
	case protocol.UnknownClientAnswer:
		return SendResult{}, ErrUnknownClient
	default:
		return SendResult{}, fmt.Errorf("transfer: unexpected answer type %T to SendFiles", ans)
	}

	tlsConn := tls.Client(conn, rpktls.ClientConfig(clientCert, serverPublicKey))
	return SendFiles(tlsConn, files)
}

// ServeOneSession plays the server side of one already-accepted TCP
// connection end to end: the versioning handshake, dispatching the
// client's request, and — for SendFiles from a recognized client — the
// TLS upgrade and file reception. isKnownClient decides whether a
// presented public key may open a session; trustedClientKeys supplies
// the full pinned set for the TLS handshake itself.
func ServeOneSession(
	conn net.Conn,
	serverCert tls.Certificate,
	isKnownClient func(clientPubKey []byte) bool,
	trustedClientKeys func() [][]byte,
	destinationRoot string,
	strategy NameCollisionStrategy,
) (ReceiveResult, error) {
	defer conn.Close()

	if err := protocol.ServerWriteVersion(conn); err != nil {
		return ReceiveResult{}, fmt.Errorf("transfer: version handshake: %w", err)
	}

	req, err := protocol.DecodeRequest(conn)
	if err != nil {
		return ReceiveResult{}, fmt.Errorf("transfer: reading request: %w", err)
	}
	sendFiles, ok := req.(protocol.SendFilesRequest)
	if !ok {
		return ReceiveResult{}, fmt.Errorf("transfer: expected SendFiles request, got %T", req)
	}

	return HandleSendFilesRequest(conn, sendFiles, serverCert, isKnownClient, trustedClientKeys, destinationRoot, strategy)
}

// HandleSendFilesRequest runs the rest of a transfer session given a
// SendFilesRequest already read off conn by a caller that multiplexes
// several request kinds over the same listener (a server that also
// accepts pairing connections needs to decode the first request itself
// before it knows which path to take). conn must already be past the
// plaintext versioning handshake; HandleSendFilesRequest does not close
// it on return, leaving that to the caller that accepted it.
func HandleSendFilesRequest(
	conn net.Conn,
	sendFiles protocol.SendFilesRequest,
	serverCert tls.Certificate,
	isKnownClient func(clientPubKey []byte) bool,
	trustedClientKeys func() [][]byte,
	destinationRoot string,
	strategy NameCollisionStrategy,
) (ReceiveResult, error) {
	if !isKnownClient(sendFiles.ClientPubKey) {
		if err := protocol.EncodeAnswer(conn, protocol.UnknownClientAnswer{}); err != nil {
			return ReceiveResult{}, fmt.Errorf("transfer: writing UnknownClient answer: %w", err)
		}
		return ReceiveResult{}, ErrUnknownClient
	}

	if err := protocol.EncodeAnswer(conn, protocol.ReadyToReceiveFilesAnswer{}); err != nil {
		return ReceiveResult{}, fmt.Errorf("transfer: writing ReadyToReceiveFiles answer: %w", err)
	}

	tlsConn := tls.Server(conn, rpktls.ServerConfig(serverCert, trustedClientKeys))
	return ReceiveFiles(tlsConn, destinationRoot, strategy)
}
