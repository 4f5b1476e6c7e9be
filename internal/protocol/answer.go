// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package protocol

import (
	"fmt"
	"io"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/wire"
)

// AnswerDiscriminant identifies which Answer variant follows on the wire.
type AnswerDiscriminant uint32

const (
	AnswerUnknownClient           AnswerDiscriminant = 0
	AnswerExchangePublicKeysKind  AnswerDiscriminant = 1
	AnswerExchangeNoncesKind      AnswerDiscriminant = 2
	AnswerReadyToReceiveFilesKind AnswerDiscriminant = 3
	AnswerGetServerNameKind       AnswerDiscriminant = 4
)

// Answer is the closed set of messages a server may send in response to a
// Request.
type Answer interface {
	answerDiscriminant() AnswerDiscriminant
}

// UnknownClientAnswer is returned when SendFilesRequest names a public key
// the server does not recognize.
type UnknownClientAnswer struct{}

func (UnknownClientAnswer) answerDiscriminant() AnswerDiscriminant { return AnswerUnknownClient }

// AnswerExchangePublicKeys completes pairing round one.
type AnswerExchangePublicKeys struct {
	ServerPub  []byte
	CV         []byte
	ServerID   []byte
	ServerName string
}

func (AnswerExchangePublicKeys) answerDiscriminant() AnswerDiscriminant {
	return AnswerExchangePublicKeysKind
}

// AnswerExchangeNonces completes pairing round two.
type AnswerExchangeNonces struct {
	ServerNonce []byte
}

func (AnswerExchangeNonces) answerDiscriminant() AnswerDiscriminant {
	return AnswerExchangeNoncesKind
}

// ReadyToReceiveFilesAnswer tells the client it may begin the TLS upgrade.
type ReadyToReceiveFilesAnswer struct{}

func (ReadyToReceiveFilesAnswer) answerDiscriminant() AnswerDiscriminant {
	return AnswerReadyToReceiveFilesKind
}

// AnswerGetServerName carries the server's display name.
type AnswerGetServerName struct {
	Name string
}

func (AnswerGetServerName) answerDiscriminant() AnswerDiscriminant {
	return AnswerGetServerNameKind
}

// EncodeAnswer writes ans's discriminant followed by its payload.
func EncodeAnswer(w io.Writer, ans Answer) error {
	if err := wire.WriteU32(w, uint32(ans.answerDiscriminant())); err != nil {
		return fmt.Errorf("protocol: writing answer discriminant: %w", err)
	}

	switch a := ans.(type) {
	case UnknownClientAnswer:
		// empty payload
	case AnswerExchangePublicKeys:
		if err := wire.WriteBytes(w, a.ServerPub); err != nil {
			return fmt.Errorf("protocol: writing server_pub: %w", err)
		}
		if err := wire.WriteBytes(w, a.CV); err != nil {
			return fmt.Errorf("protocol: writing cv: %w", err)
		}
		if err := wire.WriteBytes(w, a.ServerID); err != nil {
			return fmt.Errorf("protocol: writing server_id: %w", err)
		}
		if err := wire.WriteString(w, a.ServerName); err != nil {
			return fmt.Errorf("protocol: writing server name: %w", err)
		}
	case AnswerExchangeNonces:
		if err := wire.WriteBytes(w, a.ServerNonce); err != nil {
			return fmt.Errorf("protocol: writing server_nonce: %w", err)
		}
	case ReadyToReceiveFilesAnswer:
		// empty payload
	case AnswerGetServerName:
		if err := wire.WriteString(w, a.Name); err != nil {
			return fmt.Errorf("protocol: writing server name: %w", err)
		}
	default:
		return fmt.Errorf("protocol: unsupported answer type %T", ans)
	}
	return nil
}

// DecodeAnswer reads a discriminant and dispatches to the matching
// variant. An unknown discriminant is a ProtocolViolation.
func DecodeAnswer(r io.Reader) (Answer, error) {
	discriminant, err := wire.ReadU32(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: reading answer discriminant: %w", err)
	}

	switch AnswerDiscriminant(discriminant) {
	case AnswerUnknownClient:
		return UnknownClientAnswer{}, nil

	case AnswerExchangePublicKeysKind:
		serverPub, err := wire.ReadBytes(r, MaxPublicKeyLengthBytes)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading server_pub: %w", err)
		}
		cv, err := wire.ReadBytes(r, wire.NoLimit)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading cv: %w", err)
		}
		serverID, err := wire.ReadBytes(r, wire.NoLimit)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading server_id: %w", err)
		}
		name, err := wire.ReadString(r, DeviceNameMaxLengthBytes)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading server name: %w", err)
		}
		return AnswerExchangePublicKeys{ServerPub: serverPub, CV: cv, ServerID: serverID, ServerName: name}, nil

	case AnswerExchangeNoncesKind:
		nonce, err := wire.ReadBytes(r, wire.NoLimit)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading server_nonce: %w", err)
		}
		return AnswerExchangeNonces{ServerNonce: nonce}, nil

	case AnswerReadyToReceiveFilesKind:
		return ReadyToReceiveFilesAnswer{}, nil

	case AnswerGetServerNameKind:
		name, err := wire.ReadString(r, DeviceNameMaxLengthBytes)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading server name: %w", err)
		}
		return AnswerGetServerName{Name: name}, nil

	default:
		return nil, fmt.Errorf("%w: unknown answer discriminant %d", ErrUnknownDiscriminant, discriminant)
	}
}
