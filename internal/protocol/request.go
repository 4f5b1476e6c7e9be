// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package protocol

import (
	"fmt"
	"io"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/wire"
)

// RequestDiscriminant identifies which Request variant follows on the wire.
type RequestDiscriminant uint32

const (
	RequestExchangePublicKeys RequestDiscriminant = 0
	RequestExchangeNonces     RequestDiscriminant = 1
	RequestNumberEntered      RequestDiscriminant = 2
	RequestSendFiles          RequestDiscriminant = 3
	RequestGetServerName      RequestDiscriminant = 4
)

// Request is the closed set of messages a client may send.
type Request interface {
	requestDiscriminant() RequestDiscriminant
}

// ExchangePublicKeysRequest starts pairing round one.
type ExchangePublicKeysRequest struct {
	ClientPubKey []byte
	ClientName   string
}

func (ExchangePublicKeysRequest) requestDiscriminant() RequestDiscriminant {
	return RequestExchangePublicKeys
}

// ExchangeNoncesRequest starts pairing round two.
type ExchangeNoncesRequest struct {
	ClientNonce []byte
}

func (ExchangeNoncesRequest) requestDiscriminant() RequestDiscriminant {
	return RequestExchangeNonces
}

// NumberEnteredRequest is a one-way notification; the server sends no
// answer for it.
type NumberEnteredRequest struct{}

func (NumberEnteredRequest) requestDiscriminant() RequestDiscriminant {
	return RequestNumberEntered
}

// SendFilesRequest opens a transfer session for an already-paired client.
type SendFilesRequest struct {
	ClientPubKey []byte
}

func (SendFilesRequest) requestDiscriminant() RequestDiscriminant {
	return RequestSendFiles
}

// GetServerNameRequest asks the server to identify itself by name.
type GetServerNameRequest struct{}

func (GetServerNameRequest) requestDiscriminant() RequestDiscriminant {
	return RequestGetServerName
}

// EncodeRequest writes req's discriminant followed by its payload.
func EncodeRequest(w io.Writer, req Request) error {
	if err := wire.WriteU32(w, uint32(req.requestDiscriminant())); err != nil {
		return fmt.Errorf("protocol: writing request discriminant: %w", err)
	}

	switch r := req.(type) {
	case ExchangePublicKeysRequest:
		if err := wire.WriteBytes(w, r.ClientPubKey); err != nil {
			return fmt.Errorf("protocol: writing client_pub_key: %w", err)
		}
		if err := wire.WriteString(w, r.ClientName); err != nil {
			return fmt.Errorf("protocol: writing client name: %w", err)
		}
	case ExchangeNoncesRequest:
		if err := wire.WriteBytes(w, r.ClientNonce); err != nil {
			return fmt.Errorf("protocol: writing client_nonce: %w", err)
		}
	case NumberEnteredRequest:
		// empty payload
	case SendFilesRequest:
		if err := wire.WriteBytes(w, r.ClientPubKey); err != nil {
			return fmt.Errorf("protocol: writing client_pub_key: %w", err)
		}
	case GetServerNameRequest:
		// empty payload
	default:
		return fmt.Errorf("protocol: unsupported request type %T", req)
	}
	return nil
}

// DecodeRequest reads a discriminant and dispatches to the matching
// variant. An unknown discriminant is a ProtocolViolation.
func DecodeRequest(r io.Reader) (Request, error) {
	discriminant, err := wire.ReadU32(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: reading request discriminant: %w", err)
	}

	switch RequestDiscriminant(discriminant) {
	case RequestExchangePublicKeys:
		pubKey, err := wire.ReadBytes(r, MaxPublicKeyLengthBytes)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading client_pub_key: %w", err)
		}
		name, err := wire.ReadString(r, DeviceNameMaxLengthBytes)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading client name: %w", err)
		}
		return ExchangePublicKeysRequest{ClientPubKey: pubKey, ClientName: name}, nil

	case RequestExchangeNonces:
		nonce, err := wire.ReadBytes(r, wire.NoLimit)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading client_nonce: %w", err)
		}
		return ExchangeNoncesRequest{ClientNonce: nonce}, nil

	case RequestNumberEntered:
		return NumberEnteredRequest{}, nil

	case RequestSendFiles:
		pubKey, err := wire.ReadBytes(r, MaxPublicKeyLengthBytes)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading client_pub_key: %w", err)
		}
		return SendFilesRequest{ClientPubKey: pubKey}, nil

	case RequestGetServerName:
		return GetServerNameRequest{}, nil

	default:
		return nil, fmt.Errorf("%w: unknown request discriminant %d", ErrUnknownDiscriminant, discriminant)
	}
}
