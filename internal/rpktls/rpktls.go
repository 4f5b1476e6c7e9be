// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package rpktls builds TLS 1.3 configurations that authenticate peers by
// a pinned raw public key (RFC 7250) instead of an X.509 certificate
// chain. No ecosystem library in the example pack speaks RFC 7250
// natively, so this package follows the common workaround: wrap the bare
// Ed25519 public key in a minimal self-signed certificate and verify the
// peer by comparing its certificate's SubjectPublicKeyInfo against a
// locally-trusted set, with chain validation disabled entirely.
package rpktls

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ErrUnknownIssuer is returned when a peer's presented public key is not a
// member of the locally-trusted set.
var ErrUnknownIssuer = errors.New("rpktls: peer public key is not in the trusted set")

// GenerateKeyPair creates a fresh Ed25519 key pair suitable for raw
// public key TLS authentication.
func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("rpktls: generating key pair: %w", err)
	}
	return pub, priv, nil
}

// selfSignedSerial is fixed rather than random: the certificate's identity
// is meaningless here, only its embedded public key is ever inspected.
var selfSignedSerial = big.NewInt(1)

// WrapKeyPair builds a minimal self-signed certificate
// around priv so it can be presented as a tls.Certificate. The
// certificate's subject and validity window carry no meaning; every
// verifier in this package ignores them and checks only the embedded
// public key.
func WrapKeyPair(pub ed25519.PublicKey, priv ed25519.PrivateKey) (tls.Certificate, error) {
	template := &x509.Certificate{
		SerialNumber: selfSignedSerial,
		Subject:      pkix.Name{CommonName: "easy-photo-backup raw public key"},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).AddDate(100, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("rpktls: creating self-signed wrapper certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}, nil
}

// publicKeyFromCertificate extracts the raw Ed25519 public key embedded in
// a DER-encoded certificate, the inverse of WrapKeyPair.
func publicKeyFromCertificate(der []byte) (ed25519.PublicKey, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("rpktls: parsing peer certificate: %w", err)
	}
	pub, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("rpktls: peer certificate does not carry an Ed25519 public key")
	}
	return pub, nil
}

// pinnedVerifier returns a VerifyPeerCertificate callback that accepts the
// connection iff the peer's leaf certificate embeds one of trusted.
func pinnedVerifier(trusted func() [][]byte) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return fmt.Errorf("rpktls: peer presented no certificate")
		}
		peerKey, err := publicKeyFromCertificate(rawCerts[0])
		if err != nil {
			return err
		}

		for _, candidate := range trusted() {
			if ed25519.PublicKey(candidate).Equal(peerKey) {
				return nil
			}
		}
		return ErrUnknownIssuer
	}
}

// ClientConfig builds the client-side TLS config for a transfer session:
// it presents localCert and trusts exactly serverPublicKey, the paired
// server's pinned key.
func ClientConfig(localCert tls.Certificate, serverPublicKey []byte) *tls.Config {
	return &tls.Config{
		Certificates:          []tls.Certificate{localCert},
		InsecureSkipVerify:    true,
		MinVersion:            tls.VersionTLS13,
		VerifyPeerCertificate: pinnedVerifier(func() [][]byte { return [][]byte{serverPublicKey} }),
	}
}

// ServerConfig builds the server-side TLS config: it presents localCert
// and trusts the union of all currently paired clients' public keys.
// trustedClientKeys is called fresh on every handshake so a newly paired
// client is trusted without restarting the listener.
func ServerConfig(localCert tls.Certificate, trustedClientKeys func() [][]byte) *tls.Config {
	return &tls.Config{
		Certificates:          []tls.Certificate{localCert},
		ClientAuth:            tls.RequireAnyClientCert,
		InsecureSkipVerify:    true,
		MinVersion:            tls.VersionTLS13,
		VerifyPeerCertificate: pinnedVerifier(trustedClientKeys),
	}
}
