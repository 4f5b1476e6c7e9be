// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package discovery

import (
	"context"
	"fmt"
	"net"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/elog"
)

// Responder answers discovery queries on behalf of a server, advertising a
// fixed TCP port and server id.
type Responder struct {
	conn              *net.UDPConn
	advertisedTCPPort uint16
	serverID          [ServerIDLengthBytes]byte
}

// NewResponder binds the discovery UDP port and prepares to answer queries
// with the given advertised TCP port and server id.
func NewResponder(advertisedTCPPort uint16, serverID [ServerIDLengthBytes]byte) (*Responder, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: NSDPort})
	if err != nil {
		return nil, fmt.Errorf("discovery: binding responder socket: %w", err)
	}
	return &Responder{conn: conn, advertisedTCPPort: advertisedTCPPort, serverID: serverID}, nil
}

// Close releases the responder's socket.
func (r *Responder) Close() error {
	return r.conn.Close()
}

// Run reads incoming packets and unicasts a Response to the sender of every
// well-formed query, silently dropping anything else. It validates packet
// length before comparing bytes, following meshage's own
// broadcastListener pattern. Run blocks until ctx is canceled.
func (r *Responder) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		r.conn.Close()
		close(done)
	}()

	want := []byte(QueryString())
	buf := make([]byte, len(want)+16)

	for {
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-done:
				return ctx.Err()
			default:
				return fmt.Errorf("discovery: reading query: %w", err)
			}
		}

		if n != len(want) {
			continue
		}
		if string(buf[:n]) != string(want) {
			continue
		}

		resp := Response{AdvertisedTCPPort: r.advertisedTCPPort, ServerID: r.serverID}
		if _, err := r.conn.WriteToUDP(resp.Encode(), addr); err != nil {
			elog.Warn("discovery: replying to %v: %v", addr, err)
		}
	}
}
