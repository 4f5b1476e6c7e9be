// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/elog"
)

// EventKind distinguishes the two presence events a Client emits.
type EventKind int

const (
	Added EventKind = iota
	Removed
)

// Peer identifies a responding server by address and id.
type Peer struct {
	Addr net.IP
	Port int
	ID   [ServerIDLengthBytes]byte
}

func (p Peer) key() string {
	return fmt.Sprintf("%s/%x", p.Addr.String(), p.ID)
}

// Event reports a Peer becoming visible or going quiet.
type Event struct {
	Kind EventKind
	Peer Peer
}

// BroadcastPeriod is the interval between discovery query broadcasts.
const BroadcastPeriod = 1 * time.Second

// Client periodically broadcasts discovery queries and tracks which peers
// are currently responding, emitting Added/Removed events as that set
// changes.
//
// Liveness uses a two-generation rotation: a peer survives as long as it
// answered in either of the last two broadcast rounds, so a single dropped
// UDP packet doesn't flap an otherwise-live peer. This mirrors
// meshage's own degree-checking loop (checkDegree) in shape, though that
// loop has no notion of generations since it only dials once per newly
// seen address.
type Client struct {
	conn *net.UDPConn
}

// NewClient opens the UDP socket used for broadcasting queries and
// receiving responses.
func NewClient() (*Client, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("discovery: opening client socket: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the client's socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Run broadcasts discovery queries every BroadcastPeriod and sends
// Added/Removed events to out as the responding peer set changes. Run
// blocks until ctx is canceled, then returns ctx.Err().
func (c *Client) Run(ctx context.Context, out chan<- Event) error {
	broadcastAddr := &net.UDPAddr{IP: net.IPv4bcast, Port: NSDPort}

	online := make(map[string]Peer)
	older := make(map[string]Peer)

	ticker := time.NewTicker(BroadcastPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		newest := c.broadcastAndCollect(broadcastAddr, BroadcastPeriod)

		events := rotateGeneration(online, newest, older)
		for _, ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		older = newest
	}
}

// rotateGeneration applies one round of the two-generation liveness check:
// a peer is still considered online if it appears in newest or older, the
// last two broadcast rounds. online is mutated in place to reflect the new
// live set; the returned events are the Added/Removed transitions implied
// by that change.
func rotateGeneration(online map[string]Peer, newest, older map[string]Peer) []Event {
	var events []Event

	union := make(map[string]Peer, len(newest)+len(older))
	for k, p := range older {
		union[k] = p
	}
	for k, p := range newest {
		union[k] = p
	}

	for k, p := range online {
		if _, ok := union[k]; !ok {
			delete(online, k)
			events = append(events, Event{Kind: Removed, Peer: p})
		}
	}
	for k, p := range newest {
		if _, ok := online[k]; !ok {
			online[k] = p
			events = append(events, Event{Kind: Added, Peer: p})
		}
	}

	return events
}

// BroadcastOnce sends a single discovery query and collects responses for
// timeout, independent of Run's continuous loop. The sync supervisor uses
// this for its single-pass query rather than subscribing to the
// Added/Removed event stream.
func (c *Client) BroadcastOnce(timeout time.Duration) map[string]Peer {
	broadcastAddr := &net.UDPAddr{IP: net.IPv4bcast, Port: NSDPort}
	return c.broadcastAndCollect(broadcastAddr, timeout)
}

// broadcastAndCollect sends one query and gathers responses for timeout.
func (c *Client) broadcastAndCollect(broadcastAddr *net.UDPAddr, timeout time.Duration) map[string]Peer {
	found := make(map[string]Peer)

	query := []byte(QueryString())
	if _, err := c.conn.WriteToUDP(query, broadcastAddr); err != nil {
		elog.Warn("discovery: broadcasting query: %v", err)
		return found
	}

	deadline := time.Now().Add(timeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		elog.Warn("discovery: setting read deadline: %v", err)
		return found
	}

	buf := make([]byte, 128)
	for {
		n, addr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return found
			}
			elog.Warn("discovery: reading response: %v", err)
			return found
		}

		resp, err := DecodeResponse(buf[:n])
		if err != nil {
			elog.Debug("discovery: dropping malformed response from %v: %v", addr, err)
			continue
		}

		p := Peer{Addr: addr.IP, Port: int(resp.AdvertisedTCPPort), ID: resp.ServerID}
		found[p.key()] = p
	}
}
