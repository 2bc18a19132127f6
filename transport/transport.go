// Copyright 2026 The Gosrt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transport defines the boundary between the srt socket layer
// and the protocol engines that move payloads.  The socket layer treats
// engines as black boxes: it dials, listens, sends, receives and closes
// through the interfaces here and never sees packets, retransmission or
// key exchange.  Engines register themselves by URL scheme, usually from
// an init function, and are selected by the scheme of the address given
// to Bind, Listen or Connect.
package transport

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/eyerust/gosrt/errors"
)

// Session is a single established connection.  Implementations must be
// safe for concurrent use by multiple goroutines.
type Session interface {
	// Send queues one payload for transmission, blocking while the
	// flow window is full.  The timestamp travels with the payload so
	// the receiving engine can schedule delivery.
	Send(ctx context.Context, ts time.Time, payload []byte) error

	// TrySend is the non-blocking form of Send.  It fails with
	// ErrFlowWindow when the flow window is full, and with ErrTooLong
	// when the payload exceeds the session's acceptance limit.
	TrySend(ts time.Time, payload []byte) error

	// Recv returns the next payload, blocking until one arrives, the
	// context expires, or the session fails.  A session closed by the
	// peer reports ErrClosed or ErrConnLost.
	Recv(ctx context.Context) ([]byte, error)

	// Settings reports the values negotiated with the peer.  They do
	// not change for the life of the session.
	Settings() Settings

	// Close flushes queued payloads and shuts the session down.
	Close(ctx context.Context) error
}

// ConnRequest is an inbound connection that has not been answered yet.
// The engine parks the handshake until Accept or Reject is called.
type ConnRequest interface {
	// Remote is the address of the connecting peer.
	Remote() string

	// StreamID returns the stream identifier the peer asked for, or
	// an empty one.
	StreamID() StreamID

	// Accept completes the handshake.  A non-nil key overrides the
	// listener's configured encryption for this one session.
	Accept(key *KeySettings) (Session, error)

	// Reject refuses the peer.
	Reject() error
}

// Listener accepts inbound connection requests for a bound address.
type Listener interface {
	// Incoming yields connection requests until the listener closes;
	// the channel is closed afterwards.
	Incoming() <-chan ConnRequest

	// Address is the bound local address, scheme included.
	Address() string

	// Close stops the listener.  Parked requests are rejected.
	Close() error
}

// Transport is the factory an engine registers for its scheme.
type Transport interface {
	// Scheme returns the URL scheme the engine answers to, such as
	// "inproc" or "ws".
	Scheme() string

	// Dial connects to a remote listener and runs the handshake to
	// completion.  The context bounds the whole attempt.
	Dial(ctx context.Context, remote string, opts *SocketOptions, sid StreamID) (Session, error)

	// Listen binds the local address carried in the options and
	// starts accepting handshakes.
	Listen(opts ListenerOptions) (Listener, error)
}

// StripScheme removes the leading scheme (such as "ws://") from an
// address string.  This is mostly a utility for benefit of engine
// providers.
func StripScheme(t Transport, addr string) (string, error) {
	if !strings.HasPrefix(addr, t.Scheme()+"://") {
		return addr, errors.ErrBadTran
	}
	return addr[len(t.Scheme()+"://"):], nil
}

var lock sync.RWMutex
var transports = map[string]Transport{}

// RegisterTransport is used to register the transport globally,
// after which it will be available to all sockets.  The
// transport will override any others registered for the same
// scheme.
func RegisterTransport(t Transport) {
	lock.Lock()
	transports[t.Scheme()] = t
	lock.Unlock()
}

// GetTransport is used by the socket layer to look up the engine
// for a given scheme.
func GetTransport(scheme string) Transport {
	lock.RLock()
	defer lock.RUnlock()
	if t, ok := transports[scheme]; ok {
		return t
	}
	return nil
}
