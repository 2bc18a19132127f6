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

package srt

import (
	"github.com/eyerust/gosrt/transport"
)

// Socket is a handle naming one socket in the process-wide registry.
// Handles are allocated monotonically and never reused.
type Socket int32

// InvalidSocket is returned by operations that failed to produce a
// handle.
const InvalidSocket Socket = -1

// ListenCallback vets one inbound connection before it is accepted.
// It runs on the accept loop with no locks held, and may call
// SetSockOpt on ns to stage key material for the pending handshake.
// Returning zero accepts the connection; anything else rejects it.
type ListenCallback func(opaque interface{}, ns Socket, hsVersion int, peer string, streamID string) int

// handshakeVersion is the only handshake generation the engines speak,
// and what listener callbacks are told.
const handshakeVersion = 5

// apiOptions ride with a handle through every variant that can honor
// them.  They are value-copied out of the cell lock before any use
// across the callback boundary.
type apiOptions struct {
	sndSyn   bool // Send blocks until the engine takes the payload
	rcvSyn   bool // Recv, Accept, and Connect block
	listenCB ListenCallback
	opaque   interface{}
}

func defaultAPIOptions() apiOptions {
	return apiOptions{sndSyn: true, rcvSyn: true}
}

// sockState is the lifecycle variant of one handle.  Exactly one
// variant is observable at any instant; the owning cell's lock guards
// every transition, so no operation ever sees a handle mid-change.
type sockState interface {
	isSockState()
}

// initialized is a fresh handle: pre-connection options accumulate
// here until Listen or Connect consumes them.
type initialized struct {
	api  apiOptions
	opts transport.SocketOptions
	sid  transport.StreamID
}

// connecting is a handle whose non-blocking connect is still in
// flight on a background goroutine.
type connecting struct {
	api apiOptions
}

// established is a handle that owns a live session.
type established struct {
	api  apiOptions
	sess transport.Session
}

// accepted is one hand-off record published by the accept loop.
type accepted struct {
	ns     Socket
	remote string
}

// listening is a handle that owns a listener and its accept loop.
// pending is nil exactly while one Accept call has the receiver
// checked out; a second concurrent Accept observes the nil and fails
// fast.
type listening struct {
	api      apiOptions
	l        transport.Listener
	pending  <-chan accepted
	closeq   chan struct{}
	loopDone chan struct{}
}

// accepting is a provisional handle visible only inside a listener
// callback.  It stages key material for the handshake the callback is
// vetting.
type accepting struct {
	key *transport.KeySettings
}

// connectFailed is the terminal outcome of a failed non-blocking
// connect.  The cause is reported by the next operation that trips
// over it.
type connectFailed struct {
	cause error
}

// closedState is terminal.
type closedState struct{}

func (*initialized) isSockState()   {}
func (*connecting) isSockState()    {}
func (*established) isSockState()   {}
func (*listening) isSockState()     {}
func (*accepting) isSockState()     {}
func (*connectFailed) isSockState() {}
func (*closedState) isSockState()   {}

// apiOpts returns the state's API options, or nil for variants that
// carry none.
func apiOpts(st sockState) *apiOptions {
	switch s := st.(type) {
	case *initialized:
		return &s.api
	case *connecting:
		return &s.api
	case *established:
		return &s.api
	case *listening:
		return &s.api
	}
	return nil
}
