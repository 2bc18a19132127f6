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
	"context"
	"time"

	"github.com/eyerust/gosrt/transport"
)

// handoffCap bounds how many completed inbound sessions may queue
// between the accept loop and Accept before the loop blocks.
const handoffCap = 1024

// Listen validates the accumulated options, binds the engine named by
// the local address, and starts the background accept loop.  The
// handle must have been bound first.
func Listen(s Socket, backlog int) error {
	c := lookup(s)
	if c == nil {
		return setErr(EInvSock)
	}
	c.Lock()
	defer c.Unlock()
	st, ok := c.st.(*initialized)
	if !ok {
		return setErr(EConnSock)
	}
	lo, err := transport.ListenerOptions{Socket: st.opts, Backlog: backlog}.Validate()
	if err != nil {
		return setErrf(EInvOp, "listen: %v", err)
	}
	tran := transport.GetTransport(transport.AddressScheme(st.opts.Connect.Local))
	if tran == nil {
		return setErrf(EInvParam, "no engine for address %q", st.opts.Connect.Local)
	}
	l, err := tran.Listen(lo)
	if err != nil {
		return setErrf(EInvOp, "listen %s: %v", st.opts.Connect.Local, err)
	}
	pending := make(chan accepted, handoffCap)
	lst := &listening{
		api:      st.api,
		l:        l,
		pending:  pending,
		closeq:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	c.st = lst
	go acceptLoop(c, l, pending, lst.closeq, lst.loopDone)
	return nil
}

// Accept returns the next completed inbound session as a fresh handle
// together with the peer address.  Exactly one Accept may wait per
// listening handle; a second concurrent call fails fast.
func Accept(s Socket) (Socket, string, error) {
	c := lookup(s)
	if c == nil {
		return InvalidSocket, "", setErr(EInvSock)
	}
	c.Lock()
	st, ok := c.st.(*listening)
	if !ok {
		c.Unlock()
		return InvalidSocket, "", setErr(ENoListen)
	}
	if st.pending == nil {
		c.Unlock()
		return InvalidSocket, "", setErrf(EInvOp, "accept already in progress")
	}
	pending := st.pending
	st.pending = nil
	rcvSyn := st.api.rcvSyn
	c.Unlock()

	var a accepted
	if rcvSyn {
		a, ok = <-pending
	} else {
		t := time.NewTimer(pollInterval)
		select {
		case a, ok = <-pending:
			t.Stop()
		case <-t.C:
			putBack(c, st, pending)
			return InvalidSocket, "", setErr(EAsyncRcv)
		}
	}
	putBack(c, st, pending)
	if !ok {
		return InvalidSocket, "", setErr(ESClosed)
	}
	return a.ns, a.remote, nil
}

// putBack restores the hand-off receiver unless the handle moved on
// while it was checked out.
func putBack(c *cell, st *listening, pending <-chan accepted) {
	c.Lock()
	if cur, ok := c.st.(*listening); ok && cur == st {
		cur.pending = pending
	}
	c.Unlock()
}

// SetListenCallback installs cb to vet inbound connections.  It may be
// set before or after Listen; the accept loop rereads it for every
// connection.
func SetListenCallback(s Socket, cb ListenCallback, opaque interface{}) error {
	c := lookup(s)
	if c == nil {
		return setErr(EInvSock)
	}
	c.Lock()
	defer c.Unlock()
	api := apiOpts(c.st)
	if api == nil {
		return setErr(ENoConn)
	}
	api.listenCB = cb
	api.opaque = opaque
	return nil
}

// acceptLoop drains the engine's incoming stream, vets each request
// through the installed callback, and publishes completed sessions to
// the hand-off channel.  One instance runs per listening handle.
func acceptLoop(c *cell, l transport.Listener, pending chan<- accepted, closeq <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(pending)
	for {
		var req transport.ConnRequest
		var ok bool
		select {
		case req, ok = <-l.Incoming():
			if !ok {
				return
			}
		case <-closeq:
			return
		}

		// The callback can be replaced between connections, so the
		// options are snapshotted for every request.
		c.Lock()
		api := apiOpts(c.st)
		if api == nil {
			c.Unlock()
			_ = req.Reject()
			return
		}
		snap := *api
		c.Unlock()

		ns := insert(&accepting{})
		if snap.listenCB != nil {
			if runCallback(snap, ns, req) != 0 {
				_ = Close(ns)
				_ = req.Reject()
				continue
			}
		}

		nc := lookup(ns)
		if nc == nil {
			// Closed from inside the callback.
			_ = req.Reject()
			continue
		}
		nc.Lock()
		var key *transport.KeySettings
		if ast, ok := nc.st.(*accepting); ok {
			key = ast.key
		}
		nc.Unlock()

		sess, err := req.Accept(key)
		if err != nil {
			logf("accept %s: %v", req.Remote(), err)
			_ = Close(ns)
			continue
		}
		nc.Lock()
		if _, ok := nc.st.(*accepting); !ok {
			nc.Unlock()
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			_ = sess.Close(ctx)
			cancel()
			continue
		}
		nc.st = &established{api: snap, sess: sess}
		nc.Unlock()

		select {
		case pending <- accepted{ns: ns, remote: req.Remote()}:
		case <-closeq:
			// Nothing will ever drain the hand-off now.
			_ = Close(ns)
			return
		}
	}
}

// runCallback invokes the vetting hook with no locks held.  A panic
// escaping the hook is logged and treated as a rejection.
func runCallback(api apiOptions, ns Socket, req transport.ConnRequest) (verdict int) {
	defer func() {
		if p := recover(); p != nil {
			logf("listen callback panic: %v", p)
			verdict = -1
		}
	}()
	return api.listenCB(api.opaque, ns, handshakeVersion, req.Remote(), string(req.StreamID()))
}
