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
	"sync"
	"sync/atomic"
	"time"

	"github.com/eyerust/gosrt/errors"
	"github.com/eyerust/gosrt/transport"
)

// pollInterval bounds the wait of non-blocking Accept and Recv before
// they report would-block.
const pollInterval = 10 * time.Millisecond

// closeTimeout caps how long Close waits for a session to flush.
const closeTimeout = 5 * time.Second

// cell is one registry slot.  The embedded lock serializes every
// operation on the handle; the registry lock is never held across
// session-level work.
type cell struct {
	sync.Mutex
	st sockState
}

var (
	socketsL sync.RWMutex
	sockets  = map[Socket]*cell{}
	sockSeq  int32
)

func insert(st sockState) Socket {
	s := Socket(atomic.AddInt32(&sockSeq, 1))
	socketsL.Lock()
	sockets[s] = &cell{st: st}
	socketsL.Unlock()
	return s
}

func lookup(s Socket) *cell {
	socketsL.RLock()
	c := sockets[s]
	socketsL.RUnlock()
	return c
}

func remove(s Socket) {
	socketsL.Lock()
	delete(sockets, s)
	socketsL.Unlock()
}

// Startup prepares the library for use.  Engines register themselves
// at import time, so there is nothing to do beyond providing the
// symmetric entry point callers expect to pair with Cleanup.
func Startup() error {
	return nil
}

// Cleanup closes every socket still registered.  Individual close
// failures are logged by Close and do not stop the sweep.
func Cleanup() error {
	socketsL.RLock()
	handles := make([]Socket, 0, len(sockets))
	for s := range sockets {
		handles = append(handles, s)
	}
	socketsL.RUnlock()
	for _, s := range handles {
		_ = Close(s)
	}
	return nil
}

// CreateSocket allocates a fresh handle.  The handle starts out
// blocking in both directions with default pre-connection options.
func CreateSocket() Socket {
	return insert(&initialized{
		api:  defaultAPIOptions(),
		opts: transport.NewSocketOptions(),
	})
}

// Bind records the local address a later Listen will bind.  Binding
// again before Listen replaces the address.
func Bind(s Socket, local string) error {
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
	st.opts.Connect.Local = local
	return nil
}

// Connect dials remote with the accumulated pre-connection options.
// In blocking mode the call returns once the session is established or
// the attempt fails; a failed attempt leaves the handle reusable.  In
// non-blocking mode the call returns immediately and the outcome lands
// on the handle when the background dial completes.
func Connect(s Socket, remote string) error {
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
	tran := transport.GetTransport(transport.AddressScheme(remote))
	if tran == nil {
		return setErrf(EInvParam, "no engine for address %q", remote)
	}
	opts := st.opts
	sid := st.sid
	if st.api.rcvSyn {
		sess, err := dial(tran, remote, opts, sid)
		if err != nil {
			return setErrf(ENoServer, "connect %s: %v", remote, err)
		}
		c.st = &established{api: st.api, sess: sess}
		return nil
	}
	c.st = &connecting{api: st.api}
	go func() {
		sess, err := dial(tran, remote, opts, sid)
		c.Lock()
		defer c.Unlock()
		cur, ok := c.st.(*connecting)
		if !ok {
			// The handle was closed while the dial was in flight.
			// Discard the result rather than resurrect it.
			if sess != nil {
				ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				_ = sess.Close(ctx)
				cancel()
			}
			return
		}
		if err != nil {
			c.st = &connectFailed{cause: err}
			return
		}
		c.st = &established{api: cur.api, sess: sess}
	}()
	return nil
}

func dial(tran transport.Transport, remote string, opts transport.SocketOptions, sid transport.StreamID) (transport.Session, error) {
	ctx := context.Background()
	if t := opts.Connect.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return tran.Dial(ctx, remote, &opts, sid)
}

// Send hands b to the session.  Blocking mode waits until the engine
// queues the payload; non-blocking mode fails fast when the engine
// cannot take it.  On success the full payload is taken and its
// length returned.
func Send(s Socket, b []byte) (int, error) {
	c := lookup(s)
	if c == nil {
		return 0, setErr(EInvSock)
	}
	c.Lock()
	defer c.Unlock()
	st, ok := c.st.(*established)
	if !ok {
		return 0, noConn(c.st)
	}
	ts := time.Now()
	if st.api.sndSyn {
		if err := st.sess.Send(context.Background(), ts, b); err != nil {
			return 0, sendErr(err)
		}
		return len(b), nil
	}
	if err := st.sess.TrySend(ts, b); err != nil {
		return 0, sendErr(err)
	}
	return len(b), nil
}

// Recv copies the next delivered payload into b.  A payload larger
// than b is truncated to fit; the truncation is logged and the copied
// length returned.
func Recv(s Socket, b []byte) (int, error) {
	c := lookup(s)
	if c == nil {
		return 0, setErr(EInvSock)
	}
	c.Lock()
	defer c.Unlock()
	st, ok := c.st.(*established)
	if !ok {
		return 0, noConn(c.st)
	}
	ctx := context.Background()
	if !st.api.rcvSyn {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pollInterval)
		defer cancel()
	}
	p, err := st.sess.Recv(ctx)
	if err != nil {
		if err == context.DeadlineExceeded {
			return 0, setErr(EAsyncRcv)
		}
		return 0, setErrf(EConnLost, "recv: %v", err)
	}
	n := copy(b, p)
	if n < len(p) {
		logf("recv %d: payload truncated from %d to %d bytes", s, len(p), n)
	}
	return n, nil
}

// Close tears down whatever the handle owns and removes it from the
// registry.  Teardown failures are logged; removal always happens.
func Close(s Socket) error {
	c := lookup(s)
	if c == nil {
		return setErr(EInvSock)
	}
	c.Lock()
	prev := c.st
	c.st = &closedState{}
	c.Unlock()

	switch st := prev.(type) {
	case *established:
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := st.sess.Close(ctx); err != nil {
			logf("close %d: session: %v", s, err)
		}
		cancel()
	case *listening:
		// Joining the accept loop must happen outside the cell lock;
		// the loop takes it to snapshot options each iteration.
		if err := st.l.Close(); err != nil {
			logf("close %d: listener: %v", s, err)
		}
		close(st.closeq)
		<-st.loopDone
	}
	remove(s)
	return nil
}

func noConn(st sockState) error {
	if cf, ok := st.(*connectFailed); ok {
		return setErrf(ENoConn, "connect failed: %v", cf.cause)
	}
	return setErr(ENoConn)
}

func sendErr(err error) error {
	switch err {
	case errors.ErrTooLong, errors.ErrFlowWindow:
		return setErrf(ELargeMsg, "send: %v", err)
	}
	return setErrf(EConnLost, "send: %v", err)
}
