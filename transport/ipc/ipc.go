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

// Package ipc implements an engine carried on UNIX domain sockets, or
// on Windows Named Pipes when built for Windows.  To enable it simply
// import it.  Addresses look like "ipc:///tmp/name" on POSIX systems
// and "ipc://name" on Windows.
package ipc

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/eyerust/gosrt/errors"
	"github.com/eyerust/gosrt/transport"
)

// helloTimeout bounds how long either side waits on the hello
// exchange.
const helloTimeout = 10 * time.Second

type ipcTran int

// Transport is the ipc engine.  It is registered at init time.
const Transport = ipcTran(0)

func init() {
	transport.RegisterTransport(Transport)
}

// connReq parks an accepted stream between its hello and the answer.
type connReq struct {
	l     *ipcListener
	c     net.Conn
	hello *transport.Hello
	once  sync.Once
}

func (r *connReq) Remote() string {
	return "ipc://" + r.c.RemoteAddr().String()
}

func (r *connReq) StreamID() transport.StreamID {
	return r.hello.StreamID
}

func (r *connReq) Accept(key *transport.KeySettings) (transport.Session, error) {
	var sess transport.Session
	var err error = errors.ErrClosed
	r.once.Do(func() {
		var st transport.Settings
		st, err = transport.AcceptHandshake(r.c, r.hello, &r.l.opts.Socket, key)
		if err != nil {
			r.c.Close()
			return
		}
		sess = transport.NewConnSession(r.c, st)
	})
	return sess, err
}

func (r *connReq) Reject() error {
	r.once.Do(func() {
		_ = transport.RejectHandshake(r.c)
		r.c.Close()
	})
	return nil
}

type ipcListener struct {
	path     string
	opts     transport.ListenerOptions
	listener net.Listener
	incoming chan transport.ConnRequest
	closeq   chan struct{}
	lock     sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func (l *ipcListener) Incoming() <-chan transport.ConnRequest {
	return l.incoming
}

func (l *ipcListener) Address() string {
	return "ipc://" + l.path
}

func (l *ipcListener) Close() error {
	l.lock.Lock()
	if l.closed {
		l.lock.Unlock()
		return nil
	}
	l.closed = true
	l.lock.Unlock()

	close(l.closeq)
	l.listener.Close()
	l.inflight.Wait()

	for {
		select {
		case r := <-l.incoming:
			r.(*connReq).Reject()
		default:
			close(l.incoming)
			return nil
		}
	}
}

// serve accepts raw streams and hands each to its own handshake
// goroutine, so one slow peer cannot stall the rest.
func (l *ipcListener) serve() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-l.closeq:
				return
			default:
				// Debounce other accept failures.
				time.Sleep(time.Second / 100)
				continue
			}
		}
		go l.handshake(conn)
	}
}

func (l *ipcListener) handshake(c net.Conn) {
	c.SetReadDeadline(time.Now().Add(helloTimeout))
	hello, err := transport.RecvHello(c)
	if err != nil {
		c.Close()
		return
	}
	c.SetReadDeadline(time.Time{})

	req := &connReq{l: l, c: c, hello: hello}
	if !l.submit(req) {
		req.Reject()
	}
}

func (l *ipcListener) submit(r *connReq) bool {
	l.lock.Lock()
	if l.closed {
		l.lock.Unlock()
		return false
	}
	l.inflight.Add(1)
	l.lock.Unlock()
	defer l.inflight.Done()

	select {
	case l.incoming <- r:
		return true
	case <-l.closeq:
		return false
	default:
		return false
	}
}

func (ipcTran) Scheme() string {
	return "ipc"
}

func (t ipcTran) Dial(ctx context.Context, remote string, opts *transport.SocketOptions, sid transport.StreamID) (transport.Session, error) {
	path, err := transport.StripScheme(t, remote)
	if err != nil {
		return nil, err
	}
	c, err := dialPipe(ctx, path)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(helloTimeout)
	if opts.Connect.Timeout > 0 {
		deadline = time.Now().Add(opts.Connect.Timeout)
	}
	if dl, ok := ctx.Deadline(); ok {
		deadline = dl
	}
	c.SetDeadline(deadline)
	st, err := transport.ClientHandshake(c, opts, sid)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.SetDeadline(time.Time{})
	return transport.NewConnSession(c, st), nil
}

func (t ipcTran) Listen(opts transport.ListenerOptions) (transport.Listener, error) {
	opts, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	path, err := transport.StripScheme(t, opts.Socket.Connect.Local)
	if err != nil {
		return nil, err
	}
	nl, err := listenPipe(path)
	if err != nil {
		return nil, err
	}
	l := &ipcListener{
		path:     path,
		opts:     opts,
		listener: nl,
		incoming: make(chan transport.ConnRequest, opts.Backlog),
		closeq:   make(chan struct{}),
	}
	go l.serve()
	return l, nil
}
