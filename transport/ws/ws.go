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

// Package ws implements a WebSocket engine.  Each payload rides in one
// binary message behind an 8-byte timestamp, and the hello exchange is
// carried in the first message each way.  The listener runs its own
// http.Server; the subprotocol header keeps strangers out.
package ws

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eyerust/gosrt/errors"
	"github.com/eyerust/gosrt/transport"
)

// subprotocol is offered by dialers and required by listeners.
const subprotocol = "srt.bridge.v1"

// helloTimeout bounds how long a listener waits for the first message
// of a freshly upgraded connection.
const helloTimeout = 10 * time.Second

// sendWindow is the flight capacity of the writer pump.
const sendWindow = 128

type wsTran int

// Transport is the ws engine.  It is registered at init time.
const Transport = wsTran(0)

func init() {
	transport.RegisterTransport(Transport)
}

type frame struct {
	ts   time.Time
	body []byte
}

// wsSession implements transport.Session over a websocket connection.
type wsSession struct {
	ws       *websocket.Conn
	settings transport.Settings
	wq       chan frame
	rq       chan []byte
	closeq   chan struct{}
	wdone    chan struct{}
	once     sync.Once
}

func newSession(ws *websocket.Conn, settings transport.Settings) *wsSession {
	ws.SetReadLimit(8 + transport.LiveDefaultPayloadSize)
	s := &wsSession{
		ws:       ws,
		settings: settings,
		wq:       make(chan frame, sendWindow),
		rq:       make(chan []byte, sendWindow),
		closeq:   make(chan struct{}),
		wdone:    make(chan struct{}),
	}
	go s.reader()
	go s.writer()
	return s
}

func (s *wsSession) Settings() transport.Settings {
	return s.settings
}

func (s *wsSession) Send(ctx context.Context, ts time.Time, payload []byte) error {
	f, err := newFrame(ts, payload)
	if err != nil {
		return err
	}
	select {
	case s.wq <- f:
		return nil
	case <-s.closeq:
		return errors.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *wsSession) TrySend(ts time.Time, payload []byte) error {
	f, err := newFrame(ts, payload)
	if err != nil {
		return err
	}
	select {
	case s.wq <- f:
		return nil
	case <-s.closeq:
		return errors.ErrClosed
	default:
		return errors.ErrFlowWindow
	}
}

func newFrame(ts time.Time, payload []byte) (frame, error) {
	if len(payload) > transport.LiveDefaultPayloadSize {
		return frame{}, errors.ErrTooLong
	}
	body := make([]byte, len(payload))
	copy(body, payload)
	return frame{ts: ts, body: body}, nil
}

func (s *wsSession) Recv(ctx context.Context) ([]byte, error) {
	select {
	case b, ok := <-s.rq:
		if !ok {
			return nil, errors.ErrConnLost
		}
		return b, nil
	case <-s.closeq:
		return nil, errors.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *wsSession) Close(ctx context.Context) error {
	s.once.Do(func() { close(s.closeq) })
	select {
	case <-s.wdone:
	case <-ctx.Done():
	}
	return s.ws.Close()
}

func (s *wsSession) reader() {
	defer close(s.rq)
	for {
		// The message type does not matter; the length prefix does.
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			return
		}
		if len(data) < 8 {
			return
		}
		select {
		case s.rq <- data[8:]:
		case <-s.closeq:
			return
		}
	}
}

func (s *wsSession) writer() {
	defer close(s.wdone)
	for {
		select {
		case f := <-s.wq:
			if s.writeFrame(f) != nil {
				return
			}
		case <-s.closeq:
			for {
				select {
				case f := <-s.wq:
					if s.writeFrame(f) != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *wsSession) writeFrame(f frame) error {
	buf := make([]byte, 8+len(f.body))
	binary.BigEndian.PutUint64(buf, uint64(f.ts.UnixMicro()))
	copy(buf[8:], f.body)
	return s.ws.WriteMessage(websocket.BinaryMessage, buf)
}

// connReq parks an upgraded connection between its hello and the
// answer.
type connReq struct {
	l     *wsListener
	ws    *websocket.Conn
	hello *transport.Hello
	once  sync.Once
}

func (r *connReq) Remote() string {
	return r.ws.RemoteAddr().String()
}

func (r *connReq) StreamID() transport.StreamID {
	return r.hello.StreamID
}

func (r *connReq) Accept(key *transport.KeySettings) (transport.Session, error) {
	var sess transport.Session
	var err error = errors.ErrClosed
	r.once.Do(func() {
		var buf bytes.Buffer
		var st transport.Settings
		st, err = transport.AcceptHandshake(&buf, r.hello, &r.l.opts.Socket, key)
		if werr := r.ws.WriteMessage(websocket.BinaryMessage, buf.Bytes()); werr != nil && err == nil {
			err = werr
		}
		if err != nil {
			r.ws.Close()
			return
		}
		sess = newSession(r.ws, st)
	})
	return sess, err
}

func (r *connReq) Reject() error {
	r.once.Do(func() {
		var buf bytes.Buffer
		if transport.RejectHandshake(&buf) == nil {
			_ = r.ws.WriteMessage(websocket.BinaryMessage, buf.Bytes())
		}
		r.ws.Close()
	})
	return nil
}

type wsListener struct {
	opts     transport.ListenerOptions
	url      *url.URL
	ug       websocket.Upgrader
	htsvr    *http.Server
	mux      *http.ServeMux
	listener net.Listener
	incoming chan transport.ConnRequest
	closeq   chan struct{}
	lock     sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func (l *wsListener) Incoming() <-chan transport.ConnRequest {
	return l.incoming
}

func (l *wsListener) Address() string {
	return l.url.String()
}

func (l *wsListener) Close() error {
	l.lock.Lock()
	if l.closed {
		l.lock.Unlock()
		return nil
	}
	l.closed = true
	l.lock.Unlock()

	close(l.closeq)
	l.listener.Close()
	l.htsvr.Close()
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

// ServeHTTP upgrades one request and parks it until the consumer
// answers.
func (l *wsListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := l.ug.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if ws.Subprotocol() != subprotocol {
		ws.Close()
		return
	}

	ws.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return
	}
	ws.SetReadDeadline(time.Time{})
	hello, err := transport.RecvHello(bytes.NewReader(data))
	if err != nil {
		ws.Close()
		return
	}

	req := &connReq{l: l, ws: ws, hello: hello}
	if !l.submit(req) {
		req.Reject()
	}
}

func (l *wsListener) submit(r *connReq) bool {
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

func (wsTran) Scheme() string {
	return "ws"
}

func (t wsTran) Dial(ctx context.Context, remote string, opts *transport.SocketOptions, sid transport.StreamID) (transport.Session, error) {
	if _, err := transport.StripScheme(t, remote); err != nil {
		return nil, err
	}
	wd := &websocket.Dialer{
		Subprotocols:     []string{subprotocol},
		HandshakeTimeout: opts.Connect.Timeout,
	}
	if dl, ok := ctx.Deadline(); ok {
		wd.HandshakeTimeout = time.Until(dl)
	}
	ws, _, err := wd.Dial(remote, nil)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := transport.SendHello(&buf, transport.NewHello(opts, sid)); err != nil {
		ws.Close()
		return nil, err
	}
	if err := ws.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		ws.Close()
		return nil, err
	}
	ws.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return nil, err
	}
	ws.SetReadDeadline(time.Time{})
	a, err := transport.RecvAnswer(bytes.NewReader(data))
	if err != nil {
		ws.Close()
		return nil, err
	}
	switch a.Status {
	case transport.StatusAccept:
	case transport.StatusBadKey:
		ws.Close()
		return nil, errors.ErrBadKey
	default:
		ws.Close()
		return nil, errors.ErrConnRefused
	}
	return newSession(ws, transport.ClientSettings(opts, sid, a)), nil
}

func (t wsTran) Listen(opts transport.ListenerOptions) (transport.Listener, error) {
	opts, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	addr := opts.Socket.Connect.Local
	if _, err := transport.StripScheme(t, addr); err != nil {
		return nil, err
	}
	u, err := url.ParseRequestURI(addr)
	if err != nil {
		return nil, errors.ErrBadAddr
	}
	if len(u.Path) == 0 {
		u.Path = "/"
	}

	// Listen separately so a port already in use surfaces here, and
	// so a ":0" bind reports the port it got.
	nl, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, err
	}
	u.Host = nl.Addr().String()

	l := &wsListener{
		opts:     opts,
		url:      u,
		listener: nl,
		incoming: make(chan transport.ConnRequest, opts.Backlog),
		closeq:   make(chan struct{}),
	}
	l.ug.Subprotocols = []string{subprotocol}
	l.mux = http.NewServeMux()
	l.mux.Handle(u.Path, l)
	l.htsvr = &http.Server{Addr: u.Host, Handler: l.mux}
	go l.htsvr.Serve(nl)

	return l, nil
}
