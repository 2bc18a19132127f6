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

// Package inproc implements an in-process engine carried entirely on
// channels.  Sessions exist in pairs whose queues are cross-wired, so
// anything one side sends the other receives.  It is the engine the
// package tests lean on, and the cheapest way to wire two sockets in
// the same process together.
package inproc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eyerust/gosrt/errors"
	"github.com/eyerust/gosrt/transport"
)

// sendWindow is the flight capacity of one direction; TrySend reports
// ErrFlowWindow once it is full.
const sendWindow = 128

type message struct {
	ts   time.Time
	body []byte
}

// pipe is one end of an established session.  Its read queue is the
// peer's write queue.
type pipe struct {
	rq       chan message
	wq       chan message
	closeq   chan struct{}
	pcloseq  chan struct{}
	settings transport.Settings
	once     sync.Once

	sentBytes uint64
	sentMsgs  uint64
}

type listener struct {
	addr     string
	opts     transport.SocketOptions
	incoming chan transport.ConnRequest
	closeq   chan struct{}
	mx       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// dialReq is a parked handshake: the dialer sits on answerq until the
// listener side answers.
type dialReq struct {
	l       *listener
	remote  string
	sid     transport.StreamID
	opts    transport.SocketOptions
	answerq chan answer
	once    sync.Once
}

type answer struct {
	sess transport.Session
	err  error
}

type inprocTran int

// Transport is the inproc engine.  It is registered at init time.
const Transport = inprocTran(0)

var listeners struct {
	byAddr map[string]*listener
	mx     sync.Mutex
}

var dialSeq uint64

func init() {
	listeners.byAddr = make(map[string]*listener)
	transport.RegisterTransport(Transport)
}

func (p *pipe) Settings() transport.Settings {
	return p.settings
}

func (p *pipe) Send(ctx context.Context, ts time.Time, payload []byte) error {
	m, err := newMessage(ts, payload)
	if err != nil {
		return err
	}
	select {
	case p.wq <- m:
		p.charge(m)
		return nil
	case <-p.closeq:
		return errors.ErrClosed
	case <-p.pcloseq:
		return errors.ErrConnLost
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipe) TrySend(ts time.Time, payload []byte) error {
	m, err := newMessage(ts, payload)
	if err != nil {
		return err
	}
	select {
	case <-p.closeq:
		return errors.ErrClosed
	case <-p.pcloseq:
		return errors.ErrConnLost
	default:
	}
	select {
	case p.wq <- m:
		p.charge(m)
		return nil
	default:
		return errors.ErrFlowWindow
	}
}

// charge books a payload that made it into the flight window.
// Rejected payloads are never charged.
func (p *pipe) charge(m message) {
	atomic.AddUint64(&p.sentBytes, uint64(len(m.body)))
	atomic.AddUint64(&p.sentMsgs, 1)
}

func newMessage(ts time.Time, payload []byte) (message, error) {
	if len(payload) > transport.LiveDefaultPayloadSize {
		return message{}, errors.ErrTooLong
	}
	// The sender keeps its buffer; the receiver gets its own copy.
	body := make([]byte, len(payload))
	copy(body, payload)
	return message{ts: ts, body: body}, nil
}

func (p *pipe) Recv(ctx context.Context) ([]byte, error) {
	// Anything already queued is deliverable even if the peer is gone.
	select {
	case m := <-p.rq:
		return m.body, nil
	default:
	}
	select {
	case m := <-p.rq:
		return m.body, nil
	case <-p.closeq:
		return nil, errors.ErrClosed
	case <-p.pcloseq:
		select {
		case m := <-p.rq:
			return m.body, nil
		default:
			return nil, errors.ErrConnLost
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipe) Close(ctx context.Context) error {
	// Queued payloads stay in the paired channel, so the peer can
	// still drain them; nothing to flush here.
	p.once.Do(func() { close(p.closeq) })
	return nil
}

func (r *dialReq) Remote() string {
	return r.remote
}

func (r *dialReq) StreamID() transport.StreamID {
	return r.sid
}

func (r *dialReq) Accept(key *transport.KeySettings) (transport.Session, error) {
	var sess transport.Session
	var err error = errors.ErrClosed
	r.once.Do(func() {
		sess, err = r.accept(key)
	})
	return sess, err
}

func (r *dialReq) accept(key *transport.KeySettings) (transport.Session, error) {
	opts := r.l.opts
	enc := transport.KeySettings{
		KeySize:    opts.Encryption.KeySize,
		Passphrase: opts.Encryption.Passphrase,
	}
	if key != nil {
		enc = *key
	}
	if enc.Passphrase != r.opts.Encryption.Passphrase {
		r.answerq <- answer{err: errors.ErrBadKey}
		return nil, errors.ErrBadKey
	}
	ks := enc.KeySize
	if ks == 0 {
		ks = r.opts.Encryption.KeySize
	}
	if ks == 0 && enc.Passphrase != "" {
		ks = 16
	}

	toDialer := make(chan message, sendWindow)
	toServer := make(chan message, sendWindow)
	dcloseq := make(chan struct{})
	scloseq := make(chan struct{})

	server := &pipe{
		rq:      toServer,
		wq:      toDialer,
		closeq:  scloseq,
		pcloseq: dcloseq,
		settings: transport.Settings{
			RecvLatency: transport.NegotiatedLatency(opts.Receiver, r.opts.Sender),
			SendLatency: transport.NegotiatedLatency(r.opts.Receiver, opts.Sender),
			Bandwidth:   opts.Sender.Bandwidth,
			StreamID:    r.sid,
			KeySize:     ks,
		},
	}
	client := &pipe{
		rq:      toDialer,
		wq:      toServer,
		closeq:  dcloseq,
		pcloseq: scloseq,
		settings: transport.Settings{
			RecvLatency: transport.NegotiatedLatency(r.opts.Receiver, opts.Sender),
			SendLatency: transport.NegotiatedLatency(opts.Receiver, r.opts.Sender),
			Bandwidth:   r.opts.Sender.Bandwidth,
			StreamID:    r.sid,
			KeySize:     ks,
		},
	}
	r.answerq <- answer{sess: client}
	return server, nil
}

func (r *dialReq) Reject() error {
	r.once.Do(func() {
		r.answerq <- answer{err: errors.ErrConnRefused}
	})
	return nil
}

func (l *listener) Incoming() <-chan transport.ConnRequest {
	return l.incoming
}

func (l *listener) Address() string {
	return l.addr
}

func (l *listener) Close() error {
	l.mx.Lock()
	if l.closed {
		l.mx.Unlock()
		return nil
	}
	l.closed = true
	l.mx.Unlock()

	listeners.mx.Lock()
	if listeners.byAddr[l.stripped()] == l {
		delete(listeners.byAddr, l.stripped())
	}
	listeners.mx.Unlock()

	close(l.closeq)
	l.inflight.Wait()

	// Reject whatever is still parked, then release the consumer.
	for {
		select {
		case r := <-l.incoming:
			r.(*dialReq).Reject()
		default:
			close(l.incoming)
			return nil
		}
	}
}

func (l *listener) stripped() string {
	a, _ := transport.StripScheme(Transport, l.addr)
	return a
}

// submit parks one dial request on the listener.  A full backlog is an
// immediate refusal rather than a wait.
func (l *listener) submit(r *dialReq) error {
	l.mx.Lock()
	if l.closed {
		l.mx.Unlock()
		return errors.ErrConnRefused
	}
	l.inflight.Add(1)
	l.mx.Unlock()
	defer l.inflight.Done()

	select {
	case <-l.closeq:
		return errors.ErrConnRefused
	default:
	}
	select {
	case l.incoming <- r:
		return nil
	case <-l.closeq:
		return errors.ErrConnRefused
	default:
		return errors.ErrConnRefused
	}
}

func (inprocTran) Scheme() string {
	return "inproc"
}

func (t inprocTran) Dial(ctx context.Context, remote string, opts *transport.SocketOptions, sid transport.StreamID) (transport.Session, error) {
	name, err := transport.StripScheme(t, remote)
	if err != nil {
		return nil, err
	}

	listeners.mx.Lock()
	l, ok := listeners.byAddr[name]
	listeners.mx.Unlock()
	if !ok {
		return nil, errors.ErrConnRefused
	}

	req := &dialReq{
		l:       l,
		remote:  fmt.Sprintf("%s.dialer.%d", remote, atomic.AddUint64(&dialSeq, 1)),
		sid:     sid,
		opts:    *opts,
		answerq: make(chan answer, 1),
	}
	if err := l.submit(req); err != nil {
		return nil, err
	}

	select {
	case a := <-req.answerq:
		return a.sess, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t inprocTran) Listen(opts transport.ListenerOptions) (transport.Listener, error) {
	opts, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	addr := opts.Socket.Connect.Local
	name, err := transport.StripScheme(t, addr)
	if err != nil {
		return nil, err
	}

	listeners.mx.Lock()
	defer listeners.mx.Unlock()
	if _, ok := listeners.byAddr[name]; ok {
		return nil, errors.ErrAddrInUse
	}
	l := &listener{
		addr:     addr,
		opts:     opts.Socket,
		incoming: make(chan transport.ConnRequest, opts.Backlog),
		closeq:   make(chan struct{}),
	}
	listeners.byAddr[name] = l
	return l, nil
}
