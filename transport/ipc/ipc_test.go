//go:build !windows && !plan9

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

package ipc

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eyerust/gosrt/errors"
	"github.com/eyerust/gosrt/transport"
)

// sockAddr returns an address on a socket path private to the test.
func sockAddr(t *testing.T) string {
	t.Helper()
	return "ipc://" + filepath.Join(t.TempDir(), "bridge.sock")
}

type acceptOutcome struct {
	sess transport.Session
	req  transport.ConnRequest
	err  error
}

// acceptOne answers the next parked dial on l with key.
func acceptOne(l transport.Listener, key *transport.KeySettings) <-chan acceptOutcome {
	ch := make(chan acceptOutcome, 1)
	go func() {
		req, ok := <-l.Incoming()
		if !ok {
			ch <- acceptOutcome{err: errors.ErrClosed}
			return
		}
		sess, err := req.Accept(key)
		ch <- acceptOutcome{sess: sess, req: req, err: err}
	}()
	return ch
}

func listenOn(t *testing.T, addr string, mut func(*transport.SocketOptions)) transport.Listener {
	t.Helper()
	so := transport.SocketOptions{}
	so.Connect.Local = addr
	if mut != nil {
		mut(&so)
	}
	l, err := Transport.Listen(transport.ListenerOptions{Socket: so, Backlog: 2})
	if err != nil {
		t.Fatalf("listen %s: %v", addr, err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// mustPair wires one dialer to a listener on addr with default options.
func mustPair(t *testing.T, addr string) (transport.Session, transport.Session) {
	t.Helper()
	l := listenOn(t, addr, nil)
	done := acceptOne(l, nil)
	cli, err := Transport.Dial(context.Background(), addr, &transport.SocketOptions{}, "")
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	ao := <-done
	if ao.err != nil {
		t.Fatalf("accept: %v", ao.err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		cli.Close(ctx)
		ao.sess.Close(ctx)
	})
	return cli, ao.sess
}

func TestScheme(t *testing.T) {
	if Transport.Scheme() != "ipc" {
		t.Errorf("scheme %q", Transport.Scheme())
	}
	if transport.GetTransport("ipc") == nil {
		t.Error("engine not registered")
	}
}

func TestDialWithoutListener(t *testing.T) {
	addr := sockAddr(t)
	if _, err := Transport.Dial(context.Background(), addr, &transport.SocketOptions{}, ""); err == nil {
		t.Error("dial on an unbound socket path succeeded")
	}
}

func TestDuplicateListen(t *testing.T) {
	addr := sockAddr(t)
	l := listenOn(t, addr, nil)

	so := transport.SocketOptions{}
	so.Connect.Local = addr
	if _, err := Transport.Listen(transport.ListenerOptions{Socket: so, Backlog: 2}); err == nil {
		t.Fatal("second listener bound an occupied socket path")
	}

	// Closing unlinks the socket file and frees the path.
	l.Close()
	l2, err := Transport.Listen(transport.ListenerOptions{Socket: so, Backlog: 2})
	if err != nil {
		t.Fatalf("listen after close: %v", err)
	}
	l2.Close()
}

func TestExchange(t *testing.T) {
	addr := sockAddr(t)
	cli, srv := mustPair(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cli.Send(ctx, time.Now(), []byte("over the socket")); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := srv.Recv(ctx)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(got) != "over the socket" {
		t.Errorf("got %q", got)
	}

	if err := srv.Send(ctx, time.Now(), []byte("ack")); err != nil {
		t.Fatalf("send back: %v", err)
	}
	got, err = cli.Recv(ctx)
	if err != nil {
		t.Fatalf("recv back: %v", err)
	}
	if string(got) != "ack" {
		t.Errorf("got %q", got)
	}
}

func TestNegotiation(t *testing.T) {
	addr := sockAddr(t)
	l := listenOn(t, addr, func(so *transport.SocketOptions) {
		so.Receiver.Latency = 80 * time.Millisecond
		so.Sender.PeerLatency = 300 * time.Millisecond
	})
	done := acceptOne(l, nil)

	so := transport.SocketOptions{}
	so.Receiver.Latency = 150 * time.Millisecond
	so.Sender.PeerLatency = 200 * time.Millisecond
	cli, err := Transport.Dial(context.Background(), addr, &so, "feed/1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	ao := <-done
	if ao.err != nil {
		t.Fatalf("accept: %v", ao.err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		cli.Close(ctx)
		ao.sess.Close(ctx)
	}()

	if cs := cli.Settings(); cs.RecvLatency != 300*time.Millisecond || cs.SendLatency != 200*time.Millisecond {
		t.Errorf("dialer settings %+v", cs)
	}
	ss := ao.sess.Settings()
	if ss.RecvLatency != 200*time.Millisecond || ss.SendLatency != 300*time.Millisecond {
		t.Errorf("accepted settings %+v", ss)
	}
	if ss.StreamID != "feed/1" || ao.req.StreamID() != "feed/1" {
		t.Errorf("stream id %q / %q", ss.StreamID, ao.req.StreamID())
	}
	if !strings.HasPrefix(ao.req.Remote(), "ipc://") {
		t.Errorf("remote %q", ao.req.Remote())
	}
	if l.Address() != addr {
		t.Errorf("address %q, want %q", l.Address(), addr)
	}
}

func TestKeyedHandshake(t *testing.T) {
	addr := sockAddr(t)
	l := listenOn(t, addr, func(so *transport.SocketOptions) {
		so.Encryption.Passphrase = "correct horse battery"
		so.Encryption.KeySize = 32
	})

	done := acceptOne(l, nil)
	so := transport.SocketOptions{}
	so.Encryption.Passphrase = "correct horse battery"
	cli, err := Transport.Dial(context.Background(), addr, &so, "")
	if err != nil {
		t.Fatalf("keyed dial: %v", err)
	}
	ao := <-done
	if ao.err != nil {
		t.Fatalf("keyed accept: %v", ao.err)
	}
	if cli.Settings().KeySize != 32 || ao.sess.Settings().KeySize != 32 {
		t.Errorf("key sizes %d / %d", cli.Settings().KeySize, ao.sess.Settings().KeySize)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cli.Close(ctx)
	ao.sess.Close(ctx)

	done = acceptOne(l, nil)
	so.Encryption.Passphrase = "wrong wrong wrong"
	if _, err := Transport.Dial(context.Background(), addr, &so, ""); err != errors.ErrBadKey {
		t.Errorf("mismatched dial: got %v, want %v", err, errors.ErrBadKey)
	}
	if ao := <-done; ao.err != errors.ErrBadKey {
		t.Errorf("mismatched accept: got %v, want %v", ao.err, errors.ErrBadKey)
	}
}

func TestStagedKeyOverridesListener(t *testing.T) {
	addr := sockAddr(t)
	l := listenOn(t, addr, func(so *transport.SocketOptions) {
		so.Encryption.Passphrase = "listener default"
	})

	staged := &transport.KeySettings{Passphrase: "station nine", KeySize: 24}
	done := acceptOne(l, staged)
	so := transport.SocketOptions{}
	so.Encryption.Passphrase = "station nine"
	cli, err := Transport.Dial(context.Background(), addr, &so, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	ao := <-done
	if ao.err != nil {
		t.Fatalf("accept: %v", ao.err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		cli.Close(ctx)
		ao.sess.Close(ctx)
	}()
	if cli.Settings().KeySize != 24 || ao.sess.Settings().KeySize != 24 {
		t.Errorf("key sizes %d / %d", cli.Settings().KeySize, ao.sess.Settings().KeySize)
	}
}

func TestRejectTellsDialer(t *testing.T) {
	addr := sockAddr(t)
	l := listenOn(t, addr, nil)

	rejected := make(chan error, 1)
	go func() {
		req, ok := <-l.Incoming()
		if !ok {
			rejected <- errors.ErrClosed
			return
		}
		rejected <- req.Reject()
	}()

	if _, err := Transport.Dial(context.Background(), addr, &transport.SocketOptions{}, "turned/away"); err != errors.ErrConnRefused {
		t.Errorf("got %v, want %v", err, errors.ErrConnRefused)
	}
	if err := <-rejected; err != nil {
		t.Errorf("reject: %v", err)
	}
}

func TestListenerCloseRejectsParked(t *testing.T) {
	addr := sockAddr(t)
	l := listenOn(t, addr, nil)

	type dialOutcome struct {
		sess transport.Session
		err  error
	}
	dialq := make(chan dialOutcome, 1)
	go func() {
		sess, err := Transport.Dial(context.Background(), addr, &transport.SocketOptions{}, "parked")
		dialq <- dialOutcome{sess, err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for len(l.(*ipcListener).incoming) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("dial never parked")
		}
		time.Sleep(time.Millisecond)
	}

	l.Close()
	out := <-dialq
	if out.err != errors.ErrConnRefused {
		t.Errorf("parked dial: got %v, want %v", out.err, errors.ErrConnRefused)
	}
	if out.sess != nil {
		t.Error("parked dial produced a session")
	}
	if _, ok := <-l.Incoming(); ok {
		t.Error("incoming channel still open after close")
	}
}

func TestDialHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mute.sock")
	nl, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("raw listen: %v", err)
	}
	defer nl.Close()

	// Take the stream but never answer the hello.
	held := make(chan net.Conn, 1)
	go func() {
		if c, err := nl.Accept(); err == nil {
			held <- c
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := Transport.Dial(ctx, "ipc://"+path, &transport.SocketOptions{}, ""); err == nil {
		t.Fatal("dial against a mute peer succeeded")
	}
	if waited := time.Since(start); waited > 3*time.Second {
		t.Errorf("dial ignored the context deadline, waited %v", waited)
	}
	select {
	case c := <-held:
		c.Close()
	default:
	}
}

func TestMalformedHelloDropped(t *testing.T) {
	addr := sockAddr(t)
	listenOn(t, addr, nil)

	c, err := net.Dial("unix", strings.TrimPrefix(addr, "ipc://"))
	if err != nil {
		t.Fatalf("raw dial: %v", err)
	}
	defer c.Close()

	if _, err := c.Write(bytes.Repeat([]byte{0xff}, 32)); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.Read(make([]byte, 1)); err == nil {
		t.Error("listener answered a malformed hello")
	}
}
