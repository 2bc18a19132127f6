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

package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/eyerust/gosrt/errors"
)

func TestHelloRoundtrip(t *testing.T) {
	in := &Hello{
		RecvLatency: 150 * time.Millisecond,
		PeerLatency: 200 * time.Millisecond,
		KeySize:     32,
		StreamID:    "camera/7",
		KeyHash:     KeyHash("correct horse battery"),
	}
	var buf bytes.Buffer
	if err := SendHello(&buf, in); err != nil {
		t.Fatalf("send: %v", err)
	}
	out, err := RecvHello(&buf)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if out.RecvLatency != in.RecvLatency || out.PeerLatency != in.PeerLatency {
		t.Errorf("latencies %v/%v, want %v/%v", out.RecvLatency, out.PeerLatency, in.RecvLatency, in.PeerLatency)
	}
	if out.KeySize != in.KeySize {
		t.Errorf("key size %d, want %d", out.KeySize, in.KeySize)
	}
	if out.StreamID != in.StreamID {
		t.Errorf("stream id %q, want %q", out.StreamID, in.StreamID)
	}
	if !bytes.Equal(out.KeyHash, in.KeyHash) {
		t.Errorf("key hash %x, want %x", out.KeyHash, in.KeyHash)
	}
}

func TestHelloWithoutKeyHasNoDigest(t *testing.T) {
	if h := KeyHash(""); h != nil {
		t.Errorf("empty passphrase digested to %x", h)
	}
	var buf bytes.Buffer
	if err := SendHello(&buf, &Hello{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	out, err := RecvHello(&buf)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if len(out.KeyHash) != 0 || len(out.StreamID) != 0 {
		t.Errorf("bare hello grew %d hash bytes, %q stream id", len(out.KeyHash), out.StreamID)
	}
}

func TestHelloValidation(t *testing.T) {
	good := func() []byte {
		var buf bytes.Buffer
		if err := SendHello(&buf, &Hello{StreamID: "x"}); err != nil {
			t.Fatalf("send: %v", err)
		}
		return buf.Bytes()
	}

	b := good()
	b[1] = 'X'
	if _, err := RecvHello(bytes.NewReader(b)); err != errors.ErrBadHeader {
		t.Errorf("bad magic: %v", err)
	}

	b = good()
	b[0] = 1
	if _, err := RecvHello(bytes.NewReader(b)); err != errors.ErrBadHeader {
		t.Errorf("nonzero lead byte: %v", err)
	}

	b = good()
	b[3] = 99
	if _, err := RecvHello(bytes.NewReader(b)); err != errors.ErrBadVersion {
		t.Errorf("future version: %v", err)
	}

	// A stream id length beyond the cap must be refused before any
	// allocation happens.
	b = good()
	b[13] = 0xff
	b[14] = 0xff
	if _, err := RecvHello(bytes.NewReader(b)); err != errors.ErrBadHeader {
		t.Errorf("oversized id length: %v", err)
	}

	b = good()
	if _, err := RecvHello(bytes.NewReader(b[:10])); err == nil {
		t.Error("truncated hello accepted")
	}
}

func TestAnswerRoundtrip(t *testing.T) {
	in := &Answer{
		Status:      StatusAccept,
		RecvLatency: 80 * time.Millisecond,
		PeerLatency: 300 * time.Millisecond,
		KeySize:     16,
	}
	var buf bytes.Buffer
	if err := SendAnswer(&buf, in); err != nil {
		t.Fatalf("send: %v", err)
	}
	out, err := RecvAnswer(&buf)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if *out != *in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	var mangled bytes.Buffer
	SendAnswer(&mangled, in)
	b := mangled.Bytes()
	b[2] = 'Q'
	if _, err := RecvAnswer(bytes.NewReader(b)); err != errors.ErrBadHeader {
		t.Errorf("bad magic: %v", err)
	}
	b[2] = 'R'
	b[3] = 42
	if _, err := RecvAnswer(bytes.NewReader(b)); err != errors.ErrBadVersion {
		t.Errorf("future version: %v", err)
	}
}

type handshakeResult struct {
	st  Settings
	err error
}

// answerHello runs the accepting side of one handshake on conn.
func answerHello(conn net.Conn, opts *SocketOptions, key *KeySettings) <-chan handshakeResult {
	ch := make(chan handshakeResult, 1)
	go func() {
		h, err := RecvHello(conn)
		if err != nil {
			ch <- handshakeResult{err: err}
			return
		}
		st, err := AcceptHandshake(conn, h, opts, key)
		ch <- handshakeResult{st: st, err: err}
	}()
	return ch
}

func TestHandshakeNegotiation(t *testing.T) {
	cli, srv := net.Pipe()
	defer cli.Close()
	defer srv.Close()

	cliOpts := &SocketOptions{}
	cliOpts.Receiver.Latency = 150 * time.Millisecond
	cliOpts.Sender.PeerLatency = 200 * time.Millisecond
	cliOpts.Encryption.Passphrase = "correct horse battery"

	srvOpts := &SocketOptions{}
	srvOpts.Receiver.Latency = 80 * time.Millisecond
	srvOpts.Sender.PeerLatency = 300 * time.Millisecond
	srvOpts.Encryption.Passphrase = "correct horse battery"

	done := answerHello(srv, srvOpts, nil)
	cst, err := ClientHandshake(cli, cliOpts, "feed/9")
	if err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	sr := <-done
	if sr.err != nil {
		t.Fatalf("server handshake: %v", sr.err)
	}

	// Each direction settles on the larger of the receiver's setting
	// and the sender's demand.
	if cst.RecvLatency != 300*time.Millisecond || cst.SendLatency != 200*time.Millisecond {
		t.Errorf("client settings %v/%v", cst.RecvLatency, cst.SendLatency)
	}
	if sr.st.RecvLatency != 200*time.Millisecond || sr.st.SendLatency != 300*time.Millisecond {
		t.Errorf("server settings %v/%v", sr.st.RecvLatency, sr.st.SendLatency)
	}
	if cst.StreamID != "feed/9" || sr.st.StreamID != "feed/9" {
		t.Errorf("stream ids %q/%q", cst.StreamID, sr.st.StreamID)
	}
	// Neither side named a key size, so the keyed default applies.
	if cst.KeySize != 16 || sr.st.KeySize != 16 {
		t.Errorf("key sizes %d/%d, want 16", cst.KeySize, sr.st.KeySize)
	}
}

func TestHandshakeKeyMismatch(t *testing.T) {
	cli, srv := net.Pipe()
	defer cli.Close()
	defer srv.Close()

	cliOpts := &SocketOptions{}
	cliOpts.Encryption.Passphrase = "correct horse battery"
	srvOpts := &SocketOptions{}
	srvOpts.Encryption.Passphrase = "completely different"

	done := answerHello(srv, srvOpts, nil)
	if _, err := ClientHandshake(cli, cliOpts, ""); err != errors.ErrBadKey {
		t.Errorf("client: %v, want %v", err, errors.ErrBadKey)
	}
	if sr := <-done; sr.err != errors.ErrBadKey {
		t.Errorf("server: %v, want %v", sr.err, errors.ErrBadKey)
	}
}

func TestHandshakeStagedKeyOverrides(t *testing.T) {
	cli, srv := net.Pipe()
	defer cli.Close()
	defer srv.Close()

	cliOpts := &SocketOptions{}
	cliOpts.Encryption.Passphrase = "correct horse battery"
	srvOpts := &SocketOptions{}
	srvOpts.Encryption.Passphrase = "listener wide secret"

	key := &KeySettings{Passphrase: "correct horse battery", KeySize: 24}
	done := answerHello(srv, srvOpts, key)
	cst, err := ClientHandshake(cli, cliOpts, "")
	if err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	sr := <-done
	if sr.err != nil {
		t.Fatalf("server handshake: %v", sr.err)
	}
	if cst.KeySize != 24 || sr.st.KeySize != 24 {
		t.Errorf("key sizes %d/%d, want 24", cst.KeySize, sr.st.KeySize)
	}
}

func TestHandshakeReject(t *testing.T) {
	cli, srv := net.Pipe()
	defer cli.Close()
	defer srv.Close()

	done := make(chan error, 1)
	go func() {
		if _, err := RecvHello(srv); err != nil {
			done <- err
			return
		}
		done <- RejectHandshake(srv)
	}()
	if _, err := ClientHandshake(cli, &SocketOptions{}, ""); err != errors.ErrConnRefused {
		t.Errorf("client: %v, want %v", err, errors.ErrConnRefused)
	}
	if err := <-done; err != nil {
		t.Errorf("server: %v", err)
	}
}

func TestConnSessionRoundtrip(t *testing.T) {
	cli, srv := net.Pipe()
	a := NewConnSession(cli, Settings{StreamID: "near"})
	b := NewConnSession(srv, Settings{StreamID: "far"})
	ctx := context.Background()

	if a.Settings().StreamID != "near" {
		t.Errorf("settings lost: %+v", a.Settings())
	}

	if err := a.Send(ctx, time.Now(), []byte("one two three")); err != nil {
		t.Fatalf("send: %v", err)
	}
	p, err := b.Recv(ctx)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(p) != "one two three" {
		t.Errorf("got %q", p)
	}

	if err := b.Send(ctx, time.Now(), []byte("four")); err != nil {
		t.Fatalf("reverse send: %v", err)
	}
	p, err = a.Recv(ctx)
	if err != nil {
		t.Fatalf("reverse recv: %v", err)
	}
	if string(p) != "four" {
		t.Errorf("got %q", p)
	}

	cctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := a.Close(cctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := b.Recv(ctx); err != errors.ErrConnLost {
		t.Errorf("recv after peer close: %v, want %v", err, errors.ErrConnLost)
	}
	b.Close(cctx)
}

func TestConnSessionPayloadBounds(t *testing.T) {
	cli, srv := net.Pipe()
	defer srv.Close()
	a := NewConnSession(cli, Settings{})
	big := make([]byte, LiveDefaultPayloadSize+1)

	if err := a.Send(context.Background(), time.Now(), big); err != errors.ErrTooLong {
		t.Errorf("send: %v, want %v", err, errors.ErrTooLong)
	}
	if err := a.TrySend(time.Now(), big); err != errors.ErrTooLong {
		t.Errorf("trysend: %v, want %v", err, errors.ErrTooLong)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a.Close(ctx)
}

func TestConnSessionFlowWindow(t *testing.T) {
	cli, srv := net.Pipe()
	a := NewConnSession(cli, Settings{})

	// Nothing reads srv, so the writer wedges on its first frame and
	// the queue behind it fills.
	var got error
	for i := 0; i < flowWindow+16; i++ {
		if err := a.TrySend(time.Now(), []byte("x")); err != nil {
			got = err
			break
		}
	}
	if got != errors.ErrFlowWindow {
		t.Errorf("got %v, want %v", got, errors.ErrFlowWindow)
	}

	srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a.Close(ctx)
}

func TestConnSessionRejectsBogusFrameSize(t *testing.T) {
	for _, sz := range []uint64{4, uint64(8 + LiveDefaultPayloadSize + 1)} {
		cli, srv := net.Pipe()
		b := NewConnSession(srv, Settings{})

		hdr := make([]byte, 8)
		binary.BigEndian.PutUint64(hdr, sz)
		if _, err := cli.Write(hdr); err != nil {
			t.Fatalf("size %d: write: %v", sz, err)
		}
		if _, err := b.Recv(context.Background()); err != errors.ErrConnLost {
			t.Errorf("size %d: recv %v, want %v", sz, err, errors.ErrConnLost)
		}

		cli.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		b.Close(ctx)
		cancel()
	}
}
