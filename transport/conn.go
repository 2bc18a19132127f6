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
	"crypto/sha256"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/eyerust/gosrt/errors"
)

// Stream-oriented engines (ipc, ws) share the hello exchange and the
// framing defined here, so that only the byte carrier differs between
// them.  The hello stands in for the protocol handshake: it carries the
// latency demands, the stream identifier, and a digest of the key
// material, and the answering side settles the session parameters.

// Answer status codes.
const (
	StatusAccept = byte(iota)
	StatusReject
	StatusBadKey
)

const helloVersion = 1

// maxKeyHashLen bounds the key digest field; sha256 needs 32.
const maxKeyHashLen = 64

// flowWindow is how many payloads a session will hold for the writer
// before TrySend reports ErrFlowWindow.
const flowWindow = 128

// Hello is the dialer's opening statement.
type Hello struct {
	RecvLatency time.Duration
	PeerLatency time.Duration
	KeySize     KeySize
	StreamID    StreamID
	KeyHash     []byte
}

// Answer is the listener's verdict on a Hello.
type Answer struct {
	Status      byte
	RecvLatency time.Duration
	PeerLatency time.Duration
	KeySize     KeySize
}

// helloHeader is the fixed-size part of the hello, exchanged in
// network byte order.
type helloHeader struct {
	Zero          byte // must be zero
	S             byte // 'S'
	R             byte // 'R'
	Version       byte
	RecvLatencyMS uint32
	PeerLatencyMS uint32
	KeySize       uint8
	SIDLen        uint16
	KeyLen        uint16
}

// answerHeader is the answer, exchanged in network byte order.
type answerHeader struct {
	Zero          byte
	S             byte
	R             byte
	Version       byte
	Status        byte
	RecvLatencyMS uint32
	PeerLatencyMS uint32
	KeySize       uint8
}

// KeyHash digests a passphrase for the hello.  An empty passphrase has
// no digest.
func KeyHash(p Passphrase) []byte {
	if p == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(p))
	return sum[:]
}

// SendHello writes a hello to the byte carrier.
func SendHello(w io.Writer, h *Hello) error {
	hdr := helloHeader{
		S:             'S',
		R:             'R',
		Version:       helloVersion,
		RecvLatencyMS: uint32(h.RecvLatency / time.Millisecond),
		PeerLatencyMS: uint32(h.PeerLatency / time.Millisecond),
		KeySize:       uint8(h.KeySize),
		SIDLen:        uint16(len(h.StreamID)),
		KeyLen:        uint16(len(h.KeyHash)),
	}
	if err := binary.Write(w, binary.BigEndian, &hdr); err != nil {
		return err
	}
	if len(h.StreamID) > 0 {
		if _, err := io.WriteString(w, string(h.StreamID)); err != nil {
			return err
		}
	}
	if len(h.KeyHash) > 0 {
		if _, err := w.Write(h.KeyHash); err != nil {
			return err
		}
	}
	return nil
}

// RecvHello reads and validates a hello from the byte carrier.
func RecvHello(r io.Reader) (*Hello, error) {
	var hdr helloHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Zero != 0 || hdr.S != 'S' || hdr.R != 'R' {
		return nil, errors.ErrBadHeader
	}
	if hdr.Version != helloVersion {
		return nil, errors.ErrBadVersion
	}
	if int(hdr.SIDLen) > MaxStreamIDLen || int(hdr.KeyLen) > maxKeyHashLen {
		return nil, errors.ErrBadHeader
	}
	h := &Hello{
		RecvLatency: time.Duration(hdr.RecvLatencyMS) * time.Millisecond,
		PeerLatency: time.Duration(hdr.PeerLatencyMS) * time.Millisecond,
		KeySize:     KeySize(hdr.KeySize),
	}
	if hdr.SIDLen > 0 {
		sid := make([]byte, hdr.SIDLen)
		if _, err := io.ReadFull(r, sid); err != nil {
			return nil, err
		}
		h.StreamID = StreamID(sid)
	}
	if hdr.KeyLen > 0 {
		h.KeyHash = make([]byte, hdr.KeyLen)
		if _, err := io.ReadFull(r, h.KeyHash); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// SendAnswer writes an answer to the byte carrier.
func SendAnswer(w io.Writer, a *Answer) error {
	hdr := answerHeader{
		S:             'S',
		R:             'R',
		Version:       helloVersion,
		Status:        a.Status,
		RecvLatencyMS: uint32(a.RecvLatency / time.Millisecond),
		PeerLatencyMS: uint32(a.PeerLatency / time.Millisecond),
		KeySize:       uint8(a.KeySize),
	}
	return binary.Write(w, binary.BigEndian, &hdr)
}

// RecvAnswer reads and validates an answer from the byte carrier.
func RecvAnswer(r io.Reader) (*Answer, error) {
	var hdr answerHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Zero != 0 || hdr.S != 'S' || hdr.R != 'R' {
		return nil, errors.ErrBadHeader
	}
	if hdr.Version != helloVersion {
		return nil, errors.ErrBadVersion
	}
	return &Answer{
		Status:      hdr.Status,
		RecvLatency: time.Duration(hdr.RecvLatencyMS) * time.Millisecond,
		PeerLatency: time.Duration(hdr.PeerLatencyMS) * time.Millisecond,
		KeySize:     KeySize(hdr.KeySize),
	}, nil
}

// NewHello builds the dialer's opening statement from its options.
func NewHello(opts *SocketOptions, sid StreamID) *Hello {
	return &Hello{
		RecvLatency: opts.Receiver.Latency,
		PeerLatency: opts.Sender.PeerLatency,
		KeySize:     opts.Encryption.KeySize,
		StreamID:    sid,
		KeyHash:     KeyHash(opts.Encryption.Passphrase),
	}
}

// ClientSettings resolves the dialer-side session settings from the
// listener's affirmative answer.
func ClientSettings(opts *SocketOptions, sid StreamID, a *Answer) Settings {
	return Settings{
		RecvLatency: NegotiatedLatency(opts.Receiver, SenderOptions{PeerLatency: a.PeerLatency}),
		SendLatency: NegotiatedLatency(ReceiverOptions{Latency: a.RecvLatency}, opts.Sender),
		Bandwidth:   opts.Sender.Bandwidth,
		StreamID:    sid,
		KeySize:     a.KeySize,
	}
}

// ServerSettings resolves the answering-side session settings for a
// hello accepted with key size ks.
func ServerSettings(opts *SocketOptions, h *Hello, ks KeySize) Settings {
	return Settings{
		RecvLatency: NegotiatedLatency(opts.Receiver, SenderOptions{PeerLatency: h.PeerLatency}),
		SendLatency: NegotiatedLatency(ReceiverOptions{Latency: h.RecvLatency}, opts.Sender),
		Bandwidth:   opts.Sender.Bandwidth,
		StreamID:    h.StreamID,
		KeySize:     ks,
	}
}

// ClientHandshake runs the dialer's half of the hello exchange and
// returns the settled session settings.
func ClientHandshake(rw io.ReadWriter, opts *SocketOptions, sid StreamID) (Settings, error) {
	if err := SendHello(rw, NewHello(opts, sid)); err != nil {
		return Settings{}, err
	}
	a, err := RecvAnswer(rw)
	if err != nil {
		return Settings{}, err
	}
	switch a.Status {
	case StatusAccept:
	case StatusBadKey:
		return Settings{}, errors.ErrBadKey
	default:
		return Settings{}, errors.ErrConnRefused
	}
	return ClientSettings(opts, sid, a), nil
}

// AcceptHandshake answers a received hello in the affirmative, after
// verifying the key material.  A non-nil key overrides the listener's
// configured encryption.  On a key mismatch the peer is told so and
// ErrBadKey is returned.
func AcceptHandshake(w io.Writer, h *Hello, opts *SocketOptions, key *KeySettings) (Settings, error) {
	enc := KeySettings{
		KeySize:    opts.Encryption.KeySize,
		Passphrase: opts.Encryption.Passphrase,
	}
	if key != nil {
		enc = *key
	}
	if !bytes.Equal(KeyHash(enc.Passphrase), h.KeyHash) {
		_ = SendAnswer(w, &Answer{Status: StatusBadKey})
		return Settings{}, errors.ErrBadKey
	}
	ks := enc.KeySize
	if ks == 0 {
		ks = h.KeySize
	}
	if ks == 0 && enc.Passphrase != "" {
		ks = 16
	}
	a := &Answer{
		Status:      StatusAccept,
		RecvLatency: opts.Receiver.Latency,
		PeerLatency: opts.Sender.PeerLatency,
		KeySize:     ks,
	}
	if err := SendAnswer(w, a); err != nil {
		return Settings{}, err
	}
	return ServerSettings(opts, h, ks), nil
}

// RejectHandshake answers a received hello in the negative.
func RejectHandshake(w io.Writer) error {
	return SendAnswer(w, &Answer{Status: StatusReject})
}

// connSession implements Session on top of a net.Conn.  Payloads are
// framed as a 64-bit size covering an 8-byte timestamp plus the body.
// Engines whose carrier is an ordinary byte stream use this as a
// building block.
type connSession struct {
	c        net.Conn
	settings Settings
	wq       chan frame
	rq       chan []byte
	closeq   chan struct{}
	wdone    chan struct{}
	once     sync.Once
}

type frame struct {
	ts   time.Time
	body []byte
}

// NewConnSession wraps an already-handshaken net.Conn in a Session and
// starts its pump goroutines.
func NewConnSession(c net.Conn, settings Settings) Session {
	p := &connSession{
		c:        c,
		settings: settings,
		wq:       make(chan frame, flowWindow),
		rq:       make(chan []byte, flowWindow),
		closeq:   make(chan struct{}),
		wdone:    make(chan struct{}),
	}
	go p.reader()
	go p.writer()
	return p
}

func (p *connSession) Settings() Settings {
	return p.settings
}

func (p *connSession) Send(ctx context.Context, ts time.Time, payload []byte) error {
	f, err := newFrame(ts, payload)
	if err != nil {
		return err
	}
	select {
	case p.wq <- f:
		return nil
	case <-p.closeq:
		return errors.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *connSession) TrySend(ts time.Time, payload []byte) error {
	f, err := newFrame(ts, payload)
	if err != nil {
		return err
	}
	select {
	case p.wq <- f:
		return nil
	case <-p.closeq:
		return errors.ErrClosed
	default:
		return errors.ErrFlowWindow
	}
}

func newFrame(ts time.Time, payload []byte) (frame, error) {
	if len(payload) > LiveDefaultPayloadSize {
		return frame{}, errors.ErrTooLong
	}
	// The caller keeps its buffer; the frame takes a copy.
	body := make([]byte, len(payload))
	copy(body, payload)
	return frame{ts: ts, body: body}, nil
}

func (p *connSession) Recv(ctx context.Context) ([]byte, error) {
	select {
	case b, ok := <-p.rq:
		if !ok {
			return nil, errors.ErrConnLost
		}
		return b, nil
	case <-p.closeq:
		return nil, errors.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close lets the writer drain whatever it has queued, then tears the
// carrier down.  The context bounds the drain.
func (p *connSession) Close(ctx context.Context) error {
	p.once.Do(func() { close(p.closeq) })
	select {
	case <-p.wdone:
	case <-ctx.Done():
	}
	return p.c.Close()
}

func (p *connSession) reader() {
	defer close(p.rq)
	for {
		body, err := p.readFrame()
		if err != nil {
			return
		}
		select {
		case p.rq <- body:
		case <-p.closeq:
			return
		}
	}
}

func (p *connSession) writer() {
	defer close(p.wdone)
	for {
		select {
		case f := <-p.wq:
			if p.writeFrame(f) != nil {
				return
			}
		case <-p.closeq:
			for {
				select {
				case f := <-p.wq:
					if p.writeFrame(f) != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// writeFrame sends one payload as a 64-bit size (network byte order)
// followed by the timestamp and the body.  Only the writer pump calls
// this, so writes never interleave.
func (p *connSession) writeFrame(f frame) error {
	sz := uint64(8 + len(f.body))
	if err := binary.Write(p.c, binary.BigEndian, sz); err != nil {
		return err
	}
	if err := binary.Write(p.c, binary.BigEndian, f.ts.UnixMicro()); err != nil {
		return err
	}
	_, err := p.c.Write(f.body)
	return err
}

func (p *connSession) readFrame() ([]byte, error) {
	var sz uint64
	if err := binary.Read(p.c, binary.BigEndian, &sz); err != nil {
		return nil, err
	}
	// A bogus peer must not talk us into a huge allocation.
	if sz < 8 || sz > 8+LiveDefaultPayloadSize {
		p.c.Close()
		return nil, errors.ErrTooLong
	}
	var ts int64
	if err := binary.Read(p.c, binary.BigEndian, &ts); err != nil {
		return nil, err
	}
	body := make([]byte, sz-8)
	if _, err := io.ReadFull(p.c, body); err != nil {
		return nil, err
	}
	return body, nil
}
