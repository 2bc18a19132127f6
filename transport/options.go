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
	"strings"
	"time"

	"github.com/eyerust/gosrt/errors"
)

const (
	// LiveDefaultPayloadSize is the largest payload a live-mode
	// session accepts in a single send.
	LiveDefaultPayloadSize = 1316

	// DefaultConnectTimeout bounds a blocking dial when the
	// application has not set its own deadline.
	DefaultConnectTimeout = 3 * time.Second

	// DefaultReceiverLatency is the delivery latency used when the
	// application does not configure one.
	DefaultReceiverLatency = 120 * time.Millisecond

	// DefaultBacklog is the handshake queue depth used when a
	// listener does not configure one.
	DefaultBacklog = 64

	// MaxStreamIDLen is the longest stream identifier the handshake
	// can carry, in bytes.
	MaxStreamIDLen = 512
)

// StreamID identifies the resource a caller wants from a listener.  It
// rides in the handshake; an empty StreamID means none was requested.
type StreamID string

// NewStreamID validates a stream identifier.
func NewStreamID(s string) (StreamID, error) {
	if len(s) > MaxStreamIDLen {
		return "", errors.ErrBadValue
	}
	return StreamID(s), nil
}

// Passphrase is a pre-shared secret enabling encryption.  The protocol
// constrains it to 10 through 79 bytes.
type Passphrase string

// NewPassphrase validates a passphrase.
func NewPassphrase(s string) (Passphrase, error) {
	if len(s) < 10 || len(s) > 79 {
		return "", errors.ErrBadValue
	}
	return Passphrase(s), nil
}

// KeySize is an AES key length in bytes.  Zero leaves the choice to
// the peer.
type KeySize int

// NewKeySize validates a key length.
func NewKeySize(n int) (KeySize, error) {
	switch n {
	case 0, 16, 24, 32:
		return KeySize(n), nil
	}
	return 0, errors.ErrBadValue
}

// DataRate is a transfer rate in bytes per second.
type DataRate uint64

// Percent is an integral percentage.
type Percent uint

// BandwidthKind selects how a sender limits its output.
type BandwidthKind int

const (
	// BandwidthUnlimited applies no output cap.
	BandwidthUnlimited BandwidthKind = iota

	// BandwidthMax caps output at Rate.
	BandwidthMax

	// BandwidthInput caps output at the measured input rate plus
	// Overhead percent.
	BandwidthInput

	// BandwidthEstimated caps output at the declared expected input
	// rate, Rate, plus Overhead percent.
	BandwidthEstimated
)

// BandwidthMode is a sender output limit.  Rate and Overhead are
// meaningful only for the kinds that use them.
type BandwidthMode struct {
	Kind     BandwidthKind
	Rate     DataRate
	Overhead Percent
}

// KeySettings carries the encryption parameters staged for a single
// pending handshake.
type KeySettings struct {
	KeySize    KeySize
	Passphrase Passphrase
}

// ConnectOptions configures the dialing side of a session.
type ConnectOptions struct {
	// Local is the local address to bind before dialing, scheme
	// included.  Empty lets the engine choose.
	Local string

	// Timeout bounds the whole handshake for a blocking dial.
	Timeout time.Duration
}

// ReceiverOptions configures the receiving half of a session.
type ReceiverOptions struct {
	// Latency is the delivery delay this side asks for on traffic it
	// receives.  The negotiated value can be larger if the peer
	// demands more.
	Latency time.Duration
}

// SenderOptions configures the sending half of a session.
type SenderOptions struct {
	// PeerLatency is the delivery delay this side demands of the
	// peer's receiver.
	PeerLatency time.Duration

	// Bandwidth is the output limit applied to traffic this side
	// sends.
	Bandwidth BandwidthMode
}

// EncryptionOptions configures the pre-shared secret for a session.
type EncryptionOptions struct {
	KeySize    KeySize
	Passphrase Passphrase
}

// Enabled reports whether a passphrase has been configured.
func (e EncryptionOptions) Enabled() bool {
	return e.Passphrase != ""
}

// SocketOptions is everything an engine needs to dial or answer a
// handshake on behalf of one socket.
type SocketOptions struct {
	Connect    ConnectOptions
	Receiver   ReceiverOptions
	Sender     SenderOptions
	Encryption EncryptionOptions
}

// NewSocketOptions returns options carrying the live-mode defaults.
func NewSocketOptions() SocketOptions {
	return SocketOptions{
		Connect:  ConnectOptions{Timeout: DefaultConnectTimeout},
		Receiver: ReceiverOptions{Latency: DefaultReceiverLatency},
	}
}

// ListenerOptions configures a bound listener.
type ListenerOptions struct {
	// Socket supplies the local address and the defaults inherited by
	// every accepted session.
	Socket SocketOptions

	// Backlog bounds the engine's queue of unanswered handshakes.
	Backlog int
}

// Validate checks a listener configuration, fills in defaults, and
// returns the normalized result.
func (o ListenerOptions) Validate() (ListenerOptions, error) {
	if AddressScheme(o.Socket.Connect.Local) == "" {
		return o, errors.ErrBadAddr
	}
	if o.Socket.Connect.Timeout < 0 ||
		o.Socket.Receiver.Latency < 0 ||
		o.Socket.Sender.PeerLatency < 0 {
		return o, errors.ErrBadValue
	}
	if o.Backlog <= 0 {
		o.Backlog = DefaultBacklog
	}
	return o, nil
}

// Settings is the outcome of a handshake: the values both sides agreed
// on, frozen for the life of the session.
type Settings struct {
	// RecvLatency is the delivery delay applied to traffic this side
	// receives.
	RecvLatency time.Duration

	// SendLatency is the delivery delay the peer applies to traffic
	// this side sends.
	SendLatency time.Duration

	// Bandwidth is the output limit this side committed to.
	Bandwidth BandwidthMode

	// StreamID is the stream identifier the session was opened for.
	StreamID StreamID

	// KeySize is the negotiated key length, zero when the session is
	// not encrypted.
	KeySize KeySize
}

// NegotiatedLatency resolves one direction of flow: the effective
// delivery delay is the larger of what the receiving side configured
// and what the sending side demands of its peer.
func NegotiatedLatency(rcv ReceiverOptions, snd SenderOptions) time.Duration {
	if snd.PeerLatency > rcv.Latency {
		return snd.PeerLatency
	}
	return rcv.Latency
}

// AddressScheme returns the URL scheme of an address, or an empty
// string when the address does not carry one.
func AddressScheme(addr string) string {
	i := strings.Index(addr, "://")
	if i < 0 {
		return ""
	}
	return addr[:i]
}
