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

// Option identifies one socket option.  The numeric values mirror the
// C API's enumeration so callers driving this layer through bindings
// agree with native code on identifiers.
type Option int32

// The following are Options used by SetSockOpt, GetSockOpt.  The whole
// enumeration is recognized; identifiers outside the dispatched subset
// report EUnimpl when used.

const (
	// OptionMSS is the maximum segment size, in bytes.
	OptionMSS Option = 0

	// OptionSendSyn selects blocking mode for Send.  When true, the
	// default, Send waits until the engine takes the payload; when
	// false Send fails fast if the engine cannot take it.  Value is a
	// boolean.  Valid in every state that carries API options.
	OptionSendSyn Option = 1

	// OptionRecvSyn selects blocking mode for Recv, Accept, and
	// Connect.  When true, the default, those calls wait for their
	// result; when false they poll briefly and report would-block,
	// and Connect completes in the background.  Value is a boolean.
	// Valid in every state that carries API options.
	OptionRecvSyn Option = 2

	// OptionISN is the initial sequence number of a connection.
	OptionISN Option = 3

	// OptionFC is the flow-control window, in packets.
	OptionFC Option = 4

	// OptionSendBuf is the send buffer size, in bytes.
	OptionSendBuf Option = 5

	// OptionRecvBuf is the receive buffer size, in bytes.
	OptionRecvBuf Option = 6

	// OptionLinger is the close linger time.
	OptionLinger Option = 7

	// OptionUDPSendBuf is the datagram socket send buffer size.
	OptionUDPSendBuf Option = 8

	// OptionUDPRecvBuf is the datagram socket receive buffer size.
	OptionUDPRecvBuf Option = 9

	// OptionRendezvous enables rendezvous connection mode.
	OptionRendezvous Option = 12

	// OptionSendTimeout is the blocking Send timeout.
	OptionSendTimeout Option = 13

	// OptionRecvTimeout is the blocking Recv timeout.
	OptionRecvTimeout Option = 14

	// OptionReuseAddr allows rebinding a recently used local address.
	OptionReuseAddr Option = 15

	// OptionMaxBW is the maximum bandwidth cap, in bytes per second.
	OptionMaxBW Option = 16

	// OptionState is the socket state, for diagnostics.
	OptionState Option = 17

	// OptionEvent is the pending-event mask, for diagnostics.
	OptionEvent Option = 18

	// OptionSendData is the count of queued outbound packets.
	OptionSendData Option = 19

	// OptionRecvData is the count of deliverable inbound packets.
	OptionRecvData Option = 20

	// OptionSender marks the handle as the sending side of a
	// unidirectional link.  Older peers used it to pick handshake
	// roles; the engines negotiate both directions regardless, so the
	// value is accepted and ignored.  Value is a boolean.
	OptionSender Option = 21

	// OptionTSBPDMode enables timestamp-based packet delivery.  The
	// engines always deliver on the sender's timestamps, so only true
	// is accepted; setting false reports EInvParam.  Value is a
	// boolean.
	OptionTSBPDMode Option = 22

	// OptionLatency sets both latency budgets at once.
	OptionLatency Option = 23

	// OptionInputBW is the sender's nominal input rate, in bytes per
	// second.
	OptionInputBW Option = 24

	// OptionOverheadBW is the recovery bandwidth overhead, in percent.
	OptionOverheadBW Option = 25

	// OptionPassphrase is the pre-shared secret deriving the session
	// keys.  Value is a string of 10 through 79 bytes.  Settable in
	// Initialized for an outbound or listening handle, and on the
	// provisional handle inside a listen callback to supply material
	// for that one connection.  Never readable.
	OptionPassphrase Option = 26

	// OptionPBKeyLen is the encryption key size, in bytes.  Value is a
	// 32-bit integer of 0 (negotiated), 16, 24, or 32.  Settable in
	// the same states as OptionPassphrase.
	OptionPBKeyLen Option = 27

	// OptionKMState is the key-material negotiation state.
	OptionKMState Option = 28

	// OptionIPTTL is the IP time-to-live of outgoing packets.
	OptionIPTTL Option = 29

	// OptionIPTOS is the IP type-of-service of outgoing packets.
	OptionIPTOS Option = 30

	// OptionTLPktDrop enables dropping packets that are too late to
	// deliver.
	OptionTLPktDrop Option = 31

	// OptionSendDropDelay is the extra sender buffer drop delay.
	OptionSendDropDelay Option = 32

	// OptionNAKReport enables periodic loss reports.
	OptionNAKReport Option = 33

	// OptionVersion is the local protocol version.
	OptionVersion Option = 34

	// OptionPeerVersion is the peer's protocol version.
	OptionPeerVersion Option = 35

	// OptionConnTimeout bounds a blocking Connect.  Value is a 32-bit
	// integer of milliseconds; zero waits indefinitely.  Settable in
	// Initialized.  Default is 3000.
	OptionConnTimeout Option = 36

	// OptionDriftTracer enables time-drift tracing.
	OptionDriftTracer Option = 37

	// OptionMinInputBW is the floor for the estimated input rate, in
	// bytes per second.  Value is a 64-bit integer.  Settable in
	// Initialized; readable there and, once connected, from the
	// negotiated settings.
	OptionMinInputBW Option = 38

	// OptionSendKMState is the sending-direction key-material state.
	OptionSendKMState Option = 40

	// OptionRecvKMState is the receiving-direction key-material state.
	OptionRecvKMState Option = 41

	// OptionLossMaxTTL is the reorder tolerance, in packets.
	OptionLossMaxTTL Option = 42

	// OptionRecvLatency is the delivery delay this side asks for on
	// traffic it receives.  Value is a 32-bit integer of milliseconds.
	// Settable in Initialized; readable there and, once connected,
	// from the negotiated settings, which can be larger if the peer
	// demanded more.  Inside a listen callback a set is accepted and
	// ignored, with a log line, because the handshake answering the
	// peer is already committed.  Default is 120.
	OptionRecvLatency Option = 43

	// OptionPeerLatency is the delivery delay demanded of the peer's
	// receiver.  Value is a 32-bit integer of milliseconds.  Settable
	// in Initialized; readable there and, once connected, from the
	// negotiated settings.
	OptionPeerLatency Option = 44

	// OptionMinVersion is the minimum protocol version required of a
	// peer.
	OptionMinVersion Option = 45

	// OptionStreamID names the stream a connection requests.  Value is
	// a UTF-8 string of at most 512 bytes.  Settable in Initialized
	// only; readable in Initialized and, once connected, from the
	// session settings.  Any other state reports EBoundSock.
	OptionStreamID Option = 46

	// OptionCongestion selects the congestion controller.
	OptionCongestion Option = 47

	// OptionMessageAPI selects message mode instead of stream mode.
	OptionMessageAPI Option = 48

	// OptionPayloadSize is the maximum payload size, in bytes.
	OptionPayloadSize Option = 49

	// OptionTransType selects the transmission profile.
	OptionTransType Option = 50

	// OptionKMRefreshRate is the key refresh period, in packets.
	OptionKMRefreshRate Option = 51

	// OptionKMPreAnnounce is the key switchover interval, in packets.
	OptionKMPreAnnounce Option = 52

	// OptionEnforcedEncryption rejects peers whose encryption setup
	// disagrees with the local one.
	OptionEnforcedEncryption Option = 53

	// OptionIPv6Only restricts a wildcard bind to IPv6.
	OptionIPv6Only Option = 54

	// OptionPeerIdleTimeout is how long a silent peer is considered
	// alive.
	OptionPeerIdleTimeout Option = 55

	// OptionBindToDevice binds outgoing packets to a network device.
	OptionBindToDevice Option = 56

	// OptionPacketFilter configures the forward-error-correction
	// packet filter.
	OptionPacketFilter Option = 60

	// OptionRetransmitAlgo selects the retransmission algorithm.
	OptionRetransmitAlgo Option = 61
)
