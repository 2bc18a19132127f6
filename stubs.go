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

import "time"

// The declarations below exist for surface parity with the C API.
// None of the operations is implemented: each records EUnimpl on the
// calling goroutine's error slot and returns it, so a caller probing
// the surface gets a diagnosable failure instead of a crash.

// EpollOpt is a bit mask of readiness events.
type EpollOpt uint32

const (
	// EpollIn reports readability.
	EpollIn EpollOpt = 0x1

	// EpollOut reports writability.
	EpollOut EpollOpt = 0x4

	// EpollErr reports a broken socket.
	EpollErr EpollOpt = 0x8

	// EpollUpdate modifies an existing subscription.
	EpollUpdate EpollOpt = 0x10

	// EpollET selects edge-triggered reporting.
	EpollET EpollOpt = 1 << 31
)

// EpollEvent pairs a socket with the events pending on it.
type EpollEvent struct {
	Socket Socket
	Events EpollOpt
}

// SockStatus is the coarse lifecycle phase reported by GetSockState.
type SockStatus int32

const (
	StatusInit       SockStatus = 1
	StatusOpened     SockStatus = 2
	StatusListening  SockStatus = 3
	StatusConnecting SockStatus = 4
	StatusConnected  SockStatus = 5
	StatusBroken     SockStatus = 6
	StatusClosing    SockStatus = 7
	StatusClosed     SockStatus = 8
	StatusNonExist   SockStatus = 9
)

// TraceStats is the statistics snapshot BStats would fill: totals
// since the socket was created, then counters for the interval since
// the last clearing read, then instantaneous gauges.
type TraceStats struct {
	MsTimeStamp          int64
	PktSentTotal         int64
	PktRecvTotal         int64
	PktSndLossTotal      int32
	PktRcvLossTotal      int32
	PktRetransTotal      int32
	PktSentACKTotal      int32
	PktRecvACKTotal      int32
	PktSentNAKTotal      int32
	PktRecvNAKTotal      int32
	UsSndDurationTotal   int64
	PktSndDropTotal      int32
	PktRcvDropTotal      int32
	PktRcvUndecryptTotal int32
	ByteSentTotal        uint64
	ByteRecvTotal        uint64
	ByteRetransTotal     uint64
	ByteSndDropTotal     uint64
	ByteRcvDropTotal     uint64

	PktSent              int64
	PktRecv              int64
	PktSndLoss           int32
	PktRcvLoss           int32
	PktRetrans           int32
	PktSentACK           int32
	PktRecvACK           int32
	PktSentNAK           int32
	PktRecvNAK           int32
	MbpsSendRate         float64
	MbpsRecvRate         float64
	UsSndDuration        int64
	PktReorderDistance   int32
	PktRcvAvgBelatedTime float64
	PktRcvBelated        int64

	UsPktSndPeriod      float64
	PktFlowWindow       int32
	PktCongestionWindow int32
	PktFlightSize       int32
	MsRTT               float64
	MbpsBandwidth       float64
	ByteAvailSndBuf     int32
	ByteAvailRcvBuf     int32
}

// EpollCreate would allocate a readiness-watch set.
func EpollCreate() (int, error) {
	return -1, setErrf(EUnimpl, "epoll not implemented")
}

// EpollAddUSock would subscribe s to the watch set.
func EpollAddUSock(eid int, s Socket, events EpollOpt) error {
	return setErrf(EUnimpl, "epoll not implemented")
}

// EpollRemoveUSock would drop s from the watch set.
func EpollRemoveUSock(eid int, s Socket) error {
	return setErrf(EUnimpl, "epoll not implemented")
}

// EpollWait would collect readable and writable sockets.
func EpollWait(eid int, read, write []Socket, timeout time.Duration) (int, error) {
	return 0, setErrf(EUnimpl, "epoll not implemented")
}

// EpollUWait would collect pending events into events.
func EpollUWait(eid int, events []EpollEvent, timeout time.Duration) (int, error) {
	return 0, setErrf(EUnimpl, "epoll not implemented")
}

// EpollRelease would free the watch set.
func EpollRelease(eid int) error {
	return setErrf(EUnimpl, "epoll not implemented")
}

// BStats would snapshot transfer statistics, resetting the interval
// counters when clear is set.
func BStats(s Socket, clear bool) (*TraceStats, error) {
	return nil, setErrf(EUnimpl, "statistics not implemented")
}

// GetSockState would report the coarse lifecycle phase of s.
func GetSockState(s Socket) (SockStatus, error) {
	return StatusNonExist, setErrf(EUnimpl, "socket state not implemented")
}

// GetSockName would report the bound local address of s.
func GetSockName(s Socket) (string, error) {
	return "", setErrf(EUnimpl, "socket name not implemented")
}

// GetPeerName would report the remote address of s.
func GetPeerName(s Socket) (string, error) {
	return "", setErrf(EUnimpl, "peer name not implemented")
}

// SetLogLevel would adjust the engines' log verbosity.  Use SetLogger
// to direct or silence this layer's own logging.
func SetLogLevel(level int) error {
	return setErrf(EUnimpl, "log level not implemented")
}
