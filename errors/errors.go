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

// Package errors just defines some constant error codes, and is intended
// to be directly imported.  It is safe to import using ".", so that
// short names can be used without concern about unrelated namespace
// pollution.  These are the errors spoken at the transport engine
// boundary; the srt package maps them onto API error codes.
package errors

type err string

func (e err) Error() string {
	return string(e)
}

// Predefined error values.
const (
	ErrBadAddr     = err("invalid address")
	ErrBadHeader   = err("invalid header received")
	ErrBadVersion  = err("invalid protocol version")
	ErrTooLong     = err("payload is too long")
	ErrClosed      = err("object closed")
	ErrConnRefused = err("connection refused")
	ErrConnLost    = err("connection lost")
	ErrRecvTimeout = err("receive time out")
	ErrSendTimeout = err("send time out")
	ErrFlowWindow  = err("flow window exceeded")
	ErrBadTran     = err("invalid or unsupported transport")
	ErrBadOption   = err("invalid or unsupported option")
	ErrBadValue    = err("invalid option value")
	ErrAddrInUse   = err("address in use")
	ErrBadKey      = err("encryption key mismatch")
	ErrCanceled    = err("operation canceled")
)
