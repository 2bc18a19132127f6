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

// Package srt provides a socket-style bridge to SRT transport engines.
//
// The surface is the handle-oriented one known from the C library:
// integer socket handles driven through Bind, Listen, Connect, Accept,
// Send, Recv and Close, options set and read through raw byte buffers,
// and a last-error slot kept per calling goroutine.  Everything
// packet-level, such as retransmission and key exchange, lives behind
// the transport.Session and transport.Listener interfaces and is
// supplied by engines that register themselves by URL scheme.
//
// Engines are selected by the scheme of the address passed to Bind or
// Connect.  Importing the transport/all package registers every engine
// in this module:
//
//	import _ "github.com/eyerust/gosrt/transport/all"
//
// Handles block in both directions by default.  OptionSendSyn and
// OptionRecvSyn switch either direction to a fail-fast mode where a
// would-block condition is reported as EAsyncRcv and Connect completes
// in the background.
//
// Operations report failures twice: as an ordinary Go error return,
// and through GetLastError for callers ported from the C surface.
package srt
