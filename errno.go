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

import (
	"fmt"
	"sync"

	"github.com/petermattis/goid"
)

// Errno is an API error code.  The numbering follows the C library so
// that values survive a round trip through code written against it.
type Errno int32

// Error codes.
const (
	EUnknown Errno = -1
	Success  Errno = 0

	EConnSetup Errno = 1000
	ENoServer  Errno = 1001
	EConnRej   Errno = 1002
	ESockFail  Errno = 1003
	ESecFail   Errno = 1004
	ESClosed   Errno = 1005

	EConnFail Errno = 2000
	EConnLost Errno = 2001
	ENoConn   Errno = 2002

	EResource Errno = 3000
	EThread   Errno = 3001
	ENoBuf    Errno = 3002

	EFile Errno = 4000

	EInvOp          Errno = 5000
	EBoundSock      Errno = 5001
	EConnSock       Errno = 5002
	EInvParam       Errno = 5003
	EInvSock        Errno = 5004
	EUnboundSock    Errno = 5005
	ENoListen       Errno = 5006
	ERdvNoServ      Errno = 5007
	ERdvUnbound     Errno = 5008
	EInvalMsgAPI    Errno = 5009
	EInvalBufferAPI Errno = 5010
	EDupListen      Errno = 5011
	ELargeMsg       Errno = 5012
	EInvPollID      Errno = 5013
	EPollEmpty      Errno = 5014

	// EUnimpl reports surface that exists for compatibility but has
	// no implementation behind it.  The code is ours; the C library
	// has no equivalent because it faults instead.
	EUnimpl Errno = 5999

	EAsyncFail Errno = 6000
	EAsyncSnd  Errno = 6001
	EAsyncRcv  Errno = 6002
	ETimeout   Errno = 6003
	ECongest   Errno = 6004

	EPeerErr Errno = 7000
)

// Error returns the fixed description of the code.
func (e Errno) Error() string {
	switch e {
	case EUnknown:
		return "Internal error"
	case Success:
		return "Success"
	case EConnSetup:
		return "Connection setup failure"
	case ENoServer:
		return "Connection setup failure: connection timed out"
	case EConnRej:
		return "Connection setup failure: connection rejected"
	case ESockFail:
		return "Connection setup failure: unable to create socket"
	case ESecFail:
		return "Connection setup failure: security error"
	case ESClosed:
		return "Connection setup failure: socket closed"
	case EConnFail:
		return "Connection failure"
	case EConnLost:
		return "Connection was broken"
	case ENoConn:
		return "Connection does not exist"
	case EResource:
		return "System resource failure"
	case EThread:
		return "System unable to spawn new thread"
	case ENoBuf:
		return "System unable to allocate buffer"
	case EFile:
		return "File system failure"
	case EInvOp:
		return "Operation not supported"
	case EBoundSock:
		return "Operation not supported: bound socket"
	case EConnSock:
		return "Operation not supported: connected socket"
	case EInvParam:
		return "Operation not supported: invalid parameter"
	case EInvSock:
		return "Operation not supported: invalid socket ID"
	case EUnboundSock:
		return "Operation not supported: unbound socket"
	case ENoListen:
		return "Operation not supported: socket is not listening"
	case ERdvNoServ:
		return "Operation not supported: rendezvous socket cannot listen"
	case ERdvUnbound:
		return "Operation not supported: rendezvous socket must be bound"
	case EInvalMsgAPI:
		return "Operation not supported: incorrect use of message API"
	case EInvalBufferAPI:
		return "Operation not supported: incorrect use of buffer API"
	case EDupListen:
		return "Operation not supported: another socket is already listening on the same address"
	case ELargeMsg:
		return "Operation not supported: message is too large to send"
	case EInvPollID:
		return "Operation not supported: invalid epoll ID"
	case EPollEmpty:
		return "Operation not supported: all sockets removed from epoll"
	case EUnimpl:
		return "Operation not supported: not implemented"
	case EAsyncFail:
		return "Non-blocking call failure"
	case EAsyncSnd:
		return "Non-blocking call failure: no buffer available for sending"
	case EAsyncRcv:
		return "Non-blocking call failure: no data available for reading"
	case ETimeout:
		return "Non-blocking call failure: operation timed out"
	case ECongest:
		return "Early congestion notification"
	case EPeerErr:
		return "The peer side has signaled an error"
	}
	return fmt.Sprintf("Unknown error %d", int32(e))
}

// Error is what the API operations return on failure: the code plus
// whatever context the failing operation could add.  It matches its
// bare code under errors.Is.
type Error struct {
	Code Errno
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

// Is reports whether target names the same code.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Errno:
		return e.Code == t
	case *Error:
		return e.Code == t.Code
	}
	return false
}

// lastError holds one slot per goroutine, the moral equivalent of the
// per-thread error of the C API.  Slots persist until cleared, so a
// long-lived program with many short-lived goroutines should call
// ClearLastError before a goroutine retires, just as C callers pair
// thread exit with their thread locals.
var lastError sync.Map // goroutine id -> *Error

// noError is what GetLastErrorString reports when nothing failed yet.
const noError = "(no error set on this goroutine)"

// setErr records a bare code against the calling goroutine and returns
// the error the operation should hand back.
func setErr(code Errno) error {
	return setErrf(code, "%s", code.Error())
}

// setErrf records a code with formatted context against the calling
// goroutine and returns the error the operation should hand back.
func setErrf(code Errno, format string, args ...interface{}) error {
	e := &Error{Code: code, msg: fmt.Sprintf(format, args...)}
	lastError.Store(goid.Get(), e)
	return e
}

// GetLastError reports the code of the most recent failure observed on
// the calling goroutine, or Success.
func GetLastError() Errno {
	if v, ok := lastError.Load(goid.Get()); ok {
		return v.(*Error).Code
	}
	return Success
}

// GetLastErrorString reports the message recorded with the calling
// goroutine's most recent failure.
func GetLastErrorString() string {
	if v, ok := lastError.Load(goid.Get()); ok {
		return v.(*Error).msg
	}
	return noError
}

// ClearLastError forgets the calling goroutine's last error, releasing
// its slot.
func ClearLastError() {
	lastError.Delete(goid.Get())
}
