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
	"encoding/binary"
	"time"
	"unicode/utf8"

	"github.com/eyerust/gosrt/transport"
)

// SetSockOpt stores one option value on the handle.  Fixed-width kinds
// must be supplied at their exact in-memory width in native byte
// order; strings are UTF-8.  Which options are writable depends on the
// handle's phase; an identifier outside the dispatched subset reports
// EUnimpl.
func SetSockOpt(s Socket, o Option, v []byte) error {
	c := lookup(s)
	if c == nil {
		return setErr(EInvSock)
	}
	c.Lock()
	defer c.Unlock()

	switch o {
	case OptionSendSyn:
		b, err := decodeBool(v)
		if err != nil {
			return err
		}
		api := apiOpts(c.st)
		if api == nil {
			return setErr(ENoConn)
		}
		api.sndSyn = b
		return nil

	case OptionRecvSyn:
		b, err := decodeBool(v)
		if err != nil {
			return err
		}
		api := apiOpts(c.st)
		if api == nil {
			return setErr(ENoConn)
		}
		api.rcvSyn = b
		return nil

	case OptionStreamID:
		str, err := decodeString(v)
		if err != nil {
			return err
		}
		st, ok := c.st.(*initialized)
		if !ok {
			return setErr(EBoundSock)
		}
		sid, err := transport.NewStreamID(str)
		if err != nil {
			return setErrf(EInvParam, "stream id: %v", err)
		}
		st.sid = sid
		return nil

	case OptionConnTimeout:
		n, err := decodeInt32(v)
		if err != nil {
			return err
		}
		st, ok := c.st.(*initialized)
		if !ok {
			return setErr(ENoConn)
		}
		if n < 0 {
			return setErrf(EInvParam, "negative timeout %d", n)
		}
		st.opts.Connect.Timeout = time.Duration(n) * time.Millisecond
		return nil

	case OptionRecvLatency:
		n, err := decodeInt32(v)
		if err != nil {
			return err
		}
		switch st := c.st.(type) {
		case *initialized:
			if n < 0 {
				return setErrf(EInvParam, "negative latency %d", n)
			}
			st.opts.Receiver.Latency = time.Duration(n) * time.Millisecond
			return nil
		case *accepting:
			// The handshake answering the peer is already committed.
			logf("receive latency ignored for a connection being accepted")
			return nil
		}
		return setErr(ENoConn)

	case OptionPeerLatency:
		n, err := decodeInt32(v)
		if err != nil {
			return err
		}
		st, ok := c.st.(*initialized)
		if !ok {
			return setErr(ENoConn)
		}
		if n < 0 {
			return setErrf(EInvParam, "negative latency %d", n)
		}
		st.opts.Sender.PeerLatency = time.Duration(n) * time.Millisecond
		return nil

	case OptionMinInputBW:
		n, err := decodeInt64(v)
		if err != nil {
			return err
		}
		st, ok := c.st.(*initialized)
		if !ok {
			return setErr(ENoConn)
		}
		if n < 0 {
			return setErrf(EInvParam, "negative rate %d", n)
		}
		st.opts.Sender.Bandwidth = transport.BandwidthMode{
			Kind: transport.BandwidthEstimated,
			Rate: transport.DataRate(n),
		}
		return nil

	case OptionPassphrase:
		str, err := decodeString(v)
		if err != nil {
			return err
		}
		pp, err := transport.NewPassphrase(str)
		if err != nil {
			return setErrf(EInvParam, "passphrase: %v", err)
		}
		switch st := c.st.(type) {
		case *initialized:
			st.opts.Encryption.Passphrase = pp
			return nil
		case *accepting:
			if st.key == nil {
				st.key = &transport.KeySettings{}
			}
			st.key.Passphrase = pp
			return nil
		}
		return setErr(ENoConn)

	case OptionPBKeyLen:
		n, err := decodeInt32(v)
		if err != nil {
			return err
		}
		ks, err := transport.NewKeySize(int(n))
		if err != nil {
			return setErrf(EInvParam, "key size: %v", err)
		}
		switch st := c.st.(type) {
		case *initialized:
			st.opts.Encryption.KeySize = ks
			return nil
		case *accepting:
			if st.key == nil {
				st.key = &transport.KeySettings{}
			}
			st.key.KeySize = ks
			return nil
		}
		return setErr(ENoConn)

	case OptionSender:
		_, err := decodeBool(v)
		return err

	case OptionTSBPDMode:
		b, err := decodeBool(v)
		if err != nil {
			return err
		}
		if !b {
			return setErrf(EInvParam, "timestamp-based delivery cannot be disabled")
		}
		return nil
	}
	return setErrf(EUnimpl, "option %d not implemented", o)
}

// GetSockOpt writes the option value into v and returns the number of
// bytes used.  v must have capacity for the value; strings are written
// NUL-terminated and the returned length excludes the NUL.  Values are
// read from the nearest phase-appropriate source: API options first,
// then pre-connection options, then the established session's
// settings.
func GetSockOpt(s Socket, o Option, v []byte) (int, error) {
	c := lookup(s)
	if c == nil {
		return 0, setErr(EInvSock)
	}
	c.Lock()
	defer c.Unlock()

	switch o {
	case OptionSendSyn:
		api := apiOpts(c.st)
		if api == nil {
			return 0, setErr(ENoConn)
		}
		return encodeBool(v, api.sndSyn)

	case OptionRecvSyn:
		api := apiOpts(c.st)
		if api == nil {
			return 0, setErr(ENoConn)
		}
		return encodeBool(v, api.rcvSyn)

	case OptionStreamID:
		switch st := c.st.(type) {
		case *initialized:
			return encodeString(v, string(st.sid))
		case *established:
			return encodeString(v, string(st.sess.Settings().StreamID))
		}
		return 0, setErr(EBoundSock)

	case OptionRecvLatency:
		switch st := c.st.(type) {
		case *initialized:
			return encodeInt32(v, int32(st.opts.Receiver.Latency/time.Millisecond))
		case *established:
			return encodeInt32(v, int32(st.sess.Settings().RecvLatency/time.Millisecond))
		}
		return 0, setErr(ENoConn)

	case OptionPeerLatency:
		switch st := c.st.(type) {
		case *initialized:
			return encodeInt32(v, int32(st.opts.Sender.PeerLatency/time.Millisecond))
		case *established:
			return encodeInt32(v, int32(st.sess.Settings().SendLatency/time.Millisecond))
		}
		return 0, setErr(ENoConn)

	case OptionMinInputBW:
		switch st := c.st.(type) {
		case *initialized:
			return encodeInt64(v, int64(st.opts.Sender.Bandwidth.Rate))
		case *established:
			return encodeInt64(v, int64(st.sess.Settings().Bandwidth.Rate))
		}
		return 0, setErr(ENoConn)
	}
	return 0, setErrf(EUnimpl, "option %d not implemented", o)
}

func decodeInt32(v []byte) (int32, error) {
	if len(v) != 4 {
		return 0, setErrf(EInvParam, "option value must be 4 bytes, got %d", len(v))
	}
	return int32(binary.NativeEndian.Uint32(v)), nil
}

func decodeInt64(v []byte) (int64, error) {
	if len(v) != 8 {
		return 0, setErrf(EInvParam, "option value must be 8 bytes, got %d", len(v))
	}
	return int64(binary.NativeEndian.Uint64(v)), nil
}

func decodeBool(v []byte) (bool, error) {
	n, err := decodeInt32(v)
	if err != nil {
		return false, err
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	logf("bool option value %d assumed true", n)
	return true, nil
}

func decodeString(v []byte) (string, error) {
	if !utf8.Valid(v) {
		return "", setErrf(EInvParam, "option value is not valid UTF-8")
	}
	return string(v), nil
}

func encodeInt32(v []byte, n int32) (int, error) {
	if len(v) < 4 {
		return 0, setErrf(EInvParam, "option buffer needs 4 bytes, got %d", len(v))
	}
	binary.NativeEndian.PutUint32(v, uint32(n))
	return 4, nil
}

func encodeInt64(v []byte, n int64) (int, error) {
	if len(v) < 8 {
		return 0, setErrf(EInvParam, "option buffer needs 8 bytes, got %d", len(v))
	}
	binary.NativeEndian.PutUint64(v, uint64(n))
	return 8, nil
}

func encodeBool(v []byte, b bool) (int, error) {
	var n int32
	if b {
		n = 1
	}
	return encodeInt32(v, n)
}

func encodeString(v []byte, s string) (int, error) {
	if len(v) < len(s)+1 {
		return 0, setErrf(EInvParam, "option buffer needs %d bytes, got %d", len(s)+1, len(v))
	}
	n := copy(v, s)
	v[n] = 0
	return n, nil
}
