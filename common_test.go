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
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/eyerust/gosrt/transport/inproc"
)

var addrSeq uint64

// testAddr returns a fresh in-process address so tests do not collide.
func testAddr() string {
	return fmt.Sprintf("inproc://srt.test.%d", atomic.AddUint64(&addrSeq, 1))
}

func encInt32(n int32) []byte {
	b := make([]byte, 4)
	binary.NativeEndian.PutUint32(b, uint32(n))
	return b
}

func encInt64(n int64) []byte {
	b := make([]byte, 8)
	binary.NativeEndian.PutUint64(b, uint64(n))
	return b
}

func encBool(v bool) []byte {
	if v {
		return encInt32(1)
	}
	return encInt32(0)
}

func mustSetOpt(t *testing.T, s Socket, o Option, v []byte) {
	t.Helper()
	if err := SetSockOpt(s, o, v); err != nil {
		t.Fatalf("set option %d: %v", o, err)
	}
}

// waitFor polls cond until it holds or the test deadline is blown.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// stateOf reads a handle's lifecycle variant for assertions.
func stateOf(s Socket) sockState {
	c := lookup(s)
	if c == nil {
		return nil
	}
	c.Lock()
	defer c.Unlock()
	return c.st
}

// captureLog points the package logger at a buffer for the duration of
// the test.
func captureLog(t *testing.T) *memLogger {
	t.Helper()
	ml := &memLogger{}
	SetLogger(log.New(ml, "", 0))
	t.Cleanup(func() {
		SetLogger(log.New(os.Stderr, "srt: ", log.LstdFlags))
	})
	return ml
}

// pair returns a connected caller and accepted handle wired through
// the in-process engine, all torn down when the test ends.
func pair(t *testing.T) (Socket, Socket) {
	t.Helper()
	addr := testAddr()
	l := CreateSocket()
	if err := Bind(l, addr); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := Listen(l, 4); err != nil {
		t.Fatalf("listen: %v", err)
	}
	c := CreateSocket()
	if err := Connect(c, addr); err != nil {
		t.Fatalf("connect: %v", err)
	}
	ns, _, err := Accept(l)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	t.Cleanup(func() {
		Close(c)
		Close(ns)
		Close(l)
	})
	return c, ns
}
