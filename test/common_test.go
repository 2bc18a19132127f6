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

// Package test exercises the public surface end to end, the way an
// application embedding the bridge would.
package test

import (
	"fmt"
	"sync/atomic"
)

var addrSeq uint32

// AddrTestInp returns a fresh in-process address for one scenario.
func AddrTestInp() string {
	return fmt.Sprintf("inproc://scenario.%d", atomic.AddUint32(&addrSeq, 1))
}

// AddrTestWS is a suitable WebSocket address for testing.
var AddrTestWS = "ws://127.0.0.1:39537/bridge"
