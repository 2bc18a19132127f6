//go:build windows

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

package ipc

import (
	"context"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// Named pipe buffer sizes, in bytes.
const pipeBufferSize = 4096

func dialPipe(ctx context.Context, path string) (net.Conn, error) {
	timeout := 30 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	return winio.DialPipe("\\\\.\\pipe\\"+path, &timeout)
}

func listenPipe(path string) (net.Listener, error) {
	config := &winio.PipeConfig{
		InputBufferSize:  pipeBufferSize,
		OutputBufferSize: pipeBufferSize,
		MessageMode:      false,
	}
	return winio.ListenPipe("\\\\.\\pipe\\"+path, config)
}
