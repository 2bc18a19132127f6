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
	"bytes"
	"log"
	"os"
	"sync"
)

// The package reports a handful of conditions out of band: payload
// truncation, callback faults, and teardown failures that Close does
// not return.  SetLogger redirects or silences that reporting.
var (
	logMx  sync.Mutex
	logOut = log.New(os.Stderr, "srt: ", log.LstdFlags)
)

// SetLogger replaces the package logger.  A nil logger silences the
// package.
func SetLogger(l *log.Logger) {
	logMx.Lock()
	logOut = l
	logMx.Unlock()
}

func logf(format string, a ...interface{}) {
	logMx.Lock()
	l := logOut
	logMx.Unlock()
	if l != nil {
		l.Printf(format, a...)
	}
}

// memLogger collects log output so it can be inspected; tests aim
// SetLogger at one.
type memLogger struct {
	sync.Mutex
	buf bytes.Buffer
}

func (l *memLogger) Write(p []byte) (int, error) {
	l.Lock()
	defer l.Unlock()
	return l.buf.Write(p)
}

func (l *memLogger) String() string {
	l.Lock()
	defer l.Unlock()
	return l.buf.String()
}

func (l *memLogger) Clear() {
	l.Lock()
	defer l.Unlock()
	l.buf.Reset()
}
