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

// Package all registers every engine this module ships, so a program
// can support all of them with a single import.
package all

import (
	// import engines
	_ "github.com/eyerust/gosrt/transport/inproc"
	_ "github.com/eyerust/gosrt/transport/ipc"
	_ "github.com/eyerust/gosrt/transport/tcp"
	_ "github.com/eyerust/gosrt/transport/ws"
)
