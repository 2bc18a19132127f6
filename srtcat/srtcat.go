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

// srtcat implements a netcat-style command over srt bridge sockets.
package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

import (
	"github.com/droundy/goopt"
	"github.com/eyerust/gosrt"
	_ "github.com/eyerust/gosrt/transport/all"
)

var verbose int
var listenAddr string
var dialAddr string
var streamID string
var passphrase string
var keyLen int
var latency = -1
var peerLatency = -1
var connTimeout = -1
var recvTimeout int
var sendInterval int
var sendDelay int
var sendData []byte
var printFormat string

func setListen(addr string) error {
	if !strings.Contains(addr, "://") {
		return errors.New("invalid address format")
	}
	if listenAddr != "" {
		return errors.New("listen address already set")
	}
	listenAddr = addr
	return nil
}

func setDial(addr string) error {
	if !strings.Contains(addr, "://") {
		return errors.New("invalid address format")
	}
	if dialAddr != "" {
		return errors.New("connect address already set")
	}
	dialAddr = addr
	return nil
}

func setListenIPC(path string) error {
	return setListen("ipc://" + path)
}

func setDialIPC(path string) error {
	return setDial("ipc://" + path)
}

func setListenLocal(port string) error {
	return setListen("ws://127.0.0.1:" + port)
}

func setDialLocal(port string) error {
	return setDial("ws://127.0.0.1:" + port)
}

func setSendData(data string) error {
	if sendData != nil {
		return errors.New("data or file already set")
	}
	sendData = []byte(data)
	return nil
}

func setSendFile(path string) error {
	if sendData != nil {
		return errors.New("data or file already set")
	}
	var err error
	sendData, err = os.ReadFile(path)
	return err
}

func setFormat(f string) error {
	if len(printFormat) > 0 {
		return errors.New("output format already set")
	}
	switch f {
	case "no":
	case "raw":
	case "ascii":
	case "quoted":
	case "msgpack":
	default:
		return errors.New("invalid format type")
	}
	printFormat = f
	return nil
}

func atoi(v string, out *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.New("value not an integer")
	}
	*out = n
	return nil
}

func fatalf(format string, v ...interface{}) {
	fmt.Fprintln(os.Stderr, fmt.Sprintf(format, v...))
	os.Exit(1)
}

func init() {

	goopt.NoArg([]string{"--verbose", "-v"}, "Increase verbosity",
		func() error {
			verbose++
			return nil
		})
	goopt.NoArg([]string{"--silent", "-q"}, "Decrease verbosity",
		func() error {
			verbose--
			return nil
		})

	goopt.ReqArg([]string{"--listen"}, "ADDR",
		"Listen on ADDR and accept one caller", setListen)
	goopt.ReqArg([]string{"--connect"}, "ADDR", "Connect to ADDR", setDial)
	goopt.ReqArg([]string{"--listen-ipc", "-X"}, "PATH",
		"Listen on IPC PATH", setListenIPC)
	goopt.ReqArg([]string{"--connect-ipc", "-x"}, "PATH",
		"Connect to IPC PATH", setDialIPC)
	goopt.ReqArg([]string{"--listen-local", "-L"}, "PORT",
		"Listen on websocket localhost PORT", setListenLocal)
	goopt.ReqArg([]string{"--connect-local", "-l"}, "PORT",
		"Connect to websocket localhost PORT", setDialLocal)

	goopt.ReqArg([]string{"--streamid", "-s"}, "ID",
		"Request stream ID when connecting",
		func(v string) error {
			streamID = v
			return nil
		})
	goopt.ReqArg([]string{"--passphrase"}, "SECRET",
		"Protect the session with SECRET (10 to 79 bytes)",
		func(v string) error {
			passphrase = v
			return nil
		})
	goopt.ReqArg([]string{"--pbkeylen"}, "BYTES",
		"Key size: 0, 16, 24 or 32",
		func(v string) error {
			return atoi(v, &keyLen)
		})
	goopt.ReqArg([]string{"--latency"}, "MS",
		"Receive latency budget in milliseconds",
		func(v string) error {
			return atoi(v, &latency)
		})
	goopt.ReqArg([]string{"--peer-latency"}, "MS",
		"Latency demanded of the peer in milliseconds",
		func(v string) error {
			return atoi(v, &peerLatency)
		})
	goopt.ReqArg([]string{"--conn-timeout"}, "MS",
		"Connect timeout in milliseconds",
		func(v string) error {
			return atoi(v, &connTimeout)
		})
	goopt.ReqArg([]string{"--recv-timeout"}, "SEC",
		"Give up receiving after SEC idle seconds",
		func(v string) error {
			return atoi(v, &recvTimeout)
		})
	goopt.ReqArg([]string{"--send-delay", "-d"}, "SEC",
		"Set initial send delay",
		func(v string) error {
			return atoi(v, &sendDelay)
		})
	goopt.ReqArg([]string{"--interval", "-i"}, "SEC",
		"Send DATA every SEC seconds",
		func(v string) error {
			return atoi(v, &sendInterval)
		})

	goopt.NoArg([]string{"--raw"}, "Raw output, no delimiters",
		func() error {
			return setFormat("raw")
		})
	goopt.NoArg([]string{"--ascii", "-A"}, "ASCII output, one per line",
		func() error {
			return setFormat("ascii")
		})
	goopt.NoArg([]string{"--quoted", "-Q"}, "Quoted output, one per line",
		func() error {
			return setFormat("quoted")
		})
	goopt.NoArg([]string{"--msgpack"},
		"Msgpacked binary output (see msgpack.org)",
		func() error {
			return setFormat("msgpack")
		})

	goopt.ReqArg([]string{"--data", "-D"}, "DATA", "Data to send",
		setSendData)
	goopt.ReqArg([]string{"--file", "-F"}, "FILE", "Send contents of FILE",
		setSendFile)

	goopt.Description = func() string {
		return `srtcat is a command-line interface to send and receive
data over srt bridge sockets.  One side listens and accepts a single
caller, the other connects; payloads then flow both ways until either
side closes. `
	}

	goopt.Author = "The Gosrt Authors"

	goopt.Suite = "gosrt"

	goopt.Summary = "command line interface to srt bridge sockets"

}

func setOptInt32(s srt.Socket, o srt.Option, n int32) {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], uint32(n))
	if err := srt.SetSockOpt(s, o, b[:]); err != nil {
		fatalf("Option %d: %v", o, err)
	}
}

func setOptString(s srt.Socket, o srt.Option, v string) {
	if err := srt.SetSockOpt(s, o, []byte(v)); err != nil {
		fatalf("Option %d: %v", o, err)
	}
}

func applyOptions(s srt.Socket) {
	if streamID != "" {
		setOptString(s, srt.OptionStreamID, streamID)
	}
	if passphrase != "" {
		setOptString(s, srt.OptionPassphrase, passphrase)
	}
	if keyLen != 0 {
		setOptInt32(s, srt.OptionPBKeyLen, int32(keyLen))
	}
	if latency >= 0 {
		setOptInt32(s, srt.OptionRecvLatency, int32(latency))
	}
	if peerLatency >= 0 {
		setOptInt32(s, srt.OptionPeerLatency, int32(peerLatency))
	}
	if connTimeout >= 0 {
		setOptInt32(s, srt.OptionConnTimeout, int32(connTimeout))
	}
}

func printMsg(body []byte) {
	bw := bufio.NewWriter(os.Stdout)
	switch printFormat {
	case "no":
		return
	case "raw":
		bw.Write(body)
	case "ascii":
		for i := 0; i < len(body); i++ {
			if strconv.IsPrint(rune(body[i])) {
				bw.WriteByte(body[i])
			} else {
				bw.WriteByte('.')
			}
		}
		bw.WriteString("\n")
	case "quoted":
		for i := 0; i < len(body); i++ {
			switch body[i] {
			case '\n':
				bw.WriteString("\\n")
			case '\r':
				bw.WriteString("\\r")
			case '\\':
				bw.WriteString("\\\\")
			case '"':
				bw.WriteString("\\\"")
			default:
				if strconv.IsPrint(rune(body[i])) {
					bw.WriteByte(body[i])
				} else {
					bw.WriteString(fmt.Sprintf("\\x%02x",
						body[i]))
				}
			}
		}
		bw.WriteString("\n")

	case "msgpack":
		enc := make([]byte, 5)
		switch {
		case len(body) < 256:
			enc = enc[:2]
			enc[0] = 0xc4
			enc[1] = byte(len(body))

		case len(body) < 65536:
			enc = enc[:3]
			enc[0] = 0xc5
			binary.BigEndian.PutUint16(enc[1:], uint16(len(body)))
		default:
			enc = enc[:5]
			enc[0] = 0xc6
			binary.BigEndian.PutUint32(enc[1:], uint32(len(body)))
		}
		bw.Write(enc)
		bw.Write(body)
	}
	bw.Flush()
}

func recvLoop(s srt.Socket, done chan struct{}) {
	defer close(done)
	buf := make([]byte, 2048)
	var deadline time.Time
	if recvTimeout > 0 {
		// Poll so the idle timeout can be enforced.
		setOptInt32(s, srt.OptionRecvSyn, 0)
		deadline = time.Now().Add(time.Duration(recvTimeout) * time.Second)
	}
	for {
		n, err := srt.Recv(s, buf)
		if err != nil {
			if errors.Is(err, srt.EAsyncRcv) {
				if time.Now().After(deadline) {
					return
				}
				continue
			}
			if errors.Is(err, srt.EConnLost) {
				return
			}
			fatalf("Recv failed: %v", err)
		}
		if recvTimeout > 0 {
			deadline = time.Now().Add(time.Duration(recvTimeout) * time.Second)
		}
		printMsg(buf[:n])
	}
}

func sendLoop(s srt.Socket, done chan struct{}) {
	defer close(done)
	for {
		if _, err := srt.Send(s, sendData); err != nil {
			fatalf("Send failed: %v", err)
		}
		if sendInterval > 0 {
			time.Sleep(time.Duration(sendInterval) * time.Second)
		} else {
			break
		}
	}
}

func logConn(opaque interface{}, ns srt.Socket, hsVersion int, peer string, streamID string) int {
	fmt.Fprintf(os.Stderr, "accepting %s (stream %q, handshake v%d)\n",
		peer, streamID, hsVersion)
	return 0
}

func main() {

	goopt.Parse(nil)

	if listenAddr == "" && dialAddr == "" {
		fatalf("No address specified.")
	}
	if listenAddr != "" && dialAddr != "" {
		fatalf("Listen and connect are mutually exclusive.")
	}
	if printFormat == "" {
		printFormat = "ascii"
	}

	if err := srt.Startup(); err != nil {
		fatalf("Startup failed: %v", err)
	}
	defer srt.Cleanup()

	sock := srt.CreateSocket()
	applyOptions(sock)

	conn := sock
	if listenAddr != "" {
		if err := srt.Bind(sock, listenAddr); err != nil {
			fatalf("Bind(%s): %v", listenAddr, err)
		}
		if verbose > 0 {
			if err := srt.SetListenCallback(sock, logConn, nil); err != nil {
				fatalf("Callback: %v", err)
			}
		}
		if err := srt.Listen(sock, 4); err != nil {
			fatalf("Listen(%s): %v", listenAddr, err)
		}
		ns, peer, err := srt.Accept(sock)
		if err != nil {
			fatalf("Accept: %v", err)
		}
		if verbose > 0 {
			fmt.Fprintf(os.Stderr, "connected %s\n", peer)
		}
		conn = ns
	} else {
		if err := srt.Connect(sock, dialAddr); err != nil {
			fatalf("Connect(%s): %v", dialAddr, err)
		}
	}
	defer srt.Close(conn)

	time.Sleep(time.Second * time.Duration(sendDelay))

	rxdone := make(chan struct{})
	txdone := make(chan struct{})

	if sendData != nil {
		go sendLoop(conn, txdone)
	} else {
		close(txdone)
	}
	go recvLoop(conn, rxdone)

	<-txdone
	<-rxdone
}
