// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ntp

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeServer answers one SNTP request with a response timestamped at the
// given offset from the real clock, then shuts down.
func fakeServer(t *testing.T, offset time.Duration) string {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, packetSize)
		_, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		serverTime := time.Now().Add(offset).UTC()
		secs := uint32(serverTime.Unix() + epochOffset)
		frac := uint32((int64(serverTime.Nanosecond()) << 32) / 1e9)

		resp := make([]byte, packetSize)
		resp[0] = 0x24
		binary.BigEndian.PutUint32(resp[40:44], secs)
		binary.BigEndian.PutUint32(resp[44:48], frac)
		conn.WriteTo(resp, addr)
	}()

	return conn.LocalAddr().String()
}

func TestCheck_SucceedsAgainstRespondingServer(t *testing.T) {
	server := fakeServer(t, 0)
	result := Check(context.Background(), []string{server}, time.Second)
	require.NoError(t, result.Err)
	require.Equal(t, server, result.Server)
	require.Less(t, result.Offset.Abs(), 2*time.Second)
}

func TestCheck_FallsThroughToSecondServerOnFailure(t *testing.T) {
	server := fakeServer(t, 0)
	result := Check(context.Background(), []string{"127.0.0.1:1", server}, 200*time.Millisecond)
	require.NoError(t, result.Err)
	require.Equal(t, server, result.Server)
}

func TestCheck_AllServersUnreachableReturnsError(t *testing.T) {
	result := Check(context.Background(), []string{"127.0.0.1:1"}, 100*time.Millisecond)
	require.Error(t, result.Err)
}
