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

// Package ntp implements the one-shot clock sanity check run at process
// startup when time.ntp_enabled is set: query each configured server in
// turn with a minimal SNTP request until one responds, and report how far
// the local clock has drifted. Nothing downstream depends on the result
// beyond a logged warning — metadata.csv always stamps times from the
// local clock, never from the NTP response.
package ntp

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// epochOffset is the number of seconds between the NTP epoch (1900-01-01)
// and the Unix epoch (1970-01-01).
const epochOffset = 2208988800

// packetSize is the fixed size of an SNTP v4 client/server packet; this
// client only ever sends and reads the first 48 bytes.
const packetSize = 48

// CheckResult reports the outcome of querying one server.
type CheckResult struct {
	Server string
	Offset time.Duration // local clock minus server clock; positive means local is ahead
	Err    error
}

// Check queries servers in order, returning on the first one that
// responds within timeout. If every server fails, the last error is
// returned.
func Check(ctx context.Context, servers []string, timeout time.Duration) CheckResult {
	var lastErr error
	for _, server := range servers {
		offset, err := query(ctx, server, timeout)
		if err == nil {
			return CheckResult{Server: server, Offset: offset}
		}
		lastErr = err
	}
	return CheckResult{Err: fmt.Errorf("no configured NTP server responded: %w", lastErr)}
}

func query(ctx context.Context, server string, timeout time.Duration) (time.Duration, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "udp", server)
	if err != nil {
		return 0, fmt.Errorf("dialing %s: %w", server, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}

	req := make([]byte, packetSize)
	req[0] = 0x1B // LI=0, VN=3, Mode=3 (client)
	if _, err := conn.Write(req); err != nil {
		return 0, fmt.Errorf("writing request to %s: %w", server, err)
	}

	resp := make([]byte, packetSize)
	n, err := conn.Read(resp)
	if err != nil {
		return 0, fmt.Errorf("reading response from %s: %w", server, err)
	}
	if n < packetSize {
		return 0, fmt.Errorf("short response from %s: %d bytes", server, n)
	}

	received := time.Now()
	serverTime := decodeTimestamp(resp[40:48])
	return received.Sub(serverTime), nil
}

// decodeTimestamp parses a 64-bit NTP timestamp (32-bit seconds since the
// NTP epoch, 32-bit fraction) into a time.Time.
func decodeTimestamp(b []byte) time.Time {
	seconds := binary.BigEndian.Uint32(b[0:4])
	fraction := binary.BigEndian.Uint32(b[4:8])
	nsec := (int64(fraction) * 1e9) >> 32
	return time.Unix(int64(seconds)-epochOffset, nsec).UTC()
}
