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

// Package humanize parses the size and duration grammars used throughout
// workflow documents: decimal byte sizes with B/KB/MB/GB suffixes, and
// durations with s/m/h suffixes (bare numerics default to seconds).
package humanize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	sizeKB int64 = 1000
	sizeMB       = sizeKB * 1000
	sizeGB       = sizeMB * 1000
)

// ParseSize accepts either a bare integer (bytes) or a decimal value
// followed by a B/KB/MB/GB suffix (case-insensitive, decimal multipliers:
// 1 KB = 1000 B). An empty string means unlimited and returns 0, true.
func ParseSize(s string) (bytes int64, unlimited bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true, nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, false, fmt.Errorf("size %q must not be negative", s)
		}
		return n, false, nil
	}

	upper := strings.ToUpper(s)
	var mult int64
	var numPart string
	switch {
	case strings.HasSuffix(upper, "GB"):
		mult, numPart = sizeGB, s[:len(s)-2]
	case strings.HasSuffix(upper, "MB"):
		mult, numPart = sizeMB, s[:len(s)-2]
	case strings.HasSuffix(upper, "KB"):
		mult, numPart = sizeKB, s[:len(s)-2]
	case strings.HasSuffix(upper, "B"):
		mult, numPart = 1, s[:len(s)-1]
	default:
		return 0, false, fmt.Errorf("size %q must be an integer byte count or end in B/KB/MB/GB", s)
	}

	numPart = strings.TrimSpace(numPart)
	val, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, false, fmt.Errorf("size %q has an invalid numeric part %q: %w", s, numPart, err)
	}
	if val < 0 {
		return 0, false, fmt.Errorf("size %q must not be negative", s)
	}

	return int64(val * float64(mult)), false, nil
}

// FormatSize renders n bytes back into the same decimal-unit grammar
// ParseSize accepts, choosing the largest unit that divides evenly.
func FormatSize(n int64) string {
	switch {
	case n != 0 && n%sizeGB == 0:
		return fmt.Sprintf("%dGB", n/sizeGB)
	case n != 0 && n%sizeMB == 0:
		return fmt.Sprintf("%dMB", n/sizeMB)
	case n != 0 && n%sizeKB == 0:
		return fmt.Sprintf("%dKB", n/sizeKB)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// ParseDuration accepts a bare integer (seconds) or a numeric value with an
// s/m/h suffix. An empty string returns 0, meaning "no duration configured".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}

	unit := s[len(s)-1:]
	numPart := strings.TrimSpace(s[:len(s)-1])
	val, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("duration %q has an invalid numeric part %q: %w", s, numPart, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}

	switch unit {
	case "s":
		return time.Duration(val * float64(time.Second)), nil
	case "m":
		return time.Duration(val * float64(time.Minute)), nil
	case "h":
		return time.Duration(val * float64(time.Hour)), nil
	default:
		return 0, fmt.Errorf("duration %q must be bare-numeric seconds or end in s/m/h", s)
	}
}
