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

//go:build linux

package capture

import (
	"os"
	"syscall"
	"time"
)

// readMACTimes reads modified/accessed/created times via the raw
// stat(2) result. Most Linux filesystems (ext4 included) have no true
// file-birth timestamp through stat(2); ctim (last inode-metadata
// change) is recorded as Created in that case, the closest available
// approximation — it still moves whenever the file is first written.
func readMACTimes(path string) (MACTimes, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MACTimes{}, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return MACTimes{Modified: info.ModTime()}, nil
	}
	return MACTimes{
		Modified: info.ModTime(),
		Accessed: time.Unix(stat.Atim.Sec, stat.Atim.Nsec),
		Created:  time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec),
	}, nil
}
