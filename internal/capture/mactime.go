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

package capture

import "time"

// MACTimes holds a source file's modified/accessed/created timestamps,
// read before the file is opened for copying so the capture itself
// never disturbs the access time being recorded.
type MACTimes struct {
	Modified time.Time
	Accessed time.Time
	Created  time.Time
}
