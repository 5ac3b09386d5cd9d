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

package platform

import "time"

// FakeProbe is a fully-scripted Probe for tests that need to exercise
// every OS/arch/elevation branch without depending on the host the tests
// actually run on.
type FakeProbe struct {
	OSValue         string
	ArchValue       string
	ElevatedValue   bool
	UserHomeValue   string
	UserHomeErr     error
	UserNameValue   string
	DeviceNameValue string
}

func (f FakeProbe) OS() string          { return f.OSValue }
func (f FakeProbe) Arch() string        { return f.ArchValue }
func (f FakeProbe) IsElevated() bool    { return f.ElevatedValue }
func (f FakeProbe) UserName() string    { return f.UserNameValue }
func (f FakeProbe) DeviceName() string  { return f.DeviceNameValue }

func (f FakeProbe) UserHome() (string, error) {
	if f.UserHomeErr != nil {
		return "", f.UserHomeErr
	}
	return f.UserHomeValue, nil
}

// FakeClock returns a fixed instant regardless of when Now is called.
type FakeClock struct {
	Instant time.Time
}

func (c FakeClock) Now() time.Time { return c.Instant }
