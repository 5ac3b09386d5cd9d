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

package platform_test

import (
	"testing"
	"time"

	"github.com/tombee/casefile/pkg/platform"
)

func TestRealProbe_OSAndArchAreRecognized(t *testing.T) {
	p := platform.RealProbe{}

	validOS := map[string]bool{platform.Windows: true, platform.Linux: true, platform.MacOS: true}
	if !validOS[p.OS()] {
		t.Errorf("RealProbe.OS() = %q, want one of windows/linux/macos", p.OS())
	}

	// Arch may fall through to the raw GOARCH string on an architecture
	// this package doesn't explicitly normalize; just assert it's non-empty.
	if p.Arch() == "" {
		t.Error("RealProbe.Arch() returned empty string")
	}
}

func TestRealProbe_DeviceNameNeverEmpty(t *testing.T) {
	p := platform.RealProbe{}
	if p.DeviceName() == "" {
		t.Error("RealProbe.DeviceName() returned empty string")
	}
}

func TestFakeProbe_ImplementsProbe(t *testing.T) {
	var _ platform.Probe = platform.FakeProbe{}

	fp := platform.FakeProbe{
		OSValue:         platform.Linux,
		ArchValue:       platform.X86_64,
		ElevatedValue:   true,
		UserHomeValue:   "/home/analyst",
		UserNameValue:   "analyst",
		DeviceNameValue: "HOST-A1",
	}

	if fp.OS() != platform.Linux {
		t.Errorf("OS() = %q, want linux", fp.OS())
	}
	if !fp.IsElevated() {
		t.Error("IsElevated() should be true")
	}
	home, err := fp.UserHome()
	if err != nil || home != "/home/analyst" {
		t.Errorf("UserHome() = (%q, %v), want (/home/analyst, nil)", home, err)
	}
}

func TestFakeClock_Now(t *testing.T) {
	instant := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := platform.FakeClock{Instant: instant}
	if !c.Now().Equal(instant) {
		t.Errorf("FakeClock.Now() = %v, want %v", c.Now(), instant)
	}
}
