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

//go:build windows

package action

import "os"

// sendGracefulSignal is a no-op on Windows: os.Process.Signal only
// supports os.Kill and os.Interrupt there, and Interrupt is only
// deliverable to processes that share the parent's console. The
// terminationGrace window still elapses before the hard kill that
// follows in terminateGracefully.
func sendGracefulSignal(p *os.Process) {}
