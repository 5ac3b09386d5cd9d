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

package tracing

import "io"

// Config controls the per-run tracer provider.
type Config struct {
	// Enabled activates span recording. Off by default: the collector must
	// run in constrained field environments where the trace stream is one
	// more artifact to carry, not a baseline expectation.
	Enabled bool

	// ServiceName identifies the collector binary in the emitted spans.
	ServiceName string

	// ServiceVersion is the collector build version.
	ServiceVersion string

	// Output receives the stdouttrace-formatted span stream when Enabled.
	// Typically a file under the report root so the trace travels with
	// the rest of the evidence.
	Output io.Writer
}

// DefaultConfig returns a Config with tracing disabled.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "casefile-collector",
		ServiceVersion: "unknown",
	}
}
