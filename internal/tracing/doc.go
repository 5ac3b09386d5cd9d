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

// Package tracing provides per-run OpenTelemetry instrumentation for the
// collector. Each workflow run opens one trace; each step is a span
// carrying its status and duration. There is no collector endpoint to push
// to in the field, so the only configured exporter writes spans to a local
// writer in the stdouttrace wire format.
package tracing
