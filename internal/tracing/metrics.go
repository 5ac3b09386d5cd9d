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

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// MetricsCollector accumulates run-scoped counters through the otel/metric
// API. There is no remote collector to scrape in the field, so readings are
// pulled locally at the end of a run (via Snapshot) and folded into the
// console summary rather than exported over the wire.
type MetricsCollector struct {
	reader       *sdkmetric.ManualReader
	provider     *sdkmetric.MeterProvider
	actionsTotal metric.Int64Counter
	bytesStored  metric.Int64Counter
	skipsTotal   metric.Int64Counter
}

func newMetricsCollector() *MetricsCollector {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("casefile-collector")

	actionsTotal, _ := meter.Int64Counter("actions_total",
		metric.WithDescription("actions executed across all workflow runs"))
	bytesStored, _ := meter.Int64Counter("bytes_stored_total",
		metric.WithDescription("bytes written to store_files across all workflow runs"))
	skipsTotal, _ := meter.Int64Counter("capture_skips_total",
		metric.WithDescription("per-file capture skips (size limit or I/O error)"))

	return &MetricsCollector{
		reader:       reader,
		provider:     provider,
		actionsTotal: actionsTotal,
		bytesStored:  bytesStored,
		skipsTotal:   skipsTotal,
	}
}

// RecordAction increments the action counter for the given outcome status.
func (m *MetricsCollector) RecordAction(ctx context.Context, status string) {
	m.actionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordBytesStored adds n bytes to the running total written to store_files.
func (m *MetricsCollector) RecordBytesStored(ctx context.Context, n int64) {
	m.bytesStored.Add(ctx, n)
}

// RecordSkip increments the capture-skip counter with a reason label.
func (m *MetricsCollector) RecordSkip(ctx context.Context, reason string) {
	m.skipsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// Snapshot pulls the current accumulated metric values for the console
// summary and final log entry.
func (m *MetricsCollector) Snapshot(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var out metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &out); err != nil {
		return metricdata.ResourceMetrics{}, err
	}
	return out, nil
}

// Shutdown releases the underlying meter provider.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
