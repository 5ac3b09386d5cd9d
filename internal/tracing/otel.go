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
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Provider wraps the OpenTelemetry SDK for one collector invocation. A
// single Provider covers every workflow run discovered in that invocation;
// each run opens its own trace via StartRun.
type Provider struct {
	tp      *sdktrace.TracerProvider
	tracer  trace.Tracer
	metrics *MetricsCollector
	enabled bool
}

// NewProvider builds a Provider from cfg. When cfg.Enabled is false the
// returned Provider is a no-op: StartRun/StartStep still work but produce
// spans that are never exported, so callers do not need to branch on
// whether tracing is on.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))
		return &Provider{
			tp:      tp,
			tracer:  tp.Tracer(cfg.ServiceName),
			metrics: newMetricsCollector(),
			enabled: false,
		}, nil
	}

	out := cfg.Output
	if out == nil {
		out = io.Discard
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, fmt.Errorf("building stdouttrace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{
		tp:      tp,
		tracer:  tp.Tracer(cfg.ServiceName),
		metrics: newMetricsCollector(),
		enabled: true,
	}, nil
}

// Shutdown flushes pending spans and releases resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

// Metrics returns the provider's in-process metrics collector.
func (p *Provider) Metrics() *MetricsCollector {
	return p.metrics
}

// StartRun opens the root span for one workflow run.
func (p *Provider) StartRun(ctx context.Context, runID, workflowTitle string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("workflow", workflowTitle),
	))
}

// StartStep opens a span for one workflow step execution.
func (p *Provider) StartStep(ctx context.Context, stepID, actionName string, parallel bool) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "workflow.step", trace.WithAttributes(
		attribute.String("step_id", stepID),
		attribute.String("action", actionName),
		attribute.Bool("parallel", parallel),
	))
}

// EndStep closes a step span with its outcome status.
func EndStep(span trace.Span, status string, exitCode int, err error) {
	span.SetAttributes(
		attribute.String("status", status),
		attribute.Int("exit_code", exitCode),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
