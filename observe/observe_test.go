package observe

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestConfig_Validate tests configuration validation rules.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "valid minimal",
			cfg:  Config{ServiceName: "packcache"},
		},
		{
			name: "invalid tracing exporter",
			cfg: Config{
				ServiceName: "packcache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "zipkin"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct out of range",
			cfg: Config{
				ServiceName: "packcache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "invalid metrics exporter",
			cfg: Config{
				ServiceName: "packcache",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "invalid log level",
			cfg: Config{
				ServiceName: "packcache",
				Logging:     LoggingConfig{Enabled: true, Level: "trace"},
			},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "valid full",
			cfg: Config{
				ServiceName: "packcache",
				Version:     "1.0.0",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
				Logging:     LoggingConfig{Enabled: true, Level: "verbose"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestNewObserver_Disabled tests that a disabled config yields working no-ops.
func TestNewObserver_Disabled(t *testing.T) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{ServiceName: "packcache"})
	if err != nil {
		t.Fatalf("NewObserver() = %v, want nil", err)
	}

	if obs.Tracer() == nil {
		t.Error("Tracer() = nil")
	}
	if obs.Meter() == nil {
		t.Error("Meter() = nil")
	}
	if obs.Logger() == nil {
		t.Error("Logger() = nil")
	}
	if obs.Metrics() == nil {
		t.Error("Metrics() = nil")
	}

	// No-op components must accept calls without panicking.
	obs.Logger().Warning(ctx, "ignored")
	obs.Metrics().RecordLookup(ctx, "pack", true, time.Millisecond)
	obs.Metrics().RecordStore(ctx, "instant", time.Millisecond, errors.New("x"))
	obs.Metrics().RecordEviction(ctx, 2)
	obs.Metrics().RecordQuarantine(ctx)

	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
	// Shutdown is idempotent.
	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() = %v, want nil", err)
	}
}

// TestNopObserver tests the package-level no-op constructor.
func TestNopObserver(t *testing.T) {
	obs := NopObserver()
	ctx := context.Background()

	obs.Metrics().RecordDrainSlice(ctx, 10, time.Millisecond)
	obs.Logger().Debug(ctx, "dropped")
	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}

// TestOpMeta_SpanName tests deterministic span naming.
func TestOpMeta_SpanName(t *testing.T) {
	meta := OpMeta{Op: "lookup", Identifier: "a", Mode: "pack"}
	if got := meta.SpanName(); got != "cache.lookup" {
		t.Errorf("SpanName() = %q, want %q", got, "cache.lookup")
	}
}

// TestTracer_StartEndSpan tests span lifecycle with and without errors.
func TestTracer_StartEndSpan(t *testing.T) {
	tracer := NewNoopTracer()
	ctx := context.Background()

	spanCtx, span := tracer.StartSpan(ctx, OpMeta{Op: "store"})
	if spanCtx == nil || span == nil {
		t.Fatal("StartSpan returned nil context or span")
	}
	tracer.EndSpan(span, nil)

	_, span = tracer.StartSpan(ctx, OpMeta{Op: "persist"})
	tracer.EndSpan(span, errors.New("disk full"))
}
