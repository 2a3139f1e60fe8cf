// Package observability installs the process-wide slog logger, bridged to
// the OpenTelemetry log SDK so records can leave via stdout or OTLP.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const loggerName = "zohocrm"

// Instrument sets the default slog logger. Records below level are dropped
// before export. The returned function flushes and shuts the pipeline down.
//
// The exporter defaults to stdout ("text" pretty-prints, "json" does not);
// setting OTEL_LOGS_EXPORTER=otlp switches to OTLP with the protocol taken
// from OTEL_EXPORTER_OTLP_PROTOCOL (grpc or http/protobuf).
func Instrument(level slog.Level, format string) (func(context.Context) error, error) {
	exporter, err := newExporter(context.Background(), format)
	if err != nil {
		return nil, fmt.Errorf("creating log exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(
			minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level)),
		),
	)

	var loggerProvider otellog.LoggerProvider = provider
	slog.SetDefault(otelslog.NewLogger(loggerName, otelslog.WithLoggerProvider(loggerProvider)))

	return provider.Shutdown, nil
}

func newExporter(ctx context.Context, format string) (sdklog.Exporter, error) {
	if os.Getenv("OTEL_LOGS_EXPORTER") == "otlp" {
		if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" {
			return otlploggrpc.New(ctx)
		}
		return otlploghttp.New(ctx)
	}

	if format == "text" {
		return stdoutlog.New(stdoutlog.WithPrettyPrint())
	}
	return stdoutlog.New()
}

func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
