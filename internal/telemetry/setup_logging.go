// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package telemetry configures structured logging, tracing and metrics for
// the server and the batch pipeline.
package telemetry

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Cloud Logging special payload fields.
const (
	traceKey        = "logging.googleapis.com/trace"
	spanKey         = "logging.googleapis.com/spanId"
	traceSampledKey = "logging.googleapis.com/trace_sampled"
)

// LogOptions controls where and how much is logged.
type LogOptions struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string
	// File receives a copy of every record when set; it is truncated on start.
	File string
	// Component is attached to every record, e.g. "server" or "pipeline".
	Component string
}

// spanContextHandler adds the trace and span of the active span so Cloud
// Logging can correlate records with Cloud Trace.
type spanContextHandler struct {
	slog.Handler
}

func (h *spanContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.Any(traceKey, s.TraceID()),
			slog.Any(spanKey, s.SpanID()),
			slog.Bool(traceSampledKey, s.TraceFlags().IsSampled()),
		)
	}
	return h.Handler.Handle(ctx, record)
}

func (h *spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *spanContextHandler) WithGroup(name string) slog.Handler {
	return &spanContextHandler{Handler: h.Handler.WithGroup(name)}
}

// replacer renames slog keys to the Cloud Logging structured format.
func replacer(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the JSON logger without installing it.
func NewLogger(w io.Writer, opts LogOptions) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(opts.Level),
		ReplaceAttr: replacer,
	})
	logger := slog.New(&spanContextHandler{Handler: handler})
	if opts.Component != "" {
		logger = logger.With("component", opts.Component)
	}
	return logger
}

// SetupLogging installs the JSON logger as the slog default and points the
// standard log package at the same writer. The returned function closes the
// log file, if any.
func SetupLogging(opts LogOptions) (func() error, error) {
	var w io.Writer = os.Stdout
	closer := func() error { return nil }
	if opts.File != "" {
		file, err := os.Create(opts.File)
		if err != nil {
			return closer, err
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file.Close
	}

	log.SetOutput(w)
	log.SetPrefix("[INFO] ")
	log.SetFlags(log.Ldate | log.Ltime)

	slog.SetDefault(NewLogger(w, opts))
	return closer, nil
}
