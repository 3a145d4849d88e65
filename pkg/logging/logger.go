// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for riskwatch components.
//
// The package wraps Go's standard library slog with multi-destination
// output suited to a CLI that can also run as a long-lived watcher:
//
//   - Default: stderr output in human-readable text (Unix CLI convention)
//   - Optional: file logging with automatic directory creation; file logs
//     are always JSON so they can be shipped to an aggregator
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("case scored", "case_id", caseID, "risk_level", level)
//	logger.Error("enrichment failed", "error", err)
//
// # File Logging
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    LogDir:  "~/.riskwatch/logs", // supports ~ expansion
//	    Service: "watcher",
//	})
//	defer logger.Close()
//
// This creates log files named {service}_{date}.log in JSON format.
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. Callers must
// ensure API keys and case contents are not logged:
//
//	// BAD: logs the credential
//	logger.Info("auth", "api_key", apiKey)
//
//	// GOOD: log metadata only
//	logger.Info("auth", "api_key_present", apiKey != "")
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
// Setting a minimum level filters out all logs below it.
type Level int

const (
	// LevelDebug is for development troubleshooting and verbose tracing.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages (case scored, poll cycle).
	LevelInfo

	// LevelWarn is for recoverable issues (retry, fallback to default).
	LevelWarn

	// LevelError is for operation failures where the process continues.
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel bridges Level to the standard library's slog.Level.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures Logger behavior. A zero-value Config creates a logger
// that writes Info+ messages to stderr in text format.
type Config struct {
	// Level sets the minimum log level. Messages below it are discarded.
	// Default: LevelInfo
	Level Level

	// LogDir enables file logging to the given directory. When set, logs
	// are written to both stderr and a file named "{Service}_{date}.log".
	// The directory is created with 0750 permissions if missing.
	// Supports ~ for home directory expansion.
	// Default: "" (file logging disabled)
	LogDir string

	// Service identifies the component generating logs. It is attached to
	// every entry as the "service" attribute.
	// Recommended values: "cli", "watcher".
	Service string

	// JSON switches stderr output to JSON objects. File logs are always
	// JSON regardless of this setting.
	JSON bool

	// Quiet disables stderr output. Useful when running under a process
	// supervisor that only collects the log file.
	Quiet bool
}

// Logger provides structured logging with multi-destination output.
// It is safe for concurrent use from multiple goroutines.
//
// Always call Close() when file logging is configured so the file handle
// is synced and released:
//
//	logger := logging.New(config)
//	defer logger.Close()
type Logger struct {
	slog   *slog.Logger
	config Config
	file   *os.File
	mu     sync.Mutex
}

// New creates a Logger with the given configuration. Destinations are
// assembled from config: stderr (unless Quiet) plus an optional JSON file.
func New(config Config) *Logger {
	var handlers []slog.Handler

	opts := &slog.HandlerOptions{
		Level: config.Level.toSlogLevel(),
	}

	if !config.Quiet {
		var stderrHandler slog.Handler
		if config.JSON {
			stderrHandler = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			stderrHandler = slog.NewTextHandler(os.Stderr, opts)
		}
		handlers = append(handlers, stderrHandler)
	}

	logger := &Logger{config: config}

	if config.LogDir != "" {
		logDir := expandPath(config.LogDir)
		if err := os.MkdirAll(logDir, 0750); err == nil {
			serviceName := config.Service
			if serviceName == "" {
				serviceName = "riskwatch"
			}
			filename := fmt.Sprintf("%s_%s.log", serviceName, time.Now().Format("2006-01-02"))
			logPath := filepath.Join(logDir, filename)

			file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
			if err == nil {
				logger.file = file
				handlers = append(handlers, slog.NewJSONHandler(file, opts))
			}
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		if config.Quiet {
			handler = slog.NewTextHandler(io.Discard, opts)
		} else {
			handler = slog.NewTextHandler(os.Stderr, opts)
		}
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", config.Service),
		})
	}

	logger.slog = slog.New(handler)
	return logger
}

// Default returns a logger with default settings: Info level, stderr only,
// text format, service "riskwatch".
func Default() *Logger {
	return New(Config{
		Level:   LevelInfo,
		Service: "riskwatch",
	})
}

// Debug logs a message at Debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs a message at Info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a message at Warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs a message at Error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// With returns a new Logger that includes the given attributes in every
// entry. The parent logger is not modified.
//
//	caseLogger := logger.With("case_id", caseID)
//	caseLogger.Info("scoring started") // includes case_id
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
		file:   l.file, // share file handle
	}
}

// Slog returns the underlying slog.Logger for features not exposed by
// this wrapper, such as LogAttrs.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close syncs and closes the log file, if one is open. Safe to call on a
// logger without file logging.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log file: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	l.file = nil
	return nil
}

// multiHandler fans out log records to multiple slog handlers, enabling
// simultaneous text output to stderr and JSON output to a file.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled returns true if any handler is enabled for the level.
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to all enabled handlers.
func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs returns a new handler with additional attributes.
func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

// WithGroup returns a new handler with a group name.
func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
