// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo}, // Unknown defaults to Info
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			got := tt.level.toSlogLevel()
			if got != tt.want {
				t.Errorf("Level.toSlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.slog == nil {
		t.Error("logger.slog is nil")
	}
	defer logger.Close()
}

func TestNew_FileLogging(t *testing.T) {
	tmpDir := t.TempDir()

	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  tmpDir,
		Service: "test",
		Quiet:   true,
	})
	logger.Info("case scored", "case_id", "~100", "risk_level", "High")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	filename := "test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(tmpDir, filename))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "case scored") {
		t.Errorf("log file missing message, got: %s", content)
	}
	if !strings.Contains(content, "~100") {
		t.Errorf("log file missing case_id attribute, got: %s", content)
	}
	if !strings.Contains(content, `"service":"test"`) {
		t.Errorf("log file missing service attribute, got: %s", content)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	tmpDir := t.TempDir()

	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  tmpDir,
		Service: "filter",
		Quiet:   true,
	})
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Close()

	filename := "filter_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(tmpDir, filename))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "info message") {
		t.Error("info message should have been filtered at LevelWarn")
	}
	if !strings.Contains(content, "warn message") {
		t.Error("warn message missing")
	}
}

func TestLogger_With(t *testing.T) {
	tmpDir := t.TempDir()

	logger := New(Config{
		LogDir:  tmpDir,
		Service: "with",
		Quiet:   true,
	})
	child := logger.With("case_id", "~42")
	child.Info("scoring started")
	logger.Close()

	filename := "with_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(tmpDir, filename))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "~42") {
		t.Error("child logger attribute missing from output")
	}
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	logger := New(Config{Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on file-less logger error = %v", err)
	}
	// Second close is a no-op
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/logs", filepath.Join(home, "logs")},
		{"/var/log", "/var/log"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
