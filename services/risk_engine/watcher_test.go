// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package risk_engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func watchConfigForTest() WatchConfig {
	return WatchConfig{IntervalSeconds: 1, MaxConcurrent: 2, MetricsAddr: ""}
}

func TestWatcher_PollOnce_ProcessesAllPending(t *testing.T) {
	cases := &mockCaseSource{
		cases: map[string]CaseSummary{
			"~1": {ID: "~1", Title: "Case one", Severity: 2},
			"~2": {ID: "~2", Title: "Case two", Severity: 2},
			"~3": {ID: "~3", Title: "Case three", Severity: 2},
		},
	}
	p := newTestPipeline(cases, &mockEnrichment{})
	w := NewWatcher(cases, p, watchConfigForTest(), "", nil, nil)

	w.pollOnce(context.Background())

	assert.Len(t, cases.taskLogs, 3)
	assert.Len(t, cases.taggedWith, 3)
}

func TestWatcher_PollOnce_SkipsAlreadyScored(t *testing.T) {
	cases := &mockCaseSource{
		cases: map[string]CaseSummary{
			"~1": {ID: "~1", Title: "Case one", Severity: 2},
		},
	}
	p := newTestPipeline(cases, &mockEnrichment{})
	w := NewWatcher(cases, p, watchConfigForTest(), "", nil, nil)

	// The mock never mutates case tags, so only the in-memory scored set
	// prevents a rescore on the second cycle.
	w.pollOnce(context.Background())
	w.pollOnce(context.Background())

	assert.Len(t, cases.taskLogs, 1)
}

func TestWatcher_PollOnce_FailureIsolated(t *testing.T) {
	cases := &mockCaseSource{
		cases: map[string]CaseSummary{
			"~1": {ID: "~1", Title: "Good case", Severity: 2},
			"~2": {ID: "~2", Title: "Bad case", Severity: 2},
		},
		failFor: map[string]error{"~2": errors.New("hive hiccup")},
	}
	p := newTestPipeline(cases, &mockEnrichment{})
	w := NewWatcher(cases, p, watchConfigForTest(), "", nil, nil)

	w.pollOnce(context.Background())

	// The good case still lands; the bad one stays pending for retry.
	assert.Len(t, cases.taskLogs, 1)
	w.scoredMu.Lock()
	_, retried := w.scored["~2"]
	w.scoredMu.Unlock()
	assert.False(t, retried)
}

func TestWatcher_PollOnce_ListErrorSkipsCycle(t *testing.T) {
	cases := &mockCaseSource{getCaseErr: errors.New("unused")}
	p := newTestPipeline(cases, &mockEnrichment{})
	w := NewWatcher(&listFailSource{}, p, watchConfigForTest(), "", nil, nil)

	assert.NotPanics(t, func() { w.pollOnce(context.Background()) })
}

// listFailSource fails every list call; other methods are never reached.
type listFailSource struct{ mockCaseSource }

func (s *listFailSource) ListOpenCases(context.Context, string) ([]CaseSummary, error) {
	return nil, errors.New("search backend down")
}

func TestWatcher_ReloadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  consensus_boost: 2.0\n"), 0o600))

	cases := &mockCaseSource{}
	original := newTestPipeline(cases, &mockEnrichment{})

	rebuilds := 0
	rebuild := func(cfg *Config) *Pipeline {
		rebuilds++
		engine := NewEngine(cfg.Scoring, nil)
		return NewPipeline(cases, &mockEnrichment{}, engine, cfg.Scoring.ScoredTag, nil)
	}

	w := NewWatcher(cases, original, watchConfigForTest(), path, rebuild, nil)
	w.reloadConfig()

	assert.Equal(t, 1, rebuilds)
	w.mu.RLock()
	swapped := w.pipeline
	w.mu.RUnlock()
	assert.NotSame(t, original, swapped)
	assert.Equal(t, 2.0, swapped.engine.cfg.ConsensusBoost)
}

func TestWatcher_ReloadConfig_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watch:\n  interval_seconds: 0\n"), 0o600))

	cases := &mockCaseSource{}
	original := newTestPipeline(cases, &mockEnrichment{})
	rebuild := func(cfg *Config) *Pipeline { t.Fatal("rebuild called for invalid config"); return nil }

	w := NewWatcher(cases, original, watchConfigForTest(), path, rebuild, nil)
	w.reloadConfig()

	w.mu.RLock()
	kept := w.pipeline
	w.mu.RUnlock()
	assert.Same(t, original, kept)
}

func TestWatcher_Run_StopsOnCancel(t *testing.T) {
	cases := &mockCaseSource{}
	p := newTestPipeline(cases, &mockEnrichment{})
	w := NewWatcher(cases, p, watchConfigForTest(), "", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}
