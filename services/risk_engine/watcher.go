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
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/arcticsec/riskwatch/pkg/logging"
)

// Watcher polls TheHive for open, unscored cases and runs each through
// the pipeline. Cases are processed concurrently up to MaxConcurrent; a
// failing case never stops the poll cycle or its siblings.
type Watcher struct {
	cases      CaseSource
	cfg        WatchConfig
	configPath string
	log        *logging.Logger

	// rebuildPipeline turns a freshly loaded config into a new pipeline.
	// Set when config hot reload is wanted; the watcher swaps pipelines
	// atomically when the file changes.
	rebuildPipeline func(*Config) *Pipeline

	mu       sync.RWMutex
	pipeline *Pipeline

	// scored remembers cases processed this run so a case is not
	// rescored while its scored tag write is still in flight.
	scoredMu sync.Mutex
	scored   map[string]struct{}
}

// NewWatcher builds a watcher around an existing pipeline. configPath and
// rebuild may be zero-valued to disable config hot reload.
func NewWatcher(cases CaseSource, pipeline *Pipeline, cfg WatchConfig, configPath string, rebuild func(*Config) *Pipeline, log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.Default()
	}
	return &Watcher{
		cases:           cases,
		cfg:             cfg,
		configPath:      configPath,
		rebuildPipeline: rebuild,
		log:             log,
		pipeline:        pipeline,
		scored:          make(map[string]struct{}),
	}
}

// Run polls until the context is canceled. The first poll happens
// immediately; later polls follow the configured interval. The metrics
// listener and the config file watcher run for the lifetime of the call.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.cfg.MetricsAddr != "" {
		g.Go(func() error { return w.serveMetrics(ctx) })
	}
	if w.configPath != "" && w.rebuildPipeline != nil {
		g.Go(func() error { return w.watchConfig(ctx) })
	}
	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(w.cfg.IntervalSeconds) * time.Second)
		defer ticker.Stop()

		w.pollOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				w.pollOnce(ctx)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// PollOnce runs a single poll cycle outside of Run. Used by the CLI's
// one-shot mode and by cron-style deployments.
func (w *Watcher) PollOnce(ctx context.Context) {
	w.pollOnce(ctx)
}

// pollOnce runs a single poll cycle: list unscored open cases and process
// them concurrently. Errors are logged and counted, never propagated;
// the next cycle retries whatever is still unscored.
func (w *Watcher) pollOnce(ctx context.Context) {
	pollCyclesTotal.Inc()

	w.mu.RLock()
	pipeline := w.pipeline
	w.mu.RUnlock()

	cases, err := w.cases.ListOpenCases(ctx, pipeline.scoredTag)
	if err != nil {
		w.log.Error("listing open cases failed", "error", err)
		return
	}

	pending := make([]CaseSummary, 0, len(cases))
	w.scoredMu.Lock()
	for _, c := range cases {
		if _, done := w.scored[c.ID]; !done {
			pending = append(pending, c)
		}
	}
	w.scoredMu.Unlock()

	openCasesPending.Set(float64(len(pending)))
	if len(pending) == 0 {
		return
	}
	w.log.Info("processing unscored cases", "count", len(pending))

	var g errgroup.Group
	g.SetLimit(w.cfg.MaxConcurrent)
	for _, c := range pending {
		c := c
		g.Go(func() error {
			w.processOne(ctx, pipeline, c)
			return nil
		})
	}
	g.Wait()
}

// processOne scores a single case, recording metrics and absorbing both
// errors and panics so one bad case cannot take the watcher down.
func (w *Watcher) processOne(ctx context.Context, pipeline *Pipeline, c CaseSummary) {
	defer func() {
		if r := recover(); r != nil {
			caseFailuresTotal.Inc()
			w.log.Error("panic while processing case", "case_id", c.ID, "panic", fmt.Sprint(r))
		}
	}()

	start := time.Now()
	assessment, _, err := pipeline.ProcessCase(ctx, c.ID, ProcessOptions{})
	caseProcessDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		caseFailuresTotal.Inc()
		w.log.Error("case processing failed", "case_id", c.ID, "error", err)
		return
	}

	casesScoredTotal.WithLabelValues(
		string(assessment.Attributes.Profile),
		string(assessment.Risk.Level),
	).Inc()

	w.scoredMu.Lock()
	w.scored[c.ID] = struct{}{}
	w.scoredMu.Unlock()
}

// serveMetrics exposes /metrics and /healthz until the context ends.
func (w *Watcher) serveMetrics(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{Addr: w.cfg.MetricsAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		w.log.Info("metrics listener started", "addr", w.cfg.MetricsAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("metrics listener: %w", err)
	}
}

// watchConfig reloads scoring configuration when the config file changes.
// A reload that fails to parse or validate keeps the running pipeline.
func (w *Watcher) watchConfig(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting config watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory: editors replace files on save, which drops
	// a watch registered on the file itself.
	if err := fw.Add(filepath.Dir(w.configPath)); err != nil {
		return fmt.Errorf("watching config dir: %w", err)
	}
	target := filepath.Clean(w.configPath)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reloadConfig()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reloadConfig() {
	cfg, err := LoadConfig(w.configPath)
	if err != nil {
		w.log.Error("config reload rejected", "path", w.configPath, "error", err)
		return
	}

	w.mu.Lock()
	w.pipeline = w.rebuildPipeline(cfg)
	w.mu.Unlock()
	w.log.Info("configuration reloaded", "path", w.configPath)
}
