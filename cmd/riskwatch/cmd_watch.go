// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arcticsec/riskwatch/pkg/ux"
	"github.com/arcticsec/riskwatch/services/risk_engine"
)

// runWatchCommand starts the continuous polling loop. SIGINT/SIGTERM
// shut it down cleanly.
func runWatchCommand(cmd *cobra.Command, args []string) error {
	if watchInterval > 0 {
		cfg.Watch.IntervalSeconds = watchInterval
	}

	hive, _ := buildClients(cfg)
	pipeline := buildPipeline(cfg)

	rebuild := func(c *risk_engine.Config) *risk_engine.Pipeline {
		return buildPipeline(c)
	}
	watcher := risk_engine.NewWatcher(hive, pipeline, cfg.Watch, configPath, rebuild, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watchOnce {
		ux.Info("Running a single poll cycle")
		watcher.PollOnce(ctx)
		return nil
	}

	ux.Title("riskwatch watch mode")
	ux.Info(fmt.Sprintf("Polling every %ds, up to %d cases in parallel", cfg.Watch.IntervalSeconds, cfg.Watch.MaxConcurrent))
	if cfg.Watch.MetricsAddr != "" {
		ux.Info(fmt.Sprintf("Metrics on http://%s/metrics", cfg.Watch.MetricsAddr))
	}

	if err := watcher.Run(ctx); err != nil {
		return fmt.Errorf("watch mode: %w", err)
	}
	ux.Success("Watcher stopped cleanly.")
	return nil
}
