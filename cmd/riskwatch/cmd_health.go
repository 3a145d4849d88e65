// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arcticsec/riskwatch/pkg/ux"
)

const healthCheckTimeout = 10 * time.Second

// runHealthCommand checks both backends and exits non-zero when either
// is unreachable, so it can gate deployments and cron jobs.
func runHealthCommand(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), healthCheckTimeout)
	defer cancel()

	hive, cortex := buildClients(cfg)

	healthy := true
	if err := hive.Status(ctx); err != nil {
		ux.Error(fmt.Sprintf("TheHive unreachable at %s: %v", cfg.TheHive.URL, err))
		healthy = false
	} else {
		ux.Success(fmt.Sprintf("TheHive reachable at %s", cfg.TheHive.URL))
	}

	if err := cortex.Status(ctx); err != nil {
		ux.Error(fmt.Sprintf("Cortex unreachable at %s: %v", cfg.Cortex.URL, err))
		healthy = false
	} else {
		ux.Success(fmt.Sprintf("Cortex reachable at %s", cfg.Cortex.URL))
	}

	if !healthy {
		return fmt.Errorf("one or more backends are unreachable")
	}
	return nil
}
