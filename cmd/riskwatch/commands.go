// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	logDir     string
	quiet      bool
	verbose    bool

	// score flags
	scoreCaseID      string
	scoreProfile     string
	scoreAsset       string
	scoreSensitivity string
	scoreExposure    string
	scoreDryRun      bool
	scoreShowReport  bool

	// watch flags
	watchInterval int
	watchOnce     bool

	rootCmd = &cobra.Command{
		Use:   "riskwatch",
		Short: "Risk scoring for TheHive cases using Cortex analyzer verdicts",
		Long: `Riskwatch reads open cases from TheHive, collects analyzer verdicts
from Cortex, and computes a composite risk score per case. Business cases
get an annualized loss exposure in dollars; consumer cases get an
identity-theft recovery difficulty score. Reports are written back to the
case as a task log.`,
	}

	scoreCmd = &cobra.Command{
		Use:   "score --case-id ID",
		Short: "Score a single case and write the report back to TheHive",
		Args:  cobra.NoArgs,
		RunE:  runScoreCommand, // Defined in cmd_score.go
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Continuously poll TheHive and score new open cases",
		RunE:  runWatchCommand, // Defined in cmd_watch.go
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to TheHive and Cortex",
		RunE:  runHealthCommand, // Defined in cmd_health.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress console log output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	scoreCmd.Flags().StringVar(&scoreCaseID, "case-id", "", "TheHive case ID to score")
	scoreCmd.Flags().StringVar(&scoreProfile, "profile", "", "Override the case profile (b2b or consumer)")
	scoreCmd.Flags().StringVar(&scoreAsset, "asset-type", "", "Override the affected asset type (b2b)")
	scoreCmd.Flags().StringVar(&scoreSensitivity, "sensitivity", "", "Override the data sensitivity (b2b)")
	scoreCmd.Flags().StringVar(&scoreExposure, "exposure-type", "", "Override the exposure type (consumer)")
	_ = scoreCmd.MarkFlagRequired("case-id")
	scoreCmd.Flags().BoolVar(&scoreDryRun, "dry-run", false, "Compute and print the score without writing back to TheHive")
	scoreCmd.Flags().BoolVar(&scoreShowReport, "report", false, "Print the full markdown report")

	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "Poll interval in seconds (overrides config)")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Run a single poll cycle and exit")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(healthCmd)
}
