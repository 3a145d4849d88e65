// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcticsec/riskwatch/pkg/logging"
	"github.com/arcticsec/riskwatch/services/risk_engine"
)

var (
	cfg *risk_engine.Config
	log *logging.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		log = logging.New(logging.Config{
			Level:   level,
			LogDir:  logDir,
			Service: "riskwatch",
			Quiet:   quiet,
		})

		var err error
		cfg, err = risk_engine.LoadConfig(configPath)
		if err != nil {
			return err
		}
		log.Debug("configuration loaded", "path", configPath)
		return nil
	}
}
