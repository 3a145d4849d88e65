// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/arcticsec/riskwatch/services/risk_engine"
	"github.com/arcticsec/riskwatch/services/risk_engine/clients"
)

// buildClients wires the TheHive and Cortex clients from a config.
func buildClients(c *risk_engine.Config) (*clients.TheHiveClient, *clients.CortexClient) {
	hive := clients.NewTheHiveClient(c.TheHive.URL, c.TheHive.APIKey, nil, log)
	cortex := clients.NewCortexClient(c.Cortex.URL, c.Cortex.APIKey, c.Cortex.RateLimit, nil, log)
	return hive, cortex
}

// buildPipeline wires a full scoring pipeline from a config.
func buildPipeline(c *risk_engine.Config) *risk_engine.Pipeline {
	hive, cortex := buildClients(c)
	engine := risk_engine.NewEngine(c.Scoring, log)
	return risk_engine.NewPipeline(hive, cortex, engine, c.Scoring.ScoredTag, log)
}
