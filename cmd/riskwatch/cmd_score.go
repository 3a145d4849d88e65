// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcticsec/riskwatch/pkg/ux"
	"github.com/arcticsec/riskwatch/pkg/validation"
	"github.com/arcticsec/riskwatch/services/risk_engine"
)

// runScoreCommand scores one case end to end and prints a summary.
func runScoreCommand(cmd *cobra.Command, args []string) error {
	caseID, err := validation.SanitizeCaseID(scoreCaseID)
	if err != nil {
		return err
	}
	pipeline := buildPipeline(cfg)

	opts := risk_engine.ProcessOptions{
		Overrides: risk_engine.AttributeOverrides{
			Profile:      scoreProfile,
			AssetType:    scoreAsset,
			Sensitivity:  scoreSensitivity,
			ExposureType: scoreExposure,
		},
		DryRun: scoreDryRun,
	}

	assessment, report, err := pipeline.ProcessCase(cmd.Context(), caseID, opts)
	if err != nil {
		return err
	}

	printAssessment(assessment)

	if scoreShowReport {
		fmt.Println()
		fmt.Println(report)
	}
	if scoreDryRun {
		ux.Muted("Dry run: nothing was written back to TheHive.")
	} else {
		ux.Success("Report posted to the case's risk assessment task.")
	}
	return nil
}

func printAssessment(a *risk_engine.CaseRiskAssessment) {
	risk := a.Risk

	ux.Title(fmt.Sprintf("Case %s: %s", a.CaseID, a.Title))

	pairs := [][2]string{
		{"Profile", string(a.Attributes.Profile)},
		{"Likelihood", fmt.Sprintf("%.2f%%", risk.Likelihood*100)},
	}
	if a.Attributes.Profile == risk_engine.ProfileConsumer {
		pairs = append(pairs,
			[2]string{"Exposure", a.Attributes.ExposureType},
			[2]string{"Severity", fmt.Sprintf("%.0f / 100", risk.Impact)},
			[2]string{"Recovery difficulty", fmt.Sprintf("%.1f / 100", risk.Composite)},
		)
	} else {
		pairs = append(pairs,
			[2]string{"Asset", a.Attributes.AssetType},
			[2]string{"Sensitivity", a.Attributes.Sensitivity},
			[2]string{"Impact (SLE)", "$" + risk_engine.FormatDollars(risk.Impact)},
			[2]string{"ALE", "$" + risk_engine.FormatDollars(risk.Composite)},
		)
	}
	pairs = append(pairs, [2]string{"Risk level", ux.RiskLevel(string(risk.Level))})

	ux.Box("", ux.KeyValues(pairs))
}
