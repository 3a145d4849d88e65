// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package risk_engine

import (
	"context"
	"fmt"

	"github.com/arcticsec/riskwatch/pkg/logging"
)

// CaseSource is the case-management backend (TheHive in production,
// mocks in tests). All methods are expected to be safe for concurrent
// use.
type CaseSource interface {
	GetCase(ctx context.Context, caseID string) (CaseSummary, error)
	ListOpenCases(ctx context.Context, excludeTag string) ([]CaseSummary, error)
	GetObservables(ctx context.Context, caseID string) ([]Observable, error)
	AddCaseTag(ctx context.Context, caseID, tag string) error
	FindOrCreateRiskTask(ctx context.Context, caseID string) (string, error)
	AddTaskLog(ctx context.Context, taskID, message string) error
}

// EnrichmentSource supplies analyzer verdicts for observables (Cortex in
// production, mocks in tests).
type EnrichmentSource interface {
	GetAnalyzerResults(ctx context.Context, obs Observable) ([]AnalyzerResult, error)
}

// ProcessOptions tune a single pipeline run.
type ProcessOptions struct {
	// Overrides force case attributes regardless of tags.
	Overrides AttributeOverrides

	// DryRun skips all write-backs: no task log, no scored tag. The
	// assessment and report are still produced.
	DryRun bool
}

// Pipeline wires the case source, the enrichment source, and the scoring
// engine into one case-processing flow.
type Pipeline struct {
	cases      CaseSource
	enrichment EnrichmentSource
	engine     *Engine
	scoredTag  string
	log        *logging.Logger
}

// NewPipeline builds a pipeline. A nil logger falls back to the package
// default.
func NewPipeline(cases CaseSource, enrichment EnrichmentSource, engine *Engine, scoredTag string, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Default()
	}
	return &Pipeline{
		cases:      cases,
		enrichment: enrichment,
		engine:     engine,
		scoredTag:  scoredTag,
		log:        log,
	}
}

// ProcessCase runs the full scoring flow for one case: fetch the case and
// its observables, collect analyzer verdicts, score, render the report,
// and write the report and scored tag back to the case.
//
// Enrichment failures are isolated per observable: an observable whose
// verdicts cannot be fetched scores as if it had no results, and the rest
// of the case still processes. Fetch and write-back failures abort the
// run.
func (p *Pipeline) ProcessCase(ctx context.Context, caseID string, opts ProcessOptions) (*CaseRiskAssessment, string, error) {
	summary, err := p.cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, "", fmt.Errorf("fetching case %s: %w", caseID, err)
	}

	attrs := ParseCaseAttributes(&p.engine.cfg, summary.Tags, opts.Overrides)

	observables, err := p.cases.GetObservables(ctx, summary.ID)
	if err != nil {
		return nil, "", fmt.Errorf("fetching observables for case %s: %w", caseID, err)
	}

	risks := make([]*ObservableRisk, 0, len(observables))
	for _, obs := range observables {
		results, err := p.enrichment.GetAnalyzerResults(ctx, obs)
		if err != nil {
			p.log.Warn("enrichment failed, scoring observable without verdicts",
				"case_id", summary.ID, "observable", obs.Value, "error", err)
			results = nil
		}
		risks = append(risks, &ObservableRisk{Observable: obs, AnalyzerResults: results})
	}

	assessment := NewAssessment(summary.ID, summary.Title, summary.Severity, attrs, risks)
	p.engine.ScoreCase(assessment)

	report, err := GenerateReport(assessment)
	if err != nil {
		return nil, "", fmt.Errorf("rendering report for case %s: %w", caseID, err)
	}

	if opts.DryRun {
		p.log.Info("dry run, skipping write-back", "case_id", summary.ID)
		return assessment, report, nil
	}

	taskID, err := p.cases.FindOrCreateRiskTask(ctx, summary.ID)
	if err != nil {
		return nil, "", fmt.Errorf("preparing risk task for case %s: %w", caseID, err)
	}
	if err := p.cases.AddTaskLog(ctx, taskID, report); err != nil {
		return nil, "", fmt.Errorf("posting report for case %s: %w", caseID, err)
	}
	if err := p.cases.AddCaseTag(ctx, summary.ID, p.scoredTag); err != nil {
		return nil, "", fmt.Errorf("tagging case %s as scored: %w", caseID, err)
	}

	p.log.Info("case processed",
		"case_id", summary.ID,
		"risk_level", string(assessment.Risk.Level),
		"composite", assessment.Risk.Composite,
	)
	return assessment, report, nil
}
