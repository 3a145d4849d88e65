// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package risk_engine

import (
	"math"
	"strings"

	"github.com/arcticsec/riskwatch/pkg/logging"
)

// maliciousLevel is the verdict level counted for the consensus boost.
const maliciousLevel = "malicious"

// Engine performs all scoring math. It holds an immutable ScoringConfig so
// alternate tables can be injected for testing; the methods themselves are
// pure functions with no I/O.
type Engine struct {
	cfg ScoringConfig
	log *logging.Logger
}

// NewEngine creates a scoring engine over the given tables. A nil logger
// falls back to the package default.
func NewEngine(cfg ScoringConfig, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{cfg: cfg, log: log}
}

// ComputeLikelihood turns a set of analyzer verdicts into one likelihood
// score in [0,1].
//
// The base value is the straight arithmetic mean of the per-verdict
// weights, including duplicate or contradictory entries from the same
// analyzer. When at least ConsensusThreshold distinct analyzers agree on a
// malicious verdict, the base is multiplied by ConsensusBoost. The result
// is clamped to [0,1] at both ends so reconfigured weight tables cannot
// push it off the scale.
//
// No verdicts means no evidence: an empty input returns exactly 0.
func (e *Engine) ComputeLikelihood(results []AnalyzerResult) float64 {
	if len(results) == 0 {
		return 0.0
	}

	var sum float64
	for _, r := range results {
		sum += e.cfg.VerdictWeights[r.Level] // unknown levels weigh 0
	}
	likelihood := sum / float64(len(results))

	// Independence = distinct analyzer name, not distinct result.
	maliciousSources := make(map[string]struct{})
	for _, r := range results {
		if r.Level == maliciousLevel {
			maliciousSources[r.AnalyzerName] = struct{}{}
		}
	}
	if len(maliciousSources) >= e.cfg.ConsensusThreshold {
		likelihood *= e.cfg.ConsensusBoost
		e.log.Debug("consensus boost applied",
			"independent_malicious", len(maliciousSources),
			"boost", e.cfg.ConsensusBoost,
		)
	}

	return clamp01(likelihood)
}

// ComputeImpact resolves the impact value for a case's attributes.
//
// Consumer cases look up the exposure type in the severity table (0-100
// scale). Business cases multiply the base asset value by the sensitivity
// multiplier. Every lookup is case-insensitive and falls back to the
// configured default on a miss, so unrecognized input always resolves to a
// safe value rather than an error. The result is always >= 0.
func (e *Engine) ComputeImpact(attrs CaseAttributes) float64 {
	if attrs.Profile == ProfileConsumer {
		weight, ok := e.cfg.ExposureWeights[lower(attrs.ExposureType)]
		if !ok {
			weight = e.cfg.ExposureWeights[e.cfg.DefaultExposureType]
			e.log.Debug("unknown exposure type, using default",
				"exposure_type", attrs.ExposureType,
				"default", e.cfg.DefaultExposureType,
			)
		}
		return weight
	}

	base, ok := e.cfg.AssetValues[lower(attrs.AssetType)]
	if !ok {
		base = e.cfg.DefaultAssetValue
	}
	multiplier, ok := e.cfg.SensitivityMultipliers[lower(attrs.Sensitivity)]
	if !ok {
		multiplier = e.cfg.SensitivityMultipliers[e.cfg.DefaultSensitivity]
	}
	return base * multiplier
}

// ClassifyRisk maps a composite score to a risk level using the profile's
// threshold table: dollar-based for b2b, 0-100 severity for consumer.
//
// Classification is threshold-descending with inclusive lower bounds and
// no upper bound, so a score above Critical is still Critical. Anything
// below Low (including negative inputs) is Info.
func (e *Engine) ClassifyRisk(score float64, profile Profile) RiskLevel {
	thresholds := e.cfg.RiskThresholds
	if profile == ProfileConsumer {
		thresholds = e.cfg.SeverityThresholds
	}

	switch {
	case score >= thresholds.Critical:
		return RiskCritical
	case score >= thresholds.High:
		return RiskHigh
	case score >= thresholds.Medium:
		return RiskMedium
	case score >= thresholds.Low:
		return RiskLow
	default:
		return RiskInfo
	}
}

// ScoreObservable computes and stores the likelihood for one observable.
// Returns the likelihood.
func (e *Engine) ScoreObservable(obs *ObservableRisk) float64 {
	obs.Likelihood = e.ComputeLikelihood(obs.AnalyzerResults)
	return obs.Likelihood
}

// ScoreCase scores an entire case and attaches the RiskScore.
//
// Case-level likelihood is the maximum observable likelihood: a single
// highly malicious indicator is enough to drive the risk of the whole
// case. A case with zero observables scores 0 / Info, which is a valid,
// minimum-risk state rather than an error.
//
// The composite is ALE in dollars for b2b cases and the recovery
// difficulty score for consumer cases. Calling ScoreCase again on
// unchanged inputs produces bit-identical results.
func (e *Engine) ScoreCase(a *CaseRiskAssessment) *RiskScore {
	caseLikelihood := 0.0
	for _, obs := range a.Observables {
		if lh := e.ScoreObservable(obs); lh > caseLikelihood {
			caseLikelihood = lh
		}
	}

	impact := e.ComputeImpact(a.Attributes)
	composite := caseLikelihood * impact

	risk := RiskScore{
		Likelihood: roundTo(caseLikelihood, 4),
		Impact:     roundTo(impact, 2),
		Composite:  roundTo(composite, 2),
		Level:      e.ClassifyRisk(composite, a.Attributes.Profile),
	}
	a.Risk = &risk

	e.log.Info("case scored",
		"case_id", a.CaseID,
		"profile", a.Attributes.Profile,
		"likelihood", risk.Likelihood,
		"impact", risk.Impact,
		"composite", risk.Composite,
		"risk_level", risk.Level,
	)
	return &risk
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0.0), 1.0)
}

// roundTo rounds half away from zero to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// lower normalizes lookup keys; tables are lowercase by construction.
func lower(s string) string {
	return strings.ToLower(s)
}
