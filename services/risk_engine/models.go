// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package risk_engine computes quantitative risk scores for security
// incident cases.
//
// The pipeline combines analyzer verdicts (likelihood of compromise) with
// asset or exposure value (impact) into a single scalar: Annualized Loss
// Expectancy in dollars for business cases, or a 0-100 recovery-difficulty
// score for consumer identity-theft cases. Everything flows through the
// CaseRiskAssessment aggregate:
//
//	Observable -> AnalyzerResult -> ObservableRisk -> RiskScore
package risk_engine

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the categorical outcome of classification.
type RiskLevel string

const (
	RiskInfo     RiskLevel = "Info"
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Profile selects the scoring mode: business asset valuation (b2b) or
// consumer identity-theft severity (consumer). The two profiles drive
// different impact tables, classification thresholds, and report layouts.
type Profile string

const (
	ProfileB2B      Profile = "b2b"
	ProfileConsumer Profile = "consumer"
)

// NormalizeProfile maps free-form input to a Profile. Anything that is not
// "consumer" (case-insensitive) is treated as b2b, the default mode.
func NormalizeProfile(s string) Profile {
	if strings.EqualFold(strings.TrimSpace(s), string(ProfileConsumer)) {
		return ProfileConsumer
	}
	return ProfileB2B
}

// Observable is a single indicator extracted from a case: an IP, domain,
// hash, URL, or email. Immutable once fetched.
type Observable struct {
	ID       string
	DataType string // e.g. "ip", "domain", "hash", "url", "mail"
	Value    string // e.g. "203.0.113.42"
	TLP      int    // Traffic Light Protocol marking (0-4)
	Tags     []string
}

// AnalyzerResult is one analyzer verdict for one observable. The taxonomy
// fields (Namespace, Predicate, RawValue) are carried for reporting only;
// scoring reads Level and AnalyzerName.
type AnalyzerResult struct {
	AnalyzerName string  // e.g. "VirusTotal_GetReport_3_1"
	Level        string  // "malicious" | "suspicious" | "safe" | "info"
	Score        float64 // numeric score if the analyzer provides one
	Namespace    string  // taxonomy namespace (e.g. "VT")
	Predicate    string  // taxonomy predicate (e.g. "Score")
	RawValue     string  // original taxonomy value string
}

// ObservableRisk pairs an observable with its analyzer results and the
// computed likelihood. Likelihood defaults to 0 and is set exactly once
// per scoring pass; it is always a deterministic function of the results,
// so rescoring with unchanged inputs is idempotent.
type ObservableRisk struct {
	Observable      Observable
	AnalyzerResults []AnalyzerResult
	Likelihood      float64 // 0.0 - 1.0
}

// RiskScore is the immutable outcome of one scoring pass.
type RiskScore struct {
	Likelihood float64   // 0.0 - 1.0, aggregate across observables, 4dp
	Impact     float64   // dollars (b2b) or severity points (consumer), 2dp
	Composite  float64   // Likelihood x Impact: ALE or recovery difficulty, 2dp
	Level      RiskLevel // classification of Composite
}

// CaseSummary is the case metadata returned by the case source.
type CaseSummary struct {
	ID       string
	Title    string
	Severity int // ticketing-system severity 1-4
	Tags     []string
}

// CaseAttributes are the typed, validated scoring attributes of a case,
// parsed once from tags at assessment construction. This replaces repeated
// ad-hoc tag scanning: after construction nothing in the scoring path ever
// touches the raw tag list again.
type CaseAttributes struct {
	Profile      Profile
	AssetType    string // b2b: asset tier, lowercase
	Sensitivity  string // b2b: data sensitivity, lowercase
	ExposureType string // consumer: exposure category, lowercase
}

// AttributeOverrides carries CLI-provided attribute values. A non-empty
// field wins over both case tags and defaults.
type AttributeOverrides struct {
	Profile      string
	AssetType    string
	Sensitivity  string
	ExposureType string
}

// Tag prefixes for the prefix:value attribute convention.
const (
	tagPrefixProfile     = "profile:"
	tagPrefixAsset       = "asset:"
	tagPrefixSensitivity = "sensitivity:"
	tagPrefixExposure    = "exposure:"
)

// ParseCaseAttributes resolves the scoring attributes for a case from, in
// order of precedence: explicit overrides, case tags (first prefix match
// wins, case-insensitive), then configured defaults. It never fails;
// malformed or missing tags simply fall through to the defaults.
func ParseCaseAttributes(cfg *ScoringConfig, tags []string, ov AttributeOverrides) CaseAttributes {
	profileRaw := ov.Profile
	if profileRaw == "" {
		profileRaw = extractTag(tags, tagPrefixProfile, string(ProfileB2B))
	}

	attrs := CaseAttributes{Profile: NormalizeProfile(profileRaw)}

	if attrs.Profile == ProfileConsumer {
		exposure := ov.ExposureType
		if exposure == "" {
			exposure = extractTag(tags, tagPrefixExposure, cfg.DefaultExposureType)
		}
		attrs.ExposureType = strings.ToLower(exposure)
		return attrs
	}

	asset := ov.AssetType
	if asset == "" {
		asset = extractTag(tags, tagPrefixAsset, cfg.DefaultAssetType)
	}
	sensitivity := ov.Sensitivity
	if sensitivity == "" {
		sensitivity = extractTag(tags, tagPrefixSensitivity, cfg.DefaultSensitivity)
	}
	attrs.AssetType = strings.ToLower(asset)
	attrs.Sensitivity = strings.ToLower(sensitivity)
	return attrs
}

// extractTag pulls a value from a tag list by prefix
// (e.g. "asset:server" -> "server"). First match wins.
func extractTag(tags []string, prefix, def string) string {
	for _, tag := range tags {
		if len(tag) >= len(prefix) && strings.EqualFold(tag[:len(prefix)], prefix) {
			return tag[len(prefix):]
		}
	}
	return def
}

// CaseRiskAssessment is the aggregate root for one case's scoring run.
//
// Lifecycle: constructed after fetching case, observables, and verdicts;
// mutated exactly once when scored (Risk transitions nil -> value, each
// ObservableRisk.Likelihood transitions default -> computed); never
// mutated again. An unscored assessment (Risk == nil) is a valid,
// observable state. Scoring is safely re-runnable on the same inputs.
type CaseRiskAssessment struct {
	AssessmentID string // unique per scoring run
	CaseID       string
	Title        string
	Severity     int
	Attributes   CaseAttributes
	Observables  []*ObservableRisk
	Risk         *RiskScore // nil until scored
	Timestamp    time.Time
}

// NewAssessment constructs an unscored assessment for a case.
func NewAssessment(caseID, title string, severity int, attrs CaseAttributes, observables []*ObservableRisk) *CaseRiskAssessment {
	return &CaseRiskAssessment{
		AssessmentID: uuid.NewString(),
		CaseID:       caseID,
		Title:        title,
		Severity:     severity,
		Attributes:   attrs,
		Observables:  observables,
		Timestamp:    time.Now().UTC(),
	}
}

// Scored reports whether the assessment has a risk score attached.
func (a *CaseRiskAssessment) Scored() bool {
	return a.Risk != nil
}
