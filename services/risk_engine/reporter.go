// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package risk_engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNotScored is returned when a report is requested for an assessment
// that has no risk score yet. Unscored is a valid state, not a crash.
var ErrNotScored = errors.New("case has not been scored yet")

// levelIndicator returns a text marker for a risk level, safe for markdown.
func levelIndicator(level RiskLevel) string {
	switch level {
	case RiskCritical:
		return "[!!!]"
	case RiskHigh:
		return "[!!]"
	case RiskMedium:
		return "[!]"
	case RiskLow:
		return "[-]"
	case RiskInfo:
		return "[i]"
	default:
		return ""
	}
}

// verdictSummary builds a one-line count summary of analyzer verdicts for
// an observable, e.g. "2 malicious, 1 info". Levels are sorted so the
// output is stable.
func verdictSummary(obs *ObservableRisk) string {
	if len(obs.AnalyzerResults) == 0 {
		return "No analyzer results"
	}
	counts := make(map[string]int)
	for _, r := range obs.AnalyzerResults {
		counts[r.Level]++
	}
	levels := make([]string, 0, len(counts))
	for level := range counts {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		parts = append(parts, fmt.Sprintf("%d %s", counts[level], level))
	}
	return strings.Join(parts, ", ")
}

// businessRecommendations lists SOC actions for B2B cases by risk level.
func businessRecommendations(level RiskLevel) []string {
	switch level {
	case RiskCritical:
		return []string{
			"Escalate to incident commander immediately",
			"Isolate affected assets from the network",
			"Begin forensic evidence preservation",
			"Notify executive leadership and legal counsel",
			"Activate incident response plan",
		}
	case RiskHigh:
		return []string{
			"Escalate to senior SOC analyst",
			"Restrict access to affected assets",
			"Run full endpoint scan on associated hosts",
			"Review related cases for lateral movement indicators",
		}
	case RiskMedium:
		return []string{
			"Assign to SOC analyst for investigation",
			"Run additional analyzers for enrichment",
			"Monitor associated assets for 48 hours",
		}
	case RiskLow:
		return []string{
			"Document findings for trend analysis",
			"Schedule routine review within 7 days",
		}
	case RiskInfo:
		return []string{
			"No immediate action required",
			"Log for baseline and reporting purposes",
		}
	default:
		return []string{"Review case manually"}
	}
}

// consumerRecommendations lists identity-theft recovery actions for B2C
// cases by severity level.
func consumerRecommendations(level RiskLevel) []string {
	switch level {
	case RiskCritical:
		return []string{
			"Freeze credit at all three bureaus (Equifax, Experian, TransUnion)",
			"File an identity theft report at IdentityTheft.gov (FTC)",
			"File a police report with local law enforcement",
			"Contact the IRS Identity Protection Specialized Unit",
			"Notify health insurance provider of potential medical identity theft",
			"Place extended fraud alert (7 years) with credit bureaus",
		}
	case RiskHigh:
		return []string{
			"Freeze credit at all three bureaus immediately",
			"Place fraud alerts with all three credit bureaus",
			"Change all financial account passwords and enable MFA",
			"Monitor bank and credit card statements daily for 90 days",
			"Consider enrolling in an identity theft protection service",
		}
	case RiskMedium:
		return []string{
			"Place an initial fraud alert (1 year) with credit bureaus",
			"Change compromised account passwords immediately",
			"Enable multi-factor authentication on all accounts",
			"Review credit reports at AnnualCreditReport.com",
			"Monitor accounts weekly for 60 days",
		}
	case RiskLow:
		return []string{
			"Change the compromised password immediately",
			"Enable multi-factor authentication on the affected account",
			"Monitor the account for suspicious activity",
			"Check haveibeenpwned.com for additional exposures",
		}
	case RiskInfo:
		return []string{
			"No immediate action required",
			"Monitor with free annual credit report",
			"Consider enabling MFA on sensitive accounts as a precaution",
		}
	default:
		return []string{"Consult with a senior analyst"}
	}
}

// GenerateReport builds the full markdown risk report for an assessment.
//
// B2B cases get an ALE report with dollar values; consumer cases get a
// Recovery Difficulty report with identity-theft recovery actions. An
// unscored assessment returns ErrNotScored.
func GenerateReport(a *CaseRiskAssessment) (string, error) {
	risk := a.Risk
	if risk == nil {
		return "", ErrNotScored
	}

	isConsumer := a.Attributes.Profile == ProfileConsumer
	indicator := levelIndicator(risk.Level)

	var b strings.Builder
	w := func(lines ...string) {
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	// Header
	reportTitle := "Risk"
	profileLabel := "Business (B2B)"
	if isConsumer {
		reportTitle = "Consumer Identity-Theft"
		profileLabel = "Consumer (B2C)"
	}
	w(
		fmt.Sprintf("# %s Assessment Report", reportTitle),
		"",
		fmt.Sprintf("**Case:** %s (`%s`)", a.Title, a.CaseID),
		fmt.Sprintf("**Assessed:** %s", a.Timestamp.Format(time.RFC3339)),
		fmt.Sprintf("**Profile:** %s", profileLabel),
		"",
		"---",
		"",
		"## Executive Summary",
		"",
	)

	if isConsumer {
		w(fmt.Sprintf(
			"%s This case has a **%s** severity level with a recovery difficulty score of **%.1f / 100**.",
			indicator, risk.Level, risk.Composite,
		))
	} else {
		w(fmt.Sprintf(
			"%s This case has a **%s** risk level with an estimated annual loss exposure of **$%s**.",
			indicator, risk.Level, FormatDollars(risk.Composite),
		))
	}

	w("", "---", "", "## Risk Calculation", "")

	// Scoring table
	w(
		"| Metric | Value |",
		"|--------|-------|",
		fmt.Sprintf("| Likelihood | %.2f%% |", risk.Likelihood*100),
	)
	if isConsumer {
		w(
			fmt.Sprintf("| Exposure Type | %s |", a.Attributes.ExposureType),
			fmt.Sprintf("| Exposure Severity | %.0f / 100 |", risk.Impact),
			fmt.Sprintf("| **Recovery Difficulty** | **%.1f / 100** |", risk.Composite),
			fmt.Sprintf("| **Severity Level** | **%s** |", risk.Level),
			"",
			"> *Recovery Difficulty = Likelihood x Exposure Severity*",
			"",
		)
	} else {
		w(
			fmt.Sprintf("| Asset Type | %s |", a.Attributes.AssetType),
			fmt.Sprintf("| Sensitivity | %s |", a.Attributes.Sensitivity),
			fmt.Sprintf("| Impact (SLE) | $%s |", FormatDollars(risk.Impact)),
			fmt.Sprintf("| **ALE (Annualized Loss)** | **$%s** |", FormatDollars(risk.Composite)),
			fmt.Sprintf("| **Risk Level** | **%s** |", risk.Level),
			"",
			"> *ALE = Likelihood x Impact (Single Loss Expectancy)*",
			"",
		)
	}

	// Observable breakdown
	if len(a.Observables) > 0 {
		w(
			"---",
			"",
			"## Observable Breakdown",
			"",
			"| Observable | Type | Likelihood | Verdicts |",
			"|------------|------|------------|----------|",
		)
		for _, obs := range a.Observables {
			w(fmt.Sprintf("| `%s` | %s | %.2f%% | %s |",
				obs.Observable.Value,
				obs.Observable.DataType,
				obs.Likelihood*100,
				verdictSummary(obs),
			))
		}
		w("")

		w("### Detailed Analyzer Results", "")
		for _, obs := range a.Observables {
			if len(obs.AnalyzerResults) == 0 {
				continue
			}
			w(
				fmt.Sprintf("**`%s`** (%s)", obs.Observable.Value, obs.Observable.DataType),
				"",
				"| Analyzer | Verdict | Score | Detail |",
				"|----------|---------|-------|--------|",
			)
			for _, r := range obs.AnalyzerResults {
				w(fmt.Sprintf("| %s | %s | %s | %s:%s |",
					r.AnalyzerName, r.Level, r.RawValue, r.Namespace, r.Predicate,
				))
			}
			w("")
		}
	}

	// Recommendations
	var recs []string
	heading := "## Recommended Actions"
	if isConsumer {
		recs = consumerRecommendations(risk.Level)
		heading = "## Recommended Recovery Actions"
	} else {
		recs = businessRecommendations(risk.Level)
	}
	w("---", "", heading, "")
	for i, rec := range recs {
		w(fmt.Sprintf("%d. %s", i+1, rec))
	}
	w(
		"",
		"---",
		"*Report generated by riskwatch*",
	)

	return b.String(), nil
}

// FormatDollars renders a dollar amount with thousands separators and two
// decimal places, e.g. 1234567.5 -> "1,234,567.50".
func FormatDollars(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.Index(s, ".")
	intPart, fracPart := s[:dot], s[dot:]

	neg := false
	if strings.HasPrefix(intPart, "-") {
		neg = true
		intPart = intPart[1:]
	}

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := strings.Join(groups, ",") + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
