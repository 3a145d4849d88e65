// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package risk_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProfile(t *testing.T) {
	tests := []struct {
		in   string
		want Profile
	}{
		{"consumer", ProfileConsumer},
		{"Consumer", ProfileConsumer},
		{"CONSUMER", ProfileConsumer},
		{"b2b", ProfileB2B},
		{"business", ProfileB2B},
		{"", ProfileB2B},
		{"garbage", ProfileB2B},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeProfile(tt.in))
		})
	}
}

func TestParseCaseAttributes(t *testing.T) {
	cfg := &DefaultConfig().Scoring

	tests := []struct {
		name      string
		tags      []string
		overrides AttributeOverrides
		want      CaseAttributes
	}{
		{
			name: "no tags uses business defaults",
			tags: nil,
			want: CaseAttributes{
				Profile:     ProfileB2B,
				AssetType:   "server",
				Sensitivity: "internal",
			},
		},
		{
			name: "business tags set asset and sensitivity",
			tags: []string{"asset:database", "sensitivity:restricted"},
			want: CaseAttributes{
				Profile:     ProfileB2B,
				AssetType:   "database",
				Sensitivity: "restricted",
			},
		},
		{
			name: "consumer profile carries exposure only",
			tags: []string{"profile:consumer", "exposure:ssn", "asset:database"},
			want: CaseAttributes{
				Profile:      ProfileConsumer,
				ExposureType: "ssn",
			},
		},
		{
			name: "consumer without exposure tag uses default",
			tags: []string{"profile:consumer"},
			want: CaseAttributes{
				Profile:      ProfileConsumer,
				ExposureType: "email_only",
			},
		},
		{
			name: "tag prefixes match case-insensitively and values lowercase",
			tags: []string{"ASSET:Workstation", "Sensitivity:PUBLIC"},
			want: CaseAttributes{
				Profile:     ProfileB2B,
				AssetType:   "workstation",
				Sensitivity: "public",
			},
		},
		{
			name: "first matching tag wins",
			tags: []string{"asset:server", "asset:database"},
			want: CaseAttributes{
				Profile:     ProfileB2B,
				AssetType:   "server",
				Sensitivity: "internal",
			},
		},
		{
			name: "unrelated tags are ignored",
			tags: []string{"phishing", "tlp:amber", "src:mail-gateway"},
			want: CaseAttributes{
				Profile:     ProfileB2B,
				AssetType:   "server",
				Sensitivity: "internal",
			},
		},
		{
			name:      "overrides beat tags",
			tags:      []string{"profile:consumer", "asset:workstation", "sensitivity:public"},
			overrides: AttributeOverrides{Profile: "b2b", AssetType: "database", Sensitivity: "restricted"},
			want: CaseAttributes{
				Profile:     ProfileB2B,
				AssetType:   "database",
				Sensitivity: "restricted",
			},
		},
		{
			name:      "exposure override on consumer case",
			tags:      []string{"profile:consumer", "exposure:phone"},
			overrides: AttributeOverrides{ExposureType: "ssn_and_dl"},
			want: CaseAttributes{
				Profile:      ProfileConsumer,
				ExposureType: "ssn_and_dl",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCaseAttributes(cfg, tt.tags, tt.overrides)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewAssessment(t *testing.T) {
	attrs := CaseAttributes{Profile: ProfileB2B, AssetType: "server", Sensitivity: "internal"}

	a := NewAssessment("~123", "Test case", 3, attrs, nil)
	require.NotNil(t, a)

	assert.NotEmpty(t, a.AssessmentID)
	assert.Equal(t, "~123", a.CaseID)
	assert.Equal(t, "Test case", a.Title)
	assert.Equal(t, 3, a.Severity)
	assert.Equal(t, attrs, a.Attributes)
	assert.False(t, a.Timestamp.IsZero())
	assert.False(t, a.Scored())

	// Assessment IDs are unique per assessment.
	b := NewAssessment("~123", "Test case", 3, attrs, nil)
	assert.NotEqual(t, a.AssessmentID, b.AssessmentID)
}
