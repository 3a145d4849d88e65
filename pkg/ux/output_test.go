// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"strings"
	"testing"
)

func TestRiskLevel_KnownLevels(t *testing.T) {
	for _, level := range []string{"Critical", "High", "Medium", "Low", "Info"} {
		out := RiskLevel(level)
		if !strings.Contains(out, level) {
			t.Errorf("RiskLevel(%q) = %q, expected to contain the level name", level, out)
		}
	}
}

func TestRiskLevel_UnknownLevelUnstyled(t *testing.T) {
	if got := RiskLevel("Bogus"); got != "Bogus" {
		t.Errorf("RiskLevel(unknown) = %q, want passthrough", got)
	}
}

func TestKeyValues_Alignment(t *testing.T) {
	out := KeyValues([][2]string{
		{"Case", "Suspicious Network Activity"},
		{"Risk Level", "High"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, want := range []string{"Case", "Risk Level", "High"} {
		if !strings.Contains(out, want) {
			t.Errorf("KeyValues output missing %q:\n%s", want, out)
		}
	}
}

func TestKeyValues_Empty(t *testing.T) {
	if out := KeyValues(nil); out != "" {
		t.Errorf("KeyValues(nil) = %q, want empty", out)
	}
}

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow, IconBullet} {
		if out := icon.Render(); !strings.Contains(out, string(icon)) {
			t.Errorf("Icon(%q).Render() = %q, expected to contain the glyph", icon, out)
		}
	}
}
