// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// ticketing-system search queries and URL paths. Using these validators
// prevents query injection and path traversal through crafted case IDs.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// caseIDPattern matches valid TheHive case identifiers.
// Allows: an optional leading tilde (ES-style internal IDs like "~40964296")
// followed by letters, digits, hyphens, and underscores.
// Max length: 64 characters.
var caseIDPattern = regexp.MustCompile(`^~?[A-Za-z0-9][A-Za-z0-9_\-]{0,62}$`)

// tagPattern matches valid case tags used in the prefix:value convention
// (asset:server, sensitivity:confidential, profile:consumer, exposure:ssn).
var tagPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_:\-. ]{0,127}$`)

// ValidateCaseID validates a case identifier before it is interpolated into
// search query bodies or URL paths.
//
// Valid case IDs:
//   - 1-64 characters
//   - Optional leading tilde (TheHive internal IDs)
//   - Letters, digits, hyphens, underscores
//
// Returns an error if the case ID is invalid.
//
// Example:
//
//	if err := validation.ValidateCaseID(caseID); err != nil {
//	    return nil, fmt.Errorf("invalid case id: %w", err)
//	}
//	// Safe to use in a search query
func ValidateCaseID(caseID string) error {
	if caseID == "" {
		return fmt.Errorf("case id cannot be empty")
	}

	if !caseIDPattern.MatchString(caseID) {
		return fmt.Errorf("invalid case id format: %q (must be 1-64 alphanumeric chars, hyphens, or underscores, optional leading ~)", caseID)
	}

	return nil
}

// ValidateTag validates a case tag before it is written back to the
// ticketing system.
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag cannot be empty")
	}

	if !tagPattern.MatchString(tag) {
		return fmt.Errorf("invalid tag format: %q", tag)
	}

	return nil
}

// SanitizeCaseID trims whitespace and validates a case identifier.
// Returns the trimmed case ID if valid, or an error if invalid.
func SanitizeCaseID(caseID string) (string, error) {
	normalized := strings.TrimSpace(caseID)
	if err := ValidateCaseID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
