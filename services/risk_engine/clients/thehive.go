// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package clients holds the HTTP clients for the TheHive case-management
// API and the Cortex analyzer API. Both clients accept an HTTPClient
// interface so tests can inject mock transports.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arcticsec/riskwatch/pkg/logging"
	"github.com/arcticsec/riskwatch/pkg/validation"
	"github.com/arcticsec/riskwatch/services/risk_engine"
)

// DefaultTimeout bounds every API call when the caller supplies no
// http.Client of its own.
const DefaultTimeout = 30 * time.Second

// riskTaskTitle is the case task under which risk reports are filed.
const riskTaskTitle = "Risk Assessment"

// HTTPClient abstracts the HTTP transport so tests can mock it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TheHiveClient talks to a TheHive instance. Safe for concurrent use.
type TheHiveClient struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	log        *logging.Logger
}

// NewTheHiveClient creates a client for the TheHive API at baseURL.
// Passing a nil httpClient installs a default client with DefaultTimeout.
func NewTheHiveClient(baseURL, apiKey string, httpClient HTTPClient, log *logging.Logger) *TheHiveClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if log == nil {
		log = logging.Default()
	}
	return &TheHiveClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        log,
	}
}

// caseJSON mirrors TheHive's case document.
type caseJSON struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity int      `json:"severity"`
	Status   string   `json:"status"`
	Tags     []string `json:"tags"`
}

// artifactJSON mirrors TheHive's observable (artifact) document.
type artifactJSON struct {
	ID       string   `json:"id"`
	DataType string   `json:"dataType"`
	Data     string   `json:"data"`
	TLP      int      `json:"tlp"`
	Tags     []string `json:"tags"`
}

// taskJSON mirrors TheHive's case task document.
type taskJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (c *TheHiveClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("thehive %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("thehive %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding thehive response: %w", err)
	}
	return nil
}

// GetCase fetches a single case by its TheHive ID.
func (c *TheHiveClient) GetCase(ctx context.Context, caseID string) (risk_engine.CaseSummary, error) {
	if err := validation.ValidateCaseID(caseID); err != nil {
		return risk_engine.CaseSummary{}, err
	}

	var doc caseJSON
	if err := c.do(ctx, http.MethodGet, "/api/case/"+caseID, nil, &doc); err != nil {
		return risk_engine.CaseSummary{}, err
	}
	return risk_engine.CaseSummary{
		ID:       doc.ID,
		Title:    doc.Title,
		Severity: doc.Severity,
		Tags:     doc.Tags,
	}, nil
}

// ListOpenCases returns open cases that do not carry excludeTag. Pass an
// empty excludeTag to list all open cases.
func (c *TheHiveClient) ListOpenCases(ctx context.Context, excludeTag string) ([]risk_engine.CaseSummary, error) {
	clauses := []map[string]any{
		{"_field": "status", "_value": "Open"},
	}
	if excludeTag != "" {
		clauses = append(clauses, map[string]any{
			"_not": map[string]any{"_field": "tags", "_value": excludeTag},
		})
	}
	query := map[string]any{"query": map[string]any{"_and": clauses}}

	var docs []caseJSON
	if err := c.do(ctx, http.MethodPost, "/api/case/_search?range=all", query, &docs); err != nil {
		return nil, err
	}

	cases := make([]risk_engine.CaseSummary, 0, len(docs))
	for _, doc := range docs {
		cases = append(cases, risk_engine.CaseSummary{
			ID:       doc.ID,
			Title:    doc.Title,
			Severity: doc.Severity,
			Tags:     doc.Tags,
		})
	}
	return cases, nil
}

// GetObservables fetches all observables attached to a case.
func (c *TheHiveClient) GetObservables(ctx context.Context, caseID string) ([]risk_engine.Observable, error) {
	if err := validation.ValidateCaseID(caseID); err != nil {
		return nil, err
	}

	query := map[string]any{
		"query": map[string]any{
			"_parent": map[string]any{
				"_type":  "case",
				"_query": map[string]any{"_id": caseID},
			},
		},
	}

	var docs []artifactJSON
	if err := c.do(ctx, http.MethodPost, "/api/case/artifact/_search?range=all", query, &docs); err != nil {
		return nil, err
	}

	observables := make([]risk_engine.Observable, 0, len(docs))
	for _, doc := range docs {
		observables = append(observables, risk_engine.Observable{
			ID:       doc.ID,
			DataType: doc.DataType,
			Value:    doc.Data,
			TLP:      doc.TLP,
			Tags:     doc.Tags,
		})
	}
	return observables, nil
}

// AddCaseTag appends a tag to a case, preserving existing tags. Adding a
// tag the case already carries is a no-op.
func (c *TheHiveClient) AddCaseTag(ctx context.Context, caseID, tag string) error {
	if err := validation.ValidateCaseID(caseID); err != nil {
		return err
	}
	if err := validation.ValidateTag(tag); err != nil {
		return err
	}

	var doc caseJSON
	if err := c.do(ctx, http.MethodGet, "/api/case/"+caseID, nil, &doc); err != nil {
		return err
	}
	for _, existing := range doc.Tags {
		if existing == tag {
			return nil
		}
	}

	patch := map[string]any{"tags": append(doc.Tags, tag)}
	return c.do(ctx, http.MethodPatch, "/api/case/"+caseID, patch, nil)
}

// FindOrCreateRiskTask returns the ID of the case's risk-assessment task,
// creating the task if the case has none yet.
func (c *TheHiveClient) FindOrCreateRiskTask(ctx context.Context, caseID string) (string, error) {
	if err := validation.ValidateCaseID(caseID); err != nil {
		return "", err
	}

	query := map[string]any{
		"query": map[string]any{
			"_and": []map[string]any{
				{"_parent": map[string]any{
					"_type":  "case",
					"_query": map[string]any{"_id": caseID},
				}},
				{"_field": "title", "_value": riskTaskTitle},
			},
		},
	}

	var tasks []taskJSON
	if err := c.do(ctx, http.MethodPost, "/api/case/task/_search?range=all", query, &tasks); err != nil {
		return "", err
	}
	if len(tasks) > 0 {
		return tasks[0].ID, nil
	}

	c.log.Debug("creating risk assessment task", "case_id", caseID)
	var created taskJSON
	body := map[string]any{"title": riskTaskTitle, "status": "InProgress"}
	if err := c.do(ctx, http.MethodPost, "/api/case/"+caseID+"/task", body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// AddTaskLog posts a log entry (the rendered report) to a case task.
func (c *TheHiveClient) AddTaskLog(ctx context.Context, taskID, message string) error {
	if err := validation.ValidateCaseID(taskID); err != nil {
		return err
	}
	body := map[string]any{"message": message}
	return c.do(ctx, http.MethodPost, "/api/case/task/"+taskID+"/log", body, nil)
}

// Status checks connectivity to TheHive. It returns nil when the API
// answers its status endpoint.
func (c *TheHiveClient) Status(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/status", nil, nil)
}
