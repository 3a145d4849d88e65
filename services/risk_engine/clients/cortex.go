// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/arcticsec/riskwatch/pkg/logging"
	"github.com/arcticsec/riskwatch/services/risk_engine"
)

// CortexClient talks to a Cortex analyzer instance. Requests are rate
// limited so watch-mode polling cannot hammer the analyzer backend. Safe
// for concurrent use.
type CortexClient struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	limiter    *rate.Limiter
	log        *logging.Logger
}

// NewCortexClient creates a client for the Cortex API at baseURL.
// requestsPerSecond caps the call rate; a nil httpClient installs a
// default client with DefaultTimeout.
func NewCortexClient(baseURL, apiKey string, requestsPerSecond float64, httpClient HTTPClient, log *logging.Logger) *CortexClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if log == nil {
		log = logging.Default()
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &CortexClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		log:        log,
	}
}

// jobJSON mirrors Cortex's job document.
type jobJSON struct {
	ID           string `json:"id"`
	AnalyzerName string `json:"workerName"`
	Status       string `json:"status"`
	DataType     string `json:"dataType"`
	Data         string `json:"data"`
}

// taxonomyJSON is one taxonomy entry from a job report summary.
type taxonomyJSON struct {
	Level     string `json:"level"`
	Namespace string `json:"namespace"`
	Predicate string `json:"predicate"`
	Value     any    `json:"value"`
}

// jobReportJSON mirrors the report payload of a finished Cortex job.
type jobReportJSON struct {
	Report struct {
		Summary struct {
			Taxonomies []taxonomyJSON `json:"taxonomies"`
		} `json:"summary"`
	} `json:"report"`
}

func (c *CortexClient) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("cortex rate limiter: %w", err)
	}

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
		return fmt.Errorf("cortex %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("cortex %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding cortex response: %w", err)
	}
	return nil
}

// GetAnalyzerResults fetches all successful analyzer verdicts for one
// observable. Jobs still running or failed are skipped; a job whose
// report cannot be fetched is logged and skipped rather than failing the
// whole observable.
func (c *CortexClient) GetAnalyzerResults(ctx context.Context, obs risk_engine.Observable) ([]risk_engine.AnalyzerResult, error) {
	query := map[string]any{
		"query": map[string]any{
			"_and": []map[string]any{
				{"_field": "data", "_value": obs.Value},
				{"_field": "dataType", "_value": obs.DataType},
				{"_field": "status", "_value": "Success"},
			},
		},
	}

	var jobs []jobJSON
	if err := c.do(ctx, http.MethodPost, "/api/job/_search?range=all", query, &jobs); err != nil {
		return nil, err
	}

	results := make([]risk_engine.AnalyzerResult, 0, len(jobs))
	for _, job := range jobs {
		var report jobReportJSON
		if err := c.do(ctx, http.MethodGet, "/api/job/"+job.ID+"/report", nil, &report); err != nil {
			c.log.Warn("skipping unreadable job report",
				"job_id", job.ID, "analyzer", job.AnalyzerName, "error", err)
			continue
		}
		for _, tax := range report.Report.Summary.Taxonomies {
			result := risk_engine.AnalyzerResult{
				AnalyzerName: job.AnalyzerName,
				Level:        strings.ToLower(tax.Level),
				Namespace:    tax.Namespace,
				Predicate:    tax.Predicate,
				RawValue:     fmt.Sprintf("%v", tax.Value),
			}
			// Taxonomy values are free-form; keep numeric ones as a score.
			if n, ok := tax.Value.(float64); ok {
				result.Score = n
			}
			results = append(results, result)
		}
	}
	return results, nil
}

// Status checks connectivity to Cortex. It returns nil when the API
// answers its status endpoint.
func (c *CortexClient) Status(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/status", nil, nil)
}
