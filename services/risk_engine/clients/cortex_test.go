// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcticsec/riskwatch/services/risk_engine"
)

func ipObservable() risk_engine.Observable {
	return risk_engine.Observable{ID: "~10", DataType: "ip", Value: "203.0.113.42", TLP: 2}
}

func TestCortexClient_GetAnalyzerResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cortex-key", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/api/job/_search":
			var query map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
			body, _ := json.Marshal(query)
			assert.Contains(t, string(body), "203.0.113.42")
			assert.Contains(t, string(body), `"Success"`)

			json.NewEncoder(w).Encode([]map[string]any{
				{"id": "job1", "workerName": "VirusTotal_GetReport_3_1", "status": "Success"},
				{"id": "job2", "workerName": "AbuseIPDB_1_0", "status": "Success"},
			})
		case "/api/job/job1/report":
			json.NewEncoder(w).Encode(map[string]any{
				"report": map[string]any{
					"summary": map[string]any{
						"taxonomies": []map[string]any{
							{"level": "Malicious", "namespace": "VT", "predicate": "Score", "value": "15/68"},
						},
					},
				},
			})
		case "/api/job/job2/report":
			json.NewEncoder(w).Encode(map[string]any{
				"report": map[string]any{
					"summary": map[string]any{
						"taxonomies": []map[string]any{
							{"level": "suspicious", "namespace": "AbuseIPDB", "predicate": "Confidence", "value": 55},
						},
					},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewCortexClient(srv.URL, "cortex-key", 100, nil, nil)
	results, err := client.GetAnalyzerResults(context.Background(), ipObservable())
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Verdict levels are normalized to lowercase.
	assert.Equal(t, "VirusTotal_GetReport_3_1", results[0].AnalyzerName)
	assert.Equal(t, "malicious", results[0].Level)
	assert.Equal(t, "15/68", results[0].RawValue)

	assert.Equal(t, "suspicious", results[1].Level)
	assert.Equal(t, 55.0, results[1].Score)
	assert.Equal(t, "55", results[1].RawValue)
}

func TestCortexClient_GetAnalyzerResults_SkipsUnreadableReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/job/_search":
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": "job1", "workerName": "Broken_1_0", "status": "Success"},
				{"id": "job2", "workerName": "URLhaus_2_0", "status": "Success"},
			})
		case "/api/job/job1/report":
			http.Error(w, "internal error", http.StatusInternalServerError)
		case "/api/job/job2/report":
			json.NewEncoder(w).Encode(map[string]any{
				"report": map[string]any{
					"summary": map[string]any{
						"taxonomies": []map[string]any{
							{"level": "safe", "namespace": "URLhaus", "predicate": "Status", "value": "not_found"},
						},
					},
				},
			})
		}
	}))
	defer srv.Close()

	client := NewCortexClient(srv.URL, "key", 100, nil, nil)
	results, err := client.GetAnalyzerResults(context.Background(), ipObservable())
	require.NoError(t, err)

	// The broken job is skipped; the good one still comes through.
	require.Len(t, results, 1)
	assert.Equal(t, "URLhaus_2_0", results[0].AnalyzerName)
}

func TestCortexClient_GetAnalyzerResults_NoJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	}))
	defer srv.Close()

	client := NewCortexClient(srv.URL, "key", 100, nil, nil)
	results, err := client.GetAnalyzerResults(context.Background(), ipObservable())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCortexClient_SearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewCortexClient(srv.URL, "bad-key", 100, nil, nil)
	_, err := client.GetAnalyzerResults(context.Background(), ipObservable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestCortexClient_RateLimiterHonorsContext(t *testing.T) {
	// Limiter with a 1-per-second rate and burst 1: the second call has
	// to wait, so a canceled context must abort it.
	client := NewCortexClient("http://localhost:9001", "key", 1, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, client.limiter.Wait(context.Background())) // burn the burst
	err := client.limiter.Wait(ctx)
	require.Error(t, err)
}

func TestCortexClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/status", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"versions": map[string]string{"Cortex": "3.1.7"}})
	}))
	defer srv.Close()

	client := NewCortexClient(srv.URL, "key", 100, nil, nil)
	assert.NoError(t, client.Status(context.Background()))
}
