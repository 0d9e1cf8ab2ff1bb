package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adebench/adebench/pkg/results"
	"github.com/adebench/adebench/pkg/results/sqlite"
)

type fakeStore struct {
	runs      []sqlite.RunInfo
	summaries map[string][]sqlite.SkillSetSummary
	results   map[string][]results.TrialResult
	err       error
}

func (f *fakeStore) ListRuns(_ context.Context, _ int) ([]sqlite.RunInfo, error) {
	return f.runs, f.err
}

func (f *fakeStore) RunSummary(_ context.Context, runID string) ([]sqlite.SkillSetSummary, error) {
	return f.summaries[runID], f.err
}

func (f *fakeStore) RunResults(_ context.Context, runID string) ([]results.TrialResult, error) {
	return f.results[runID], f.err
}

func testServer(t *testing.T, store ResultsStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(store).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestListRuns(t *testing.T) {
	store := &fakeStore{
		runs: []sqlite.RunInfo{
			{RunID: "20260815-101500-abcd1234", Agent: "claude", Trials: 2, Results: 6, StartedAt: time.Now()},
		},
	}
	srv := testServer(t, store)

	var body struct {
		Runs []sqlite.RunInfo `json:"runs"`
	}
	status := getJSON(t, srv.URL+"/api/runs", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "20260815-101500-abcd1234", body.Runs[0].RunID)
	assert.Equal(t, 2, body.Runs[0].Trials)
}

func TestListRunsEmpty(t *testing.T) {
	srv := testServer(t, &fakeStore{})

	var body struct {
		Runs []sqlite.RunInfo `json:"runs"`
	}
	status := getJSON(t, srv.URL+"/api/runs", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, body.Runs)
	assert.Empty(t, body.Runs)
}

func TestRunSummary(t *testing.T) {
	store := &fakeStore{
		summaries: map[string][]sqlite.SkillSetSummary{
			"run-1": {
				{SkillSet: "baseline", Tasks: 3, Passed: 1, Failed: 2, MedianTimeMS: 4200},
				{SkillSet: "with-skills", Tasks: 3, Passed: 3, MedianTimeMS: 1800},
			},
		},
	}
	srv := testServer(t, store)

	var body struct {
		RunID     string                   `json:"run_id"`
		SkillSets []sqlite.SkillSetSummary `json:"skill_sets"`
	}
	status := getJSON(t, srv.URL+"/api/runs/run-1", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "run-1", body.RunID)
	require.Len(t, body.SkillSets, 2)
	assert.Equal(t, "baseline", body.SkillSets[0].SkillSet)
	assert.Equal(t, int64(1800), body.SkillSets[1].MedianTimeMS)
}

func TestRunSummaryNotFound(t *testing.T) {
	srv := testServer(t, &fakeStore{})

	var body map[string]string
	status := getJSON(t, srv.URL+"/api/runs/missing", &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "missing")
}

func TestRunResults(t *testing.T) {
	store := &fakeStore{
		results: map[string][]results.TrialResult{
			"run-1": {
				{RunID: "run-1", TrialID: "run-1__baseline", TaskID: "revenue_report", SkillSet: results.SkillSetSnapshot{Name: "baseline"}, Status: results.StatusPassed},
			},
		},
	}
	srv := testServer(t, store)

	var body struct {
		RunID   string                `json:"run_id"`
		Results []results.TrialResult `json:"results"`
	}
	status := getJSON(t, srv.URL+"/api/runs/run-1/results", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, body.Results, 1)
	assert.Equal(t, results.StatusPassed, body.Results[0].Status)
	assert.Equal(t, "baseline", body.Results[0].SkillSet.Name)
}

func TestStoreErrorsReturn500(t *testing.T) {
	srv := testServer(t, &fakeStore{err: errors.New("db closed")})

	var body map[string]string
	status := getJSON(t, srv.URL+"/api/runs", &body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotEmpty(t, body["error"])
}

func TestHealthz(t *testing.T) {
	srv := testServer(t, &fakeStore{})

	var body map[string]string
	status := getJSON(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestIndexHTML(t *testing.T) {
	store := &fakeStore{
		runs: []sqlite.RunInfo{
			{RunID: "run-1", Trials: 1, StartedAt: time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)},
		},
	}
	srv := testServer(t, store)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}
