package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/banking-insights/internal/cluster"
	infra "github.com/dvloznov/banking-insights/internal/infra/bigquery"
	"github.com/dvloznov/banking-insights/internal/jobs"
	"github.com/dvloznov/banking-insights/internal/logger"
	"github.com/dvloznov/banking-insights/internal/pipeline"
)

type mockSegmentRepo struct {
	infra.SegmentRepository

	latestRunID string
	latestErr   error
	segments    []*infra.GeoSegmentRow
	summaries   []*infra.ClusterSummaryRow
}

func (m *mockSegmentRepo) LatestSuccessfulRunID(ctx context.Context) (string, error) {
	return m.latestRunID, m.latestErr
}

func (m *mockSegmentRepo) QueryGeoSegmentsByRun(ctx context.Context, runID string) ([]*infra.GeoSegmentRow, error) {
	return m.segments, nil
}

func (m *mockSegmentRepo) QueryClusterSummariesByRun(ctx context.Context, runID string) ([]*infra.ClusterSummaryRow, error) {
	return m.summaries, nil
}

type mockPublisher struct {
	published []*jobs.SegmentationJob
	err       error
}

func (m *mockPublisher) PublishSegmentation(ctx context.Context, job *jobs.SegmentationJob) error {
	if m.err != nil {
		return m.err
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func TestListSegmentsDefaultsToLatestRun(t *testing.T) {
	repo := &mockSegmentRepo{
		latestRunID: "run-7",
		segments: []*infra.GeoSegmentRow{
			{RunID: "run-7", Zip: "10001", City: "New York", State: "NY", Cluster: 2},
		},
	}
	h := NewSegmentsHandler(repo, logger.New())

	req := httptest.NewRequest(http.MethodGet, "/api/segments", nil)
	rec := httptest.NewRecorder()
	h.ListSegments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		RunID string                 `json:"run_id"`
		Count int                    `json:"count"`
		Segs  []*infra.GeoSegmentRow `json:"segments"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.RunID != "run-7" {
		t.Errorf("run_id = %q, want run-7", body.RunID)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestListSegmentsNoSuccessfulRun(t *testing.T) {
	repo := &mockSegmentRepo{latestErr: fmt.Errorf("no rows")}
	h := NewSegmentsHandler(repo, logger.New())

	req := httptest.NewRequest(http.MethodGet, "/api/segments", nil)
	rec := httptest.NewRecorder()
	h.ListSegments(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListClusterSummariesExplicitRun(t *testing.T) {
	repo := &mockSegmentRepo{
		latestErr: fmt.Errorf("should not be called"),
		summaries: []*infra.ClusterSummaryRow{
			{RunID: "run-3", Cluster: 0, Count: 12},
			{RunID: "run-3", Cluster: 1, Count: 5},
		},
	}
	h := NewSegmentsHandler(repo, logger.New())

	req := httptest.NewRequest(http.MethodGet, "/api/summaries?run_id=run-3", nil)
	rec := httptest.NewRecorder()
	h.ListClusterSummaries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		RunID string `json:"run_id"`
		Count int    `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.RunID != "run-3" || body.Count != 2 {
		t.Errorf("got run_id=%q count=%d, want run-3/2", body.RunID, body.Count)
	}
}

func TestEnqueueRunAppliesDefaults(t *testing.T) {
	pub := &mockPublisher{}
	h := NewRunsHandler(pub, logger.New())

	req := httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"snapshot_source":"data/snapshot"}`))
	rec := httptest.NewRecorder()
	h.EnqueueRun(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(pub.published))
	}

	job := pub.published[0]
	if job.K != pipeline.DefaultK {
		t.Errorf("k = %d, want default %d", job.K, pipeline.DefaultK)
	}
	if job.Seed != cluster.DefaultSeed {
		t.Errorf("seed = %d, want default %d", job.Seed, cluster.DefaultSeed)
	}
}

func TestEnqueueRunRejectsNegativeK(t *testing.T) {
	pub := &mockPublisher{}
	h := NewRunsHandler(pub, logger.New())

	req := httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"snapshot_source":"data/snapshot","k":-1}`))
	rec := httptest.NewRecorder()
	h.EnqueueRun(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "non-negative") {
		t.Errorf("error body %q does not explain that 0 applies the default", rec.Body.String())
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d jobs, want 0", len(pub.published))
	}
}

func TestEnqueueRunRejectsMissingSource(t *testing.T) {
	pub := &mockPublisher{}
	h := NewRunsHandler(pub, logger.New())

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"k":3}`))
	rec := httptest.NewRecorder()
	h.EnqueueRun(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d jobs, want 0", len(pub.published))
	}
}

func TestJobsHandler(t *testing.T) {
	store := &mockJobStore{jobs: map[string]*jobs.SegmentationJob{
		"job-1": {JobID: "job-1", Status: jobs.JobStatusCompleted},
	}}
	h := NewJobsHandler(store, logger.New())

	rec := httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil), "job-1")
	if rec.Code != http.StatusOK {
		t.Errorf("GetJob status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), "nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GetJob missing status = %d, want 404", rec.Code)
	}
}

type mockJobStore struct {
	jobs.JobStore
	jobs map[string]*jobs.SegmentationJob
}

func (m *mockJobStore) GetJob(ctx context.Context, jobID string) (*jobs.SegmentationJob, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}
