package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/banking-insights/internal/api/middleware"
	"github.com/dvloznov/banking-insights/internal/cluster"
	infra "github.com/dvloznov/banking-insights/internal/infra/bigquery"
	"github.com/dvloznov/banking-insights/internal/jobs"
	"github.com/dvloznov/banking-insights/internal/pipeline"
)

// SegmentsHandler serves the results of segmentation runs out of BigQuery.
type SegmentsHandler struct {
	repo infra.SegmentRepository
	log  zerolog.Logger
}

// NewSegmentsHandler creates a new segments handler.
func NewSegmentsHandler(repo infra.SegmentRepository, log zerolog.Logger) *SegmentsHandler {
	return &SegmentsHandler{
		repo: repo,
		log:  log,
	}
}

// resolveRunID picks the run to serve: the run_id query parameter when given,
// otherwise the latest successful run.
func (h *SegmentsHandler) resolveRunID(ctx context.Context, r *http.Request) (string, error) {
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		return runID, nil
	}
	return h.repo.LatestSuccessfulRunID(ctx)
}

// ListSegments handles GET /api/segments
func (h *SegmentsHandler) ListSegments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID, err := h.resolveRunID(ctx, r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to resolve run")
		middleware.WriteError(w, http.StatusNotFound, "No successful segmentation run found")
		return
	}

	segments, err := h.repo.QueryGeoSegmentsByRun(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to query geo segments")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query geo segments")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":   runID,
		"segments": segments,
		"count":    len(segments),
	})
}

// ListClusterSummaries handles GET /api/summaries
func (h *SegmentsHandler) ListClusterSummaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID, err := h.resolveRunID(ctx, r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to resolve run")
		middleware.WriteError(w, http.StatusNotFound, "No successful segmentation run found")
		return
	}

	summaries, err := h.repo.QueryClusterSummariesByRun(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to query cluster summaries")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query cluster summaries")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":    runID,
		"summaries": summaries,
		"count":     len(summaries),
	})
}

// RunsHandler enqueues new segmentation runs.
type RunsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(publisher jobs.Publisher, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		publisher: publisher,
		log:       log,
	}
}

// EnqueueRun handles POST /api/runs
func (h *RunsHandler) EnqueueRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SnapshotSource string `json:"snapshot_source"`
		K              int    `json:"k"`
		Seed           *int64 `json:"seed"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SnapshotSource == "" {
		middleware.WriteError(w, http.StatusBadRequest, "snapshot_source is required")
		return
	}
	if req.K < 0 {
		middleware.WriteError(w, http.StatusBadRequest, "k must be non-negative (0 applies the default)")
		return
	}
	if req.K == 0 {
		req.K = pipeline.DefaultK
	}
	seed := cluster.DefaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	ctx := r.Context()

	job := &jobs.SegmentationJob{
		SnapshotSource: req.SnapshotSource,
		K:              req.K,
		Seed:           seed,
	}

	if err := h.publisher.PublishSegmentation(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue segmentation job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue segmentation job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("snapshot_source", req.SnapshotSource).
		Int("k", req.K).
		Msg("Segmentation job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		RunID:  query.Get("run_id"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
