package bigquery

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/banking-insights/internal/logger"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	defaultProjectID = "studious-union-470122-v7"
	defaultDatasetID = "banking_insights"

	geoSegmentsTable      = "geo_segments"
	clusterSummariesTable = "cluster_summaries"
	segmentationRunsTable = "segmentation_runs"

	// Run lifecycle statuses.
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// projectID/datasetID resolve from the environment, with the defaults above.
func projectID() string {
	if v := os.Getenv("BQ_PROJECT_ID"); v != "" {
		return v
	}
	return defaultProjectID
}

func datasetID() string {
	if v := os.Getenv("BQ_DATASET_ID"); v != "" {
		return v
	}
	return defaultDatasetID
}

// SegmentRepository is the persistence surface the pipeline depends on.
// The BigQuery implementation below is the real one; tests substitute mocks.
type SegmentRepository interface {
	StartSegmentationRun(ctx context.Context, snapshotSource string) (string, error)
	MarkSegmentationRunFailed(ctx context.Context, runID string, runErr error)
	MarkSegmentationRunSucceeded(ctx context.Context, runID string, k int, seed int64, inertia float64, converged bool, geoCount int) error
	InsertGeoSegments(ctx context.Context, rows []*GeoSegmentRow) error
	InsertClusterSummaries(ctx context.Context, rows []*ClusterSummaryRow) error
	QueryGeoSegmentsByRun(ctx context.Context, runID string) ([]*GeoSegmentRow, error)
	QueryClusterSummariesByRun(ctx context.Context, runID string) ([]*ClusterSummaryRow, error)
	LatestSuccessfulRunID(ctx context.Context) (string, error)
	Close() error
}

// BigQuerySegmentRepository implements SegmentRepository against BigQuery
// with a shared client, so each operation does not open a new connection.
type BigQuerySegmentRepository struct {
	client *bigquery.Client
}

// NewBigQuerySegmentRepository creates a repository with a shared client.
func NewBigQuerySegmentRepository(ctx context.Context) (*BigQuerySegmentRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID())
	if err != nil {
		return nil, fmt.Errorf("NewBigQuerySegmentRepository: creating client: %w", err)
	}
	return &BigQuerySegmentRepository{client: client}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQuerySegmentRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartSegmentationRun inserts a segmentation_runs row with status=RUNNING
// and returns the generated run id.
func (r *BigQuerySegmentRepository) StartSegmentationRun(ctx context.Context, snapshotSource string) (string, error) {
	runID := uuid.NewString()
	now := time.Now()

	row := &SegmentationRunRow{
		RunID:          runID,
		SnapshotSource: snapshotSource,
		SnapshotDate:   civil.DateOf(now),
		StartedTS:      now,
		Status:         RunStatusRunning,
	}

	inserter := r.client.Dataset(datasetID()).Table(segmentationRunsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("StartSegmentationRun: inserting row: %w", err)
	}
	return runID, nil
}

// MarkSegmentationRunFailed updates a run to status=FAILED. Failures here
// are logged, not returned: the pipeline error that triggered the mark is
// the one worth surfacing.
func (r *BigQuerySegmentRepository) MarkSegmentationRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, datasetID(), segmentationRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to mark segmentation run as failed")
	}
}

// MarkSegmentationRunSucceeded updates a run to status=SUCCESS and records
// the clustering outcome on the run row.
func (r *BigQuerySegmentRepository) MarkSegmentationRunSucceeded(ctx context.Context, runID string, k int, seed int64, inertia float64, converged bool, geoCount int) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    k = @k,
		    seed = @seed,
		    inertia = @inertia,
		    converged = @converged,
		    geo_count = @geo_count
		WHERE run_id = @run_id
	`, datasetID(), segmentationRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "k", Value: int64(k)},
		{Name: "seed", Value: seed},
		{Name: "inertia", Value: inertia},
		{Name: "converged", Value: converged},
		{Name: "geo_count", Value: int64(geoCount)},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkSegmentationRunSucceeded: %w", err)
	}
	return nil
}

// InsertGeoSegments streams the geography rows into geo_segments.
func (r *BigQuerySegmentRepository) InsertGeoSegments(ctx context.Context, rows []*GeoSegmentRow) error {
	if len(rows) == 0 {
		return nil
	}
	inserter := r.client.Dataset(datasetID()).Table(geoSegmentsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertGeoSegments: inserting rows: %w", err)
	}
	return nil
}

// InsertClusterSummaries streams the summary rows into cluster_summaries.
func (r *BigQuerySegmentRepository) InsertClusterSummaries(ctx context.Context, rows []*ClusterSummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	inserter := r.client.Dataset(datasetID()).Table(clusterSummariesTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertClusterSummaries: inserting rows: %w", err)
	}
	return nil
}

// QueryGeoSegmentsByRun retrieves the geography table of one run.
func (r *BigQuerySegmentRepository) QueryGeoSegmentsByRun(ctx context.Context, runID string) ([]*GeoSegmentRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM `+"`%s.%s.%s`"+`
		WHERE run_id = @run_id
		ORDER BY zip, city, state
	`, projectID(), datasetID(), geoSegmentsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryGeoSegmentsByRun: reading query: %w", err)
	}

	var rows []*GeoSegmentRow
	for {
		var row GeoSegmentRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryGeoSegmentsByRun: iterating: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

// QueryClusterSummariesByRun retrieves the cluster-summary table of one run.
func (r *BigQuerySegmentRepository) QueryClusterSummariesByRun(ctx context.Context, runID string) ([]*ClusterSummaryRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM `+"`%s.%s.%s`"+`
		WHERE run_id = @run_id
		ORDER BY cluster
	`, projectID(), datasetID(), clusterSummariesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryClusterSummariesByRun: reading query: %w", err)
	}

	var rows []*ClusterSummaryRow
	for {
		var row ClusterSummaryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryClusterSummariesByRun: iterating: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

// LatestSuccessfulRunID returns the run id of the most recent SUCCESS run,
// or an empty string when no run has succeeded yet.
func (r *BigQuerySegmentRepository) LatestSuccessfulRunID(ctx context.Context) (string, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT run_id
		FROM `+"`%s.%s.%s`"+`
		WHERE status = @status
		ORDER BY started_ts DESC
		LIMIT 1
	`, projectID(), datasetID(), segmentationRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("LatestSuccessfulRunID: reading query: %w", err)
	}

	var row struct {
		RunID string `bigquery:"run_id"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("LatestSuccessfulRunID: reading row: %w", err)
	}
	return row.RunID, nil
}

// runDML runs a query job to completion and surfaces the job error.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
