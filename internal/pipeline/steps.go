package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/banking-insights/internal/cluster"
	"github.com/dvloznov/banking-insights/internal/domain"
	infra "github.com/dvloznov/banking-insights/internal/infra/bigquery"
	"github.com/dvloznov/banking-insights/internal/insights"
)

// Step is a single stage of the segmentation pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all pipeline steps.
type State struct {
	Config Config
	RunID  string

	Snapshot         *domain.Snapshot
	AccountProfiles  map[string]*domain.AccountProfile
	CustomerProfiles []*domain.CustomerProfile
	GeoProfiles      []*domain.GeoProfile

	Scaler     *cluster.StandardScaler
	Vectors    [][]float64
	Clustering *cluster.KMeansResult
	Summaries  []cluster.Summary
}

// StartRunStep creates a segmentation_runs row with status=RUNNING.
type StartRunStep struct {
	Repo infra.SegmentRepository
}

func (s *StartRunStep) Execute(ctx context.Context, state *State) error {
	runID, err := s.Repo.StartSegmentationRun(ctx, state.Config.SnapshotSource)
	if err != nil {
		return err
	}
	state.RunID = runID
	return nil
}

// LoadSnapshotStep reads the input collections.
type LoadSnapshotStep struct {
	Loader SnapshotLoader
}

func (s *LoadSnapshotStep) Execute(ctx context.Context, state *State) error {
	snap, err := s.Loader.Load(ctx, state.Config.SnapshotSource)
	if err != nil {
		return err
	}
	state.Snapshot = snap
	return nil
}

// AggregateAccountsStep rolls bills and transfers up to account profiles.
type AggregateAccountsStep struct{}

func (s *AggregateAccountsStep) Execute(ctx context.Context, state *State) error {
	accountIDs := make(map[string]bool, len(state.Snapshot.Accounts))
	for _, a := range state.Snapshot.Accounts {
		accountIDs[a.ID] = true
	}
	state.AccountProfiles = insights.AggregateAccounts(ctx, state.Snapshot.Bills, state.Snapshot.Transfers, accountIDs)
	return nil
}

// JoinProfilesStep joins account profiles to customers and rolls up.
type JoinProfilesStep struct{}

func (s *JoinProfilesStep) Execute(ctx context.Context, state *State) error {
	state.CustomerProfiles = insights.JoinProfiles(ctx, state.Snapshot.Accounts, state.AccountProfiles, state.Snapshot.Customers)
	return nil
}

// AggregateGeoStep rolls customer profiles up to geography rows.
type AggregateGeoStep struct{}

func (s *AggregateGeoStep) Execute(ctx context.Context, state *State) error {
	state.GeoProfiles = insights.AggregateGeo(ctx, state.CustomerProfiles)
	return nil
}

// CapOutliersStep clamps each feature into its IQR fences.
type CapOutliersStep struct{}

func (s *CapOutliersStep) Execute(ctx context.Context, state *State) error {
	cluster.CapOutliers(ctx, state.GeoProfiles, state.Config.Features, state.Config.IQRMultiplier)
	return nil
}

// ScaleFeaturesStep fits the standardization transform and vectorizes.
type ScaleFeaturesStep struct{}

func (s *ScaleFeaturesStep) Execute(ctx context.Context, state *State) error {
	state.Scaler = cluster.FitScaler(state.GeoProfiles, state.Config.Features)
	state.Vectors = state.Scaler.Transform(state.GeoProfiles)
	return nil
}

// ClusterStep runs the seeded k-means and attaches the labels.
type ClusterStep struct{}

func (s *ClusterStep) Execute(ctx context.Context, state *State) error {
	res, err := cluster.KMeans(ctx, state.Vectors, state.Config.K, state.Config.Seed, state.Config.MaxIter)
	if err != nil {
		return err
	}
	state.Clustering = res
	for i, label := range res.Labels {
		state.GeoProfiles[i].Cluster = label
	}
	return nil
}

// SummarizeStep builds the per-cluster summary table on unscaled values.
type SummarizeStep struct{}

func (s *SummarizeStep) Execute(ctx context.Context, state *State) error {
	state.Summaries = cluster.Summarize(state.GeoProfiles, state.Config.Features)
	return nil
}

// ExportStep streams the geography and cluster-summary rows to BigQuery.
type ExportStep struct {
	Repo infra.SegmentRepository
}

func (s *ExportStep) Execute(ctx context.Context, state *State) error {
	now := time.Now()

	segRows := make([]*infra.GeoSegmentRow, len(state.GeoProfiles))
	for i, g := range state.GeoProfiles {
		segRows[i] = infra.NewGeoSegmentRow(state.RunID, g, now)
	}
	if err := s.Repo.InsertGeoSegments(ctx, segRows); err != nil {
		return err
	}

	sumRows := make([]*infra.ClusterSummaryRow, len(state.Summaries))
	for i, summary := range state.Summaries {
		sumRows[i] = infra.NewClusterSummaryRow(state.RunID, summary, now)
	}
	return s.Repo.InsertClusterSummaries(ctx, sumRows)
}

// MarkSuccessStep records the clustering outcome and closes the run.
type MarkSuccessStep struct {
	Repo infra.SegmentRepository
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *State) error {
	res := state.Clustering
	if res == nil {
		return fmt.Errorf("MarkSuccessStep: no clustering result on state")
	}
	return s.Repo.MarkSegmentationRunSucceeded(ctx, state.RunID, res.K, res.Seed, res.Inertia, res.Converged, len(state.GeoProfiles))
}
