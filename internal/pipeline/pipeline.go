package pipeline

import (
	"context"
	"fmt"

	infra "github.com/dvloznov/banking-insights/internal/infra/bigquery"
	"github.com/dvloznov/banking-insights/internal/logger"
)

// Pipeline executes a sequence of steps in order over shared state.
type Pipeline struct {
	steps []Step
	repo  infra.SegmentRepository
}

// New creates a pipeline with the given steps. repo may be nil when no run
// tracking is wanted (the elbow sweep, tests without persistence).
func New(repo infra.SegmentRepository, steps ...Step) *Pipeline {
	return &Pipeline{steps: steps, repo: repo}
}

// Execute runs all steps sequentially. If a step fails after the run row
// was created, the run is marked FAILED before the error is returned.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			err = fmt.Errorf("pipeline step %d (%T) failed: %w", i+1, step, err)
			if p.repo != nil && state.RunID != "" {
				p.repo.MarkSegmentationRunFailed(ctx, state.RunID, err)
			}
			return err
		}
	}
	return nil
}

// NewSegmentationPipeline wires the standard run: track the run, load the
// snapshot, roll records up through accounts, customers and geographies,
// cap and scale, cluster, summarize, export, close the run.
func NewSegmentationPipeline(repo infra.SegmentRepository, loader SnapshotLoader) *Pipeline {
	return New(repo,
		&StartRunStep{Repo: repo},
		&LoadSnapshotStep{Loader: loader},
		&AggregateAccountsStep{},
		&JoinProfilesStep{},
		&AggregateGeoStep{},
		&CapOutliersStep{},
		&ScaleFeaturesStep{},
		&ClusterStep{},
		&SummarizeStep{},
		&ExportStep{Repo: repo},
		&MarkSuccessStep{Repo: repo},
	)
}

// NewLocalSegmentationPipeline is the same run without persistence: no run
// row, no BigQuery export. The segment command uses it with --local to write
// CSVs only.
func NewLocalSegmentationPipeline(loader SnapshotLoader) *Pipeline {
	return New(nil,
		&LoadSnapshotStep{Loader: loader},
		&AggregateAccountsStep{},
		&JoinProfilesStep{},
		&AggregateGeoStep{},
		&CapOutliersStep{},
		&ScaleFeaturesStep{},
		&ClusterStep{},
		&SummarizeStep{},
	)
}

// NewFeaturePipeline stops after scaling: it produces the feature matrix
// without fitting clusters. The elbow sweep runs its own k range over it.
func NewFeaturePipeline(loader SnapshotLoader) *Pipeline {
	return New(nil,
		&LoadSnapshotStep{Loader: loader},
		&AggregateAccountsStep{},
		&JoinProfilesStep{},
		&AggregateGeoStep{},
		&CapOutliersStep{},
		&ScaleFeaturesStep{},
	)
}

// RunFeaturePrep executes the feature pipeline and returns the state holding
// the scaled vectors.
func RunFeaturePrep(ctx context.Context, cfg Config, loader SnapshotLoader) (*State, error) {
	state := &State{Config: cfg.withDefaults()}
	if err := NewFeaturePipeline(loader).Execute(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// RunLocalSegmentation executes the pipeline without persistence and returns
// the final state for CSV output.
func RunLocalSegmentation(ctx context.Context, cfg Config, loader SnapshotLoader) (*State, error) {
	state := &State{Config: cfg.withDefaults()}
	if err := NewLocalSegmentationPipeline(loader).Execute(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// RunSegmentation executes the standard pipeline for the given config.
func RunSegmentation(ctx context.Context, cfg Config, repo infra.SegmentRepository, loader SnapshotLoader) (*State, error) {
	log := logger.FromContext(ctx)

	state := &State{Config: cfg.withDefaults()}
	if err := NewSegmentationPipeline(repo, loader).Execute(ctx, state); err != nil {
		return nil, err
	}

	log.Info().
		Str("run_id", state.RunID).
		Int("k", state.Clustering.K).
		Float64("inertia", state.Clustering.Inertia).
		Bool("converged", state.Clustering.Converged).
		Int("geographies", len(state.GeoProfiles)).
		Msg("Segmentation run complete")

	return state, nil
}
