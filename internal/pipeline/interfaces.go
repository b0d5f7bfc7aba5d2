package pipeline

import (
	"context"

	"github.com/dvloznov/banking-insights/internal/domain"
	"github.com/dvloznov/banking-insights/internal/snapshot"
)

// SnapshotLoader abstracts where the input snapshot comes from, so tests
// can feed synthetic snapshots without touching disk or GCS.
type SnapshotLoader interface {
	Load(ctx context.Context, source string) (*domain.Snapshot, error)
}

// FileSnapshotLoader loads snapshots from a local directory or a gs://
// prefix via the snapshot package.
type FileSnapshotLoader struct{}

// NewFileSnapshotLoader creates the default loader.
func NewFileSnapshotLoader() *FileSnapshotLoader {
	return &FileSnapshotLoader{}
}

// Load delegates to snapshot.Load.
func (l *FileSnapshotLoader) Load(ctx context.Context, source string) (*domain.Snapshot, error) {
	return snapshot.Load(ctx, source)
}
