package tracking

import (
	"context"

	"github.com/imishinist/slurm-exp/internal/models"
)

// Tracker is the subset of the MLflow client an experiment uses.
type Tracker interface {
	ResolveExperiment(ctx context.Context, name string) (string, error)
	CreateRun(ctx context.Context, cfg *models.RunConfig) (*models.RunInfo, error)
	UpdateRun(ctx context.Context, runID string, status models.RunStatus) error
	LogParams(ctx context.Context, runID string, params []models.Parameter) error
	LogMetrics(ctx context.Context, runID string, metrics []models.Metric) error
	UploadArtifact(ctx context.Context, runID, filePath, artifactPath string) error
}

var _ Tracker = (*Client)(nil)
