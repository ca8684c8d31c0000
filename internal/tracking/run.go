package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/slurm-exp/internal/models"
)

const (
	tagRunName     = "mlflow.runName"
	tagDescription = "mlflow.note.content"
)

func (c *Client) CreateRun(ctx context.Context, cfg *models.RunConfig) (*models.RunInfo, error) {
	if cfg.ExperimentID == nil || *cfg.ExperimentID == "" {
		return nil, fmt.Errorf("experiment ID must be provided")
	}
	experimentID := *cfg.ExperimentID

	startTime := time.Now()
	runName := "run-" + startTime.Format("2006-01-02-15-04-05")
	if cfg.RunName != nil && *cfg.RunName != "" {
		runName = *cfg.RunName
	}

	resp, err := c.client.Experiments.CreateRun(ctx, ml.CreateRun{
		ExperimentId: experimentID,
		RunName:      runName,
		StartTime:    startTime.UnixMilli(),
		Tags:         runTags(cfg, runName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	info := &models.RunInfo{
		RunID:        resp.Run.Info.RunId,
		ExperimentID: experimentID,
		RunName:      runName,
		Status:       models.RunStatusRunning,
		StartTime:    startTime,
		ArtifactURI:  resp.Run.Info.ArtifactUri,
		Tags:         cfg.Tags,
	}
	if cfg.Description != nil {
		info.Description = *cfg.Description
	}
	return info, nil
}

func runTags(cfg *models.RunConfig, runName string) []ml.RunTag {
	tags := make([]ml.RunTag, 0, len(cfg.Tags)+2)
	for _, p := range models.ParamsFromMap(cfg.Tags) {
		tags = append(tags, ml.RunTag{Key: p.Key, Value: p.Value})
	}
	tags = append(tags, ml.RunTag{Key: tagRunName, Value: runName})
	if cfg.Description != nil {
		tags = append(tags, ml.RunTag{Key: tagDescription, Value: *cfg.Description})
	}
	return tags
}

func (c *Client) UpdateRun(ctx context.Context, runID string, status models.RunStatus) error {
	update := ml.UpdateRun{
		RunId:  runID,
		Status: toUpdateStatus(status),
	}
	if status.Terminal() {
		update.EndTime = time.Now().UnixMilli()
	}

	if _, err := c.client.Experiments.UpdateRun(ctx, update); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

func toUpdateStatus(status models.RunStatus) ml.UpdateRunStatus {
	switch status {
	case models.RunStatusRunning:
		return ml.UpdateRunStatusRunning
	case models.RunStatusFailed:
		return ml.UpdateRunStatusFailed
	case models.RunStatusKilled:
		return ml.UpdateRunStatusKilled
	default:
		return ml.UpdateRunStatusFinished
	}
}

// GetRun fetches a run's info and tags.
func (c *Client) GetRun(ctx context.Context, runID string) (*models.RunInfo, error) {
	resp, err := c.client.Experiments.GetRun(ctx, ml.GetRunRequest{
		RunId: runID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if resp.Run == nil || resp.Run.Info == nil {
		return nil, fmt.Errorf("run %s not found in response", runID)
	}

	run := resp.Run
	tags := make(map[string]string)
	if run.Data != nil {
		for _, tag := range run.Data.Tags {
			tags[tag.Key] = tag.Value
		}
	}

	info := &models.RunInfo{
		RunID:        run.Info.RunId,
		ExperimentID: run.Info.ExperimentId,
		RunName:      tags[tagRunName],
		Status:       models.RunStatus(run.Info.Status),
		StartTime:    time.UnixMilli(run.Info.StartTime),
		ArtifactURI:  run.Info.ArtifactUri,
		Tags:         tags,
		Description:  tags[tagDescription],
	}
	if run.Info.EndTime != 0 {
		end := time.UnixMilli(run.Info.EndTime)
		info.EndTime = &end
	}
	return info, nil
}
