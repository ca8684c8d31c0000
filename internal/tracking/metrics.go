package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/slurm-exp/internal/models"
)

func (c *Client) LogMetric(ctx context.Context, runID string, key string, value float64, timestamp time.Time, step int64) error {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	err := c.client.Experiments.LogMetric(ctx, ml.LogMetric{
		RunId:     runID,
		Key:       key,
		Value:     value,
		Timestamp: timestamp.UnixMilli(),
		Step:      step,
	})
	if err != nil {
		return fmt.Errorf("failed to log metric %s: %w", key, err)
	}
	return nil
}

func (c *Client) LogMetrics(ctx context.Context, runID string, metrics []models.Metric) error {
	for _, m := range metrics {
		if err := c.LogMetric(ctx, runID, m.Key, m.Value, m.Timestamp, m.Step); err != nil {
			return err
		}
	}
	return nil
}
