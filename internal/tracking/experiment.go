package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/databricks/databricks-sdk-go/apierr"
	"github.com/databricks/databricks-sdk-go/service/ml"
)

// ResolveExperiment returns the id of the named experiment, creating it when
// the server does not know it yet.
func (c *Client) ResolveExperiment(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("experiment name is required")
	}

	resp, err := c.client.Experiments.GetByName(ctx, ml.GetByNameRequest{
		ExperimentName: name,
	})
	if err == nil && resp.Experiment != nil {
		return resp.Experiment.ExperimentId, nil
	}
	if err != nil && !isNotFound(err) {
		return "", fmt.Errorf("failed to get experiment %s: %w", name, err)
	}

	created, err := c.client.Experiments.CreateExperiment(ctx, ml.CreateExperiment{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create experiment %s: %w", name, err)
	}
	return created.ExperimentId, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apierr.ErrResourceDoesNotExist) || errors.Is(err, apierr.ErrNotFound)
}
