// Package tracking talks to an MLflow tracking server, either a plain MLflow
// server or a Databricks workspace.
package tracking

import (
	"fmt"
	"net/http"

	"github.com/databricks/databricks-sdk-go"

	"github.com/imishinist/slurm-exp/internal/config"
)

type Client struct {
	client *databricks.WorkspaceClient
	config *config.Config
	http   *http.Client
}

func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.ValidateTracking(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dbCfg, err := workspaceConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := databricks.NewWorkspaceClient(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
		http:   &http.Client{},
	}, nil
}

// workspaceConfig maps the tracking URI onto SDK settings. Accepted forms are
// "databricks", "databricks://<profile>", a workspace URL, or any other URL
// which is treated as a plain MLflow server.
func workspaceConfig(cfg *config.Config) (*databricks.Config, error) {
	if !cfg.IsDatabricks() {
		// plain MLflow ignores the token, but the SDK needs some credential
		return &databricks.Config{
			Host:  cfg.TrackingURI,
			Token: "dummy-token-for-regular-mlflow",
		}, nil
	}

	dbCfg := &databricks.Config{}
	switch {
	case cfg.TrackingURI == "databricks":
		dbCfg.Host = cfg.DatabricksHost
	case cfg.GetDatabricksProfile() != "":
		dbCfg.Profile = cfg.GetDatabricksProfile()
	default:
		dbCfg.Host = cfg.TrackingURI
	}

	if cfg.DatabricksToken != "" {
		dbCfg.Token = cfg.DatabricksToken
	}

	if dbCfg.Host == "" && dbCfg.Profile == "" {
		return nil, fmt.Errorf("Databricks host or profile is required when using Databricks MLflow. Set DATABRICKS_HOST environment variable, use a full Databricks URL as tracking URI, or specify a profile with databricks://{profile}")
	}
	return dbCfg, nil
}
