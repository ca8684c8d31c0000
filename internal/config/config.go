package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Databricks domain suffixes for URL detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

// Default values registered with viper in SetDefaults.
const (
	DefaultSbatchBin  = "sbatch"
	DefaultEnvSetup   = "load-env.sh"
	DefaultRunCommand = "uv run --env-file .env"
	DefaultOutputBase = "outputs"
	DefaultLogLevel   = "info"
	ledgerFileName    = "ledger.db"
)

type Config struct {
	TrackingURI     string
	ExperimentID    string
	DatabricksHost  string
	DatabricksToken string

	SbatchBin     string
	EnvSetup      string
	RunCommand    string
	LedgerPath    string
	LedgerEnabled bool
	LogLevel      string
}

func New() *Config {
	return &Config{
		TrackingURI:     viper.GetString("tracking_uri"),
		ExperimentID:    viper.GetString("experiment_id"),
		DatabricksHost:  viper.GetString("databricks_host"),
		DatabricksToken: viper.GetString("databricks_token"),
		SbatchBin:       viper.GetString("sbatch_bin"),
		EnvSetup:        viper.GetString("env_setup"),
		RunCommand:      viper.GetString("run_command"),
		LedgerPath:      viper.GetString("ledger_path"),
		LedgerEnabled:   viper.GetBool("ledger_enabled"),
		LogLevel:        viper.GetString("log_level"),
	}
}

// SetDefaults registers every default the tool relies on.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tracking_uri", "http://localhost:5000")
	v.SetDefault("sbatch_bin", DefaultSbatchBin)
	v.SetDefault("env_setup", DefaultEnvSetup)
	v.SetDefault("run_command", DefaultRunCommand)
	v.SetDefault("ledger_enabled", true)
	v.SetDefault("log_level", DefaultLogLevel)
}

func (c *Config) Validate() error {
	if c.SbatchBin == "" {
		return fmt.Errorf("sbatch binary is required")
	}
	if strings.TrimSpace(c.RunCommand) == "" {
		return fmt.Errorf("run command is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

// ValidateTracking checks the settings the MLflow client needs.
func (c *Config) ValidateTracking() error {
	if c.TrackingURI == "" {
		return fmt.Errorf("tracking URI is required")
	}
	return nil
}

// LedgerFile returns where the submission history lives for the given output base.
// An explicit ledger path wins over the per-output-base default.
func (c *Config) LedgerFile(outputBase string) string {
	if c.LedgerPath != "" {
		return c.LedgerPath
	}
	if outputBase == "" {
		outputBase = DefaultOutputBase
	}
	return filepath.Join(outputBase, ledgerFileName)
}

// IsDatabricks checks if the tracking URI points to Databricks
func (c *Config) IsDatabricks() bool {
	if c.TrackingURI == "databricks" {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "databricks://") {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "https://") {
		host := c.extractHostFromURL(c.TrackingURI)
		return c.isDatabricksHost(host)
	}

	return false
}

// extractHostFromURL extracts the hostname from a URL
func (c *Config) extractHostFromURL(url string) string {
	host := strings.TrimPrefix(url, "https://")
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	return host
}

func (c *Config) isDatabricksHost(host string) bool {
	for _, domain := range databricksDomains {
		if strings.HasSuffix(host, domain) {
			return true
		}
	}
	return false
}

// GetDatabricksProfile extracts the profile name from databricks://{profile} URI
func (c *Config) GetDatabricksProfile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}

	profile := strings.TrimPrefix(c.TrackingURI, "databricks://")
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}
