package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imishinist/slurm-exp/internal/config"
	"github.com/imishinist/slurm-exp/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "slurm-exp",
	Short: "Submit experiments to a SLURM cluster",
	Long: `A command line tool for submitting machine-learning experiments to SLURM.

Each submission loads a YAML experiment config, creates a unique output
directory, renders a submit.sh with SBATCH directives and hands it to sbatch.

Common workflows:

  Preview the generated script:
    slurm-exp submit --config configs/hello.yaml --dry-run

  Submit with a different partition:
    slurm-exp submit --config configs/hello.yaml --partition gpu

  Submit a sweep:
    slurm-exp batch --delay 2 configs/sweep_*.yaml

  Show past submissions:
    slurm-exp history

Configuration:
  SLURMEXP_SBATCH_BIN      scheduler submission binary (default: sbatch)
  SLURMEXP_ENV_SETUP       file sourced by submit.sh (default: load-env.sh)
  SLURMEXP_RUN_COMMAND     launcher placed before the script (default: uv run --env-file .env)
  SLURMEXP_TRACKING_URI    MLflow tracking URI, MLFLOW_TRACKING_URI also works`,
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("tracking-uri", "", "MLflow tracking URI (overrides SLURMEXP_TRACKING_URI)")
	rootCmd.PersistentFlags().String("experiment-id", "", "MLflow experiment ID (overrides SLURMEXP_EXPERIMENT_ID)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	bindFlags()
}

func bindFlags() {
	viper.BindPFlag("tracking_uri", rootCmd.PersistentFlags().Lookup("tracking-uri"))
	viper.BindPFlag("experiment_id", rootCmd.PersistentFlags().Lookup("experiment-id"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Environment variables
	viper.SetEnvPrefix("SLURMEXP")
	viper.AutomaticEnv()

	// MLflow and Databricks keep their usual variable names
	viper.BindEnv("tracking_uri", "SLURMEXP_TRACKING_URI", "MLFLOW_TRACKING_URI")
	viper.BindEnv("experiment_id", "SLURMEXP_EXPERIMENT_ID", "MLFLOW_EXPERIMENT_ID")
	viper.BindEnv("databricks_host", "DATABRICKS_HOST")
	viper.BindEnv("databricks_token", "DATABRICKS_TOKEN")

	config.SetDefaults(viper.GetViper())
}

// loadConfig reads and validates the tool settings.
func loadConfig() (*config.Config, error) {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger returns the diagnostic logger for a command; it writes to w.
func newLogger(cfg *config.Config, w io.Writer) (*logrus.Logger, error) {
	log, _, err := logging.New(logging.Options{
		Name:      "slurm-exp",
		Level:     cfg.LogLevel,
		ToConsole: true,
		Console:   w,
	})
	return log, err
}
