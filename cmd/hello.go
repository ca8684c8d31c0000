package cmd

import (
	"github.com/spf13/cobra"

	"github.com/imishinist/slurm-exp/internal/config"
	"github.com/imishinist/slurm-exp/internal/experiment"
	"github.com/imishinist/slurm-exp/internal/tracking"
)

var helloCmd = &cobra.Command{
	Use:   "hello",
	Short: "Run the hello-world example experiment",
	Long: `Run the example experiment that submitted jobs invoke. It seeds the random
generator from the config, summarizes random data, writes results.txt,
data.csv and status.txt into the output directory, and logs to MLflow when
the config enables tracking.

To submit it, point the config's script at "hello" and set
SLURMEXP_RUN_COMMAND to the slurm-exp binary.`,
	Args: cobra.NoArgs,
	RunE: runHello,
}

func init() {
	rootCmd.AddCommand(helloCmd)

	helloCmd.Flags().String("config", "", "Path to config file (required)")
	helloCmd.Flags().String("output-dir", "", "Output directory (required)")
	helloCmd.MarkFlagRequired("config")
	helloCmd.MarkFlagRequired("output-dir")
}

func runHello(cmd *cobra.Command, args []string) error {
	cfg := config.New()

	configPath, _ := cmd.Flags().GetString("config")
	outputDir, _ := cmd.Flags().GetString("output-dir")

	e := &experiment.Experiment{
		ConfigPath:   configPath,
		OutputDir:    outputDir,
		LogLevel:     cfg.LogLevel,
		Console:      cmd.OutOrStdout(),
		ExperimentID: cfg.ExperimentID,
		NewTracker: func() (tracking.Tracker, error) {
			client, err := tracking.NewClient(cfg)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
	return e.Run(cmd.Context())
}
