package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/imishinist/slurm-exp/internal/config"
	"github.com/imishinist/slurm-exp/internal/ledger"
	"github.com/imishinist/slurm-exp/internal/metadata"
	"github.com/imishinist/slurm-exp/internal/scheduler"
	"github.com/imishinist/slurm-exp/internal/submit"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit one experiment to SLURM",
	Long: `Load an experiment config, create its output directory, render submit.sh
and submit it with sbatch. With --dry-run the script is written and printed
but not submitted.`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().String("config", "", "Path to experiment config file (required)")
	submitCmd.Flags().Bool("dry-run", false, "Write and print submit.sh without submitting")
	submitCmd.Flags().String("output-base", config.DefaultOutputBase, "Base directory for outputs")
	addSchedulerFlags(submitCmd.Flags())
	submitCmd.MarkFlagRequired("config")
}

// addSchedulerFlags registers the SLURM overrides shared by submit and batch.
func addSchedulerFlags(fs *pflag.FlagSet) {
	fs.String("time", "", "Override SLURM time limit (e.g. 02:00:00)")
	fs.String("mem-per-cpu", "", "Override memory per CPU (e.g. 8G)")
	fs.Int("cpus-per-task", 0, "Override number of CPUs per task")
	fs.String("gpus", "", "Override GPU request (e.g. 1 or a100:2)")
	fs.String("partition", "", "Override SLURM partition")
}

func schedulerOverrides(fs *pflag.FlagSet) scheduler.Overrides {
	var o scheduler.Overrides
	o.Time, _ = fs.GetString("time")
	o.MemPerCPU, _ = fs.GetString("mem-per-cpu")
	o.CPUsPerTask, _ = fs.GetInt("cpus-per-task")
	o.GPUs, _ = fs.GetString("gpus")
	o.Partition, _ = fs.GetString("partition")
	return o
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	configPath, _ := cmd.Flags().GetString("config")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	outputBase, _ := cmd.Flags().GetString("output-base")

	runCommand, err := scheduler.ParseRunCommand(cfg.RunCommand)
	if err != nil {
		return fmt.Errorf("failed to parse run command: %w", err)
	}

	s := submit.New(scheduler.NewSlurmScheduler(cfg.SbatchBin), metadata.NewGitCLI())
	s.Log = log
	s.Out = cmd.OutOrStdout()
	s.EnvSetup = cfg.EnvSetup
	s.RunCommand = runCommand

	if cfg.LedgerEnabled {
		l := &ledger.Lazy{Path: cfg.LedgerFile(outputBase)}
		defer l.Close()
		s.Ledger = l
	}

	_, err = s.Submit(cmd.Context(), submit.Options{
		ConfigPath: configPath,
		OutputBase: outputBase,
		Overrides:  schedulerOverrides(cmd.Flags()),
		DryRun:     dryRun,
	})
	return err
}
