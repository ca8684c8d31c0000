package cmd

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/imishinist/slurm-exp/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch CONFIG...",
	Short: "Submit several experiments in sequence",
	Long: `Submit every config file given, one submit process per config. Patterns the
shell did not expand are globbed against the current directory, duplicates
are dropped and only .yaml/.yml files are submitted. A failing config does
not stop the rest.`,
	Example: `  slurm-exp batch configs/sweep_*.yaml
  slurm-exp batch --dry-run configs/exp1.yaml configs/exp2.yaml
  slurm-exp batch --delay 2 configs/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

// newBatchRunner builds the runner used for each submission.
var newBatchRunner = func(stdout, stderr io.Writer) batch.Runner {
	return &batch.ExecRunner{Stdout: stdout, Stderr: stderr}
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Bool("dry-run", false, "Show what would be submitted without submitting")
	batchCmd.Flags().Float64("delay", 0, "Delay in seconds between submissions")
	batchCmd.Flags().String("output-base", "", "Base directory for outputs")
	addSchedulerFlags(batchCmd.Flags())
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	configs, err := batch.ResolveConfigs(args, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	delay, _ := cmd.Flags().GetFloat64("delay")
	outputBase, _ := cmd.Flags().GetString("output-base")
	o := schedulerOverrides(cmd.Flags())

	b := batch.New(newBatchRunner(cmd.OutOrStdout(), cmd.ErrOrStderr()), batch.PassThrough{
		DryRun:      dryRun,
		Time:        o.Time,
		MemPerCPU:   o.MemPerCPU,
		CPUsPerTask: o.CPUsPerTask,
		GPUs:        o.GPUs,
		Partition:   o.Partition,
		OutputBase:  outputBase,
	})
	b.Delay = time.Duration(delay * float64(time.Second))
	b.Log = log
	b.Out = cmd.OutOrStdout()
	b.Err = cmd.ErrOrStderr()

	_, err = b.Run(cmd.Context(), configs)
	return err
}
