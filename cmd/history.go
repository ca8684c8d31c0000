package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/imishinist/slurm-exp/internal/config"
	"github.com/imishinist/slurm-exp/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent submissions",
	Long:  "List submissions recorded in the history database, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("output-base", config.DefaultOutputBase, "Base directory for outputs")
	historyCmd.Flags().Int("limit", 20, "Maximum number of submissions to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := config.New()

	outputBase, _ := cmd.Flags().GetString("output-base")
	limit, _ := cmd.Flags().GetInt("limit")

	l, err := ledger.Open(cfg.LedgerFile(outputBase))
	if err != nil {
		return err
	}
	defer l.Close()

	subs, err := l.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(subs) == 0 {
		fmt.Fprintln(out, "No submissions recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSUBMITTED\tJOB\tCONFIG\tOUTPUT\tGIT")
	for _, s := range subs {
		job := s.JobID
		if s.DryRun {
			job = "(dry-run)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.CreatedAt.Local().Format(time.DateTime), job, s.ConfigPath, s.OutputDir, shortHash(s.GitHash))
	}
	return w.Flush()
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	if h == "" {
		return "-"
	}
	return h
}
