// Package batch submits several experiment configs one after another, each
// through its own submit process.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/imishinist/slurm-exp/internal/console"
	"github.com/imishinist/slurm-exp/internal/logging"
)

var ErrBatchFailed = errors.New("one or more submissions failed")

const rule = "======================================================================"

// Summary is the tally of a batch run.
type Summary struct {
	Total     int
	Submitted []string
	Failed    []string
}

// Batch drives sequential submissions.
type Batch struct {
	Runner      Runner
	PassThrough PassThrough
	Delay       time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
	Log         *logrus.Logger
	Out         io.Writer
	Err         io.Writer
}

func New(r Runner, pt PassThrough) *Batch {
	return &Batch{
		Runner:      r,
		PassThrough: pt,
		Sleep:       sleepContext,
		Log:         logging.Discard(),
		Out:         os.Stdout,
		Err:         os.Stderr,
	}
}

// Run submits every config in order. A failed config does not stop the
// ones after it. When any of them failed the returned error wraps
// ErrBatchFailed together with one error per failed config.
func (b *Batch) Run(ctx context.Context, configs []string) (Summary, error) {
	sum := Summary{Total: len(configs)}
	var failures *multierror.Error

	fmt.Fprintf(b.Out, "Found %d config file(s) to submit:\n", len(configs))
	for i, c := range configs {
		fmt.Fprintf(b.Out, "  %d. %s\n", i+1, c)
	}
	fmt.Fprintln(b.Out)
	if b.PassThrough.DryRun {
		fmt.Fprintf(b.Out, "%s\n\n", console.StyleWarning("DRY RUN MODE - No jobs will be submitted"))
	}

	for i, c := range configs {
		fmt.Fprintf(b.Out, "[%d/%d] Submitting %s...\n", i+1, len(configs), c)

		code, err := b.Runner.Run(ctx, SubmitArgs(c, b.PassThrough))
		switch {
		case err != nil:
			sum.Failed = append(sum.Failed, c)
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", c, err))
			b.Log.WithError(err).WithField("config", c).Error("submission did not run")
			fmt.Fprintf(b.Err, "%s\n\n", console.StyleError(fmt.Sprintf("✗ Error: %v", err)))
		case code != 0:
			sum.Failed = append(sum.Failed, c)
			failures = multierror.Append(failures, fmt.Errorf("%s: exit code %d", c, code))
			b.Log.WithFields(logrus.Fields{"config": c, "exit_code": code}).Warn("submission failed")
			fmt.Fprintf(b.Err, "%s\n\n", console.StyleError(fmt.Sprintf("✗ Failed (exit code: %d)", code)))
		default:
			sum.Submitted = append(sum.Submitted, c)
			fmt.Fprintf(b.Out, "%s\n\n", console.StyleSuccess("✓ Success"))
		}

		if b.Delay > 0 && i < len(configs)-1 {
			fmt.Fprintf(b.Out, "Waiting %gs before next submission...\n\n", b.Delay.Seconds())
			if err := b.Sleep(ctx, b.Delay); err != nil {
				return sum, err
			}
		}
	}

	b.printSummary(sum)
	if err := failures.ErrorOrNil(); err != nil {
		return sum, fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}
	return sum, nil
}

func (b *Batch) printSummary(sum Summary) {
	fmt.Fprintln(b.Out, rule)
	fmt.Fprintln(b.Out, console.StyleTitle("BATCH SUBMISSION SUMMARY"))
	fmt.Fprintln(b.Out, rule)
	fmt.Fprintf(b.Out, "Total configs: %d\n", sum.Total)
	fmt.Fprintf(b.Out, "Successfully submitted: %d\n", len(sum.Submitted))
	fmt.Fprintf(b.Out, "Failed: %d\n", len(sum.Failed))

	if len(sum.Failed) > 0 {
		fmt.Fprintln(b.Out, "\nFailed configs:")
		for _, c := range sum.Failed {
			fmt.Fprintf(b.Out, "  - %s\n", c)
		}
		return
	}
	if b.PassThrough.DryRun {
		fmt.Fprintln(b.Out, "\nDry-run complete. Use without --dry-run to submit.")
		return
	}
	fmt.Fprintf(b.Out, "\n%s\n", console.StyleSuccess("All jobs submitted successfully!"))
	fmt.Fprintln(b.Out, "\nMonitor with:")
	fmt.Fprintf(b.Out, "  %s\n", console.StyleHint("squeue -u $USER"))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
