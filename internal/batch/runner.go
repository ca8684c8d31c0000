package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// PassThrough holds the submit flags forwarded to every submission.
type PassThrough struct {
	DryRun      bool
	Time        string
	MemPerCPU   string
	CPUsPerTask int
	GPUs        string
	Partition   string
	OutputBase  string
}

// SubmitArgs builds the submit subcommand arguments for one config. Unset
// values are left out so the submit defaults apply.
func SubmitArgs(config string, pt PassThrough) []string {
	args := []string{"submit", "--config", config}
	if pt.DryRun {
		args = append(args, "--dry-run")
	}
	if pt.Time != "" {
		args = append(args, "--time", pt.Time)
	}
	if pt.MemPerCPU != "" {
		args = append(args, "--mem-per-cpu", pt.MemPerCPU)
	}
	if pt.CPUsPerTask > 0 {
		args = append(args, "--cpus-per-task", strconv.Itoa(pt.CPUsPerTask))
	}
	if pt.GPUs != "" {
		args = append(args, "--gpus", pt.GPUs)
	}
	if pt.Partition != "" {
		args = append(args, "--partition", pt.Partition)
	}
	if pt.OutputBase != "" {
		args = append(args, "--output-base", pt.OutputBase)
	}
	return args
}

// Runner runs one submission and reports its exit code. A non-nil error
// means the process could not be run at all.
type Runner interface {
	Run(ctx context.Context, args []string) (int, error)
}

// ExecRunner re-executes a binary, the running one by default, with its
// output connected to Stdout and Stderr.
type ExecRunner struct {
	Bin    string
	Stdout io.Writer
	Stderr io.Writer
}

func (r *ExecRunner) Run(ctx context.Context, args []string) (int, error) {
	bin := r.Bin
	if bin == "" {
		exe, err := os.Executable()
		if err != nil {
			return -1, fmt.Errorf("failed to locate executable: %w", err)
		}
		bin = exe
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}
