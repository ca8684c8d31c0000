package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// JobScheduler submits a written batch script and returns the job ID.
type JobScheduler interface {
	Submit(ctx context.Context, scriptPath string) (string, error)
}

// SlurmScheduler submits jobs with sbatch.
type SlurmScheduler struct {
	sbatchBin string
}

// NewSlurmScheduler creates a SLURM scheduler. An empty binary means sbatch from PATH.
func NewSlurmScheduler(sbatchBin string) *SlurmScheduler {
	if sbatchBin == "" {
		sbatchBin = "sbatch"
	}
	return &SlurmScheduler{sbatchBin: sbatchBin}
}

// Submit runs sbatch with the script as its only argument.
func (s *SlurmScheduler) Submit(ctx context.Context, scriptPath string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.sbatchBin, scriptPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", NewSubmissionError("SLURM", scriptPath, exitErr.ExitCode(), stderr.String(),
				fmt.Errorf("%w: %v", ErrJobSubmissionFailed, err))
		}
		return "", NewSubmissionError("SLURM", scriptPath, -1, stderr.String(),
			fmt.Errorf("%w: %v", ErrSchedulerNotFound, err))
	}

	return ParseJobID(stdout.String())
}

// ParseJobID takes the last whitespace-delimited token of sbatch output.
// Example output:
// Submitted batch job 2723147
func ParseJobID(output string) (string, error) {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: %q", ErrJobIDParseFailed, output)
	}
	return fields[len(fields)-1], nil
}
