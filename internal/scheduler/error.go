package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchedulerNotFound indicates the scheduler binary could not be executed
	ErrSchedulerNotFound = errors.New("scheduler binary not found")

	// ErrJobSubmissionFailed indicates the scheduler rejected the job
	ErrJobSubmissionFailed = errors.New("job submission failed")

	// ErrJobIDParseFailed indicates parsing job ID from output failed
	ErrJobIDParseFailed = errors.New("failed to parse job ID from scheduler output")
)

// SubmissionError carries the scheduler output of a failed submission.
type SubmissionError struct {
	Scheduler string // Scheduler name
	Script    string // Submitted script path
	ExitCode  int    // Exit status, -1 when the process never ran
	Stderr    string // Captured standard error
	Err       error  // Underlying error
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("%s submission failed for %s: %v", e.Scheduler, e.Script, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// NewSubmissionError creates a new SubmissionError
func NewSubmissionError(scheduler, script string, exitCode int, stderr string, err error) *SubmissionError {
	return &SubmissionError{
		Scheduler: scheduler,
		Script:    script,
		ExitCode:  exitCode,
		Stderr:    stderr,
		Err:       err,
	}
}
