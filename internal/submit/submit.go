// Package submit prepares an output directory for one experiment config and
// hands the generated batch script to the scheduler.
package submit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imishinist/slurm-exp/internal/console"
	"github.com/imishinist/slurm-exp/internal/expconfig"
	"github.com/imishinist/slurm-exp/internal/ledger"
	"github.com/imishinist/slurm-exp/internal/logging"
	"github.com/imishinist/slurm-exp/internal/metadata"
	"github.com/imishinist/slurm-exp/internal/scheduler"
)

// File names inside an output directory.
const (
	ConfigCopyName = "config.yaml"
	ScriptName     = "submit.sh"
)

const rule = "======================================================================"

// Options are the per-invocation inputs.
type Options struct {
	ConfigPath string
	OutputBase string
	Overrides  scheduler.Overrides
	DryRun     bool
}

// Result describes what a submission produced.
type Result struct {
	OutputDir  string
	ScriptPath string
	Script     string
	Params     scheduler.Params
	JobID      string
}

// Recorder stores submission history.
type Recorder interface {
	Record(ctx context.Context, s ledger.Submission) (int64, error)
}

// Submitter runs the submit flow. Scheduler and VCS are required; the other
// fields have usable defaults.
type Submitter struct {
	Scheduler  scheduler.JobScheduler
	VCS        metadata.VersionControl
	Ledger     Recorder
	Log        *logrus.Logger
	Out        io.Writer
	EnvSetup   string
	RunCommand []string
	Now        func() time.Time
	NewID      func() string
}

// New returns a Submitter with default clock, ID source and output.
func New(sched scheduler.JobScheduler, vcs metadata.VersionControl) *Submitter {
	return &Submitter{
		Scheduler: sched,
		VCS:       vcs,
		Log:       logging.Discard(),
		Out:       os.Stdout,
		Now:       time.Now,
		NewID:     func() string { return metadata.ShortID(metadata.DefaultIDLength) },
	}
}

// OutputDirName returns {config_stem}_{timestamp}_{id}.
func OutputDirName(configPath string, now time.Time, id string) string {
	base := filepath.Base(configPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%s_%s", stem, metadata.Timestamp(now), id)
}

// Submit loads the config, writes the output directory and either prints
// the script (dry run) or submits it. Files already written stay on disk
// when a later step fails.
func (s *Submitter) Submit(ctx context.Context, opts Options) (*Result, error) {
	log := s.Log.WithField("config", opts.ConfigPath)

	log.Debug("loading config")
	cfg, err := expconfig.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params := scheduler.ResolveParams(cfg.Slurm, opts.Overrides)
	log.WithField("params", params.Entries()).Debug("resolved scheduler parameters")

	now := s.Now()
	outputBase := opts.OutputBase
	if outputBase == "" {
		outputBase = "outputs"
	}
	outputDir := filepath.Join(outputBase, OutputDirName(opts.ConfigPath, now, s.NewID()))
	if err := os.MkdirAll(outputBase, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output base %s: %w", outputBase, err)
	}
	if err := os.Mkdir(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}
	log.WithField("output_dir", outputDir).Debug("created output directory")

	if err := expconfig.Save(cfg, filepath.Join(outputDir, ConfigCopyName)); err != nil {
		return nil, err
	}

	script, err := scheduler.RenderScript(scheduler.ScriptSpec{
		ScriptPath: cfg.Script,
		ConfigPath: opts.ConfigPath,
		OutputDir:  outputDir,
		Params:     params,
		EnvSetup:   s.EnvSetup,
		RunCommand: s.RunCommand,
	})
	if err != nil {
		return nil, err
	}

	scriptPath := filepath.Join(outputDir, ScriptName)
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", scriptPath, err)
	}
	if err := os.Chmod(scriptPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to chmod %s: %w", scriptPath, err)
	}

	res := &Result{OutputDir: outputDir, ScriptPath: scriptPath, Script: script, Params: params}
	s.printSummary(opts.ConfigPath, cfg.Script, res)

	if opts.DryRun {
		s.printDryRun(res)
		s.record(ctx, opts, res, metadata.GitInfo{}, true)
		return res, nil
	}

	fmt.Fprintf(s.Out, "\nSubmitting job...\n")
	jobID, err := s.Scheduler.Submit(ctx, scriptPath)
	if err != nil {
		return res, err
	}
	res.JobID = jobID
	log.WithField("job_id", jobID).Info("job submitted")

	fmt.Fprintln(s.Out, console.StyleSuccess("Job submitted successfully!"))
	fmt.Fprintf(s.Out, "Job ID: %s\n", console.StyleNumber(jobID))

	git := s.VCS.Info(ctx)
	rec := metadata.NewRecord(now, opts.ConfigPath, git, jobID)
	rec.Extra = map[string]any{
		"output_dir":   outputDir,
		"slurm_params": paramsMap(params),
	}
	if err := metadata.Write(outputDir, rec); err != nil {
		return res, err
	}
	s.record(ctx, opts, res, git, false)

	fmt.Fprintf(s.Out, "\nMonitor job with:\n")
	fmt.Fprintf(s.Out, "  %s\n", console.StyleHint("squeue -j "+jobID))
	fmt.Fprintf(s.Out, "  %s\n", console.StyleHint(fmt.Sprintf("tail -f %s/slurm-%s.out", outputDir, jobID)))
	return res, nil
}

func paramsMap(p scheduler.Params) map[string]string {
	entries := p.Entries()
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}

func (s *Submitter) printSummary(configPath, script string, res *Result) {
	base := filepath.Base(configPath)
	fmt.Fprintf(s.Out, "Experiment: %s\n", strings.TrimSuffix(base, filepath.Ext(base)))
	fmt.Fprintf(s.Out, "Output directory: %s\n", console.StylePath(res.OutputDir))
	fmt.Fprintf(s.Out, "Config: %s\n", configPath)
	fmt.Fprintf(s.Out, "Script: %s\n", script)
	fmt.Fprintf(s.Out, "\nSLURM parameters:\n")
	for _, e := range res.Params.Entries() {
		fmt.Fprintf(s.Out, "  %s: %s\n", e.Key, e.Value)
	}
}

func (s *Submitter) printDryRun(res *Result) {
	fmt.Fprintf(s.Out, "\n%s\n", rule)
	fmt.Fprintln(s.Out, console.StyleTitle("DRY RUN - Generated submit.sh:"))
	fmt.Fprintln(s.Out, rule)
	fmt.Fprint(s.Out, res.Script)
	fmt.Fprintln(s.Out, rule)
	fmt.Fprintf(s.Out, "\nSubmit script saved to: %s\n", console.StylePath(res.ScriptPath))
	fmt.Fprintln(s.Out, "To submit manually, run:")
	fmt.Fprintf(s.Out, "  %s\n", console.StyleHint("sbatch "+res.ScriptPath))
}

// record writes a ledger row; history is best effort and never fails a submission.
func (s *Submitter) record(ctx context.Context, opts Options, res *Result, git metadata.GitInfo, dryRun bool) {
	if s.Ledger == nil {
		return
	}
	_, err := s.Ledger.Record(ctx, ledger.Submission{
		ConfigPath: opts.ConfigPath,
		OutputDir:  res.OutputDir,
		JobID:      res.JobID,
		GitHash:    git.Hash,
		GitBranch:  git.Branch,
		DryRun:     dryRun,
		CreatedAt:  s.Now(),
	})
	if err != nil {
		s.Log.WithError(err).Warn("failed to record submission history")
	}
}
