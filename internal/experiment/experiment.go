// Package experiment is the hello-world workload shipped with the tool. It
// shows the contract a submitted script follows: read --config, write into
// --output-dir, and leave a status file behind.
package experiment

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imishinist/slurm-exp/internal/expconfig"
	"github.com/imishinist/slurm-exp/internal/logging"
	"github.com/imishinist/slurm-exp/internal/models"
	"github.com/imishinist/slurm-exp/internal/parser"
	"github.com/imishinist/slurm-exp/internal/scheduler"
	"github.com/imishinist/slurm-exp/internal/tracking"
)

const (
	ResultsFileName = "results.txt"
	DataFileName    = "data.csv"

	rows = 100
	cols = 10
)

// Experiment holds one invocation of the hello workload.
type Experiment struct {
	ConfigPath string
	OutputDir  string
	LogLevel   string
	Console    io.Writer

	// ExperimentID skips resolving the tracking project by name.
	ExperimentID string
	// NewTracker is called only when the config enables tracking.
	NewTracker func() (tracking.Tracker, error)

	log     *logrus.Logger
	tracker tracking.Tracker
	runID   string
}

// Run executes the experiment. On failure the error is logged, recorded in
// the status file and the tracking run, then returned.
func (e *Experiment) Run(ctx context.Context) error {
	e.log = logging.Discard()

	closeLog, err := e.run(ctx)
	if err != nil {
		e.fail(ctx, err)
	}
	if closeLog != nil {
		closeLog()
	}
	return err
}

func (e *Experiment) run(ctx context.Context) (func() error, error) {
	cfg, err := expconfig.Load(e.ConfigPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", e.OutputDir, err)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Name:      "experiment",
		Level:     e.LogLevel,
		OutputDir: e.OutputDir,
		ToFile:    true,
		ToConsole: true,
		Console:   e.Console,
	})
	if err != nil {
		return nil, err
	}
	e.log = logger

	e.log.Info("Starting Hello World experiment")
	e.log.Infof("Config: %v", cfg.Map())
	e.log.Infof("Output directory: %s", e.OutputDir)

	rng := newRand(cfg.Seed)
	if cfg.Seed != nil {
		e.log.Infof("Set seed to %d", *cfg.Seed)
	}

	if cfg.TrackingEnabled() {
		if err := e.startRun(ctx, cfg); err != nil {
			return closeLog, err
		}
	}

	e.log.Info("Running experiment...")
	data := normalMatrix(rng, rows, cols)
	mean, std := meanStd(data)
	e.log.Infof("Generated data shape: (%d, %d)", rows, cols)
	e.log.Infof("Mean: %.4f, Std: %.4f", mean, std)

	if e.tracker != nil {
		metrics := models.MetricsAt(map[string]float64{"mean": mean, "std": std}, time.Now(), 0)
		if err := e.tracker.LogMetrics(ctx, e.runID, metrics); err != nil {
			return closeLog, err
		}
	}

	resultsPath := filepath.Join(e.OutputDir, ResultsFileName)
	if err := writeResults(resultsPath, mean, std); err != nil {
		return closeLog, err
	}
	e.log.Infof("Results saved to %s", resultsPath)

	dataPath := filepath.Join(e.OutputDir, DataFileName)
	if err := writeCSV(dataPath, data); err != nil {
		return closeLog, err
	}
	e.log.Infof("Data saved to %s", dataPath)

	if e.tracker != nil {
		for _, p := range []string{resultsPath, dataPath} {
			if err := e.tracker.UploadArtifact(ctx, e.runID, p, ""); err != nil {
				return closeLog, err
			}
		}
		if err := e.tracker.UpdateRun(ctx, e.runID, models.RunStatusFinished); err != nil {
			return closeLog, err
		}
	}

	e.log.Info("Experiment completed successfully!")
	if err := writeStatus(e.OutputDir, "SUCCESS\n"); err != nil {
		return closeLog, err
	}
	return closeLog, nil
}

func (e *Experiment) startRun(ctx context.Context, cfg *expconfig.Config) error {
	if e.NewTracker == nil {
		return fmt.Errorf("tracking is enabled but no tracking server is configured")
	}
	e.log.Info("Initializing experiment tracking")

	tracker, err := e.NewTracker()
	if err != nil {
		return err
	}

	experimentID := e.ExperimentID
	if experimentID == "" {
		experimentID, err = tracker.ResolveExperiment(ctx, cfg.Tracking.Project)
		if err != nil {
			return err
		}
	}

	runCfg := &models.RunConfig{ExperimentID: &experimentID, Tags: map[string]string{}}
	if cfg.Tracking.Name != "" {
		runCfg.RunName = &cfg.Tracking.Name
	}
	if jobID := os.Getenv("SLURM_JOB_ID"); jobID != "" {
		runCfg.Tags["slurm_job_id"] = jobID
	}
	runCfg.Tags["output_dir"] = e.OutputDir

	run, err := tracker.CreateRun(ctx, runCfg)
	if err != nil {
		return err
	}
	e.tracker = tracker
	e.runID = run.RunID
	e.log.Infof("Tracking run: %s", run.RunName)

	params, err := parser.FlattenParams(cfg.Map())
	if err != nil {
		return err
	}
	return tracker.LogParams(ctx, run.RunID, models.ParamsFromMap(params))
}

// fail records err everywhere it can; each step is best effort.
func (e *Experiment) fail(ctx context.Context, err error) {
	e.log.Errorf("Experiment failed: %v", err)
	e.log.Errorf("%s", debug.Stack())

	if e.tracker != nil {
		if uerr := e.tracker.UpdateRun(ctx, e.runID, models.RunStatusFailed); uerr != nil {
			e.log.WithError(uerr).Warn("failed to mark tracking run as failed")
		}
	}

	if e.OutputDir == "" {
		return
	}
	if werr := writeStatus(e.OutputDir, fmt.Sprintf("FAILED (exit code: 1)\nError: %v\n", err)); werr != nil {
		e.log.WithError(werr).Debug("could not write status file")
	}
}

func writeStatus(dir, content string) error {
	return os.WriteFile(filepath.Join(dir, scheduler.StatusFileName), []byte(content), 0o644)
}

func newRand(seed *int64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(*seed), 0))
}
