package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/slurm-exp/internal/batch"
	"github.com/imishinist/slurm-exp/internal/console"
	"github.com/imishinist/slurm-exp/internal/metadata"
)

func init() {
	console.DisableColor()
}

func resetViper() {
	viper.Reset()
	initConfig()
	bindFlags()
}

// resetFlags clears values left behind by earlier Execute calls.
func resetFlags(cmds ...*cobra.Command) {
	for _, c := range cmds {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd, submitCmd, batchCmd, helloCmd, historyCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func onlyDir(t *testing.T, base string) string {
	t.Helper()
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(base, e.Name()))
		}
	}
	require.Len(t, dirs, 1)
	return dirs[0]
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"submit", "batch", "hello", "history"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommand_EnvVarBinding(t *testing.T) {
	t.Setenv("SLURMEXP_SBATCH_BIN", "/opt/slurm/bin/sbatch")
	t.Setenv("MLFLOW_TRACKING_URI", "http://mlflow:5000")
	t.Setenv("DATABRICKS_HOST", "https://x.cloud.databricks.com")
	resetViper()

	assert.Equal(t, "/opt/slurm/bin/sbatch", viper.GetString("sbatch_bin"))
	assert.Equal(t, "http://mlflow:5000", viper.GetString("tracking_uri"))
	assert.Equal(t, "https://x.cloud.databricks.com", viper.GetString("databricks_host"))
	assert.Equal(t, "load-env.sh", viper.GetString("env_setup"))
}

func TestSubmitCommand_DryRun(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	cfg := writeFile(t, filepath.Join(dir, "hello.yaml"), "script: src/hello_world.py\nslurm:\n  time: \"01:00:00\"\n", 0o644)
	base := filepath.Join(dir, "outputs")

	stdout, _, err := execute(t, "submit", "--config", cfg, "--output-base", base, "--dry-run", "--partition", "debug")
	require.NoError(t, err)

	out := onlyDir(t, base)
	assert.True(t, strings.HasPrefix(filepath.Base(out), "hello_"))
	assert.FileExists(t, filepath.Join(out, "config.yaml"))
	assert.NoFileExists(t, filepath.Join(out, metadata.FileName))

	assert.Contains(t, stdout, "DRY RUN - Generated submit.sh:")
	assert.Contains(t, stdout, "#SBATCH --time=01:00:00")
	assert.Contains(t, stdout, "#SBATCH --partition=debug")
	assert.Contains(t, stdout, "source load-env.sh")

	history, _, err := execute(t, "history", "--output-base", base)
	require.NoError(t, err)
	assert.Contains(t, history, "(dry-run)")
	assert.Contains(t, history, cfg)
}

func TestSubmitCommand_Success(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	sbatch := writeFile(t, filepath.Join(dir, "bin", "sbatch"), "#!/bin/sh\necho \"Submitted batch job 42\"\n", 0o755)
	viper.Set("sbatch_bin", sbatch)
	cfg := writeFile(t, filepath.Join(dir, "hello.yaml"), "script: src/hello_world.py\n", 0o644)
	base := filepath.Join(dir, "outputs")

	stdout, _, err := execute(t, "submit", "--config", cfg, "--output-base", base)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Job ID: 42")

	rec, err := metadata.Read(onlyDir(t, base))
	require.NoError(t, err)
	assert.Equal(t, "42", rec.SlurmJobID)
	assert.Equal(t, cfg, rec.ConfigPath)
}

func TestSubmitCommand_SchedulerFailure(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	sbatch := writeFile(t, filepath.Join(dir, "bin", "sbatch"), "#!/bin/sh\necho 'sbatch: error: invalid partition' >&2\nexit 1\n", 0o755)
	viper.Set("sbatch_bin", sbatch)
	cfg := writeFile(t, filepath.Join(dir, "hello.yaml"), "script: src/hello_world.py\n", 0o644)
	base := filepath.Join(dir, "outputs")

	_, stderr, err := execute(t, "submit", "--config", cfg, "--output-base", base)
	require.Error(t, err)
	assert.Contains(t, stderr, "invalid partition")
	assert.NoFileExists(t, filepath.Join(onlyDir(t, base), metadata.FileName))
}

func TestSubmitCommand_MissingConfig(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	base := filepath.Join(dir, "outputs")

	_, stderr, err := execute(t, "submit", "--config", filepath.Join(dir, "nope.yaml"), "--output-base", base)
	require.Error(t, err)
	assert.Contains(t, stderr, "Config file not found")
	assert.NoDirExists(t, base)
}

func TestSubmitCommand_MissingScriptCreatesNothing(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	base := filepath.Join(dir, "outputs")
	cfgPath := writeFile(t, filepath.Join(dir, "noscript.yaml"), "slurm:\n  time: \"01:00:00\"\n", 0o644)

	_, stderr, err := execute(t, "submit", "--config", cfgPath, "--output-base", base, "--dry-run")
	require.Error(t, err)
	assert.Contains(t, stderr, "Config must have 'script' field")
	assert.NoDirExists(t, base)
}

func TestSubmitCommand_RequiresConfigFlag(t *testing.T) {
	resetViper()
	_, _, err := execute(t, "submit")
	assert.Error(t, err)
}

type recordingRunner struct {
	calls [][]string
	fail  map[string]bool
}

func (r *recordingRunner) Run(_ context.Context, args []string) (int, error) {
	r.calls = append(r.calls, args)
	if r.fail[args[2]] {
		return 1, nil
	}
	return 0, nil
}

func withRunner(t *testing.T, r batch.Runner) {
	t.Helper()
	orig := newBatchRunner
	newBatchRunner = func(_, _ io.Writer) batch.Runner { return r }
	t.Cleanup(func() { newBatchRunner = orig })
}

func TestBatchCommand_DedupesAndFilters(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.yaml"), "script: x.py\n", 0o644)
	b := writeFile(t, filepath.Join(dir, "b.yml"), "script: x.py\n", 0o644)
	txt := writeFile(t, filepath.Join(dir, "notes.txt"), "", 0o644)
	r := &recordingRunner{}
	withRunner(t, r)

	stdout, _, err := execute(t, "batch", "--dry-run", "--partition", "gpu", a, b, a, txt)
	require.NoError(t, err)

	require.Len(t, r.calls, 2)
	assert.Equal(t, []string{"submit", "--config", a, "--dry-run", "--partition", "gpu"}, r.calls[0])
	assert.Equal(t, []string{"submit", "--config", b, "--dry-run", "--partition", "gpu"}, r.calls[1])
	assert.Contains(t, stdout, "Found 2 config file(s) to submit:")
	assert.Contains(t, stdout, "Total configs: 2")
}

func TestBatchCommand_PartialFailure(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.yaml"), "script: x.py\n", 0o644)
	b := writeFile(t, filepath.Join(dir, "b.yaml"), "script: x.py\n", 0o644)
	r := &recordingRunner{fail: map[string]bool{b: true}}
	withRunner(t, r)

	stdout, _, err := execute(t, "batch", a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, batch.ErrBatchFailed)
	assert.Len(t, r.calls, 2)
	assert.Contains(t, stdout, "Successfully submitted: 1")
	assert.Contains(t, stdout, "Failed: 1")
}

func TestBatchCommand_NoConfigs(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	withRunner(t, &recordingRunner{})

	_, stderr, err := execute(t, "batch", filepath.Join(dir, "missing_*.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, batch.ErrNoConfigs)
	assert.Contains(t, stderr, "Warning: No files match pattern:")
}

func TestHelloCommand(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	cfg := writeFile(t, filepath.Join(dir, "hello.yaml"), "script: hello\nseed: 3\n", 0o644)
	out := filepath.Join(dir, "run")

	stdout, _, err := execute(t, "hello", "--config", cfg, "--output-dir", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Starting Hello World experiment")

	status, err := os.ReadFile(filepath.Join(out, "status.txt"))
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS\n", string(status))
	assert.FileExists(t, filepath.Join(out, "results.txt"))
}

func TestHistoryCommand_Empty(t *testing.T) {
	resetViper()
	stdout, _, err := execute(t, "history", "--output-base", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No submissions recorded")
}
