package scheduler

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec() ScriptSpec {
	return ScriptSpec{
		ScriptPath: "src/hello_world.py",
		ConfigPath: "configs/hello.yaml",
		OutputDir:  "outputs/hello_2024-01-02_03-04-05_abcd1234",
		Params: Params{
			JobName:     "hello",
			Time:        "04:00:00",
			MemPerCPU:   "4G",
			CPUsPerTask: "2",
		},
		EnvSetup:   "load-env.sh",
		RunCommand: []string{"uv", "run", "--env-file", ".env"},
	}
}

const expectedScript = `#!/bin/bash

#SBATCH --job-name=hello
#SBATCH --time=04:00:00
#SBATCH --mem-per-cpu=4G
#SBATCH --cpus-per-task=2
#SBATCH --output=outputs/hello_2024-01-02_03-04-05_abcd1234/slurm-%j.out
#SBATCH --error=outputs/hello_2024-01-02_03-04-05_abcd1234/slurm-%j.err

# Print job information
echo "Job ID: $SLURM_JOB_ID"
echo "Output directory:" outputs/hello_2024-01-02_03-04-05_abcd1234
echo "Config:" configs/hello.yaml
echo "Node: $SLURM_NODELIST"
echo "Start time: $(date)"

# Source environment setup
source load-env.sh

# Run experiment
uv run --env-file .env src/hello_world.py \
  --config configs/hello.yaml \
  --output-dir outputs/hello_2024-01-02_03-04-05_abcd1234

# Capture exit code
EXIT_CODE=$?

# Write status
if [ $EXIT_CODE -eq 0 ]; then
  echo "SUCCESS" > outputs/hello_2024-01-02_03-04-05_abcd1234/status.txt
else
  echo "FAILED (exit code: $EXIT_CODE)" > outputs/hello_2024-01-02_03-04-05_abcd1234/status.txt
fi

echo "End time: $(date)"
echo "Exit code: $EXIT_CODE"

exit $EXIT_CODE
`

func TestRenderScript(t *testing.T) {
	got, err := RenderScript(testSpec())
	require.NoError(t, err)
	assert.Equal(t, expectedScript, got)
}

func TestRenderScriptDeterministic(t *testing.T) {
	a, err := RenderScript(testSpec())
	require.NoError(t, err)
	b, err := RenderScript(testSpec())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderScriptDirectives(t *testing.T) {
	count := func(script, prefix string) int {
		n := 0
		for _, line := range strings.Split(script, "\n") {
			if strings.HasPrefix(line, prefix) {
				n++
			}
		}
		return n
	}

	mandatory := []string{
		"#SBATCH --job-name=",
		"#SBATCH --time=",
		"#SBATCH --mem-per-cpu=",
		"#SBATCH --cpus-per-task=",
		"#SBATCH --output=",
		"#SBATCH --error=",
	}

	tests := []struct {
		name          string
		gpus          string
		partition     string
		wantGPU       int
		wantPartition int
	}{
		{"neither", "", "", 0, 0},
		{"gpus only", "rtx_3090:1", "", 1, 0},
		{"partition only", "", "gpu", 0, 1},
		{"both", "a100:2", "gpu", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testSpec()
			in.Params.GPUs = tt.gpus
			in.Params.Partition = tt.partition

			script, err := RenderScript(in)
			require.NoError(t, err)

			for _, d := range mandatory {
				assert.Equal(t, 1, count(script, d), d)
			}
			assert.Equal(t, tt.wantGPU, count(script, "#SBATCH --gpus="))
			assert.Equal(t, tt.wantPartition, count(script, "#SBATCH --partition="))
			if tt.gpus != "" {
				assert.Contains(t, script, "#SBATCH --gpus="+tt.gpus+"\n")
			}
			if tt.partition != "" {
				assert.Contains(t, script, "#SBATCH --partition="+tt.partition+"\n")
			}
		})
	}
}

func TestRenderScriptWithoutEnvSetup(t *testing.T) {
	in := testSpec()
	in.EnvSetup = ""
	in.RunCommand = nil

	script, err := RenderScript(in)
	require.NoError(t, err)
	assert.NotContains(t, script, "source ")
	assert.Contains(t, script, "echo \"Start time: $(date)\"\n\n# Run experiment\nsrc/hello_world.py \\\n")
}

func TestRenderScriptQuotesPaths(t *testing.T) {
	in := testSpec()
	in.OutputDir = "my outputs/run 1"

	script, err := RenderScript(in)
	require.NoError(t, err)
	assert.NotContains(t, script, "--output-dir my outputs/run 1\n")
	assert.Contains(t, script, "#SBATCH --output=my outputs/run 1/slurm-%j.out")
}

func TestRenderScriptIsValidShell(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not installed")
	}
	in := testSpec()
	in.OutputDir = "dir with 'quotes' and $vars"
	in.Params.GPUs = "a100:1"

	script, err := RenderScript(in)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "submit.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	out, err := exec.Command(bash, "-n", path).CombinedOutput()
	assert.NoError(t, err, string(out))
}

func TestParseRunCommand(t *testing.T) {
	words, err := ParseRunCommand(`uv run --env-file ".env local"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"uv", "run", "--env-file", ".env local"}, words)

	_, err = ParseRunCommand(`python "unterminated`)
	assert.Error(t, err)
}
