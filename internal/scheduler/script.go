package scheduler

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/kballard/go-shellquote"
)

// StatusFileName is written by the generated script when the job ends.
const StatusFileName = "status.txt"

// The following fields are available in the submission template:
//
// ScriptPath   experiment script to run
// ConfigPath   config file handed to the script
// OutputDir    per-submission output directory
// StatusFile   status file inside OutputDir
// Params       resolved scheduler parameters
// EnvSetup     file sourced before running, skipped when empty
// RunCommand   launcher words placed before the script
var submitTemplate = `#!/bin/bash

#SBATCH --job-name={{.Params.JobName}}
#SBATCH --time={{.Params.Time}}
#SBATCH --mem-per-cpu={{.Params.MemPerCPU}}
#SBATCH --cpus-per-task={{.Params.CPUsPerTask}}
{{- if .Params.GPUs}}
#SBATCH --gpus={{.Params.GPUs}}
{{- end}}
{{- if .Params.Partition}}
#SBATCH --partition={{.Params.Partition}}
{{- end}}
#SBATCH --output={{.OutputDir}}/slurm-%j.out
#SBATCH --error={{.OutputDir}}/slurm-%j.err

# Print job information
echo "Job ID: $SLURM_JOB_ID"
echo "Output directory:" {{quote .OutputDir}}
echo "Config:" {{quote .ConfigPath}}
echo "Node: $SLURM_NODELIST"
echo "Start time: $(date)"
{{- if .EnvSetup}}

# Source environment setup
source {{quote .EnvSetup}}
{{- end}}

# Run experiment
{{with .RunCommand}}{{join .}} {{end}}{{quote .ScriptPath}} \
  --config {{quote .ConfigPath}} \
  --output-dir {{quote .OutputDir}}

# Capture exit code
EXIT_CODE=$?

# Write status
if [ $EXIT_CODE -eq 0 ]; then
  echo "SUCCESS" > {{quote .StatusFile}}
else
  echo "FAILED (exit code: $EXIT_CODE)" > {{quote .StatusFile}}
fi

echo "End time: $(date)"
echo "Exit code: $EXIT_CODE"

exit $EXIT_CODE
`

var scriptTpl = template.Must(template.New("submit.sh").Funcs(template.FuncMap{
	"quote": func(s string) string { return shellquote.Join(s) },
	"join":  func(words []string) string { return shellquote.Join(words...) },
}).Parse(submitTemplate))

// ScriptSpec is everything the submission script depends on.
type ScriptSpec struct {
	ScriptPath string
	ConfigPath string
	OutputDir  string
	Params     Params
	EnvSetup   string
	RunCommand []string
}

// RenderScript returns the text of the batch script. It has no side effects
// and identical inputs render identical bytes.
func RenderScript(in ScriptSpec) (string, error) {
	var buf bytes.Buffer
	err := scriptTpl.Execute(&buf, struct {
		ScriptSpec
		StatusFile string
	}{
		ScriptSpec: in,
		StatusFile: filepath.Join(in.OutputDir, StatusFileName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render submit script: %w", err)
	}
	return buf.String(), nil
}

// ParseRunCommand splits a launcher command line into words.
func ParseRunCommand(s string) ([]string, error) {
	words, err := shellquote.Split(s)
	if err != nil {
		return nil, fmt.Errorf("invalid run command %q: %w", s, err)
	}
	return words, nil
}
