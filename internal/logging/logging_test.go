package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsoleAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	var console bytes.Buffer

	logger, closeLog, err := New(Options{
		Name:      "experiment",
		Level:     "info",
		OutputDir: dir,
		ToFile:    true,
		ToConsole: true,
		Console:   &console,
	})
	require.NoError(t, err)

	logger.Info("Starting Hello World experiment")
	logger.Debug("hidden")
	logger.WithField("seed", 42).Warn("seeded")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)

	assert.Equal(t, console.String(), string(data))
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} - experiment - INFO - Starting Hello World experiment\n`, console.String())
	assert.Contains(t, console.String(), " - experiment - WARNING - seeded seed=42\n")
	assert.NotContains(t, console.String(), "hidden")
}

func TestNewIsolatedLoggers(t *testing.T) {
	var a, b bytes.Buffer
	la, _, err := New(Options{Name: "a", ToConsole: true, Console: &a})
	require.NoError(t, err)
	lb, _, err := New(Options{Name: "b", Level: "debug", ToConsole: true, Console: &b})
	require.NoError(t, err)

	la.Debug("from a")
	lb.Debug("from b")

	assert.Empty(t, a.String())
	assert.Contains(t, b.String(), " - b - DEBUG - from b")
	assert.Equal(t, logrus.InfoLevel, logrus.StandardLogger().GetLevel())
}

func TestNewFileOnlyWithoutDir(t *testing.T) {
	logger, closeLog, err := New(Options{ToFile: true})
	require.NoError(t, err)
	logger.Info("nowhere")
	assert.NoError(t, closeLog())
}

func TestNewInvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "chatty"})
	assert.Error(t, err)
}
