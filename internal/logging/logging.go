// Package logging builds explicitly owned logrus loggers with console and
// file sinks. Nothing here touches the logrus standard logger.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogFileName is the file sink inside the output directory.
const LogFileName = "experiment.log"

const timestampFormat = "2006-01-02 15:04:05"

// Options configures New.
type Options struct {
	Name      string // logger name shown on every line
	Level     string // debug, info, warn, error
	OutputDir string // directory for the file sink, empty disables it
	ToFile    bool
	ToConsole bool
	Console   io.Writer // defaults to os.Stdout
}

// New returns a logger and a function closing its file sink.
func New(opts Options) (*logrus.Logger, func() error, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}

	name := opts.Name
	if name == "" {
		name = "experiment"
	}

	var writers []io.Writer
	closer := func() error { return nil }

	if opts.ToConsole {
		console := opts.Console
		if console == nil {
			console = os.Stdout
		}
		writers = append(writers, console)
	}

	if opts.ToFile && opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", opts.OutputDir, err)
		}
		path := filepath.Join(opts.OutputDir, LogFileName)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		writers = append(writers, f)
		closer = f.Close
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&lineFormatter{name: name})
	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
	return logger, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// lineFormatter renders "time - name - LEVEL - message key=value...".
type lineFormatter struct {
	name string
}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s - %s - %s - %s",
		entry.Time.Format(timestampFormat),
		f.name,
		strings.ToUpper(entry.Level.String()),
		entry.Message,
	)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
