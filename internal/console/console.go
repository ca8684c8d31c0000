// Package console holds the terminal styles used for user-facing output.
package console

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	red      = color.New(color.FgRed).SprintFunc()
	green    = color.New(color.FgGreen).SprintFunc()
	yellow   = color.New(color.FgYellow).SprintFunc()
	cyan     = color.New(color.FgCyan).SprintFunc()
	magenta  = color.New(color.FgMagenta).SprintFunc()
	blueBold = color.New(color.FgBlue, color.Bold).SprintFunc()
	bold     = color.New(color.Bold).SprintFunc()
)

// StyleError formats critical failure messages (Red).
func StyleError(msg string) string { return red(msg) }

// StyleSuccess formats success messages (Green).
func StyleSuccess(msg string) string { return green(msg) }

// StyleWarning formats non-critical warnings (Yellow).
func StyleWarning(msg string) string { return yellow(msg) }

// StyleHint formats follow-up commands (Cyan).
func StyleHint(msg string) string { return cyan(msg) }

// StylePath formats file paths (Bold Blue).
func StylePath(path string) string { return blueBold(path) }

// StyleNumber formats counts and job IDs (Magenta).
func StyleNumber(num interface{}) string { return magenta(fmt.Sprintf("%v", num)) }

// StyleTitle formats section headers.
func StyleTitle(title string) string { return bold(cyan(title)) }

// DisableColor turns styling off, e.g. for tests or --no-color.
func DisableColor() { color.NoColor = true }
