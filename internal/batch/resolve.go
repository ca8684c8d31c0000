package batch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNoConfigs     = errors.New("No config files found")
	ErrNoYAMLConfigs = errors.New("No YAML config files found")
)

// ResolveConfigs turns the positional arguments into the ordered list of
// YAML configs to submit. Patterns the shell did not expand are globbed
// against the working directory; patterns matching nothing produce a
// warning on warn and are skipped.
func ResolveConfigs(patterns []string, warn io.Writer) ([]string, error) {
	var paths []string
	for _, p := range patterns {
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
			continue
		}
		// A malformed pattern matches nothing.
		matches, _ := filepath.Glob(p)
		if len(matches) == 0 {
			fmt.Fprintf(warn, "Warning: No files match pattern: %s\n", p)
			continue
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, ErrNoConfigs
	}

	paths = dedupe(paths)

	yamls := paths[:0]
	for _, p := range paths {
		if isYAML(p) {
			yamls = append(yamls, p)
		}
	}
	if len(yamls) == 0 {
		return nil, ErrNoYAMLConfigs
	}
	return yamls, nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func isYAML(p string) bool {
	return strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml")
}
