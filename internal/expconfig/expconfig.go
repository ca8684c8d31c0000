// Package expconfig loads, saves and merges experiment configuration files.
//
// A configuration keeps three views of the same YAML document: the parsed
// node tree, which is what gets written back so key order and comments
// survive, the raw nested map, which is what gets merged, and a typed view
// holding the keys the tool understands.
package expconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound indicates the configuration file does not exist
	ErrNotFound = errors.New("config file not found")

	// ErrMissingScript indicates the configuration has no script to run
	ErrMissingScript = errors.New("Config must have 'script' field")
)

// NotFoundError reports the path of a missing configuration file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Config file not found: %s", e.Path)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// SlurmConfig holds the scheduler section. Zero values mean "not set".
// Values are kept as the scalar text from the file, whatever its YAML type,
// and handed to sbatch unchecked.
type SlurmConfig struct {
	JobName     string `yaml:"job_name,omitempty"`
	Time        string `yaml:"time,omitempty"`
	MemPerCPU   string `yaml:"mem_per_cpu,omitempty"`
	CPUsPerTask string `yaml:"cpus_per_task,omitempty"`
	GPUs        string `yaml:"gpus,omitempty"`
	Partition   string `yaml:"partition,omitempty"`

	// Extra keeps unrecognized scheduler keys so they can be reported.
	Extra map[string]any `yaml:",inline"`
}

// TrackingConfig controls experiment tracking. It is read from the "wandb"
// key so existing experiment configs keep working; runs go to MLflow.
type TrackingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Project string `yaml:"project,omitempty"`
	Name    string `yaml:"name,omitempty"`
}

// Config is a loaded experiment configuration.
type Config struct {
	Script   string          `yaml:"script,omitempty"`
	Slurm    SlurmConfig     `yaml:"slurm,omitempty"`
	Tracking *TrackingConfig `yaml:"wandb,omitempty"`
	Seed     *int64          `yaml:"seed,omitempty"`

	raw map[string]any
	doc *yaml.Node
}

// Load reads a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document into a Config.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return fromMap(nil)
	}

	raw := map[string]any{}
	if err := doc.Decode(&raw); err != nil {
		return nil, err
	}
	cfg, err := fromMap(raw)
	if err != nil {
		return nil, err
	}
	cfg.doc = &doc
	return cfg, nil
}

func fromMap(raw map[string]any) (*Config, error) {
	if raw == nil {
		raw = map[string]any{}
	}

	// Re-encode the raw map so the typed view sees exactly what Save would write.
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.raw = raw
	return cfg, nil
}

// Validate checks the fields a submission needs.
func (c *Config) Validate() error {
	if c.Script == "" {
		return ErrMissingScript
	}
	return nil
}

// TrackingEnabled reports whether the config asks for a tracking run.
func (c *Config) TrackingEnabled() bool {
	return c.Tracking != nil && c.Tracking.Enabled
}

// Map returns a deep copy of the raw document.
func (c *Config) Map() map[string]any {
	return deepCopy(c.raw)
}

// Save writes the configuration as YAML, creating parent directories.
// A parsed configuration is written in its original key order with its
// comments; a merged one is written from its map.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	var doc any = cfg.raw
	if cfg.doc != nil {
		doc = cfg.doc
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Merge combines configurations left to right; later values override earlier
// ones on matching keys and nested maps are merged key by key.
func Merge(cfgs ...*Config) (*Config, error) {
	merged := map[string]any{}
	for _, cfg := range cfgs {
		if cfg == nil {
			continue
		}
		if err := mergo.Merge(&merged, cfg.Map(), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge configs: %w", err)
		}
	}
	return fromMap(merged)
}

func deepCopy(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopy(val)
	case []any:
		s := make([]any, len(val))
		for i := range val {
			s[i] = copyValue(val[i])
		}
		return s
	default:
		return val
	}
}
