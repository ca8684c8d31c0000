// Package metadata generates timestamps, identifiers and repository state
// recorded alongside each experiment.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout renders as YYYY-MM-DD_HH-MM-SS.
const TimestampLayout = "2006-01-02_15-04-05"

// DefaultIDLength is the number of UUID characters used for directory suffixes.
const DefaultIDLength = 8

// FileName is the name of the metadata file inside an output directory.
const FileName = "metadata.json"

// Timestamp formats t in local time.
func Timestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// ShortID returns the first n characters of a random UUID.
// Uniqueness against existing directories is not checked.
func ShortID(n int) string {
	id := uuid.NewString()
	if n <= 0 || n > len(id) {
		return id
	}
	return id[:n]
}

// Record is the content of metadata.json.
type Record struct {
	Timestamp  string         `json:"timestamp"`
	ConfigPath string         `json:"config_path"`
	Git        GitInfo        `json:"git"`
	SlurmJobID string         `json:"slurm_job_id,omitempty"`
	Extra      map[string]any `json:"-"`
}

// NewRecord builds a record stamped with now.
func NewRecord(now time.Time, configPath string, git GitInfo, jobID string) *Record {
	return &Record{
		Timestamp:  now.Local().Format(time.RFC3339),
		ConfigPath: configPath,
		Git:        git,
		SlurmJobID: jobID,
	}
}

// MarshalJSON flattens Extra into the top-level object. Extra wins on key
// collisions.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	base, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Write stores the record as indented JSON in dir/metadata.json.
func Write(dir string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write metadata %s: %w", path, err)
	}
	return nil
}

// Read loads a metadata file written by Write.
func Read(dir string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return rec, nil
}
