package scheduler

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/imishinist/slurm-exp/internal/expconfig"
)

// Built-in defaults, used when neither the config nor the command line set a value.
const (
	DefaultJobName     = "experiment"
	DefaultTime        = "04:00:00"
	DefaultMemPerCPU   = "4G"
	DefaultCPUsPerTask = "1"
)

// Params is the resolved scheduler parameter set for one submission.
type Params struct {
	JobName     string
	Time        string
	MemPerCPU   string
	CPUsPerTask string
	GPUs        string
	Partition   string

	// Extra holds scheduler keys from the config that are not rendered.
	Extra map[string]any
}

// Overrides are command-line values. Zero values mean "not given".
type Overrides struct {
	Time        string
	MemPerCPU   string
	CPUsPerTask int
	GPUs        string
	Partition   string
}

// ResolveParams applies command-line overrides over config values over defaults.
// Values are passed through unvalidated; sbatch is the only validator.
func ResolveParams(cfg expconfig.SlurmConfig, o Overrides) Params {
	p := Params{
		JobName:     cfg.JobName,
		Time:        cfg.Time,
		MemPerCPU:   cfg.MemPerCPU,
		CPUsPerTask: cfg.CPUsPerTask,
		GPUs:        cfg.GPUs,
		Partition:   cfg.Partition,
	}
	if len(cfg.Extra) > 0 {
		p.Extra = make(map[string]any, len(cfg.Extra))
		for k, v := range cfg.Extra {
			p.Extra[k] = v
		}
	}

	if o.Time != "" {
		p.Time = o.Time
	}
	if o.MemPerCPU != "" {
		p.MemPerCPU = o.MemPerCPU
	}
	if o.CPUsPerTask != 0 {
		p.CPUsPerTask = strconv.Itoa(o.CPUsPerTask)
	}
	if o.GPUs != "" {
		p.GPUs = o.GPUs
	}
	if o.Partition != "" {
		p.Partition = o.Partition
	}

	if p.JobName == "" {
		p.JobName = DefaultJobName
	}
	if p.Time == "" {
		p.Time = DefaultTime
	}
	if p.MemPerCPU == "" {
		p.MemPerCPU = DefaultMemPerCPU
	}
	if p.CPUsPerTask == "" {
		p.CPUsPerTask = DefaultCPUsPerTask
	}
	return p
}

// Entry is one key/value line of a parameter summary.
type Entry struct {
	Key   string
	Value string
}

// Entries lists the parameters in a stable order: rendered directives
// first, then extra keys sorted by name.
func (p Params) Entries() []Entry {
	entries := []Entry{
		{"job_name", p.JobName},
		{"time", p.Time},
		{"mem_per_cpu", p.MemPerCPU},
		{"cpus_per_task", p.CPUsPerTask},
	}
	if p.GPUs != "" {
		entries = append(entries, Entry{"gpus", p.GPUs})
	}
	if p.Partition != "" {
		entries = append(entries, Entry{"partition", p.Partition})
	}

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		entries = append(entries, Entry{k, fmt.Sprintf("%v", p.Extra[k])})
	}
	return entries
}
