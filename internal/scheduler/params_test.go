package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imishinist/slurm-exp/internal/expconfig"
)

func TestResolveParamsDefaults(t *testing.T) {
	p := ResolveParams(expconfig.SlurmConfig{}, Overrides{})

	assert.Equal(t, Params{
		JobName:     "experiment",
		Time:        "04:00:00",
		MemPerCPU:   "4G",
		CPUsPerTask: "1",
	}, p)
}

func TestResolveParamsPrecedence(t *testing.T) {
	full := expconfig.SlurmConfig{
		JobName:     "cfg-job",
		Time:        "01:00:00",
		MemPerCPU:   "8G",
		CPUsPerTask: "4",
		GPUs:        "a100:1",
		Partition:   "cfg-part",
	}

	tests := []struct {
		name      string
		cfg       expconfig.SlurmConfig
		overrides Overrides
		check     func(t *testing.T, p Params)
	}{
		{
			name: "time: cli over config",
			cfg:  full, overrides: Overrides{Time: "10:00:00"},
			check: func(t *testing.T, p Params) { assert.Equal(t, "10:00:00", p.Time) },
		},
		{
			name: "time: config over default",
			cfg:  full,
			check: func(t *testing.T, p Params) { assert.Equal(t, "01:00:00", p.Time) },
		},
		{
			name: "mem: cli over config",
			cfg:  full, overrides: Overrides{MemPerCPU: "16G"},
			check: func(t *testing.T, p Params) { assert.Equal(t, "16G", p.MemPerCPU) },
		},
		{
			name: "mem: cli over default",
			overrides: Overrides{MemPerCPU: "2G"},
			check: func(t *testing.T, p Params) { assert.Equal(t, "2G", p.MemPerCPU) },
		},
		{
			name: "cpus: cli over config",
			cfg:  full, overrides: Overrides{CPUsPerTask: 16},
			check: func(t *testing.T, p Params) { assert.Equal(t, "16", p.CPUsPerTask) },
		},
		{
			name: "cpus: config over default",
			cfg:  full,
			check: func(t *testing.T, p Params) { assert.Equal(t, "4", p.CPUsPerTask) },
		},
		{
			name: "cpus: explicit zero in config is kept",
			cfg:  expconfig.SlurmConfig{CPUsPerTask: "0"},
			check: func(t *testing.T, p Params) { assert.Equal(t, "0", p.CPUsPerTask) },
		},
		{
			name: "gpus: cli over config",
			cfg:  full, overrides: Overrides{GPUs: "h100:2"},
			check: func(t *testing.T, p Params) { assert.Equal(t, "h100:2", p.GPUs) },
		},
		{
			name: "gpus: absent stays empty",
			check: func(t *testing.T, p Params) { assert.Empty(t, p.GPUs) },
		},
		{
			name: "partition: cli over config",
			cfg:  full, overrides: Overrides{Partition: "debug"},
			check: func(t *testing.T, p Params) { assert.Equal(t, "debug", p.Partition) },
		},
		{
			name: "job name comes from config",
			cfg:  full, overrides: Overrides{Time: "x"},
			check: func(t *testing.T, p Params) { assert.Equal(t, "cfg-job", p.JobName) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ResolveParams(tt.cfg, tt.overrides))
		})
	}
}

func TestResolveParamsPassesValuesThrough(t *testing.T) {
	p := ResolveParams(expconfig.SlurmConfig{Time: "not-a-time", CPUsPerTask: "many"}, Overrides{MemPerCPU: "lots"})
	assert.Equal(t, "not-a-time", p.Time)
	assert.Equal(t, "lots", p.MemPerCPU)
	assert.Equal(t, "many", p.CPUsPerTask)
}

func TestEntries(t *testing.T) {
	p := ResolveParams(expconfig.SlurmConfig{
		Partition: "gpu",
		Extra:     map[string]any{"qos": "high", "constraint": "ib"},
	}, Overrides{})

	assert.Equal(t, []Entry{
		{"job_name", "experiment"},
		{"time", "04:00:00"},
		{"mem_per_cpu", "4G"},
		{"cpus_per_task", "1"},
		{"partition", "gpu"},
		{"constraint", "ib"},
		{"qos", "high"},
	}, p.Entries())
}
