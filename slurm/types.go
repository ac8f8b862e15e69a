package slurm

import "time"

// JobState is the coarse allocation lifecycle state hyakvnc tracks. The
// scheduler reports many more states; anything unrecognized maps to
// StateUnknown rather than failing the pipeline.
type JobState string

const (
	StatePending    JobState = "pending"
	StateRunning    JobState = "running"
	StateCompleting JobState = "completing"
	StateTerminated JobState = "terminated"
	StateUnknown    JobState = "unknown"
)

// JobSpec describes a batch job submission.
type JobSpec struct {
	Name      string `yaml:"name"`
	Account   string `yaml:"account"`
	Partition string `yaml:"partition"`
	CPUs      int    `yaml:"cpus"`
	Memory    string `yaml:"memory"`
	GPUs      string `yaml:"gpus"` // count with optional type prefix, e.g. "a40:2"
	TimeLimit string `yaml:"time_limit"`

	// OutputPath captures scheduler and in-allocation output for diagnostics
	// and endpoint discovery. It must live on a filesystem shared between the
	// login node and the compute nodes.
	OutputPath string `yaml:"output_path"`
}

// Allocation is a snapshot of a job's granted resources and state.
type Allocation struct {
	JobID     string   `yaml:"job_id" json:"job_id"`
	Name      string   `yaml:"name" json:"name"`
	State     JobState `yaml:"state" json:"state"`
	Nodes     []string `yaml:"nodes" json:"nodes"`
	CPUs      string   `yaml:"cpus" json:"cpus"`
	Memory    string   `yaml:"memory" json:"memory"`
	GPUs      string   `yaml:"gpus" json:"gpus"`
	TimeLimit string   `yaml:"time_limit" json:"time_limit"`
	TimeLeft  string   `yaml:"time_left" json:"time_left"`
}

// Node returns the first allocated node, or "" while none is assigned.
func (a *Allocation) Node() string {
	if len(a.Nodes) == 0 {
		return ""
	}
	return a.Nodes[0]
}

// Running reports whether the allocation is in the running state.
func (a *Allocation) Running() bool {
	return a.State == StateRunning
}

// DefaultPollInterval is the fixed interval between state queries while
// waiting for a job to start. The query is cheap and bounded by the overall
// timeout, so no backoff is applied.
const DefaultPollInterval = 2 * time.Second
