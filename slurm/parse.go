package slurm

import "strings"

// stateNames maps raw Slurm state strings to the coarse states hyakvnc
// tracks. Cluster configurations vary in which states they surface, so
// anything unlisted is StateUnknown.
var stateNames = map[string]JobState{
	"PENDING":       StatePending,
	"PD":            StatePending,
	"CONFIGURING":   StatePending,
	"RUNNING":       StateRunning,
	"R":             StateRunning,
	"COMPLETING":    StateCompleting,
	"CG":            StateCompleting,
	"COMPLETED":     StateTerminated,
	"CANCELLED":     StateTerminated,
	"FAILED":        StateTerminated,
	"TIMEOUT":       StateTerminated,
	"PREEMPTED":     StateTerminated,
	"NODE_FAIL":     StateTerminated,
	"OUT_OF_MEMORY": StateTerminated,
}

// parseSubmitOutput extracts the job id from `sbatch --parsable` output,
// which is either "<id>" or "<id>;<cluster>".
func parseSubmitOutput(out string) string {
	line := strings.TrimSpace(out)
	if line == "" {
		return ""
	}
	// Multi-line output happens when sbatch prints informational notices
	// before the id; the id is the last line.
	lines := strings.Split(line, "\n")
	line = strings.TrimSpace(lines[len(lines)-1])
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return line
}

// parseAllocations parses `squeue --noheader --format` output, one job per
// line with pipe-separated fields. Parsing is tolerant: any field the
// scheduler omits maps to "unknown" rather than failing, because output
// varies across cluster configurations and partial information must not
// block the rest of the pipeline.
func parseAllocations(out string) []Allocation {
	var allocs []Allocation
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		alloc := Allocation{
			JobID:     field(fields, 0),
			Name:      field(fields, 1),
			State:     parseState(field(fields, 2)),
			Nodes:     parseNodeList(field(fields, 3)),
			CPUs:      field(fields, 4),
			Memory:    field(fields, 5),
			TimeLimit: field(fields, 6),
			TimeLeft:  field(fields, 7),
			GPUs:      parseGres(field(fields, 8)),
		}
		if alloc.JobID == "unknown" {
			continue
		}
		allocs = append(allocs, alloc)
	}
	return allocs
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return "unknown"
	}
	v := strings.TrimSpace(fields[i])
	if v == "" || v == "N/A" {
		return "unknown"
	}
	return v
}

func parseState(raw string) JobState {
	if state, ok := stateNames[strings.ToUpper(raw)]; ok {
		return state
	}
	return StateUnknown
}

// parseNodeList splits a Slurm nodelist. Pending jobs report a parenthesized
// reason (e.g. "(Resources)") instead of nodes; that is not a node.
func parseNodeList(raw string) []string {
	if raw == "unknown" || strings.HasPrefix(raw, "(") {
		return nil
	}
	var nodes []string
	for _, n := range strings.Split(raw, ",") {
		n = strings.TrimSpace(n)
		if n != "" {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// parseGres extracts the gpu spec from a gres string like "gres:gpu:a40:2",
// returning "0" when the job has no GPUs.
func parseGres(raw string) string {
	if raw == "unknown" || raw == "(null)" {
		return "0"
	}
	parts := strings.Split(raw, ":")
	for i, p := range parts {
		if p == "gpu" && i < len(parts)-1 {
			return strings.Join(parts[i+1:], ":")
		}
	}
	return "0"
}
