package perf

import (
	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// denoisedKeys is the counter set the baseline subtraction applies to. Timing
// counters (seconds) and fault splits stay raw; IPC is recomputed from the
// clean values.
var denoisedKeys = []string{
	"cycles",
	"instructions",
	"task-clock",
	"context-switches",
	"cache-misses",
	"L1-dcache-load-misses",
	"LLC-load-misses",
	"page-faults",
}

// Denoise subtracts the noop baseline from a raw report per counter, clamping
// at zero, and derives IPC from the clean cycles and instructions.
func Denoise(raw, noise types.MetricReport) types.MetricReport {
	clean := types.MetricReport{}

	for _, key := range denoisedKeys {
		v := raw[key] - noise[key]
		if v < 0 {
			v = 0
		}
		clean[key] = v
	}

	if clean["cycles"] > 0 {
		clean["IPC"] = clean["instructions"] / clean["cycles"]
	} else {
		clean["IPC"] = 0
	}

	return clean
}
