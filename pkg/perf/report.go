package perf

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Jurf666/FaaSDocker/pkg/log"
	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// timeUnits are the perf unit tags that shift the counter name one token
// right, e.g. "452.18 msec task-clock"
var timeUnits = map[string]bool{
	"msec":    true,
	"ms":      true,
	"sec":     true,
	"seconds": true,
}

// ParseReportFile reads a sampler report from disk. A missing file yields an
// empty report with a warning, never an error: measurement is auxiliary.
func ParseReportFile(path string) types.MetricReport {
	f, err := os.Open(path)
	if err != nil {
		plog := log.WithComponent("perf")
		plog.Warn().
			Str("report", path).
			Err(err).
			Msg("perf report unreadable, treating as empty")
		return types.MetricReport{}
	}
	defer f.Close()

	return ParseReport(f)
}

// ParseReport extracts counter values from perf stat output. Relevant lines
// are "<value> <unit> <key>" or "<value> <key>"; the trailing
// "<value> seconds time elapsed" summary becomes the synthetic "seconds"
// entry. Values may carry thousands-separator commas. Anything that does not
// parse is skipped.
func ParseReport(r io.Reader) types.MetricReport {
	report := types.MetricReport{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		value, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", ""), 64)
		if err != nil {
			continue
		}

		key := ""
		if timeUnits[fields[1]] {
			if len(fields) < 3 {
				continue
			}
			key = fields[2]
			if key == "time" && len(fields) >= 4 && fields[3] == "elapsed" {
				key = "seconds"
			}
		} else {
			key = fields[1]
		}

		report[key] = value
	}

	return report
}
