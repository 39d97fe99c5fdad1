package perf

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jurf666/FaaSDocker/pkg/types"
)

const sampleReport = `
# started on Tue Jul 29 14:03:11 2025

 Performance counter stats for process id '41782':

     1,234,567,890      cycles
       987,654,321      instructions              #    0.80  insn per cycle
            452.18 msec task-clock                #    0.998 CPUs utilized
               142      context-switches          #  314.03 /sec
         2,345,678      cache-misses
           456,789      L1-dcache-load-misses
            12,345      LLC-load-misses
             1,024      page-faults
                 3      major-faults
             1,021      minor-faults

       5.001234567 seconds time elapsed
`

func TestParseReport(t *testing.T) {
	report := ParseReport(strings.NewReader(sampleReport))

	expected := types.MetricReport{
		"cycles":                1234567890,
		"instructions":          987654321,
		"task-clock":            452.18,
		"context-switches":      142,
		"cache-misses":          2345678,
		"L1-dcache-load-misses": 456789,
		"LLC-load-misses":       12345,
		"page-faults":           1024,
		"major-faults":          3,
		"minor-faults":          1021,
		"seconds":               5.001234567,
	}

	require.Equal(t, expected, report)
}

func TestParseReportSkipsGarbage(t *testing.T) {
	input := strings.Join([]string{
		"Performance counter stats for process id '99':",
		"<not supported>      branch-misses",
		"   totally unparseable line without numbers",
		"     100      cycles",
		"",
	}, "\n")

	report := ParseReport(strings.NewReader(input))

	require.Len(t, report, 1)
	assert.Equal(t, 100.0, report["cycles"])
}

func TestParseReportFileMissing(t *testing.T) {
	report := ParseReportFile(filepath.Join(t.TempDir(), "does-not-exist.txt"))

	require.NotNil(t, report)
	assert.Empty(t, report)
}

func TestDenoise(t *testing.T) {
	raw := types.MetricReport{
		"cycles":       1000,
		"instructions": 800,
		"task-clock":   50,
		"page-faults":  10,
	}
	noise := types.MetricReport{
		"cycles":       400,
		"instructions": 200,
		"task-clock":   60, // noisier than the run itself
		"page-faults":  2,
	}

	clean := Denoise(raw, noise)

	assert.Equal(t, 600.0, clean["cycles"])
	assert.Equal(t, 600.0, clean["instructions"])
	assert.Equal(t, 0.0, clean["task-clock"], "subtraction clamps at zero")
	assert.Equal(t, 8.0, clean["page-faults"])
	assert.Equal(t, 1.0, clean["IPC"])
}

func TestDenoiseMonotonic(t *testing.T) {
	raw := types.MetricReport{
		"cycles":           5000,
		"instructions":     4000,
		"cache-misses":     300,
		"context-switches": 12,
	}
	noise := types.MetricReport{
		"cycles":           100,
		"instructions":     90,
		"cache-misses":     500,
		"context-switches": 1,
	}

	clean := Denoise(raw, noise)

	for key, v := range clean {
		if key == "IPC" {
			continue
		}
		assert.GreaterOrEqual(t, v, 0.0, "clean[%s] must be non-negative", key)
		assert.LessOrEqual(t, v, raw[key], "clean[%s] must not exceed raw", key)
	}
}

func TestDenoiseZeroCycles(t *testing.T) {
	clean := Denoise(types.MetricReport{"instructions": 100}, types.MetricReport{})

	assert.Equal(t, 0.0, clean["IPC"])
}
