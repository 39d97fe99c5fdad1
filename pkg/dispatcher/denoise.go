package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Jurf666/FaaSDocker/pkg/log"
	"github.com/Jurf666/FaaSDocker/pkg/perf"
	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// noopFunction is the do-nothing action whose counters approximate the
// framework's own overhead (request parsing, proxy plumbing, sampler skew)
const noopFunction = "noop"

// DispatchWithDenoising wraps Dispatch with a baseline run: a noop
// invocation is measured first and its counters are subtracted from the
// target's raw report. Measurement problems never fail the call; the
// target's result is always what comes back.
func (d *Dispatcher) DispatchWithDenoising(ctx context.Context, functionName string, payload any) (any, string, error) {
	perfDir := filepath.Join(d.cfg.PerfLogDir, functionName)

	// A bare noop dispatch needs no baseline; its clean record carries
	// empty noise
	if functionName == noopFunction {
		result, containerID, err := d.Dispatch(ctx, functionName, payload, d.cfg.Perf.Enabled, perfDir)
		if err != nil {
			return nil, containerID, err
		}
		if d.cfg.Perf.Enabled {
			raw := perf.ParseReportFile(ReportPath(perfDir, functionName, containerID))
			d.persistCleanRecord(functionName, containerID, perfDir, raw, types.MetricReport{}, result)
		}
		return result, containerID, nil
	}

	mgr, err := d.registry.Get(functionName)
	if err != nil {
		return nil, "", err
	}

	noise := types.MetricReport{}
	if d.cfg.Perf.Enabled {
		noise = d.measureBaseline(ctx, mgr.Config(), payload, perfDir)
	}

	result, containerID, err := d.Dispatch(ctx, functionName, payload, d.cfg.Perf.Enabled, perfDir)
	if err != nil {
		return nil, containerID, err
	}

	if d.cfg.Perf.Enabled {
		raw := perf.ParseReportFile(ReportPath(perfDir, functionName, containerID))
		d.persistCleanRecord(functionName, containerID, perfDir, raw, noise, result)
	}

	return result, containerID, nil
}

// measureBaseline runs noop with the sampler attached and parses its report.
// The noop manager is registered on first use, inheriting the target's image
// so both run the same proxy. A failed baseline yields empty noise.
func (d *Dispatcher) measureBaseline(ctx context.Context, target types.ManagerConfig, payload any, perfDir string) types.MetricReport {
	if _, err := d.registry.Get(noopFunction); err != nil {
		noopCfg := types.ManagerConfig{
			FunctionName:      noopFunction,
			ImageName:         target.ImageName,
			ContainerPort:     target.ContainerPort,
			HostStoragePath:   target.HostStoragePath,
			IdleTimeout:       target.IdleTimeout,
			MinIdleContainers: 0,
			CleanInterval:     target.CleanInterval,
		}
		if _, _, err := d.registry.Create(noopCfg); err != nil {
			d.logger.Warn().Err(err).Msg("could not register noop manager, skipping baseline")
			return types.MetricReport{}
		}
	}

	// The target's payload is forwarded so the baseline includes its parsing
	// cost; noop ignores the content
	baselinePayload := payload
	if !d.cfg.Perf.BaselineUsesPayload {
		baselinePayload = map[string]any{}
	}

	_, containerID, err := d.Dispatch(ctx, noopFunction, baselinePayload, true, perfDir)
	if err != nil {
		d.logger.Warn().Err(err).Msg("noise baseline run failed, proceeding with empty baseline")
		return types.MetricReport{}
	}

	return perf.ParseReportFile(ReportPath(perfDir, noopFunction, containerID))
}

// persistCleanRecord writes the combined record next to the raw reports and,
// when a store is wired, into the invocation history
func (d *Dispatcher) persistCleanRecord(functionName, containerID, perfDir string, raw, noise types.MetricReport, result any) {
	rec := &types.InvocationRecord{
		Function:      functionName,
		Container:     log.ShortID(containerID),
		Timestamp:     time.Now(),
		RawMetrics:    raw,
		NoiseBaseline: noise,
		CleanMetrics:  perf.Denoise(raw, noise),
		Result:        result,
	}

	path := filepath.Join(perfDir, fmt.Sprintf("clean_%s_%s.json", functionName, log.ShortID(containerID)))
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		d.logger.Warn().Err(err).Msg("could not encode clean metrics record")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		d.logger.Warn().Err(err).Str("path", path).Msg("could not write clean metrics record")
		return
	}

	if d.store != nil {
		if err := d.store.SaveInvocation(rec); err != nil {
			d.logger.Warn().Err(err).Msg("could not persist invocation record")
		}
	}

	d.logger.Debug().
		Str("function", functionName).
		Str("container", log.ShortID(containerID)).
		Float64("clean_ipc", rec.CleanMetrics["IPC"]).
		Msg("clean metrics recorded")
}
