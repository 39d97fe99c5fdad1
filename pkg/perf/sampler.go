package perf

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/Jurf666/FaaSDocker/pkg/log"
)

// windowCap bounds a sampling window that is never stopped explicitly; the
// dispatcher interrupts the sampler long before this elapses
const windowCap = 300

// Sampler launches counter-sampling processes attached to a target pid
type Sampler interface {
	Launch(pid int, events, path string) (Process, error)
}

// Process is a live sampler attached to a pid. Stop interrupts the process
// group, waits up to grace, then kills; the report file is closed before
// Stop returns so the caller can read it.
type Process interface {
	Stop(grace time.Duration) error
	Running() bool
}

// PerfSampler runs `perf stat` under elevated privileges in its own process
// group, writing the counter report to a file.
type PerfSampler struct {
	// SudoPath overrides the privilege-escalation binary ("sudo" by default)
	SudoPath string
}

// NewPerfSampler creates a sampler using perf stat
func NewPerfSampler() *PerfSampler {
	return &PerfSampler{SudoPath: "sudo"}
}

// Launch attaches perf stat to pid, sampling events until stopped. The
// report lands in path once the process is interrupted.
func (s *PerfSampler) Launch(pid int, events, path string) (Process, error) {
	report, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create perf report %s: %w", path, err)
	}

	// perf stat prints its report to stderr on SIGINT
	cmd := exec.Command(s.SudoPath, "perf", "stat",
		"-p", strconv.Itoa(pid),
		"-e", events,
		"sleep", strconv.Itoa(windowCap),
	)
	cmd.Stderr = report
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		report.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to start perf: %w", err)
	}

	p := &perfProcess{
		cmd:    cmd,
		report: report,
		path:   path,
		done:   make(chan struct{}),
	}
	go p.reap()

	plog := log.WithComponent("perf")
	plog.Debug().
		Int("pid", pid).
		Str("report", path).
		Msg("sampler attached")

	return p, nil
}

type perfProcess struct {
	cmd    *exec.Cmd
	report *os.File
	path   string

	done      chan struct{}
	closeOnce sync.Once
	waitErr   error
}

// reap waits for process exit so Stop can bound its wait on done
func (p *perfProcess) reap() {
	p.waitErr = p.cmd.Wait()
	close(p.done)
}

// Running reports whether the sampler process is still alive
func (p *perfProcess) Running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Stop interrupts the sampler's process group so the counter-reading child
// terminates with its parent, waits up to grace, then kills the group. The
// report file is flushed and closed before returning.
func (p *perfProcess) Stop(grace time.Duration) error {
	defer p.closeReport()

	pgid, err := syscall.Getpgid(p.cmd.Process.Pid)
	if err != nil {
		// Process already reaped; nothing to signal
		<-p.done
		return nil
	}

	if err := syscall.Kill(-pgid, syscall.SIGINT); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("failed to interrupt sampler group %d: %w", pgid, err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
	}

	plog2 := log.WithComponent("perf")
	plog2.Warn().
		Int("pgid", pgid).
		Msg("sampler did not stop in grace window, killing")

	if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("failed to kill sampler group %d: %w", pgid, err)
	}
	<-p.done
	return nil
}

func (p *perfProcess) closeReport() {
	p.closeOnce.Do(func() {
		_ = p.report.Sync()
		_ = p.report.Close()
	})
}

var _ Sampler = (*PerfSampler)(nil)
